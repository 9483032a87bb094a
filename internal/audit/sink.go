// internal/audit/sink.go

// Package audit mirrors conversation traffic to the backend so the admin
// chat view shows both sides. Everything here is best effort: a failed audit
// write is logged and dropped, never surfaced to the user flow.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	commonhttp "github.com/beeshaker/whatsapp-eats-backend/internal/common/http"
	"github.com/beeshaker/whatsapp-eats-backend/internal/common/logger"
	"github.com/beeshaker/whatsapp-eats-backend/internal/store"
	"github.com/beeshaker/whatsapp-eats-backend/internal/whatsapp"
)

type Config struct {
	BaseURL  string
	TenantID string
	Timeout  time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		TenantID: "1",
		Timeout:  8 * time.Second,
	}
}

// Sink posts audit events. Inbound events are gated through the dedup
// store's forever layer so a redelivered webhook never produces a duplicate
// admin-log row, even after the processing-dedup TTL expires.
type Sink struct {
	config *Config
	client *commonhttp.Client
	dedup  store.DedupStore
	logger logger.Logger
}

func NewSink(config *Config, dedup store.DedupStore, log logger.Logger) *Sink {
	return &Sink{
		config: config,
		client: commonhttp.NewClient(config.Timeout),
		dedup:  dedup,
		logger: log.With(map[string]interface{}{"component": "audit"}),
	}
}

func (s *Sink) post(ctx context.Context, path string, payload map[string]interface{}) error {
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", s.config.TenantID)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// LogInbound mirrors one customer message. The waMsgID gates the write
// forever; messages without an id are logged under a generated event id and
// cannot be deduplicated, which matches how little we can trust them anyway.
func (s *Sink) LogInbound(ctx context.Context, from, displayName, waMsgID, msgType, text string) {
	if s.config.BaseURL == "" {
		return
	}

	eventID := waMsgID
	if eventID == "" {
		eventID = "gen-" + uuid.NewString()
	} else {
		fresh, err := s.dedup.ClaimForever(ctx, eventID)
		if err != nil {
			s.logger.Warn("inbound audit dedup check failed", map[string]interface{}{"error": err.Error()})
			return
		}
		if !fresh {
			return
		}
	}

	payload := map[string]interface{}{
		"from":         from,
		"display_name": displayName,
		"wa_msg_id":    eventID,
		"type":         msgType,
		"text":         text,
		"timestamp":    time.Now().Unix(),
		"meta":         map[string]interface{}{"source": "customer"},
	}

	if err := s.post(ctx, "/v1/whatsapp/webhook_inbound", payload); err != nil {
		s.logger.Warn("inbound audit write failed", map[string]interface{}{
			"waMsgId": eventID,
			"error":   err.Error(),
		})
	}
}

// LogOutbound mirrors one bot message. Wired as the sender's observer.
func (s *Sink) LogOutbound(ctx context.Context, rec whatsapp.OutboundRecord) {
	if s.config.BaseURL == "" {
		return
	}

	payload := map[string]interface{}{
		"to":        rec.To,
		"wa_msg_id": rec.WaMsgID,
		"type":      rec.Type,
		"text":      rec.Text,
		"media_url": rec.MediaURL,
		"timestamp": time.Now().Unix(),
		"meta":      rec.Meta,
	}
	if payload["meta"] == nil {
		payload["meta"] = map[string]interface{}{}
	}

	if err := s.post(ctx, "/v1/whatsapp/log_outbound", payload); err != nil {
		s.logger.Warn("outbound audit write failed", map[string]interface{}{
			"waMsgId": rec.WaMsgID,
			"error":   err.Error(),
		})
	}
}
