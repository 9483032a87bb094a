// internal/whatsapp/sender.go

// Package whatsapp sends outbound messages through the Cloud API. Senders are
// fire-and-observe: a failed send is logged and counted but never bubbles
// back into routing, so one flaky delivery cannot wedge a conversation.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/beeshaker/whatsapp-eats-backend/internal/common/errors"
	"github.com/beeshaker/whatsapp-eats-backend/internal/common/logger"
	"github.com/beeshaker/whatsapp-eats-backend/internal/common/metrics"
)

// Cloud API payload limits.
const (
	maxTextLen      = 4096
	maxBodyLen      = 1024
	maxButtonIDLen  = 256
	maxButtonTitle  = 20
	maxButtons      = 3
	maxSections     = 10
	maxRowsPerSec   = 10
	maxRowIDLen     = 200
	maxRowTitleLen  = 24
	maxRowDescLen   = 72
	maxSectionTitle = 24
	maxFilenameLen  = 200
	maxCaptionLen   = 1024
)

type Config struct {
	AccessToken   string
	PhoneNumberID string
	GraphBaseURL  string
	SendTimeout   time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		GraphBaseURL: "https://graph.facebook.com/v20.0",
		SendTimeout:  15 * time.Second,
	}
}

// Button is one quick-reply choice.
type Button struct {
	ID    string
	Title string
}

// Row is one selectable row in a list section.
type Row struct {
	ID          string
	Title       string
	Description string
}

// Section groups rows under a heading.
type Section struct {
	Title string
	Rows  []Row
}

// OutboundRecord describes one sent message, handed to the observer for
// audit logging.
type OutboundRecord struct {
	To       string
	WaMsgID  string
	Type     string
	Text     string
	MediaURL string
	Meta     map[string]interface{}
}

// Observer receives a record after every send attempt that reached the API.
// Implementations must be non-blocking or cheap; the sender calls them inline.
type Observer func(ctx context.Context, rec OutboundRecord)

type Sender struct {
	config   *Config
	client   *http.Client
	logger   logger.Logger
	observer Observer
}

func NewSender(config *Config, log logger.Logger, observer Observer) *Sender {
	return &Sender{
		config:   config,
		client:   &http.Client{Timeout: config.SendTimeout},
		logger:   log.With(map[string]interface{}{"component": "whatsapp"}),
		observer: observer,
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// post delivers one payload to the messages endpoint. Returns the wamid when
// the API reports one.
func (s *Sender) post(ctx context.Context, kind string, payload map[string]interface{}) (string, error) {
	body, _ := json.Marshal(payload)
	url := fmt.Sprintf("%s/%s/messages", s.config.GraphBaseURL, s.config.PhoneNumberID)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewSendFailedError(kind, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.OutboundSends.WithLabelValues(kind, "error").Inc()
		s.logger.Error("send failed", map[string]interface{}{"kind": kind, "error": err.Error()})
		return "", apperrors.NewSendFailedError(kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		metrics.OutboundSends.WithLabelValues(kind, "error").Inc()
		s.logger.Error("send rejected", map[string]interface{}{"kind": kind, "status": resp.StatusCode})
		return "", apperrors.NewSendFailedError(kind, fmt.Errorf("status %d", resp.StatusCode))
	}

	metrics.OutboundSends.WithLabelValues(kind, "ok").Inc()

	var decoded sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil && len(decoded.Messages) > 0 {
		return decoded.Messages[0].ID, nil
	}
	return "", nil
}

func (s *Sender) observe(ctx context.Context, rec OutboundRecord) {
	if s.observer != nil {
		s.observer(ctx, rec)
	}
}

// SendText sends a plain text message, truncated to the API limit.
func (s *Sender) SendText(ctx context.Context, to, text string) error {
	body := truncate(text, maxTextLen)
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}

	waMsgID, err := s.post(ctx, "text", payload)
	if err != nil {
		return err
	}
	s.observe(ctx, OutboundRecord{
		To: to, WaMsgID: waMsgID, Type: "text", Text: body,
		Meta: map[string]interface{}{"source": "bot"},
	})
	return nil
}

// SendQuickReplies sends up to three reply buttons.
func (s *Sender) SendQuickReplies(ctx context.Context, to, body string, buttons []Button) error {
	if len(buttons) > maxButtons {
		buttons = buttons[:maxButtons]
	}

	titles := make([]string, 0, len(buttons))
	norm := make([]map[string]interface{}, 0, len(buttons))
	for _, b := range buttons {
		id := b.ID
		if id == "" {
			id = b.Title
		}
		title := truncate(b.Title, maxButtonTitle)
		titles = append(titles, title)
		norm = append(norm, map[string]interface{}{
			"type": "reply",
			"reply": map[string]string{
				"id":    truncate(id, maxButtonIDLen),
				"title": title,
			},
		})
	}

	text := truncate(body, maxBodyLen)
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type":   "button",
			"body":   map[string]string{"text": text},
			"action": map[string]interface{}{"buttons": norm},
		},
	}

	waMsgID, err := s.post(ctx, "quick_replies", payload)
	if err != nil {
		return err
	}
	s.observe(ctx, OutboundRecord{
		To: to, WaMsgID: waMsgID, Type: "interactive", Text: text,
		Meta: map[string]interface{}{"source": "bot", "kind": "quick_replies", "buttons": titles},
	})
	return nil
}

// SendList sends an interactive list. Sections and rows beyond the API
// limits are dropped, not rejected.
func (s *Sender) SendList(ctx context.Context, to, body string, sections []Section) error {
	if len(sections) > maxSections {
		sections = sections[:maxSections]
	}

	trimmed := make([]map[string]interface{}, 0, len(sections))
	for _, sec := range sections {
		rows := sec.Rows
		if len(rows) > maxRowsPerSec {
			rows = rows[:maxRowsPerSec]
		}
		outRows := make([]map[string]interface{}, 0, len(rows))
		for _, row := range rows {
			r := map[string]interface{}{
				"id":    truncate(row.ID, maxRowIDLen),
				"title": truncate(row.Title, maxRowTitleLen),
			}
			if row.Description != "" {
				r["description"] = truncate(row.Description, maxRowDescLen)
			}
			outRows = append(outRows, r)
		}
		if len(outRows) == 0 {
			continue
		}
		trimmed = append(trimmed, map[string]interface{}{
			"title": truncate(sec.Title, maxSectionTitle),
			"rows":  outRows,
		})
	}

	text := truncate(body, maxBodyLen)
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type": "list",
			"body": map[string]string{"text": text},
			"action": map[string]interface{}{
				"button":   "Choose",
				"sections": trimmed,
			},
		},
	}

	waMsgID, err := s.post(ctx, "list", payload)
	if err != nil {
		return err
	}
	s.observe(ctx, OutboundRecord{
		To: to, WaMsgID: waMsgID, Type: "interactive", Text: text,
		Meta: map[string]interface{}{"source": "bot", "kind": "list", "sections": len(trimmed)},
	})
	return nil
}

// SendDocument sends a document by public URL.
func (s *Sender) SendDocument(ctx context.Context, to, url, filename, caption string) error {
	doc := map[string]interface{}{"link": url}
	if filename != "" {
		doc["filename"] = truncate(filename, maxFilenameLen)
	}
	if caption != "" {
		doc["caption"] = truncate(caption, maxCaptionLen)
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "document",
		"document":          doc,
	}

	waMsgID, err := s.post(ctx, "document", payload)
	if err != nil {
		return err
	}
	s.observe(ctx, OutboundRecord{
		To: to, WaMsgID: waMsgID, Type: "document", Text: caption, MediaURL: url,
		Meta: map[string]interface{}{"source": "bot", "filename": filename},
	})
	return nil
}
