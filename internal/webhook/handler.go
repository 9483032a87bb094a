// internal/webhook/handler.go

// Package webhook terminates the messaging provider's delivery callbacks.
// The provider retries anything that is not acknowledged quickly, so the
// handler always answers 200 once a payload has been read; dedup makes the
// redeliveries harmless.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/beeshaker/whatsapp-eats-backend/internal/common/logger"
	"github.com/beeshaker/whatsapp-eats-backend/internal/common/metrics"
	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
	"github.com/beeshaker/whatsapp-eats-backend/internal/store"
)

const defaultMaxBodyBytes = 1 << 20

type Config struct {
	VerifyToken  string
	MaxBodyBytes int64
}

// InboundRouter consumes one deduplicated message.
type InboundRouter interface {
	HandleInbound(ctx context.Context, senderID, displayName string, msg *models.Message)
}

// AuditSink records accepted inbound traffic.
type AuditSink interface {
	LogInbound(ctx context.Context, from, displayName, waMsgID, msgType, text string)
}

// Notifier sends the apology text when processing a message panics.
type Notifier interface {
	SendText(ctx context.Context, to, text string) error
}

type Handler struct {
	config   *Config
	dedup    store.DedupStore
	router   InboundRouter
	audit    AuditSink
	notifier Notifier
	logger   logger.Logger
}

func NewHandler(config *Config, dedup store.DedupStore, router InboundRouter,
	audit AuditSink, notifier Notifier, log logger.Logger) *Handler {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Handler{
		config:   config,
		dedup:    dedup,
		router:   router,
		audit:    audit,
		notifier: notifier,
		logger:   log.With(map[string]interface{}{"component": "webhook"}),
	}
}

// Routes mounts the webhook endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/webhook", h.Verify)
	r.Post("/webhook", h.Receive)
	return r
}

// Verify answers the provider's subscription handshake.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == h.config.VerifyToken {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	http.Error(w, "verification failed", http.StatusForbidden)
}

// Receive ingests one delivery batch. Malformed payloads and processing
// failures still acknowledge 200: a non-2xx only makes the provider redeliver
// the same batch.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	defer h.ack(w)

	var payload models.WebhookPayload
	body := http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		h.logger.Warn("undecodable webhook payload", map[string]interface{}{"error": err.Error()})
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			h.processChange(r.Context(), &change.Value)
		}
	}
}

func (h *Handler) ack(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// processChange handles the messages of one change. Status and read-receipt
// callbacks carry no messages and fall through silently.
func (h *Handler) processChange(ctx context.Context, value *models.ChangeValue) {
	for i := range value.Messages {
		msg := &value.Messages[i]
		if msg.From == "" {
			continue
		}

		raw, _ := json.Marshal(msg)
		fresh, err := h.dedup.Claim(ctx, "message", msg.From, msg.ID, raw)
		if err != nil {
			// Fail open: a broken dedup store must not drop live traffic.
			h.logger.Warn("dedup claim failed", map[string]interface{}{"error": err.Error()})
			fresh = true
		}
		if !fresh {
			metrics.DedupRejections.WithLabelValues("message").Inc()
			h.logger.Debug("duplicate delivery dropped", map[string]interface{}{
				"from":  msg.From,
				"msgId": msg.ID,
			})
			continue
		}

		metrics.InboundMessages.WithLabelValues(string(msg.Type)).Inc()

		name := displayName(value.Contacts, msg.From)
		h.audit.LogInbound(ctx, msg.From, name, msg.ID, string(msg.Type), textOf(msg))
		h.dispatch(ctx, msg, name)
	}
}

// dispatch isolates routing so one crashing message cannot take down the
// whole batch or leak a 500 back to the provider.
func (h *Handler) dispatch(ctx context.Context, msg *models.Message, name string) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("panic while routing message", map[string]interface{}{
				"from":  msg.From,
				"msgId": msg.ID,
				"panic": rec,
			})
			_ = h.notifier.SendText(ctx, msg.From, "Sorry, something went wrong. Please try again.")
		}
	}()
	h.router.HandleInbound(ctx, msg.From, name, msg)
}

func displayName(contacts []models.Contact, waID string) string {
	for _, c := range contacts {
		if c.WaID == waID {
			return c.Profile.Name
		}
	}
	if len(contacts) > 0 {
		return contacts[0].Profile.Name
	}
	return ""
}

func textOf(msg *models.Message) string {
	switch {
	case msg.Text != nil:
		return msg.Text.Body
	case msg.Interactive != nil:
		return msg.Interactive.ReplyID()
	case msg.Location != nil:
		return msg.Location.Address
	}
	return ""
}
