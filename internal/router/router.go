// internal/router/router.go

// Package router is the decision core: given one inbound message plus the
// current cart/profile/menu context it decides what to do. Deterministic
// fast-path rules run first, then captured-state interception, then the
// structured-intent classifier for open-ended text. Postback tokens never
// reach the classifier.
package router

import (
	"context"
	"strings"
	"time"

	"github.com/beeshaker/whatsapp-eats-backend/internal/classifier"
	"github.com/beeshaker/whatsapp-eats-backend/internal/common/logger"
	"github.com/beeshaker/whatsapp-eats-backend/internal/common/metrics"
	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
	"github.com/beeshaker/whatsapp-eats-backend/internal/recommend"
	"github.com/beeshaker/whatsapp-eats-backend/internal/store"
	"github.com/beeshaker/whatsapp-eats-backend/internal/whatsapp"
)

// Backend is the cart/order/menu surface the router mutates and reads.
type Backend interface {
	AddItem(ctx context.Context, userID string, itemID, qty int) (*models.CartSnapshot, error)
	GetCart(ctx context.Context, userID string) (*models.CartSnapshot, error)
	ClearCart(ctx context.Context, userID string) error
	UpdateCart(ctx context.Context, userID string, ops []models.CartOp) (*models.CartSnapshot, error)
	CreateOrder(ctx context.Context, userID, customerName, phone string, fulfillment models.Fulfillment) (*models.Order, error)
	GetOrder(ctx context.Context, codeOrID string) (*models.Order, error)
	ListVariants(ctx context.Context, itemID int) ([]models.Variant, error)
	GetMenu(ctx context.Context) (*models.Menu, error)
	GetMenuPDFURLs(ctx context.Context) ([]string, error)
}

// Classifier turns free text into a structured intent.
type Classifier interface {
	Parse(ctx context.Context, in *classifier.Request) (*models.ParsedIntent, error)
}

// Sender is the outbound presenter surface.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
	SendQuickReplies(ctx context.Context, to, body string, buttons []whatsapp.Button) error
	SendList(ctx context.Context, to, body string, sections []whatsapp.Section) error
	SendDocument(ctx context.Context, to, url, filename, caption string) error
}

type Config struct {
	PublicBaseURL string
	RestaurantID  int
}

type Router struct {
	config     *Config
	backend    Backend
	classifier Classifier
	sender     Sender
	states     store.StateStore
	profiles   store.ProfileStore
	engine     *recommend.Engine
	logger     logger.Logger
}

func New(config *Config, backend Backend, cls Classifier, sender Sender,
	states store.StateStore, profiles store.ProfileStore, engine *recommend.Engine, log logger.Logger) *Router {
	return &Router{
		config:     config,
		backend:    backend,
		classifier: cls,
		sender:     sender,
		states:     states,
		profiles:   profiles,
		engine:     engine,
		logger:     log.With(map[string]interface{}{"component": "router"}),
	}
}

// Fast-path trigger sets. Substring containment over the lowercased text,
// checked in priority order; first match wins.
var (
	checkoutKeywords = []string{"checkout", "pay", "place order", "i'm ready", "complete", "done", "yes"}
	cartKeywords     = []string{"cart", "my order", "what i have", "show me", "show cart"}
	greetingWords    = map[string]bool{"hi": true, "hello": true, "hey": true, "start": true, "mambo": true, "sasa": true}
)

const welcomeMessage = "🍔 *Welcome to QuickBite!*\n" +
	"Just tell me what you'd like to eat or drink, and I'll build your order.\n" +
	"You can also say things like:\n" +
	"• \"show me the menu\"\n" +
	"• \"what's in my cart?\"\n" +
	"• \"checkout\"\n" +
	"• \"what's the status of order 1234?\""

// HandleInbound routes one already-deduplicated message.
func (r *Router) HandleInbound(ctx context.Context, senderID, displayName string, msg *models.Message) {
	start := time.Now()
	path := "unknown"
	defer func() {
		metrics.RoutingDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}()

	switch msg.Type {
	case models.MessageTypeInteractive:
		path = "postback"
		r.handlePostback(ctx, senderID, displayName, msg.Interactive.ReplyID())
	case models.MessageTypeLocation:
		path = "location"
		r.handleLocation(ctx, senderID, displayName, msg.Location)
	case models.MessageTypeText:
		if msg.Text == nil {
			return
		}
		path = r.handleText(ctx, senderID, displayName, strings.TrimSpace(msg.Text.Body))
	default:
		r.logger.Debug("ignoring unsupported message type", map[string]interface{}{
			"type": string(msg.Type),
		})
	}
}

// handleText runs the text pipeline and returns the metrics path label.
func (r *Router) handleText(ctx context.Context, senderID, displayName, text string) string {
	if text == "" {
		return "empty"
	}

	// Captured-state interception consumes exactly one message.
	if handled, path := r.interceptState(ctx, senderID, displayName, text); handled {
		return path
	}

	lower := strings.ToLower(text)

	if containsAny(lower, checkoutKeywords) {
		r.doCheckout(ctx, senderID, displayName, models.Fulfillment{Type: models.FulfillmentPickup})
		return "fast_checkout"
	}

	if strings.HasPrefix(lower, "status") {
		// Slice the original text so the order code keeps its case.
		r.handleStatus(ctx, senderID, strings.TrimSpace(text[len("status"):]))
		return "fast_status"
	}

	if containsAny(lower, cartKeywords) {
		r.sendCart(ctx, senderID, "")
		return "fast_cart"
	}

	if greetingWords[lower] {
		r.send(ctx, senderID, welcomeMessage)
		return "welcome"
	}

	r.handleAssisted(ctx, senderID, displayName, text)
	return "assisted"
}

// interceptState handles awaiting_note and awaiting_address. Both consume
// the message and clear state unconditionally, even when the follow-up
// action fails. Text while a variant picker is pending abandons the picker
// and routes normally.
func (r *Router) interceptState(ctx context.Context, senderID, displayName, text string) (bool, string) {
	state, ok, err := r.states.Get(ctx, senderID)
	if err != nil {
		r.logger.Warn("state read failed", map[string]interface{}{"error": err.Error()})
		return false, ""
	}
	if !ok {
		return false, ""
	}

	switch state.Mode {
	case store.ModeAwaitingNote:
		r.clearState(ctx, senderID)
		r.applyNote(ctx, senderID, state, text)
		return true, "note_capture"

	case store.ModeAwaitingAddress:
		r.clearState(ctx, senderID)
		r.captureAddress(ctx, senderID, displayName, text)
		return true, "address_capture"

	case store.ModeAwaitingVariantChoice:
		r.clearState(ctx, senderID)
	}

	return false, ""
}

func (r *Router) applyNote(ctx context.Context, senderID string, state store.ConversationState, text string) {
	if state.TargetItemID == 0 {
		return
	}

	note := text
	if len(note) > 240 {
		note = note[:240]
	}

	op := models.CartOp{
		Op:     models.CartOpSetNote,
		ItemID: state.TargetItemID,
		Note:   note,
	}
	if state.TargetVariantID != 0 {
		v := state.TargetVariantID
		op.VariantID = &v
	}

	if _, err := r.backend.UpdateCart(ctx, senderID, []models.CartOp{op}); err != nil {
		r.logger.Error("set note failed", map[string]interface{}{"error": err.Error()})
		r.send(ctx, senderID, "Sorry, I couldn't save that note. Please try again.")
		return
	}
	r.sendCart(ctx, senderID, "📝 Note saved.\n")
}

func (r *Router) captureAddress(ctx context.Context, senderID, displayName, text string) {
	if err := r.profiles.UpsertAddress(ctx, senderID, models.Address{Text: text}); err != nil {
		r.logger.Warn("address save failed", map[string]interface{}{"error": err.Error()})
	}
	r.doCheckout(ctx, senderID, displayName, models.Fulfillment{
		Type:    models.FulfillmentDelivery,
		Address: text,
	})
}

// handleLocation saves the pin to the address book. When the user was asked
// for a delivery address, the pin answers it.
func (r *Router) handleLocation(ctx context.Context, senderID, displayName string, loc *models.Location) {
	if loc == nil {
		return
	}

	lat, lng := loc.Latitude, loc.Longitude
	addr := models.Address{
		Label: loc.Name,
		Text:  loc.Address,
		Lat:   &lat,
		Lng:   &lng,
	}
	if err := r.profiles.UpsertAddress(ctx, senderID, addr); err != nil {
		r.logger.Warn("address save failed", map[string]interface{}{"error": err.Error()})
	}

	state, ok, err := r.states.Get(ctx, senderID)
	if err == nil && ok && state.Mode == store.ModeAwaitingAddress {
		r.clearState(ctx, senderID)
		text := loc.Address
		if text == "" {
			text = loc.Name
		}
		r.doCheckout(ctx, senderID, displayName, models.Fulfillment{
			Type:    models.FulfillmentDelivery,
			Address: text,
		})
		return
	}

	r.send(ctx, senderID, "📍 Location saved to your address book.")
}

func (r *Router) clearState(ctx context.Context, senderID string) {
	if err := r.states.Clear(ctx, senderID); err != nil {
		r.logger.Warn("state clear failed", map[string]interface{}{"error": err.Error()})
	}
}

func (r *Router) setState(ctx context.Context, senderID string, state store.ConversationState) {
	if err := r.states.Set(ctx, senderID, state); err != nil {
		r.logger.Warn("state set failed", map[string]interface{}{"error": err.Error()})
	}
}

// send is fire-and-observe; delivery failures are already logged and counted
// by the sender.
func (r *Router) send(ctx context.Context, to, text string) {
	_ = r.sender.SendText(ctx, to, text)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
