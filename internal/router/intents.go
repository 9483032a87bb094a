// internal/router/intents.go
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/beeshaker/whatsapp-eats-backend/internal/classifier"
	"github.com/beeshaker/whatsapp-eats-backend/internal/common/metrics"
	"github.com/beeshaker/whatsapp-eats-backend/internal/matcher"
	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
	"github.com/beeshaker/whatsapp-eats-backend/internal/recommend"
	"github.com/beeshaker/whatsapp-eats-backend/internal/store"
	"github.com/beeshaker/whatsapp-eats-backend/internal/whatsapp"
)

// handleAssisted sends free-form text through the classifier and dispatches
// the parsed intent. Classifier failure degrades to a canned small-talk
// reply; it never surfaces an error to the user.
func (r *Router) handleAssisted(ctx context.Context, senderID, displayName, text string) {
	cart, err := r.backend.GetCart(ctx, senderID)
	if err != nil {
		r.logger.Warn("cart context fetch failed", map[string]interface{}{"error": err.Error()})
		cart = &models.CartSnapshot{}
	}
	menu, err := r.backend.GetMenu(ctx)
	if err != nil {
		r.logger.Warn("menu context fetch failed", map[string]interface{}{"error": err.Error()})
		menu = &models.Menu{}
	}
	profile, err := r.profiles.Get(ctx, senderID)
	if err != nil {
		r.logger.Warn("profile fetch failed", map[string]interface{}{"error": err.Error()})
	}

	intent, err := r.classifier.Parse(ctx, &classifier.Request{
		MenuSnapshotJSON: marshalContext(menu),
		MenuText:         renderMenuText(menu),
		UserProfileJSON:  marshalContext(profile),
		CartSnapshotJSON: marshalContext(cart),
		UserText:         text,
	})
	if err != nil {
		metrics.ClassifierFallbacks.Inc()
		r.logger.Warn("classifier fallback", map[string]interface{}{
			"sender": senderID,
			"error":  err.Error(),
		})
		intent = classifier.Fallback()
	}

	// A blocked intent asks its question and stops; nothing below may run.
	if intent.NeedsClarification() {
		r.send(ctx, senderID, intent.Clarifications[0])
		return
	}

	switch intent.Action {
	case models.ActionAddToCart:
		r.addIntentItems(ctx, senderID, menu, intent)

	case models.ActionShowMenu:
		if recommend.HasFilterSignal(text, intentHint(intent)) {
			r.sendRecommendations(ctx, senderID, text, intentHint(intent))
			return
		}
		r.sendMenuEntrypoint(ctx, senderID)

	case models.ActionAskQuestion:
		if intent.ResponseText != "" {
			r.send(ctx, senderID, intent.ResponseText)
			return
		}
		r.sendRecommendations(ctx, senderID, text, intentHint(intent))

	case models.ActionCheckout:
		r.checkoutIntent(ctx, senderID, displayName, intent)

	case models.ActionOrderStatus:
		r.handleStatus(ctx, senderID, intent.OrderCode)

	case models.ActionViewCart:
		r.sendCart(ctx, senderID, "")

	case models.ActionClearCart:
		if err := r.backend.ClearCart(ctx, senderID); err != nil {
			r.logger.Error("clear cart failed", map[string]interface{}{"error": err.Error()})
			r.send(ctx, senderID, "Sorry, I couldn't clear your cart. Please try again.")
			return
		}
		r.send(ctx, senderID, "🧹 Cart cleared. Say *menu* whenever you're hungry again.")

	case models.ActionSmallTalk:
		reply := intent.ResponseText
		if reply == "" {
			reply = classifier.FallbackReply
		}
		r.send(ctx, senderID, reply)

	case models.ActionEditSetQty, models.ActionEditRemove,
		models.ActionEditChangeVariant, models.ActionEditSetNote:
		r.editIntent(ctx, senderID, cart, intent)

	default:
		r.send(ctx, senderID, classifier.FallbackReply)
	}
}

// addIntentItems resolves and adds each requested line. Ambiguity on any
// line halts the whole add with one question and no mutation.
func (r *Router) addIntentItems(ctx context.Context, senderID string, menu *models.Menu, intent *models.ParsedIntent) {
	if len(intent.Items) == 0 {
		r.send(ctx, senderID, "What would you like to add? Say *menu* to browse.")
		return
	}

	type resolved struct {
		item models.MenuItem
		qty  int
	}
	var toAdd []resolved

	for _, line := range intent.Items {
		qty := line.Qty
		if qty <= 0 {
			qty = 1
		}

		if id, err := strconv.Atoi(line.ItemID); err == nil && id > 0 {
			toAdd = append(toAdd, resolved{item: models.MenuItem{ID: id, Name: line.ItemName}, qty: qty})
			continue
		}

		item, ambiguous, ok := matcher.ResolveMenuItem(menu, line.ItemName)
		if len(ambiguous) > 0 {
			names := make([]string, 0, len(ambiguous))
			for _, a := range ambiguous {
				names = append(names, a.Name)
			}
			r.send(ctx, senderID, fmt.Sprintf(
				"I found a few matches for %q: %s. Which one did you mean?",
				line.ItemName, strings.Join(names, ", ")))
			return
		}
		if !ok {
			r.send(ctx, senderID, fmt.Sprintf("Sorry, I couldn't find %q on the menu. Say *menu* to browse.", line.ItemName))
			return
		}
		toAdd = append(toAdd, resolved{item: item, qty: qty})
	}

	for _, add := range toAdd {
		if _, err := r.backend.AddItem(ctx, senderID, add.item.ID, add.qty); err != nil {
			r.logger.Error("add failed", map[string]interface{}{
				"itemId": add.item.ID,
				"error":  err.Error(),
			})
			r.send(ctx, senderID, "Sorry, I couldn't add that item. Please try again.")
			return
		}
	}

	prefix := "Got it! 👍\n"
	if intent.ResponseText != "" {
		prefix = intent.ResponseText + "\n"
	}
	r.sendCart(ctx, senderID, prefix)
}

// checkoutIntent completes a parsed checkout. Delivery without an address
// switches into address capture instead of placing the order.
func (r *Router) checkoutIntent(ctx context.Context, senderID, displayName string, intent *models.ParsedIntent) {
	switch intent.Fulfillment {
	case models.FulfillmentDelivery:
		if intent.DeliveryAddress == "" {
			r.promptDeliveryAddress(ctx, senderID)
			return
		}
		if err := r.profiles.UpsertAddress(ctx, senderID, models.Address{Text: intent.DeliveryAddress}); err != nil {
			r.logger.Warn("address save failed", map[string]interface{}{"error": err.Error()})
		}
		r.doCheckout(ctx, senderID, displayName, models.Fulfillment{
			Type:    models.FulfillmentDelivery,
			Address: intent.DeliveryAddress,
		})

	case models.FulfillmentPickup:
		r.doCheckout(ctx, senderID, displayName, models.Fulfillment{Type: models.FulfillmentPickup})

	default:
		_ = r.sender.SendQuickReplies(ctx, senderID, "Pickup or Delivery?", []whatsapp.Button{
			{Title: "Pickup"},
			{Title: "Delivery"},
			{Title: "View Cart"},
		})
	}
}

// editIntent applies one classifier-parsed cart edit against the snapshot
// the classifier saw.
func (r *Router) editIntent(ctx context.Context, senderID string, cart *models.CartSnapshot, intent *models.ParsedIntent) {
	if cart.IsEmpty() {
		r.send(ctx, senderID, "🧺 Your cart is empty. Tell me what you'd like to order.")
		return
	}

	line, ok := r.resolveEditTarget(ctx, senderID, cart, intent)
	if !ok {
		return
	}

	switch intent.Action {
	case models.ActionEditSetQty:
		if intent.NewQty == nil {
			r.send(ctx, senderID, fmt.Sprintf("How many %s would you like?", line.Name))
			return
		}
		if *intent.NewQty <= 0 {
			r.removeLine(ctx, senderID, line.ItemID, line.VariantID)
			return
		}
		qty := *intent.NewQty
		op := models.CartOp{Op: models.CartOpSetQty, ItemID: line.ItemID, Qty: &qty}
		if line.VariantID != 0 {
			v := line.VariantID
			op.VariantID = &v
		}
		if _, err := r.backend.UpdateCart(ctx, senderID, []models.CartOp{op}); err != nil {
			r.logger.Error("set qty failed", map[string]interface{}{"error": err.Error()})
			r.send(ctx, senderID, "Sorry, I couldn't update your cart. Please try again.")
			return
		}
		r.sendCart(ctx, senderID, "")

	case models.ActionEditRemove:
		r.removeLine(ctx, senderID, line.ItemID, line.VariantID)

	case models.ActionEditChangeVariant:
		r.changeVariantIntent(ctx, senderID, line, intent)

	case models.ActionEditSetNote:
		if intent.NoteText == "" {
			r.setState(ctx, senderID, store.ConversationState{
				Mode:            store.ModeAwaitingNote,
				TargetItemID:    line.ItemID,
				TargetVariantID: line.VariantID,
			})
			r.send(ctx, senderID, fmt.Sprintf("✏️ Send me the note for %s.", line.Name))
			return
		}
		r.applyNote(ctx, senderID, store.ConversationState{
			TargetItemID:    line.ItemID,
			TargetVariantID: line.VariantID,
		}, intent.NoteText)
	}
}

// resolveEditTarget picks the cart line an edit refers to, asking one
// question when the reference is ambiguous or missing.
func (r *Router) resolveEditTarget(ctx context.Context, senderID string, cart *models.CartSnapshot, intent *models.ParsedIntent) (models.CartLine, bool) {
	if id, err := strconv.Atoi(intent.TargetItemID); err == nil && id > 0 {
		for _, line := range cart.Items {
			if line.ItemID != id {
				continue
			}
			if vid, err := strconv.Atoi(intent.TargetVariantID); err == nil && vid > 0 && line.VariantID != vid {
				continue
			}
			return line, true
		}
	}

	if intent.TargetItemName == "" {
		r.send(ctx, senderID, "Which item in your cart do you mean?")
		return models.CartLine{}, false
	}

	line, ambiguous, ok := matcher.ResolveCartLine(cart, intent.TargetItemName)
	if len(ambiguous) > 0 {
		names := make([]string, 0, len(ambiguous))
		for _, a := range ambiguous {
			names = append(names, a.Name)
		}
		r.send(ctx, senderID, fmt.Sprintf(
			"Your cart has a few matches for %q: %s. Which one did you mean?",
			intent.TargetItemName, strings.Join(names, ", ")))
		return models.CartLine{}, false
	}
	if !ok {
		r.send(ctx, senderID, fmt.Sprintf("I couldn't find %q in your cart. Say *cart* to see what's there.", intent.TargetItemName))
		return models.CartLine{}, false
	}
	return line, true
}

// changeVariantIntent swaps a line's variant, matching the requested name
// against what the backend offers; no match falls back to the picker.
func (r *Router) changeVariantIntent(ctx context.Context, senderID string, line models.CartLine, intent *models.ParsedIntent) {
	if id, err := strconv.Atoi(intent.NewVariantID); err == nil && id > 0 {
		r.changeVariant(ctx, senderID, line.ItemID, line.VariantID, id)
		return
	}

	if intent.NewVariantName != "" {
		variants, err := r.backend.ListVariants(ctx, line.ItemID)
		if err != nil {
			r.logger.Warn("variant lookup failed", map[string]interface{}{"error": err.Error()})
		}
		want := matcher.Normalize(intent.NewVariantName)
		for _, v := range variants {
			if matcher.Normalize(v.Name) == want || strings.Contains(matcher.Normalize(v.Name), want) {
				r.changeVariant(ctx, senderID, line.ItemID, line.VariantID, v.ID)
				return
			}
		}
	}

	r.promptVariantPicker(ctx, senderID, line.ItemID, line.VariantID)
}

// intentHint flattens the classifier's constraint slots into extra signal
// for the recommendation engine.
func intentHint(intent *models.ParsedIntent) string {
	parts := append([]string(nil), intent.Dietary...)
	if intent.SpiceLevel != "" {
		parts = append(parts, intent.SpiceLevel)
	}
	if intent.Budget != nil {
		parts = append(parts, fmt.Sprintf("under %d", int(*intent.Budget)))
	}
	return strings.Join(parts, " ")
}

func marshalContext(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// renderMenuText produces the compact human-readable menu the classifier
// prompt carries alongside the JSON snapshot.
func renderMenuText(menu *models.Menu) string {
	if menu == nil || len(menu.Categories) == 0 {
		return "(menu unavailable)"
	}
	var b strings.Builder
	for _, cat := range menu.Categories {
		if cat.Name != "" {
			b.WriteString(cat.Name + ":\n")
		}
		for _, item := range cat.Items {
			b.WriteString("- " + item.Name + " (KSh " + whatsapp.FormatPrice(item.Price) + ")")
			if item.Desc != "" {
				b.WriteString(": " + item.Desc)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
