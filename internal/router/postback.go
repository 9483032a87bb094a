// internal/router/postback.go
package router

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/beeshaker/whatsapp-eats-backend/internal/command"
	apperrors "github.com/beeshaker/whatsapp-eats-backend/internal/common/errors"
	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
	"github.com/beeshaker/whatsapp-eats-backend/internal/store"
	"github.com/beeshaker/whatsapp-eats-backend/internal/whatsapp"
)

var addItemRe = regexp.MustCompile(`^add_(\d+)$`)

// handlePostback routes button and list selections by id. Encoded CART
// tokens map 1:1 to cart mutations and never reach the classifier; named
// buttons drive the classic flows.
func (r *Router) handlePostback(ctx context.Context, senderID, displayName, id string) {
	if id == "" {
		r.send(ctx, senderID, "Okay!")
		return
	}

	if command.IsToken(id) {
		cmd, ok := command.Decode(id)
		if !ok {
			// Malformed token fails closed: acknowledge, mutate nothing.
			r.logger.Warn("invalid postback token", map[string]interface{}{
				"error": apperrors.NewInvalidCommandTokenError(id).Error(),
			})
			r.send(ctx, senderID, "Sorry, that button has expired. Say *cart* to see your order.")
			return
		}
		r.handleCommand(ctx, senderID, cmd)
		return
	}

	if m := addItemRe.FindStringSubmatch(id); m != nil {
		itemID, _ := strconv.Atoi(m[1])
		r.addFromMenuRow(ctx, senderID, itemID)
		return
	}

	switch strings.ToLower(id) {
	case "menu", "browse_menu":
		r.sendMenuList(ctx, senderID)

	case "download_menu":
		if !r.sendMenuPDF(ctx, senderID) {
			r.send(ctx, senderID, "No menu PDF found.")
		}

	case "view_cart":
		r.sendCart(ctx, senderID, "")

	case "checkout":
		_ = r.sender.SendQuickReplies(ctx, senderID, "Pickup or Delivery?", []whatsapp.Button{
			{Title: "Pickup"},
			{Title: "Delivery"},
			{Title: "View Cart"},
		})

	case "edit cart":
		r.sendEditCart(ctx, senderID)

	case "pickup":
		r.doCheckout(ctx, senderID, displayName, models.Fulfillment{Type: models.FulfillmentPickup})

	case "delivery":
		r.promptDeliveryAddress(ctx, senderID)

	default:
		r.send(ctx, senderID, "Okay!")
	}
}

// handleCommand applies one decoded edit token.
func (r *Router) handleCommand(ctx context.Context, senderID string, cmd command.Command) {
	switch cmd.Action {
	case command.ActionVarChoose:
		// Arg carries the chosen variant; VariantID is the one being replaced.
		r.clearState(ctx, senderID)
		r.changeVariant(ctx, senderID, cmd.ItemID, cmd.VariantID, cmd.Arg)

	case command.ActionEditPick:
		r.sendItemControls(ctx, senderID, cmd.ItemID, cmd.VariantID)

	case command.ActionDec:
		r.stepQty(ctx, senderID, cmd.ItemID, cmd.VariantID, -1)

	case command.ActionInc:
		r.stepQty(ctx, senderID, cmd.ItemID, cmd.VariantID, +1)

	case command.ActionRemove:
		r.removeLine(ctx, senderID, cmd.ItemID, cmd.VariantID)

	case command.ActionVariant:
		r.promptVariantPicker(ctx, senderID, cmd.ItemID, cmd.VariantID)

	case command.ActionNote:
		r.setState(ctx, senderID, store.ConversationState{
			Mode:            store.ModeAwaitingNote,
			TargetItemID:    cmd.ItemID,
			TargetVariantID: cmd.VariantID,
		})
		r.send(ctx, senderID, "✏️ Send me the note for this item (e.g. \"no onions, extra spicy\").")

	case command.ActionBack:
		r.sendCart(ctx, senderID, "")
	}
}

// stepQty applies a relative quantity change, clamped at zero. Reaching zero
// removes the line.
func (r *Router) stepQty(ctx context.Context, senderID string, itemID, variantID, delta int) {
	cart, err := r.backend.GetCart(ctx, senderID)
	if err != nil {
		r.logger.Error("cart fetch failed", map[string]interface{}{"error": err.Error()})
		r.send(ctx, senderID, "Sorry, I couldn't update your cart. Please try again.")
		return
	}

	current := 0
	for _, line := range cart.Items {
		if line.ItemID == itemID && (variantID == 0 || line.VariantID == variantID) {
			current = line.Qty
			break
		}
	}

	next := current + delta
	if next <= 0 {
		r.removeLine(ctx, senderID, itemID, variantID)
		return
	}

	op := models.CartOp{Op: models.CartOpSetQty, ItemID: itemID, Qty: &next}
	if variantID != 0 {
		v := variantID
		op.VariantID = &v
	}

	if _, err := r.backend.UpdateCart(ctx, senderID, []models.CartOp{op}); err != nil {
		r.logger.Error("set qty failed", map[string]interface{}{"error": err.Error()})
		r.send(ctx, senderID, "Sorry, I couldn't update your cart. Please try again.")
		return
	}
	r.sendCart(ctx, senderID, "")
}

func (r *Router) removeLine(ctx context.Context, senderID string, itemID, variantID int) {
	op := models.CartOp{Op: models.CartOpRemove, ItemID: itemID}
	if variantID != 0 {
		v := variantID
		op.VariantID = &v
	}

	if _, err := r.backend.UpdateCart(ctx, senderID, []models.CartOp{op}); err != nil {
		r.logger.Error("remove failed", map[string]interface{}{"error": err.Error()})
		r.send(ctx, senderID, "Sorry, I couldn't update your cart. Please try again.")
		return
	}
	r.sendCart(ctx, senderID, "")
}

func (r *Router) changeVariant(ctx context.Context, senderID string, itemID, oldVariantID, newVariantID int) {
	old := oldVariantID
	next := newVariantID
	op := models.CartOp{
		Op:           models.CartOpChangeVariant,
		ItemID:       itemID,
		OldVariantID: &old,
		NewVariantID: &next,
	}

	if _, err := r.backend.UpdateCart(ctx, senderID, []models.CartOp{op}); err != nil {
		r.logger.Error("change variant failed", map[string]interface{}{"error": err.Error()})
		r.send(ctx, senderID, "Sorry, I couldn't update your cart. Please try again.")
		return
	}
	r.sendCart(ctx, senderID, "🔁 Variant updated.\n")
}

// sendEditCart sends the cart summary followed by one list message to pick
// the line to edit, chunked to the 10-row section limit.
func (r *Router) sendEditCart(ctx context.Context, senderID string) {
	cart, err := r.backend.GetCart(ctx, senderID)
	if err != nil {
		r.logger.Error("cart fetch failed", map[string]interface{}{"error": err.Error()})
		r.send(ctx, senderID, "Sorry, I couldn't load your cart right now. Please try again.")
		return
	}
	if cart.IsEmpty() {
		r.send(ctx, senderID, "🧺 Your cart is empty. Tell me what you'd like to order.")
		return
	}

	r.sendCart(ctx, senderID, "")

	var sections []whatsapp.Section
	var rows []whatsapp.Row
	for _, line := range cart.Items {
		rows = append(rows, whatsapp.Row{
			ID:          command.Encode(command.ActionEditPick, line.ItemID, line.VariantID, 0),
			Title:       line.Name,
			Description: "Qty " + strconv.Itoa(line.Qty),
		})
		if len(rows) == 10 {
			sections = append(sections, whatsapp.Section{Title: "Cart Items", Rows: rows})
			rows = nil
		}
	}
	if len(rows) > 0 {
		sections = append(sections, whatsapp.Section{Title: "Cart Items", Rows: rows})
	}

	_ = r.sender.SendList(ctx, senderID, "Select an item to edit:", sections)
}

// sendItemControls sends the per-line edit controls, two quick-reply
// messages since the API caps buttons at three.
func (r *Router) sendItemControls(ctx context.Context, senderID string, itemID, variantID int) {
	if itemID == 0 {
		r.send(ctx, senderID, "Sorry, I couldn't identify that cart item. Try again.")
		return
	}

	_ = r.sender.SendQuickReplies(ctx, senderID, "Adjust quantity:", []whatsapp.Button{
		{ID: command.Encode(command.ActionDec, itemID, variantID, 0), Title: "−1"},
		{ID: command.Encode(command.ActionInc, itemID, variantID, 0), Title: "+1"},
		{ID: command.Encode(command.ActionRemove, itemID, variantID, 0), Title: "Remove"},
	})
	_ = r.sender.SendQuickReplies(ctx, senderID, "Other actions:", []whatsapp.Button{
		{ID: command.Encode(command.ActionVariant, itemID, variantID, 0), Title: "Change Variant"},
		{ID: command.Encode(command.ActionNote, itemID, variantID, 0), Title: "Add Note"},
		{ID: command.Encode(command.ActionBack, 0, 0, 0), Title: "Back to Cart"},
	})
}

// promptVariantPicker offers the available variants for a line, three
// buttons per message.
func (r *Router) promptVariantPicker(ctx context.Context, senderID string, itemID, currentVariantID int) {
	variants, err := r.backend.ListVariants(ctx, itemID)
	if err != nil {
		r.logger.Warn("variant lookup failed", map[string]interface{}{"error": err.Error()})
		variants = nil
	}
	if len(variants) == 0 {
		r.send(ctx, senderID, "No other variants available for this item.")
		return
	}

	r.setState(ctx, senderID, store.ConversationState{
		Mode:            store.ModeAwaitingVariantChoice,
		TargetItemID:    itemID,
		TargetVariantID: currentVariantID,
	})
	r.send(ctx, senderID, "Choose a variant:")

	var group []whatsapp.Button
	for _, v := range variants {
		group = append(group, whatsapp.Button{
			ID:    command.Encode(command.ActionVarChoose, itemID, currentVariantID, v.ID),
			Title: v.Name,
		})
		if len(group) == 3 {
			_ = r.sender.SendQuickReplies(ctx, senderID, "Variants:", group)
			group = nil
		}
	}
	if len(group) > 0 {
		_ = r.sender.SendQuickReplies(ctx, senderID, "Variants:", group)
	}
}

// addFromMenuRow handles an add_<id> list selection. Items with multiple
// variants go through the picker first.
func (r *Router) addFromMenuRow(ctx context.Context, senderID string, itemID int) {
	variants, err := r.backend.ListVariants(ctx, itemID)
	if err != nil {
		r.logger.Warn("variant lookup failed", map[string]interface{}{"error": err.Error()})
		variants = nil
	}

	if len(variants) > 1 {
		r.promptVariantPicker(ctx, senderID, itemID, 0)
		return
	}

	if _, err := r.backend.AddItem(ctx, senderID, itemID, 1); err != nil {
		r.logger.Error("add failed", map[string]interface{}{"itemId": itemID, "error": err.Error()})
		r.send(ctx, senderID, "Sorry, I couldn't add that item. Please try again.")
		return
	}
	r.sendCart(ctx, senderID, "Your updated cart:\n")
}

// promptDeliveryAddress moves the conversation into address capture,
// suggesting saved addresses when the user has any.
func (r *Router) promptDeliveryAddress(ctx context.Context, senderID string) {
	r.setState(ctx, senderID, store.ConversationState{Mode: store.ModeAwaitingAddress})

	saved, err := r.profiles.TopAddresses(ctx, senderID, 3)
	if err != nil {
		r.logger.Warn("address lookup failed", map[string]interface{}{"error": err.Error()})
	}

	msg := "Please reply with your delivery address (one line), or share a location pin."
	if len(saved) > 0 {
		lines := []string{msg, "", "Your saved addresses:"}
		for _, a := range saved {
			label := a.Text
			if label == "" {
				label = a.Label
			}
			lines = append(lines, "• "+label)
		}
		msg = strings.Join(lines, "\n")
	}
	r.send(ctx, senderID, msg)
}
