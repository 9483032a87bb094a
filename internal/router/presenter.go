// internal/router/presenter.go
package router

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/beeshaker/whatsapp-eats-backend/internal/common/errors"
	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
	"github.com/beeshaker/whatsapp-eats-backend/internal/whatsapp"
)

// sendCart renders the current cart as text, optionally under a prefix line
// such as "Note saved.".
func (r *Router) sendCart(ctx context.Context, senderID, prefix string) {
	cart, err := r.backend.GetCart(ctx, senderID)
	if err != nil {
		r.logger.Error("cart fetch failed", map[string]interface{}{"error": err.Error()})
		r.send(ctx, senderID, "Sorry, I couldn't load your cart right now. Please try again.")
		return
	}

	if cart.IsEmpty() {
		r.send(ctx, senderID, prefix+"🧺 Your cart is empty. Tell me what you'd like to order.")
		return
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString("🛒 *Your cart:*\n")
	for _, line := range cart.Items {
		lineTotal := float64(line.Qty) * line.UnitPrice
		fmt.Fprintf(&b, "• %s ×%d — KSh %s\n", line.Name, line.Qty, whatsapp.FormatPrice(lineTotal))
	}
	fmt.Fprintf(&b, "\nSubtotal: *KSh %s*", whatsapp.FormatPrice(cart.Total()))

	r.send(ctx, senderID, b.String())
}

// handleStatus answers a "status <code>" fast path.
func (r *Router) handleStatus(ctx context.Context, senderID, code string) {
	if code == "" {
		r.send(ctx, senderID, "Which order? Send *status <code>*, e.g. status ORD-1234.")
		return
	}

	order, err := r.backend.GetOrder(ctx, code)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeOrderNotFound) {
			r.send(ctx, senderID, "I can't find that order. Check the code and try again.")
			return
		}
		r.logger.Error("order lookup failed", map[string]interface{}{"code": code, "error": err.Error()})
		r.send(ctx, senderID, "Sorry, I couldn't check that order right now. Please try again.")
		return
	}

	r.send(ctx, senderID, fmt.Sprintf("Order *%s* is *%s* right now.", order.Reference(), strings.ToUpper(order.Status)))
}

// doCheckout places the order. Empty carts never reach the backend.
func (r *Router) doCheckout(ctx context.Context, senderID, displayName string, fulfillment models.Fulfillment) {
	cart, err := r.backend.GetCart(ctx, senderID)
	if err != nil {
		r.logger.Error("cart fetch failed", map[string]interface{}{"error": err.Error()})
		r.send(ctx, senderID, "Checkout failed. Please try again or send *help*.")
		return
	}
	if cart.IsEmpty() {
		r.send(ctx, senderID, "🧺 Your cart is empty. Tell me what you'd like to order first.")
		return
	}

	order, err := r.backend.CreateOrder(ctx, senderID, displayName, senderID, fulfillment)
	if err != nil {
		r.logger.Error("checkout failed", map[string]interface{}{"error": err.Error()})
		r.send(ctx, senderID, "Checkout failed. Please try again or send *help*.")
		return
	}

	r.send(ctx, senderID, fmt.Sprintf("🎉 Order placed! Code: *%s*\nWe'll confirm shortly.", order.Reference()))

	if err := r.profiles.UpdateLastOrder(ctx, senderID, cart.Items); err != nil {
		r.logger.Warn("last order save failed", map[string]interface{}{"error": err.Error()})
	}
}

// sendRecommendations filters the catalog against the user text plus the
// classifier's hint and replies with the ranked picks.
func (r *Router) sendRecommendations(ctx context.Context, senderID, userText, hint string) {
	menu, err := r.backend.GetMenu(ctx)
	if err != nil {
		r.logger.Error("menu fetch failed", map[string]interface{}{"error": err.Error()})
		r.send(ctx, senderID, "Sorry, I couldn't load the menu right now. Please try again.")
		return
	}

	recs := r.engine.Recommend(menu.AllItems(), userText, hint)
	if len(recs) == 0 {
		r.send(ctx, senderID, "Hmm, nothing matches right now. Try saying *menu*")
		return
	}

	lines := []string{"Here are my top picks for you:"}
	for _, item := range recs {
		lines = append(lines, fmt.Sprintf("• %s — KSh %s", item.Name, whatsapp.FormatPrice(item.Price)))
	}
	lines = append(lines, "\nJust say the name to add it")

	r.send(ctx, senderID, strings.Join(lines, "\n"))
}

// sendMenuList sends the browsable menu list, with a Download row when PDFs
// exist.
func (r *Router) sendMenuList(ctx context.Context, senderID string) {
	menu, err := r.backend.GetMenu(ctx)
	if err != nil {
		r.logger.Error("menu fetch failed", map[string]interface{}{"error": err.Error()})
		r.send(ctx, senderID, "Menu unavailable.")
		return
	}

	sections := whatsapp.BuildMenuSections(menu)
	if len(sections) == 0 {
		r.send(ctx, senderID, "Menu unavailable.")
		return
	}

	_ = r.sender.SendList(ctx, senderID, "Browse our menu 👇", sections)
}

// sendMenuEntrypoint offers Browse vs Download depending on whether a PDF is
// configured.
func (r *Router) sendMenuEntrypoint(ctx context.Context, senderID string) {
	urls, err := r.backend.GetMenuPDFURLs(ctx)
	if err != nil {
		r.logger.Warn("menu pdf lookup failed", map[string]interface{}{"error": err.Error()})
		urls = nil
	}

	buttons := []whatsapp.Button{{ID: "browse_menu", Title: "Browse Menu"}}
	if len(urls) > 0 {
		buttons = append(buttons, whatsapp.Button{ID: "download_menu", Title: "Download Menu"})
	}
	_ = r.sender.SendQuickReplies(ctx, senderID, "How would you like to view the menu?", buttons)
}

// sendMenuPDF sends the first configured menu PDF, rewritten to a publicly
// reachable URL.
func (r *Router) sendMenuPDF(ctx context.Context, senderID string) bool {
	urls, err := r.backend.GetMenuPDFURLs(ctx)
	if err != nil || len(urls) == 0 {
		return false
	}

	url := whatsapp.RewritePDFURL(urls[0], r.config.PublicBaseURL, r.config.RestaurantID)
	_ = r.sender.SendDocument(ctx, senderID, url, "Menu.pdf", "Menu")
	return true
}
