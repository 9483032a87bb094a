// internal/models/intent.go
package models

// IntentAction is the closed set of actions the classifier may emit.
type IntentAction string

const (
	ActionAddToCart         IntentAction = "ADD_TO_CART"
	ActionShowMenu          IntentAction = "SHOW_MENU"
	ActionAskQuestion       IntentAction = "ASK_QUESTION"
	ActionCheckout          IntentAction = "CHECKOUT"
	ActionOrderStatus       IntentAction = "ORDER_STATUS"
	ActionViewCart          IntentAction = "VIEW_CART"
	ActionClearCart         IntentAction = "CLEAR_CART"
	ActionSmallTalk         IntentAction = "SMALL_TALK"
	ActionEditSetQty        IntentAction = "EDIT_SET_QTY"
	ActionEditRemove        IntentAction = "EDIT_REMOVE"
	ActionEditChangeVariant IntentAction = "EDIT_CHANGE_VARIANT"
	ActionEditSetNote       IntentAction = "EDIT_SET_NOTE"
)

// ValidActions lists every accepted action value, in schema order.
var ValidActions = []IntentAction{
	ActionAddToCart, ActionShowMenu, ActionAskQuestion, ActionCheckout,
	ActionOrderStatus, ActionViewCart, ActionClearCart, ActionSmallTalk,
	ActionEditSetQty, ActionEditRemove, ActionEditChangeVariant, ActionEditSetNote,
}

// IsValidAction reports whether s is a member of the action enum.
func IsValidAction(s string) bool {
	for _, a := range ValidActions {
		if string(a) == s {
			return true
		}
	}
	return false
}

// IntentLineItem is one requested line in an ADD_TO_CART intent.
// Options maps a closed set of known keys (e.g. "no_onions", "cheese") to
// typed values; unmodeled extras stay as strings.
type IntentLineItem struct {
	ItemID   string                 `json:"item_id,omitempty"`
	ItemName string                 `json:"item_name,omitempty"`
	Qty      int                    `json:"qty"`
	Options  map[string]interface{} `json:"options"`
}

// FulfillmentType is how the order leaves the restaurant.
type FulfillmentType string

const (
	FulfillmentPickup   FulfillmentType = "pickup"
	FulfillmentDelivery FulfillmentType = "delivery"
)

// ParsedIntent is the single structured result of routing one inbound unit
// of work. If Clarifications is non-empty no cart mutation may be applied.
type ParsedIntent struct {
	Action IntentAction     `json:"action"`
	Items  []IntentLineItem `json:"items"`

	TargetItemName    string `json:"target_item_name,omitempty"`
	TargetItemID      string `json:"target_item_id,omitempty"`
	TargetVariantName string `json:"target_variant_name,omitempty"`
	TargetVariantID   string `json:"target_variant_id,omitempty"`
	NewQty            *int   `json:"new_qty,omitempty"`
	NewVariantName    string `json:"new_variant_name,omitempty"`
	NewVariantID      string `json:"new_variant_id,omitempty"`
	NoteText          string `json:"note_text,omitempty"`

	Budget     *float64 `json:"budget_kes,omitempty"`
	Dietary    []string `json:"dietary"`
	SpiceLevel string   `json:"spice_level,omitempty"`

	Fulfillment     FulfillmentType `json:"fulfillment,omitempty"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	OrderCode       string          `json:"order_code,omitempty"`

	Clarifications []string `json:"clarifications"`
	ResponseText   string   `json:"response_text,omitempty"`
}

// NeedsClarification reports whether the intent is blocked on a question to
// the user. A blocked intent must produce no side effects besides asking it.
func (p *ParsedIntent) NeedsClarification() bool {
	return len(p.Clarifications) > 0
}
