// internal/models/order.go
package models

// Fulfillment describes how an order is handed over.
type Fulfillment struct {
	Type    FulfillmentType `json:"type"`
	Address string          `json:"address,omitempty"`
}

// Order is the backend's record of a placed order.
type Order struct {
	ID     string     `json:"id,omitempty"`
	Code   string     `json:"code,omitempty"`
	Status string     `json:"status,omitempty"`
	Items  []CartLine `json:"items,omitempty"`
}

// Reference returns the user-facing order identifier, preferring the short
// code over the internal id.
func (o *Order) Reference() string {
	if o.Code != "" {
		return o.Code
	}
	return o.ID
}
