// internal/models/cart.go
package models

// CartLine is one ordered line in a cart snapshot. Qty 0 means remove.
type CartLine struct {
	ItemID    int                    `json:"item_id"`
	VariantID int                    `json:"variant_id,omitempty"`
	Name      string                 `json:"name"`
	Qty       int                    `json:"qty"`
	UnitPrice float64                `json:"price"`
	Note      string                 `json:"note,omitempty"`
	Options   map[string]interface{} `json:"options,omitempty"`
}

// CartSnapshot is the backend-owned cart state, read via the backend client.
type CartSnapshot struct {
	Items []CartLine `json:"items"`
}

// Total returns the snapshot subtotal.
func (c *CartSnapshot) Total() float64 {
	var total float64
	for _, it := range c.Items {
		total += float64(it.Qty) * it.UnitPrice
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c *CartSnapshot) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// CartOpName enumerates the bulk-update operations the backend understands.
type CartOpName string

const (
	CartOpAdd           CartOpName = "add"
	CartOpRemove        CartOpName = "remove"
	CartOpSetQty        CartOpName = "set_qty"
	CartOpChangeVariant CartOpName = "change_variant"
	CartOpSetNote       CartOpName = "set_note"
	CartOpSetOptions    CartOpName = "set_options"
)

// CartOp is one entry in a bulk cart update.
type CartOp struct {
	Op           CartOpName             `json:"op"`
	ItemID       int                    `json:"item_id"`
	VariantID    *int                   `json:"variant_id,omitempty"`
	OldVariantID *int                   `json:"old_variant_id,omitempty"`
	NewVariantID *int                   `json:"new_variant_id,omitempty"`
	Qty          *int                   `json:"qty,omitempty"`
	Note         string                 `json:"note,omitempty"`
	Options      map[string]interface{} `json:"options,omitempty"`
}
