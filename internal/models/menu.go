// internal/models/menu.go
package models

// Menu is the backend menu payload: categories of priced, tagged items.
type Menu struct {
	Categories []MenuCategory `json:"categories"`
}

type MenuCategory struct {
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

type MenuItem struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Desc  string   `json:"desc,omitempty"`
	Tags  []string `json:"tags"`
}

// AllItems flattens categories into a single item list, preserving order.
func (m *Menu) AllItems() []MenuItem {
	if m == nil {
		return nil
	}
	var items []MenuItem
	for _, cat := range m.Categories {
		items = append(items, cat.Items...)
	}
	return items
}

// Variant is one purchasable variation of a menu item. Only available
// variants are surfaced to the user.
type Variant struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	IsAvailable bool    `json:"is_available"`
}
