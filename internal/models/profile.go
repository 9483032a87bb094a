// internal/models/profile.go
package models

import "time"

// UserProfile is the per-sender memory the conversation layer owns: dietary
// preferences, saved delivery addresses and the last completed order.
type UserProfile struct {
	SenderID  string     `json:"sender_id"`
	Dietary   []string   `json:"dietary"`
	Addresses []Address  `json:"addresses"`
	LastOrder []CartLine `json:"last_order"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Address is a saved delivery location. Deduplication is by rounded
// coordinates when both are present, else by normalized lowercase text.
type Address struct {
	Label      string    `json:"label,omitempty"`
	Text       string    `json:"text,omitempty"`
	Lat        *float64  `json:"lat,omitempty"`
	Lng        *float64  `json:"lng,omitempty"`
	UsedCount  int       `json:"used_count"`
	LastUsedAt time.Time `json:"last_used_at"`
}
