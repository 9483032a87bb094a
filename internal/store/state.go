// internal/store/state.go
package store

import "context"

// Mode is the per-sender conversation mode. Exactly one live state per
// sender; every transition overwrites, completion or abandonment clears.
type Mode string

const (
	ModeNone                  Mode = "none"
	ModeAwaitingNote          Mode = "awaiting_note"
	ModeAwaitingAddress       Mode = "awaiting_address"
	ModeAwaitingVariantChoice Mode = "awaiting_variant_choice"
)

// ConversationState is the single-slot ephemeral state for a sender.
type ConversationState struct {
	Mode            Mode `json:"mode"`
	TargetItemID    int  `json:"target_item_id,omitempty"`
	TargetVariantID int  `json:"target_variant_id,omitempty"`
}

// StateStore holds ConversationState with overwrite semantics, not a stack.
type StateStore interface {
	Set(ctx context.Context, senderID string, state ConversationState) error
	// Get returns the state and whether one exists. Absent state means
	// ModeNone.
	Get(ctx context.Context, senderID string) (ConversationState, bool, error)
	Clear(ctx context.Context, senderID string) error
}
