// internal/store/state_test.go
package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stateStores(t *testing.T) map[string]StateStore {
	client, _ := newTestRedis(t)
	return map[string]StateStore{
		"memory": NewMemoryStateStore(),
		"redis":  NewRedisStateStore(client),
	}
}

func TestStateStore_OverwriteSemantics(t *testing.T) {
	for name, s := range stateStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := s.Get(ctx, "sender")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "sender", ConversationState{
				Mode:         ModeAwaitingNote,
				TargetItemID: 7,
			}))

			got, ok, err := s.Get(ctx, "sender")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, ModeAwaitingNote, got.Mode)
			assert.Equal(t, 7, got.TargetItemID)

			// A new transition overwrites the slot, never stacks.
			require.NoError(t, s.Set(ctx, "sender", ConversationState{
				Mode:            ModeAwaitingVariantChoice,
				TargetItemID:    7,
				TargetVariantID: 3,
			}))
			got, ok, err = s.Get(ctx, "sender")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, ModeAwaitingVariantChoice, got.Mode)
			assert.Equal(t, 3, got.TargetVariantID)
		})
	}
}

func TestStateStore_ClearRemovesSlot(t *testing.T) {
	for name, s := range stateStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "sender", ConversationState{Mode: ModeAwaitingAddress}))
			require.NoError(t, s.Clear(ctx, "sender"))

			_, ok, err := s.Get(ctx, "sender")
			require.NoError(t, err)
			assert.False(t, ok)

			// Clearing an absent slot is a no-op.
			require.NoError(t, s.Clear(ctx, "sender"))
		})
	}
}

func TestStateStore_SendersIsolated(t *testing.T) {
	for name, s := range stateStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, "a", ConversationState{Mode: ModeAwaitingNote, TargetItemID: 1}))
			require.NoError(t, s.Set(ctx, "b", ConversationState{Mode: ModeAwaitingAddress}))

			got, ok, err := s.Get(ctx, "a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, ModeAwaitingNote, got.Mode)

			require.NoError(t, s.Clear(ctx, "a"))
			_, ok, _ = s.Get(ctx, "b")
			assert.True(t, ok)
		})
	}
}
