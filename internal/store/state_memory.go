// internal/store/state_memory.go
package store

import (
	"context"
	"sync"
)

// MemoryStateStore keeps conversation state in a process-local map. Safe for
// concurrent use across senders.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]ConversationState
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]ConversationState)}
}

func (s *MemoryStateStore) Set(ctx context.Context, senderID string, state ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[senderID] = state
	return nil
}

func (s *MemoryStateStore) Get(ctx context.Context, senderID string) (ConversationState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[senderID]
	return state, ok, nil
}

func (s *MemoryStateStore) Clear(ctx context.Context, senderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, senderID)
	return nil
}
