// internal/store/profile_memory.go
package store

import (
	"context"
	"sync"
	"time"

	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
)

// MemoryProfileStore keeps user profiles in a process-local map.
type MemoryProfileStore struct {
	mu       sync.Mutex
	profiles map[string]models.UserProfile
	places   int

	now func() time.Time
}

// NewMemoryProfileStore creates an in-memory profile store. places is the
// coordinate rounding precision for address dedup.
func NewMemoryProfileStore(places int) *MemoryProfileStore {
	return &MemoryProfileStore{
		profiles: make(map[string]models.UserProfile),
		places:   places,
		now:      time.Now,
	}
}

func (s *MemoryProfileStore) Get(ctx context.Context, senderID string) (models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(senderID), nil
}

func (s *MemoryProfileStore) getLocked(senderID string) models.UserProfile {
	if p, ok := s.profiles[senderID]; ok {
		return p
	}
	return models.UserProfile{
		SenderID:  senderID,
		Dietary:   []string{},
		Addresses: []models.Address{},
		LastOrder: []models.CartLine{},
	}
}

func (s *MemoryProfileStore) UpdateLastOrder(ctx context.Context, senderID string, items []models.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.getLocked(senderID)
	p.LastOrder = items
	p.UpdatedAt = s.now()
	s.profiles[senderID] = p
	return nil
}

func (s *MemoryProfileStore) UpsertAddress(ctx context.Context, senderID string, addr models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.getLocked(senderID)
	p.Addresses = mergeAddress(p.Addresses, addr, s.places, s.now())
	p.UpdatedAt = s.now()
	s.profiles[senderID] = p
	return nil
}

func (s *MemoryProfileStore) TopAddresses(ctx context.Context, senderID string, limit int) ([]models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.getLocked(senderID)
	sorted := sortAddresses(p.Addresses)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// SetNowFunc overrides the clock, for tests.
func (s *MemoryProfileStore) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
