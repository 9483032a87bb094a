// internal/store/dedup_memory.go
package store

import (
	"context"
	"sync"
	"time"
)

// MemoryDedupStore is the single-instance in-process implementation. Expired
// entries are swept opportunistically every sweepEvery insertions; sweeping
// only bounds memory, it never affects claim correctness because expiry is
// also checked on access.
type MemoryDedupStore struct {
	mu         sync.Mutex
	seen       map[string]time.Time // key -> expiry; zero time means no expiry
	ttl        time.Duration
	sweepEvery int
	inserts    int

	now func() time.Time // injectable for tests
}

// NewMemoryDedupStore creates an in-memory dedup store with the given TTL.
func NewMemoryDedupStore(ttl time.Duration, sweepEvery int) *MemoryDedupStore {
	if sweepEvery <= 0 {
		sweepEvery = 100
	}
	return &MemoryDedupStore{
		seen:       make(map[string]time.Time),
		ttl:        ttl,
		sweepEvery: sweepEvery,
		now:        time.Now,
	}
}

func (s *MemoryDedupStore) Claim(ctx context.Context, kind, senderID, messageID string, payload []byte) (bool, error) {
	key := dedupKey(kind, senderID, messageID, payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.inserts++
	if s.inserts%s.sweepEvery == 0 {
		s.sweepLocked(now)
	}

	if exp, ok := s.seen[key]; ok {
		if exp.IsZero() || exp.After(now) {
			return false, nil
		}
		// Expired entries are treated as never-seen.
	}

	s.seen[key] = now.Add(s.ttl)
	return true, nil
}

func (s *MemoryDedupStore) ClaimForever(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	key := foreverKey(messageID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = time.Time{}
	return true, nil
}

// sweepLocked drops expired entries. Caller holds the lock.
func (s *MemoryDedupStore) sweepLocked(now time.Time) {
	for k, exp := range s.seen {
		if !exp.IsZero() && exp.Before(now) {
			delete(s.seen, k)
		}
	}
}

// SetNowFunc overrides the clock, for tests exercising TTL expiry.
func (s *MemoryDedupStore) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
