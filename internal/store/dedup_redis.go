// internal/store/dedup_redis.go
package store

import (
	"context"
	"time"

	"github.com/beeshaker/whatsapp-eats-backend/internal/common/database"
)

// RedisDedupStore backs the dedup gate with Redis so multiple bot instances
// share one claim space. SET NX carries both the insert-if-absent atomicity
// and the TTL; expired keys vanish on their own, no sweep needed.
type RedisDedupStore struct {
	redis *database.RedisClient
	ttl   time.Duration
}

// NewRedisDedupStore creates a Redis-backed dedup store with the given TTL.
func NewRedisDedupStore(redis *database.RedisClient, ttl time.Duration) *RedisDedupStore {
	return &RedisDedupStore{redis: redis, ttl: ttl}
}

func (s *RedisDedupStore) Claim(ctx context.Context, kind, senderID, messageID string, payload []byte) (bool, error) {
	key := dedupKey(kind, senderID, messageID, payload)
	return s.redis.SetNX(ctx, key, 1, s.ttl)
}

func (s *RedisDedupStore) ClaimForever(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	// No expiration: this layer is all-time.
	return s.redis.SetNX(ctx, foreverKey(messageID), 1, 0)
}
