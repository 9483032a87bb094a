// internal/store/state_redis.go
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/beeshaker/whatsapp-eats-backend/internal/common/database"
)

// RedisStateStore keeps conversation state in Redis, JSON-encoded under one
// key per sender. No TTL in the baseline: state lives until overwritten or
// cleared, matching the overwrite-per-key contract.
type RedisStateStore struct {
	redis *database.RedisClient
}

func NewRedisStateStore(redisClient *database.RedisClient) *RedisStateStore {
	return &RedisStateStore{redis: redisClient}
}

func stateKey(senderID string) string {
	return "convstate:" + senderID
}

func (s *RedisStateStore) Set(ctx context.Context, senderID string, state ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return s.redis.Set(ctx, stateKey(senderID), data, 0)
}

func (s *RedisStateStore) Get(ctx context.Context, senderID string) (ConversationState, bool, error) {
	var state ConversationState
	raw, err := s.redis.Get(ctx, stateKey(senderID))
	if err == redis.Nil {
		return state, false, nil
	}
	if err != nil {
		return state, false, fmt.Errorf("get state: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return state, false, fmt.Errorf("unmarshal state: %w", err)
	}
	return state, true, nil
}

func (s *RedisStateStore) Clear(ctx context.Context, senderID string) error {
	return s.redis.Del(ctx, stateKey(senderID))
}
