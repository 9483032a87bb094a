// internal/store/profile_redis.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/beeshaker/whatsapp-eats-backend/internal/common/database"
	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
)

// RedisProfileStore keeps profiles in Redis, one JSON document per sender.
// Read-modify-write is acceptable here: at most one in-flight request per
// sender mutates a profile (strict per-sender ordering upstream).
type RedisProfileStore struct {
	redis  *database.RedisClient
	places int
}

func NewRedisProfileStore(redisClient *database.RedisClient, places int) *RedisProfileStore {
	return &RedisProfileStore{redis: redisClient, places: places}
}

func profileKey(senderID string) string {
	return "profile:" + senderID
}

func (s *RedisProfileStore) Get(ctx context.Context, senderID string) (models.UserProfile, error) {
	empty := models.UserProfile{
		SenderID:  senderID,
		Dietary:   []string{},
		Addresses: []models.Address{},
		LastOrder: []models.CartLine{},
	}

	raw, err := s.redis.Get(ctx, profileKey(senderID))
	if err == redis.Nil {
		return empty, nil
	}
	if err != nil {
		return empty, fmt.Errorf("get profile: %w", err)
	}

	var p models.UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return empty, fmt.Errorf("unmarshal profile: %w", err)
	}
	return p, nil
}

func (s *RedisProfileStore) save(ctx context.Context, p models.UserProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return s.redis.Set(ctx, profileKey(p.SenderID), data, 0)
}

func (s *RedisProfileStore) UpdateLastOrder(ctx context.Context, senderID string, items []models.CartLine) error {
	p, err := s.Get(ctx, senderID)
	if err != nil {
		return err
	}
	p.LastOrder = items
	p.UpdatedAt = time.Now().UTC()
	return s.save(ctx, p)
}

func (s *RedisProfileStore) UpsertAddress(ctx context.Context, senderID string, addr models.Address) error {
	p, err := s.Get(ctx, senderID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	p.Addresses = mergeAddress(p.Addresses, addr, s.places, now)
	p.UpdatedAt = now
	return s.save(ctx, p)
}

func (s *RedisProfileStore) TopAddresses(ctx context.Context, senderID string, limit int) ([]models.Address, error) {
	p, err := s.Get(ctx, senderID)
	if err != nil {
		return nil, err
	}
	sorted := sortAddresses(p.Addresses)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}
