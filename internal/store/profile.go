// internal/store/profile.go
package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
)

// ProfileStore owns the lightweight per-sender profile: dietary prefs, saved
// addresses and the last completed order. Mutated by checkout completion and
// explicit address saves only.
type ProfileStore interface {
	// Get returns the profile, empty (but non-nil fields) when absent.
	Get(ctx context.Context, senderID string) (models.UserProfile, error)
	UpdateLastOrder(ctx context.Context, senderID string, items []models.CartLine) error
	// UpsertAddress saves or refreshes a delivery address. Repeat saves of
	// the same address (per dedup key) bump used_count and last_used_at.
	UpsertAddress(ctx context.Context, senderID string, addr models.Address) error
	// TopAddresses returns addresses ordered by most-used then most-recent.
	TopAddresses(ctx context.Context, senderID string, limit int) ([]models.Address, error)
}

// addressKey builds the dedup key for an address. Prefers rounded (lat,lng)
// when both are present, else normalized lowercase text.
func addressKey(addr models.Address, places int) string {
	if addr.Lat != nil && addr.Lng != nil {
		scale := math.Pow10(places)
		lat := math.Round(*addr.Lat*scale) / scale
		lng := math.Round(*addr.Lng*scale) / scale
		return fmt.Sprintf("geo:%.*f,%.*f", places, lat, places, lng)
	}
	text := addr.Text
	if text == "" {
		text = addr.Label
	}
	return "text:" + strings.ToLower(strings.TrimSpace(text))
}

// mergeAddress applies an upsert into the profile's address list in place,
// returning the updated slice.
func mergeAddress(addresses []models.Address, addr models.Address, places int, now time.Time) []models.Address {
	key := addressKey(addr, places)
	for i := range addresses {
		if addressKey(addresses[i], places) != key {
			continue
		}
		if addr.Label != "" {
			addresses[i].Label = addr.Label
		}
		if addr.Text != "" {
			addresses[i].Text = addr.Text
		}
		if addr.Lat != nil {
			addresses[i].Lat = addr.Lat
		}
		if addr.Lng != nil {
			addresses[i].Lng = addr.Lng
		}
		addresses[i].UsedCount++
		addresses[i].LastUsedAt = now
		return addresses
	}

	addr.UsedCount = 1
	addr.LastUsedAt = now
	return append(addresses, addr)
}

// sortAddresses orders by used_count descending, then recency descending.
func sortAddresses(addresses []models.Address) []models.Address {
	sorted := make([]models.Address, len(addresses))
	copy(sorted, addresses)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].UsedCount != sorted[j].UsedCount {
			return sorted[i].UsedCount > sorted[j].UsedCount
		}
		return sorted[i].LastUsedAt.After(sorted[j].LastUsedAt)
	})
	return sorted
}
