// internal/recommend/engine.go

// Package recommend filters and ranks menu items against conversational
// constraints (diet, spice, budget, popularity) extracted from the user's
// text and the classifier's hint.
package recommend

import (
	"sort"
	"strings"

	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
)

// DefaultLimit caps how many items a recommendation carries.
const DefaultLimit = 6

var popularTags = map[string]bool{
	"popular":   true,
	"best":      true,
	"signature": true,
	"favourite": true,
}

var (
	dietaryKeywords    = []string{"veg", "vegetarian", "no meat"}
	spiceKeywords      = []string{"spicy", "hot", "peri", "chilli"}
	budgetKeywords     = []string{"under", "below", "max", "cheaper than", "budget"}
	popularityKeywords = []string{"popular", "best", "good", "recommend", "your favorite", "signature"}
)

// Engine ranks menu items. Zero Limit falls back to DefaultLimit.
type Engine struct {
	Limit int
}

func New(limit int) *Engine {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Engine{Limit: limit}
}

// HasFilterSignal reports whether the text or hint carries any constraint a
// recommendation should honor. The router uses this to choose between a
// recommendation and a plain menu listing.
func HasFilterSignal(text, hint string) bool {
	combined := strings.ToLower(text) + " " + strings.ToLower(hint)
	for _, group := range [][]string{dietaryKeywords, spiceKeywords, budgetKeywords, popularityKeywords} {
		if containsAny(combined, group) {
			return true
		}
	}
	return false
}

// Recommend applies the filters conjunctively and returns at most Limit items
// ordered popular-first then ascending price. An empty result means nothing
// in the catalog matched (or the catalog was empty) and the caller should
// point the user at the full menu instead of staying silent.
func (e *Engine) Recommend(items []models.MenuItem, text, hint string) []models.MenuItem {
	combined := strings.ToLower(text) + " " + strings.ToLower(hint)

	recs := make([]models.MenuItem, len(items))
	copy(recs, items)

	if containsAny(combined, dietaryKeywords) {
		recs = keep(recs, func(it models.MenuItem) bool {
			return hasTag(it, "vegetarian") || hasTag(it, "veg")
		})
	}
	if containsAny(combined, spiceKeywords) {
		recs = keep(recs, func(it models.MenuItem) bool {
			return hasTag(it, "spicy")
		})
	}
	if containsAny(combined, budgetKeywords) {
		if budget, ok := extractBudget(combined); ok {
			recs = keep(recs, func(it models.MenuItem) bool {
				return it.Price <= budget
			})
		}
	}
	if containsAny(combined, popularityKeywords) {
		popular := keep(append([]models.MenuItem(nil), recs...), isPopular)
		if len(popular) > 0 {
			recs = popular
		} else {
			// Never an empty set while the catalog still has candidates.
			sort.SliceStable(recs, func(i, j int) bool { return recs[i].Price < recs[j].Price })
			if len(recs) > DefaultLimit {
				recs = recs[:DefaultLimit]
			}
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		pi, pj := isPopular(recs[i]), isPopular(recs[j])
		if pi != pj {
			return pi
		}
		return recs[i].Price < recs[j].Price
	})

	if len(recs) > e.Limit {
		recs = recs[:e.Limit]
	}
	return recs
}

func isPopular(it models.MenuItem) bool {
	for _, t := range it.Tags {
		if popularTags[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

func hasTag(it models.MenuItem, tag string) bool {
	for _, t := range it.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func keep(items []models.MenuItem, pred func(models.MenuItem) bool) []models.MenuItem {
	out := items[:0]
	for _, it := range items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}

// extractBudget pulls a numeric amount out of the combined text using the
// longest contiguous digit run, so "under 1,000" and "max 800 bob" both work
// while short stray digits ("2 of them under 500") lose to the real amount.
func extractBudget(s string) (float64, bool) {
	best, current := "", ""
	for _, r := range s {
		if r >= '0' && r <= '9' {
			current += string(r)
			continue
		}
		if len(current) > len(best) {
			best = current
		}
		current = ""
	}
	if len(current) > len(best) {
		best = current
	}
	if best == "" {
		return 0, false
	}

	var v float64
	for _, r := range best {
		v = v*10 + float64(r-'0')
	}
	return v, true
}
