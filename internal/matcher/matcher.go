// internal/matcher/matcher.go

// Package matcher resolves free-text item references against the live menu
// and the current cart. Matching is normalized substring containment in both
// directions, so "chicken burger" finds "Grilled Chicken Burger" and vice
// versa. Multiple hits are surfaced as-is so the caller can ask which one.
package matcher

import (
	"strings"

	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
)

// Normalize lowercases, trims, and collapses internal whitespace so cosmetic
// differences never break a match.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// MenuMatches returns every menu item whose normalized name contains the
// query or is contained by it. Empty queries match nothing.
func MenuMatches(menu *models.Menu, query string) []models.MenuItem {
	q := Normalize(query)
	if q == "" || menu == nil {
		return nil
	}

	var out []models.MenuItem
	for _, item := range menu.AllItems() {
		name := Normalize(item.Name)
		if name == "" {
			continue
		}
		if strings.Contains(name, q) || strings.Contains(q, name) {
			out = append(out, item)
		}
	}
	return out
}

// ResolveMenuItem narrows a reference to a single menu item. ok is false when
// nothing matched; ambiguous carries the candidates when more than one did,
// in which case the caller must clarify rather than guess.
func ResolveMenuItem(menu *models.Menu, query string) (item models.MenuItem, ambiguous []models.MenuItem, ok bool) {
	matches := MenuMatches(menu, query)
	switch len(matches) {
	case 0:
		return models.MenuItem{}, nil, false
	case 1:
		return matches[0], nil, true
	default:
		// Exact normalized name wins over partial overlaps.
		q := Normalize(query)
		for _, m := range matches {
			if Normalize(m.Name) == q {
				return m, nil, true
			}
		}
		return models.MenuItem{}, matches, false
	}
}

// CartMatches returns the cart lines whose names match the query, same
// containment rule as the menu.
func CartMatches(cart *models.CartSnapshot, query string) []models.CartLine {
	q := Normalize(query)
	if q == "" || cart == nil {
		return nil
	}

	var out []models.CartLine
	for _, line := range cart.Items {
		name := Normalize(line.Name)
		if name == "" {
			continue
		}
		if strings.Contains(name, q) || strings.Contains(q, name) {
			out = append(out, line)
		}
	}
	return out
}

// ResolveCartLine narrows a reference to a single cart line, same contract as
// ResolveMenuItem.
func ResolveCartLine(cart *models.CartSnapshot, query string) (line models.CartLine, ambiguous []models.CartLine, ok bool) {
	matches := CartMatches(cart, query)
	switch len(matches) {
	case 0:
		return models.CartLine{}, nil, false
	case 1:
		return matches[0], nil, true
	default:
		q := Normalize(query)
		for _, m := range matches {
			if Normalize(m.Name) == q {
				return m, nil, true
			}
		}
		return models.CartLine{}, matches, false
	}
}
