// internal/whatsapp/builders.go
package whatsapp

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
)

// FormatPrice renders a KSh amount without a trailing .0 for whole values.
func FormatPrice(v float64) string {
	if v == math.Trunc(v) {
		return strconv.Itoa(int(v))
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// BuildMenuSections converts the backend menu into list sections. Row ids
// carry the add_<id> convention the router matches on selection.
func BuildMenuSections(menu *models.Menu) []Section {
	var sections []Section
	for _, cat := range menu.Categories {
		rows := make([]Row, 0, len(cat.Items))
		for _, it := range cat.Items {
			desc := it.Desc
			if len(desc) > 70 {
				desc = desc[:70]
			}
			rows = append(rows, Row{
				ID:          fmt.Sprintf("add_%d", it.ID),
				Title:       fmt.Sprintf("%s — KSh %s", it.Name, FormatPrice(it.Price)),
				Description: desc,
			})
		}
		if len(rows) == 0 {
			continue
		}
		if len(rows) > maxRowsPerSec {
			rows = rows[:maxRowsPerSec]
		}
		title := cat.Name
		if title == "" {
			title = "Menu"
		}
		sections = append(sections, Section{
			Title: truncate(title, maxSectionTitle),
			Rows:  rows,
		})
	}
	if len(sections) > maxSections {
		sections = sections[:maxSections]
	}
	return sections
}

// RewritePDFURL makes a backend-relative PDF URL reachable from the user's
// phone: scheme and host are replaced with the public base, and a
// restaurant_id query parameter is added when missing.
func RewritePDFURL(raw, publicBaseURL string, restaurantID int) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if publicBaseURL != "" {
		if pb, err := url.Parse(publicBaseURL); err == nil && pb.Host != "" {
			u.Scheme = pb.Scheme
			u.Host = pb.Host
		}
	}

	q := u.Query()
	if q.Get("restaurant_id") == "" {
		q.Set("restaurant_id", strconv.Itoa(restaurantID))
		u.RawQuery = q.Encode()
	}
	return u.String()
}
