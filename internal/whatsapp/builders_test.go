// internal/whatsapp/builders_test.go

package whatsapp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
)

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "650", FormatPrice(650))
	assert.Equal(t, "650.5", FormatPrice(650.5))
	assert.Equal(t, "0", FormatPrice(0))
}

func TestBuildMenuSections(t *testing.T) {
	menu := &models.Menu{
		Categories: []models.MenuCategory{
			{
				Name: "Pizzas",
				Items: []models.MenuItem{
					{ID: 1, Name: "Margherita", Price: 650, Desc: strings.Repeat("cheesy ", 20)},
					{ID: 2, Name: "Pepperoni", Price: 800.5},
				},
			},
			{Name: "Empty category"},
		},
	}

	sections := BuildMenuSections(menu)

	require.Len(t, sections, 1)
	assert.Equal(t, "Pizzas", sections[0].Title)
	require.Len(t, sections[0].Rows, 2)

	row := sections[0].Rows[0]
	assert.Equal(t, "add_1", row.ID)
	assert.Equal(t, "Margherita — KSh 650", row.Title)
	assert.Len(t, row.Description, 70)

	assert.Equal(t, "Pepperoni — KSh 800.5", sections[0].Rows[1].Title)
}

func TestBuildMenuSections_RowAndSectionLimits(t *testing.T) {
	items := make([]models.MenuItem, 12)
	for i := range items {
		items[i] = models.MenuItem{ID: i + 1, Name: "Item", Price: 100}
	}
	cats := make([]models.MenuCategory, 11)
	for i := range cats {
		cats[i] = models.MenuCategory{Name: "Cat", Items: items}
	}

	sections := BuildMenuSections(&models.Menu{Categories: cats})

	require.Len(t, sections, 10)
	assert.Len(t, sections[0].Rows, 10)
}

func TestRewritePDFURL(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		public string
		want   string
	}{
		{
			"replaces scheme and host",
			"http://localhost:8000/v1/public/menu_pdf/main?restaurant_id=1",
			"https://bot.example.com",
			"https://bot.example.com/v1/public/menu_pdf/main?restaurant_id=1",
		},
		{
			"adds missing restaurant_id",
			"http://localhost:8000/v1/public/menu_pdf/main",
			"https://bot.example.com",
			"https://bot.example.com/v1/public/menu_pdf/main?restaurant_id=7",
		},
		{
			"no public base leaves host alone",
			"http://localhost:8000/menu.pdf?restaurant_id=3",
			"",
			"http://localhost:8000/menu.pdf?restaurant_id=3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewritePDFURL(tt.raw, tt.public, 7))
		})
	}
}
