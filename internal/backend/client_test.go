// internal/backend/client_test.go

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/beeshaker/whatsapp-eats-backend/internal/common/errors"
	"github.com/beeshaker/whatsapp-eats-backend/internal/common/logger"
	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
)

func newTestClient(t testing.TB, baseURL string) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.TenantID = "42"
	cfg.APIKey = "secret"
	cfg.RestaurantID = 7
	return NewClient(cfg, logger.NewTestLogger(t))
}

func TestAddItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/public/cart/add", r.URL.Path)
		assert.Equal(t, "42", r.Header.Get("X-Tenant-Id"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "254700000001", body["user_id"])
		assert.Equal(t, float64(3), body["item_id"])
		assert.Equal(t, float64(2), body["qty"])
		assert.Equal(t, float64(7), body["restaurant_id"])

		json.NewEncoder(w).Encode(models.CartSnapshot{
			Items: []models.CartLine{{ItemID: 3, Name: "Fries", Qty: 2, UnitPrice: 200}},
		})
	}))
	defer server.Close()

	cart, err := newTestClient(t, server.URL).AddItem(context.Background(), "254700000001", 3, 2)

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 400.0, cart.Total())
}

func TestGetCart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/public/cart", r.URL.Path)
		assert.Equal(t, "254700000001", r.URL.Query().Get("user_id"))
		assert.Equal(t, "7", r.URL.Query().Get("restaurant_id"))
		json.NewEncoder(w).Encode(models.CartSnapshot{})
	}))
	defer server.Close()

	cart, err := newTestClient(t, server.URL).GetCart(context.Background(), "254700000001")

	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestUpdateCart_UsesWaPhoneField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/cart/update", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "254700000001", body["wa_phone"])
		_, hasUserID := body["user_id"]
		assert.False(t, hasUserID)

		ops, ok := body["ops"].([]interface{})
		require.True(t, ok)
		require.Len(t, ops, 1)
		op := ops[0].(map[string]interface{})
		assert.Equal(t, "set_qty", op["op"])
		assert.Equal(t, float64(3), op["qty"])

		json.NewEncoder(w).Encode(models.CartSnapshot{})
	}))
	defer server.Close()

	qty := 3
	_, err := newTestClient(t, server.URL).UpdateCart(context.Background(), "254700000001", []models.CartOp{
		{Op: models.CartOpSetQty, ItemID: 3, Qty: &qty},
	})

	require.NoError(t, err)
}

func TestCreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fulfillment := body["fulfillment"].(map[string]interface{})
		assert.Equal(t, "delivery", fulfillment["type"])
		assert.Equal(t, "Moi Avenue 12", fulfillment["address"])

		json.NewEncoder(w).Encode(models.Order{Code: "ORD-881", Status: "pending"})
	}))
	defer server.Close()

	order, err := newTestClient(t, server.URL).CreateOrder(context.Background(), "254700000001", "Jane", "254700000001",
		models.Fulfillment{Type: models.FulfillmentDelivery, Address: "Moi Avenue 12"})

	require.NoError(t, err)
	assert.Equal(t, "ORD-881", order.Reference())
}

func TestGetOrder_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).GetOrder(context.Background(), "ORD-404")

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeOrderNotFound))
}

func TestListVariants_WrappedAndBareShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"wrapped", `{"variants": [{"id": 1, "name": "Small", "price": 450, "is_available": true}, {"id": 2, "name": "Large", "price": 650, "is_available": false}]}`},
		{"bare list", `[{"id": 1, "name": "Small", "price": 450, "is_available": true}, {"id": 2, "name": "Large", "price": 650, "is_available": false}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/public/item/9/variants", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			variants, err := newTestClient(t, server.URL).ListVariants(context.Background(), 9)

			require.NoError(t, err)
			// Unavailable variants are filtered out.
			require.Len(t, variants, 1)
			assert.Equal(t, "Small", variants[0].Name)
		})
	}
}

func TestGetMenuPDFURLs_NotFoundMeansNone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	urls, err := newTestClient(t, server.URL).GetMenuPDFURLs(context.Background())

	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestGetMenuPDFURLs_FiltersEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"urls": []string{"https://x/menu.pdf", ""}})
	}))
	defer server.Close()

	urls, err := newTestClient(t, server.URL).GetMenuPDFURLs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"https://x/menu.pdf"}, urls)
}

func TestTimeoutMapsToBackendTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, server.URL).GetCart(ctx, "254700000001")

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBackendTimeout))
}

func TestDefaultTimeoutGovernsNonOrderCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(models.CartSnapshot{})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.config.Timeout = 50 * time.Millisecond
	client.config.OrderTimeout = 2 * time.Second

	_, err := client.GetCart(context.Background(), "254700000001")

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBackendTimeout))
}

func TestOrderTimeoutGovernsOrderPlacement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(models.Order{Code: "ORD-55", Status: "pending"})
	}))
	defer server.Close()

	// The default budget would expire mid-request; order placement gets
	// the longer one.
	client := newTestClient(t, server.URL)
	client.config.Timeout = 50 * time.Millisecond
	client.config.OrderTimeout = 2 * time.Second

	order, err := client.CreateOrder(context.Background(), "254700000001", "Jane", "254700000001",
		models.Fulfillment{Type: models.FulfillmentPickup})

	require.NoError(t, err)
	assert.Equal(t, "ORD-55", order.Code)
}

func TestServerErrorMapsToUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := newTestClient(t, server.URL).ClearCart(context.Background(), "254700000001")

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBackendUnavailable))
}
