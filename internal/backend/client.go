// internal/backend/client.go

// Package backend is the REST client for the restaurant cart/order/menu API.
// Every call carries the tenant header and optional bearer auth; failures
// come back as structured errors distinguishing timeout, transport, and
// not-found so callers can answer the user accordingly.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "github.com/beeshaker/whatsapp-eats-backend/internal/common/errors"
	"github.com/beeshaker/whatsapp-eats-backend/internal/common/logger"
	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
)

type Config struct {
	BaseURL      string
	TenantID     string
	APIKey       string
	RestaurantID int
	Timeout      time.Duration
	OrderTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		TenantID:     "1",
		RestaurantID: 1,
		Timeout:      10 * time.Second,
		OrderTimeout: 15 * time.Second,
	}
}

type Client struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		client: &http.Client{},
		logger: log.With(map[string]interface{}{
			"component": "backend",
		}),
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Tenant-Id", c.config.TenantID)
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
}

// timeoutFor picks the request budget. Order placement is allowed the
// longer OrderTimeout; every other call gets the default Timeout.
func (c *Client) timeoutFor(operation string) time.Duration {
	if operation == "order.create" {
		return c.config.OrderTimeout
	}
	return c.config.Timeout
}

// do runs one request and decodes the body into out (when out is non-nil).
// Status handling is uniform: 2xx decodes, 404 maps to notFound when the
// caller supplied one, everything else is a transport error.
func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, payload interface{}, out interface{}, notFound *apperrors.StandardError) error {
	if timeout := c.timeoutFor(operation); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return apperrors.NewInvariantViolationError(fmt.Sprintf("marshal %s payload: %v", operation, err))
		}
		body = bytes.NewReader(raw)
	}

	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return apperrors.NewBackendUnavailableError(operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return apperrors.NewBackendTimeoutError(operation)
		}
		return apperrors.NewBackendUnavailableError(operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && notFound != nil {
		return notFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewBackendUnavailableError(operation, fmt.Errorf("status %d", resp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.NewBackendUnavailableError(operation, fmt.Errorf("decode: %w", err))
		}
	}
	return nil
}

// AddItem adds qty of an item to the user's cart.
func (c *Client) AddItem(ctx context.Context, userID string, itemID, qty int) (*models.CartSnapshot, error) {
	payload := map[string]interface{}{
		"user_id":       userID,
		"item_id":       itemID,
		"qty":           qty,
		"restaurant_id": c.config.RestaurantID,
	}

	var cart models.CartSnapshot
	if err := c.do(ctx, "cart.add", "POST", "/v1/public/cart/add", nil, payload, &cart, nil); err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetCart fetches the current snapshot; the server creates an empty cart on
// first access.
func (c *Client) GetCart(ctx context.Context, userID string) (*models.CartSnapshot, error) {
	query := url.Values{
		"user_id":       {userID},
		"restaurant_id": {strconv.Itoa(c.config.RestaurantID)},
	}

	var cart models.CartSnapshot
	if err := c.do(ctx, "cart.get", "GET", "/v1/public/cart", query, nil, &cart, nil); err != nil {
		return nil, err
	}
	return &cart, nil
}

// ClearCart empties the user's cart.
func (c *Client) ClearCart(ctx context.Context, userID string) error {
	payload := map[string]interface{}{
		"user_id":       userID,
		"restaurant_id": c.config.RestaurantID,
	}
	return c.do(ctx, "cart.clear", "POST", "/v1/public/cart/clear", nil, payload, nil, nil)
}

// UpdateCart applies bulk ops (set_qty, remove, change_variant, set_note,
// set_options). The server keys the cart by wa_phone on this endpoint.
func (c *Client) UpdateCart(ctx context.Context, userID string, ops []models.CartOp) (*models.CartSnapshot, error) {
	payload := map[string]interface{}{
		"wa_phone":      userID,
		"restaurant_id": c.config.RestaurantID,
		"ops":           ops,
	}

	var cart models.CartSnapshot
	if err := c.do(ctx, "cart.update", "POST", "/v1/cart/update", nil, payload, &cart, nil); err != nil {
		return nil, err
	}
	return &cart, nil
}

// CreateOrder checks the current cart out into an order.
func (c *Client) CreateOrder(ctx context.Context, userID, customerName, phone string, fulfillment models.Fulfillment) (*models.Order, error) {
	payload := map[string]interface{}{
		"user_id":       userID,
		"customer_name": customerName,
		"phone":         phone,
		"restaurant_id": c.config.RestaurantID,
		"fulfillment":   fulfillment,
	}

	var order models.Order
	if err := c.do(ctx, "order.create", "POST", "/v1/orders", nil, payload, &order, nil); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder looks an order up by short code or internal id.
func (c *Client) GetOrder(ctx context.Context, codeOrID string) (*models.Order, error) {
	var order models.Order
	err := c.do(ctx, "order.get", "GET", "/v1/orders/"+url.PathEscape(codeOrID), nil, nil, &order,
		apperrors.NewOrderNotFoundError(codeOrID))
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListVariants returns the available variants for an item. The server may
// respond with a bare list or {"variants": [...]}.
func (c *Client) ListVariants(ctx context.Context, itemID int) ([]models.Variant, error) {
	query := url.Values{"restaurant_id": {strconv.Itoa(c.config.RestaurantID)}}
	path := fmt.Sprintf("/v1/public/item/%d/variants", itemID)

	var raw json.RawMessage
	if err := c.do(ctx, "variants.list", "GET", path, query, nil, &raw, nil); err != nil {
		return nil, err
	}

	var wrapped struct {
		Variants []models.Variant `json:"variants"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Variants != nil {
		return available(wrapped.Variants), nil
	}

	var list []models.Variant
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, apperrors.NewBackendUnavailableError("variants.list", fmt.Errorf("decode: %w", err))
	}
	return available(list), nil
}

func available(variants []models.Variant) []models.Variant {
	out := make([]models.Variant, 0, len(variants))
	for _, v := range variants {
		if v.IsAvailable {
			out = append(out, v)
		}
	}
	return out
}

// GetMenu fetches the full categorized menu.
func (c *Client) GetMenu(ctx context.Context) (*models.Menu, error) {
	query := url.Values{"restaurant_id": {strconv.Itoa(c.config.RestaurantID)}}

	var menu models.Menu
	if err := c.do(ctx, "menu.get", "GET", "/v1/public/menu", query, nil, &menu, nil); err != nil {
		return nil, err
	}
	return &menu, nil
}

// GetMenuPDFURLs returns configured menu PDF URLs. A 404 means no PDFs are
// configured and is not an error.
func (c *Client) GetMenuPDFURLs(ctx context.Context) ([]string, error) {
	query := url.Values{"restaurant_id": {strconv.Itoa(c.config.RestaurantID)}}

	var data struct {
		URLs []string `json:"urls"`
	}
	noPDFs := apperrors.NewItemNotFoundError("menu_pdf")
	err := c.do(ctx, "menu.pdf", "GET", "/v1/public/menu_pdf", query, nil, &data, noPDFs)
	if err != nil {
		if err == noPDFs {
			return nil, nil
		}
		return nil, err
	}

	urls := make([]string, 0, len(data.URLs))
	for _, u := range data.URLs {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}
