// internal/router/router_test.go
package router

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beeshaker/whatsapp-eats-backend/internal/classifier"
	apperrors "github.com/beeshaker/whatsapp-eats-backend/internal/common/errors"
	"github.com/beeshaker/whatsapp-eats-backend/internal/common/logger"
	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
	"github.com/beeshaker/whatsapp-eats-backend/internal/recommend"
	"github.com/beeshaker/whatsapp-eats-backend/internal/store"
	"github.com/beeshaker/whatsapp-eats-backend/internal/whatsapp"
)

type addCall struct {
	ItemID int
	Qty    int
}

type fakeBackend struct {
	mu sync.Mutex

	cart     *models.CartSnapshot
	menu     *models.Menu
	variants map[int][]models.Variant
	pdfURLs  []string
	order    *models.Order
	orderErr error

	addCalls    []addCall
	updateOps   [][]models.CartOp
	clearCalls  int
	orders      []models.Fulfillment
	statusCodes []string
}

func (f *fakeBackend) AddItem(ctx context.Context, userID string, itemID, qty int) (*models.CartSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls = append(f.addCalls, addCall{ItemID: itemID, Qty: qty})
	return f.snapshot(), nil
}

func (f *fakeBackend) GetCart(ctx context.Context, userID string) (*models.CartSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot(), nil
}

func (f *fakeBackend) snapshot() *models.CartSnapshot {
	if f.cart == nil {
		return &models.CartSnapshot{}
	}
	return f.cart
}

func (f *fakeBackend) ClearCart(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	return nil
}

func (f *fakeBackend) UpdateCart(ctx context.Context, userID string, ops []models.CartOp) (*models.CartSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateOps = append(f.updateOps, ops)
	return f.snapshot(), nil
}

func (f *fakeBackend) CreateOrder(ctx context.Context, userID, customerName, phone string, fulfillment models.Fulfillment) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.orders = append(f.orders, fulfillment)
	if f.order != nil {
		return f.order, nil
	}
	return &models.Order{Code: "ORD-77", Status: "received"}, nil
}

func (f *fakeBackend) GetOrder(ctx context.Context, codeOrID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCodes = append(f.statusCodes, codeOrID)
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	if f.order != nil {
		return f.order, nil
	}
	return &models.Order{Code: codeOrID, Status: "preparing"}, nil
}

func (f *fakeBackend) ListVariants(ctx context.Context, itemID int) ([]models.Variant, error) {
	return f.variants[itemID], nil
}

func (f *fakeBackend) GetMenu(ctx context.Context) (*models.Menu, error) {
	if f.menu == nil {
		return &models.Menu{}, nil
	}
	return f.menu, nil
}

func (f *fakeBackend) GetMenuPDFURLs(ctx context.Context) ([]string, error) {
	return f.pdfURLs, nil
}

type fakeClassifier struct {
	intent  *models.ParsedIntent
	err     error
	lastReq *classifier.Request
	calls   int
}

func (f *fakeClassifier) Parse(ctx context.Context, in *classifier.Request) (*models.ParsedIntent, error) {
	f.calls++
	f.lastReq = in
	if f.err != nil {
		return nil, f.err
	}
	return f.intent, nil
}

type qrCall struct {
	Body    string
	Buttons []whatsapp.Button
}

type listCall struct {
	Body     string
	Sections []whatsapp.Section
}

type fakeSender struct {
	texts []string
	qrs   []qrCall
	lists []listCall
	docs  []string
}

func (f *fakeSender) SendText(ctx context.Context, to, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) SendQuickReplies(ctx context.Context, to, body string, buttons []whatsapp.Button) error {
	f.qrs = append(f.qrs, qrCall{Body: body, Buttons: buttons})
	return nil
}

func (f *fakeSender) SendList(ctx context.Context, to, body string, sections []whatsapp.Section) error {
	f.lists = append(f.lists, listCall{Body: body, Sections: sections})
	return nil
}

func (f *fakeSender) SendDocument(ctx context.Context, to, url, filename, caption string) error {
	f.docs = append(f.docs, url)
	return nil
}

type harness struct {
	router     *Router
	backend    *fakeBackend
	classifier *fakeClassifier
	sender     *fakeSender
	states     store.StateStore
	profiles   store.ProfileStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := &fakeBackend{
		menu: &models.Menu{Categories: []models.MenuCategory{{
			Name: "Mains",
			Items: []models.MenuItem{
				{ID: 1, Name: "Grilled Chicken Burger", Price: 650, Tags: []string{"popular"}},
				{ID: 2, Name: "Beef Burger", Price: 550},
				{ID: 3, Name: "Veggie Wrap", Price: 450, Tags: []string{"veg"}},
			},
		}}},
	}
	cls := &fakeClassifier{intent: classifier.Fallback()}
	sender := &fakeSender{}
	states := store.NewMemoryStateStore()
	profiles := store.NewMemoryProfileStore(6)

	r := New(&Config{PublicBaseURL: "https://bot.example.com", RestaurantID: 7},
		backend, cls, sender, states, profiles,
		recommend.New(recommend.DefaultLimit), logger.NewTestLogger(t))

	return &harness{router: r, backend: backend, classifier: cls, sender: sender, states: states, profiles: profiles}
}

func textMessage(body string) *models.Message {
	return &models.Message{
		From: "254700000001",
		ID:   "wamid.1",
		Type: models.MessageTypeText,
		Text: &models.TextBody{Body: body},
	}
}

func postbackMessage(id string) *models.Message {
	return &models.Message{
		From: "254700000001",
		ID:   "wamid.2",
		Type: models.MessageTypeInteractive,
		Interactive: &models.Interactive{
			Type:        "button_reply",
			ButtonReply: &models.Reply{ID: id, Title: "tap"},
		},
	}
}

func filledCart() *models.CartSnapshot {
	return &models.CartSnapshot{Items: []models.CartLine{
		{ItemID: 1, VariantID: 10, Name: "Grilled Chicken Burger", Qty: 2, UnitPrice: 650},
		{ItemID: 3, Name: "Veggie Wrap", Qty: 1, UnitPrice: 450},
	}}
}

func TestHandleText_FastCheckout(t *testing.T) {
	h := newHarness(t)
	h.backend.cart = filledCart()

	h.router.HandleInbound(context.Background(), "254700000001", "Alice", textMessage("checkout please"))

	require.Len(t, h.backend.orders, 1)
	assert.Equal(t, models.FulfillmentPickup, h.backend.orders[0].Type)
	assert.Zero(t, h.classifier.calls, "fast path must bypass the classifier")
	require.NotEmpty(t, h.sender.texts)
	assert.Contains(t, h.sender.texts[len(h.sender.texts)-1], "Order placed! Code: *ORD-77*")
}

func TestHandleText_CheckoutBeatsCartKeyword(t *testing.T) {
	h := newHarness(t)
	h.backend.cart = filledCart()

	h.router.HandleInbound(context.Background(), "254700000001", "Alice", textMessage("checkout my cart"))

	assert.Len(t, h.backend.orders, 1)
}

func TestHandleText_EmptyCartCheckout(t *testing.T) {
	h := newHarness(t)

	h.router.HandleInbound(context.Background(), "254700000001", "Alice", textMessage("checkout"))

	assert.Empty(t, h.backend.orders)
	require.Len(t, h.sender.texts, 1)
	assert.Contains(t, h.sender.texts[0], "cart is empty")
}

func TestHandleText_StatusKeepsCodeCase(t *testing.T) {
	h := newHarness(t)
	h.backend.order = &models.Order{Code: "ORD-1234", Status: "preparing"}

	h.router.HandleInbound(context.Background(), "254700000001", "Alice", textMessage("status ORD-1234"))

	require.Len(t, h.backend.statusCodes, 1)
	assert.Equal(t, "ORD-1234", h.backend.statusCodes[0])
	require.Len(t, h.sender.texts, 1)
	assert.Contains(t, h.sender.texts[0], "Order *ORD-1234* is *PREPARING*")
}

func TestHandleText_StatusWithoutCode(t *testing.T) {
	h := newHarness(t)

	h.router.HandleInbound(context.Background(), "254700000001", "Alice", textMessage("status"))

	assert.Empty(t, h.backend.statusCodes)
	require.Len(t, h.sender.texts, 1)
	assert.Contains(t, h.sender.texts[0], "status <code>")
}

func TestHandleText_StatusUnknownOrder(t *testing.T) {
	h := newHarness(t)
	h.backend.orderErr = apperrors.NewOrderNotFoundError("ORD-9")

	h.router.HandleInbound(context.Background(), "254700000001", "Alice", textMessage("status ORD-9"))

	require.Len(t, h.sender.texts, 1)
	assert.Contains(t, h.sender.texts[0], "can't find that order")
}

func TestHandleText_CartKeyword(t *testing.T) {
	h := newHarness(t)
	h.backend.cart = filledCart()

	h.router.HandleInbound(context.Background(), "254700000001", "Alice", textMessage("show me what I have"))

	require.Len(t, h.sender.texts, 1)
	assert.Contains(t, h.sender.texts[0], "🛒 *Your cart:*")
	assert.Contains(t, h.sender.texts[0], "• Grilled Chicken Burger ×2 — KSh 1300")
	assert.Contains(t, h.sender.texts[0], "Subtotal: *KSh 1750*")
}

func TestHandleText_Greeting(t *testing.T) {
	h := newHarness(t)

	h.router.HandleInbound(context.Background(), "254700000001", "Alice", textMessage("hi"))

	require.Len(t, h.sender.texts, 1)
	assert.Contains(t, h.sender.texts[0], "Welcome to QuickBite")
	assert.Zero(t, h.classifier.calls)
}

func TestHandleText_GreetingIsExactMatchOnly(t *testing.T) {
	h := newHarness(t)

	h.router.HandleInbound(context.Background(), "254700000001", "Alice", textMessage("hi, got any wraps?"))

	assert.Equal(t, 1, h.classifier.calls)
}

func TestNoteCapture_ConsumesExactlyOneMessage(t *testing.T) {
	h := newHarness(t)
	h.backend.cart = filledCart()
	ctx := context.Background()
	require.NoError(t, h.states.Set(ctx, "254700000001", store.ConversationState{
		Mode:            store.ModeAwaitingNote,
		TargetItemID:    1,
		TargetVariantID: 10,
	}))

	h.router.HandleInbound(ctx, "254700000001", "Alice", textMessage("no onions, extra spicy"))

	require.Len(t, h.backend.updateOps, 1)
	op := h.backend.updateOps[0][0]
	assert.Equal(t, models.CartOpSetNote, op.Op)
	assert.Equal(t, 1, op.ItemID)
	require.NotNil(t, op.VariantID)
	assert.Equal(t, 10, *op.VariantID)
	assert.Equal(t, "no onions, extra spicy", op.Note)
	require.NotEmpty(t, h.sender.texts)
	assert.True(t, strings.HasPrefix(h.sender.texts[len(h.sender.texts)-1], "📝 Note saved.\n"))

	// State was cleared, so the next message routes normally.
	h.router.HandleInbound(ctx, "254700000001", "Alice", textMessage("hi"))
	assert.Contains(t, h.sender.texts[len(h.sender.texts)-1], "Welcome to QuickBite")
	assert.Len(t, h.backend.updateOps, 1)
}

func TestNoteCapture_TruncatesLongNotes(t *testing.T) {
	h := newHarness(t)
	h.backend.cart = filledCart()
	ctx := context.Background()
	require.NoError(t, h.states.Set(ctx, "254700000001", store.ConversationState{
		Mode:         store.ModeAwaitingNote,
		TargetItemID: 1,
	}))

	h.router.HandleInbound(ctx, "254700000001", "Alice", textMessage(strings.Repeat("x", 300)))

	require.Len(t, h.backend.updateOps, 1)
	assert.Len(t, h.backend.updateOps[0][0].Note, 240)
}

func TestAddressCapture_CompletesDeliveryCheckout(t *testing.T) {
	h := newHarness(t)
	h.backend.cart = filledCart()
	ctx := context.Background()
	require.NoError(t, h.states.Set(ctx, "254700000001", store.ConversationState{Mode: store.ModeAwaitingAddress}))

	h.router.HandleInbound(ctx, "254700000001", "Alice", textMessage("12 Riverside Drive, Nairobi"))

	require.Len(t, h.backend.orders, 1)
	assert.Equal(t, models.FulfillmentDelivery, h.backend.orders[0].Type)
	assert.Equal(t, "12 Riverside Drive, Nairobi", h.backend.orders[0].Address)

	saved, err := h.profiles.TopAddresses(ctx, "254700000001", 5)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "12 Riverside Drive, Nairobi", saved[0].Text)
}

func TestHandleLocation_AnswersAddressPrompt(t *testing.T) {
	h := newHarness(t)
	h.backend.cart = filledCart()
	ctx := context.Background()
	require.NoError(t, h.states.Set(ctx, "254700000001", store.ConversationState{Mode: store.ModeAwaitingAddress}))

	msg := &models.Message{
		From: "254700000001",
		ID:   "wamid.3",
		Type: models.MessageTypeLocation,
		Location: &models.Location{
			Latitude:  -1.2921,
			Longitude: 36.8219,
			Name:      "Yaya Centre",
			Address:   "Argwings Kodhek Rd",
		},
	}
	h.router.HandleInbound(ctx, "254700000001", "Alice", msg)

	require.Len(t, h.backend.orders, 1)
	assert.Equal(t, models.FulfillmentDelivery, h.backend.orders[0].Type)
	assert.Equal(t, "Argwings Kodhek Rd", h.backend.orders[0].Address)

	_, ok, err := h.states.Get(ctx, "254700000001")
	require.NoError(t, err)
	assert.False(t, ok, "address capture must clear the state")
}

func TestHandleLocation_SavesPinOutsideCheckout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg := &models.Message{
		From:     "254700000001",
		ID:       "wamid.4",
		Type:     models.MessageTypeLocation,
		Location: &models.Location{Latitude: -1.3, Longitude: 36.8, Name: "Home"},
	}
	h.router.HandleInbound(ctx, "254700000001", "Alice", msg)

	assert.Empty(t, h.backend.orders)
	require.Len(t, h.sender.texts, 1)
	assert.Contains(t, h.sender.texts[0], "Location saved")

	saved, err := h.profiles.TopAddresses(ctx, "254700000001", 5)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Home", saved[0].Label)
}
