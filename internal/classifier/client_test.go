// internal/classifier/client_test.go

package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beeshaker/whatsapp-eats-backend/internal/common/logger"
	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
)

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"content": content}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func testClient(t testing.TB, baseURL string, retries int) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.APIKey = "test-key"
	cfg.MaxRetries = retries
	return NewClient(cfg, logger.NewTestLogger(t))
}

func TestParse_Success(t *testing.T) {
	intent := `{
		"action": "ADD_TO_CART",
		"items": [{"item_name": "burger", "qty": 2, "options": {}}],
		"dietary": [],
		"clarifications": [],
		"response_text": "Got it, two burgers!"
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Contains(t, body.Messages[1].Content, "USER:\nadd 2 burgers")

		chatReply(t, w, intent)
	}))
	defer server.Close()

	got, err := testClient(t, server.URL, 0).Parse(context.Background(), &Request{
		MenuSnapshotJSON: "[]",
		UserText:         "add 2 burgers",
	})

	require.NoError(t, err)
	assert.Equal(t, models.ActionAddToCart, got.Action)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "burger", got.Items[0].ItemName)
	assert.Equal(t, 2, got.Items[0].Qty)
	assert.False(t, got.NeedsClarification())
}

func TestParse_ClarificationsSurvive(t *testing.T) {
	intent := `{
		"action": "EDIT_SET_QTY",
		"items": [],
		"clarifications": ["Which burger did you mean, beef or chicken?"],
		"response_text": null
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, intent)
	}))
	defer server.Close()

	got, err := testClient(t, server.URL, 0).Parse(context.Background(), &Request{UserText: "make it 3"})

	require.NoError(t, err)
	assert.True(t, got.NeedsClarification())
}

func TestParse_RejectsUnknownAction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, `{"action": "LAUNCH_ROCKET", "items": [], "clarifications": []}`)
	}))
	defer server.Close()

	_, err := testClient(t, server.URL, 0).Parse(context.Background(), &Request{UserText: "hi"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIntentParsingFailed)
}

func TestParse_RejectsMissingRequiredFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, `{"action": "VIEW_CART"}`)
	}))
	defer server.Close()

	_, err := testClient(t, server.URL, 0).Parse(context.Background(), &Request{UserText: "cart"})

	assert.ErrorIs(t, err, ErrIntentParsingFailed)
}

func TestParse_RejectsNonJSONContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(t, w, "I think you want a burger!")
	}))
	defer server.Close()

	_, err := testClient(t, server.URL, 0).Parse(context.Background(), &Request{UserText: "hi"})

	assert.ErrorIs(t, err, ErrIntentParsingFailed)
}

func TestParse_RetriesOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		chatReply(t, w, `{"action": "SHOW_MENU", "items": [], "clarifications": []}`)
	}))
	defer server.Close()

	got, err := testClient(t, server.URL, 2).Parse(context.Background(), &Request{UserText: "menu"})

	require.NoError(t, err)
	assert.Equal(t, models.ActionShowMenu, got.Action)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestParse_ExhaustedRetriesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := testClient(t, server.URL, 1).Parse(context.Background(), &Request{UserText: "menu"})

	assert.ErrorIs(t, err, ErrIntentParsingFailed)
}

func TestParse_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		chatReply(t, w, `{"action": "SHOW_MENU", "items": [], "clarifications": []}`)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := testClient(t, server.URL, 0).Parse(ctx, &Request{UserText: "menu"})

	assert.ErrorIs(t, err, ErrIntentAPITimeout)
}

func TestFallback(t *testing.T) {
	fb := Fallback()
	assert.Equal(t, models.ActionSmallTalk, fb.Action)
	assert.Equal(t, FallbackReply, fb.ResponseText)
	assert.False(t, fb.NeedsClarification())
}
