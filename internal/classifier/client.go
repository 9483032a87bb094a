// internal/classifier/client.go

// Package classifier turns open-ended customer text into a structured intent
// by calling an external chat-completions endpoint. Output is validated
// against a strict schema; anything that fails transport, parsing, or
// validation surfaces as a sentinel error so the router can fall back to a
// safe small-talk reply instead of guessing.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/beeshaker/whatsapp-eats-backend/internal/common/logger"
	"github.com/beeshaker/whatsapp-eats-backend/internal/models"
)

var (
	ErrIntentParsingFailed = errors.New("INTENT_PARSING_FAILED")
	ErrIntentAPITimeout    = errors.New("INTENT_API_TIMEOUT")
)

// FallbackReply is what the user sees whenever classification fails.
const FallbackReply = "Sorry, I didn't catch that. Could you try again or ask for the menu?"

const systemInstructions = `You are a restaurant ordering assistant for WhatsApp, designed to respond conversationally like a friendly human.
- Parse messy, multilingual messages (English/Swahili slang) into a JSON object matching the schema.
- Default qty=1 if not stated. Infer simple options (no onions, extra cheese, well done).
- Respect constraints like budget/spice/dietary from user_profile or message.
- If the request lacks a required slot (e.g., delivery address for CHECKOUT), set clarifications.
- For ORDER_STATUS, extract order_code if present.
- For ambiguous items, keep item_name and do NOT invent item_id.
- For conversational cart edits, ground references in CART_SNAPSHOT and prefer exact item_id/variant_id from the snapshot.
- If ambiguous (multiple matches), add one short clarification in 'clarifications' and STOP.
- Coerce quantities to integer >= 0 (qty=0 means remove).
Respond with ONLY the JSON object.`

const maxMenuTextLen = 10000

// Request bundles everything the model needs to ground its answer.
type Request struct {
	MenuSnapshotJSON string
	MenuText         string
	UserProfileJSON  string
	CartSnapshotJSON string
	UserText         string
}

type Client struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log.With(map[string]interface{}{
			"component": "classifier",
		}),
	}
}

// Fallback is the intent used when Parse fails for any reason.
func Fallback() *models.ParsedIntent {
	return &models.ParsedIntent{
		Action:         models.ActionSmallTalk,
		Items:          []models.IntentLineItem{},
		Dietary:        []string{},
		Clarifications: []string{},
		ResponseText:   FallbackReply,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Parse classifies the user text. Callers own the fallback decision; Parse
// itself never invents an intent.
func (c *Client) Parse(ctx context.Context, in *Request) (*models.ParsedIntent, error) {
	menuText := in.MenuText
	if len(menuText) > maxMenuTextLen {
		menuText = menuText[:maxMenuTextLen]
	}

	prompt := fmt.Sprintf(
		"MENU_SNAPSHOT:\n%s\n\nMENU_TEXT:\n%s\n\nPROFILE:\n%s\n\nCART_SNAPSHOT:\n%s\n\nUSER:\n%s",
		in.MenuSnapshotJSON, menuText, in.UserProfileJSON, in.CartSnapshotJSON, in.UserText,
	)

	payload := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstructions},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	}
	payload.ResponseFormat.Type = "json_object"

	body, _ := json.Marshal(payload)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ErrIntentAPITimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIntentParsingFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return nil, ErrIntentAPITimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrIntentAPITimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrIntentParsingFailed, lastErr)
	}

	if resp == nil {
		return nil, fmt.Errorf("%w: no successful response after retries", ErrIntentParsingFailed)
	}
	defer resp.Body.Close()

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrIntentParsingFailed, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrIntentParsingFailed)
	}

	raw := []byte(chat.Choices[0].Message.Content)
	if err := validateIntentJSON(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntentParsingFailed, err)
	}

	var intent models.ParsedIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrIntentParsingFailed, err)
	}

	c.logger.Info("intent parsed", map[string]interface{}{
		"action":         string(intent.Action),
		"itemCount":      len(intent.Items),
		"clarifications": len(intent.Clarifications),
	})

	return &intent, nil
}
