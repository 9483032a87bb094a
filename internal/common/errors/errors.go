// Package errors provides standardized error handling for the ordering bot.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Transport failures: external collaborator unreachable or slow.
	// Recovered locally with a safe default, never propagated as a crash.
	ErrCodeClassifierTimeout     ErrorCode = "CLASSIFIER_TIMEOUT"
	ErrCodeClassifierUnavailable ErrorCode = "CLASSIFIER_UNAVAILABLE"
	ErrCodeBackendTimeout        ErrorCode = "BACKEND_TIMEOUT"
	ErrCodeBackendUnavailable    ErrorCode = "BACKEND_UNAVAILABLE"
	ErrCodeSendFailed            ErrorCode = "SEND_FAILED"

	// Malformed input: fails closed, falls through to the next handler.
	ErrCodeInvalidCommandToken     ErrorCode = "INVALID_COMMAND_TOKEN"
	ErrCodeClassifierOutputInvalid ErrorCode = "CLASSIFIER_OUTPUT_INVALID"

	// Business-rule violations: surfaced as user-visible messages.
	ErrCodeCartEmpty           ErrorCode = "CART_EMPTY"
	ErrCodeOrderNotFound       ErrorCode = "ORDER_NOT_FOUND"
	ErrCodeItemNotFound        ErrorCode = "ITEM_NOT_FOUND"
	ErrCodeNoVariantsAvailable ErrorCode = "NO_VARIANTS_AVAILABLE"

	// Programming-invariant violations: defensively impossible, treated as
	// transport failures when encountered.
	ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// IsCode reports whether err is a *StandardError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	se, ok := err.(*StandardError)
	return ok && se.Code == code
}

// UserVisible reports whether the error should be relayed to the user as a
// business message rather than a generic retry prompt.
func (e *StandardError) UserVisible() bool {
	switch e.Code {
	case ErrCodeCartEmpty, ErrCodeOrderNotFound, ErrCodeItemNotFound, ErrCodeNoVariantsAvailable:
		return true
	}
	return false
}

// ==========================
// 2. Error Constructors
// ==========================

// NewClassifierTimeoutError creates a retryable classifier timeout error.
func NewClassifierTimeoutError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassifierTimeout,
		Message:   "Intent classifier request timed out",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewClassifierUnavailableError creates a retryable classifier transport error.
func NewClassifierUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassifierUnavailable,
		Message:   "Intent classifier unreachable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewClassifierOutputInvalidError creates a non-retryable schema violation error.
func NewClassifierOutputInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassifierOutputInvalid,
		Message:   "Classifier output failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendTimeoutError creates a retryable backend timeout error.
func NewBackendTimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendTimeout,
		Message:   "Backend request timed out",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendUnavailableError creates a retryable backend transport error.
// A nil cause records the operation alone.
func NewBackendUnavailableError(operation string, err error) *StandardError {
	details := fmt.Sprintf("operation: %s", operation)
	if err != nil {
		details += ", error: " + err.Error()
	}
	return &StandardError{
		Code:      ErrCodeBackendUnavailable,
		Message:   "Backend request failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSendFailedError creates a non-retryable outbound send error. Sends are
// fire-and-observe: this error is logged, never re-raised into routing.
func NewSendFailedError(kind string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSendFailed,
		Message:   "Outbound send failed",
		Details:   fmt.Sprintf("kind: %s, error: %s", kind, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidCommandTokenError creates a non-retryable malformed token error.
func NewInvalidCommandTokenError(token string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidCommandToken,
		Message:   "Postback token is not a recognized command",
		Details:   token,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCartEmptyError creates a user-visible empty cart error.
func NewCartEmptyError() *StandardError {
	return &StandardError{
		Code:      ErrCodeCartEmpty,
		Message:   "Cart is empty, nothing to check out",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewOrderNotFoundError creates a user-visible unknown order error.
func NewOrderNotFoundError(code string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOrderNotFound,
		Message:   "Order not found",
		Details:   fmt.Sprintf("orderCode: %s", code),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewItemNotFoundError creates a user-visible unknown item error.
func NewItemNotFoundError(name string) *StandardError {
	return &StandardError{
		Code:      ErrCodeItemNotFound,
		Message:   "Menu item not found",
		Details:   fmt.Sprintf("item: %s", name),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoVariantsAvailableError creates a user-visible no-variants error.
func NewNoVariantsAvailableError(itemID int) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoVariantsAvailable,
		Message:   "No other variants available for this item",
		Details:   fmt.Sprintf("itemId: %d", itemID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvariantViolationError wraps an impossible-by-design condition.
func NewInvariantViolationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvariantViolation,
		Message:   "Internal invariant violated",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
