// internal/store/dedup.go
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DefaultDedupTTL is the processing-dedup window when config does not
// override it.
const DefaultDedupTTL = 48 * time.Hour

// DedupStore gates inbound processing: a (kind, sender, messageID) triple is
// accepted at most once within the TTL window. Implementations must use
// atomic insert-if-absent semantics so that concurrent claims for the same
// key yield exactly one true.
type DedupStore interface {
	// Claim returns true iff this is the first claim for the derived key
	// within the TTL. When messageID is empty the key derives from a
	// deterministic hash of payload.
	Claim(ctx context.Context, kind, senderID, messageID string, payload []byte) (bool, error)

	// ClaimForever is the second, all-time dedup layer keyed only by the
	// provider-assigned message id. It protects the audit sink against
	// permanently double-logging the same externally-identified event.
	ClaimForever(ctx context.Context, messageID string) (bool, error)
}

// dedupKey composes the TTL-scoped dedup key. Falls back to a payload hash
// when the provider did not assign a message id.
func dedupKey(kind, senderID, messageID string, payload []byte) string {
	if messageID != "" {
		return fmt.Sprintf("dedupe:%s:%s:%s", kind, senderID, messageID)
	}
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("dedupe:%s:%s:%s", kind, senderID, hex.EncodeToString(sum[:]))
}

// foreverKey composes the all-time audit dedup key.
func foreverKey(messageID string) string {
	return "seen_inbound:" + messageID
}
