package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"example.com/ticketsales/internal/domain"
)

type KeySource string

const (
	KeyFromSnapshot  KeySource = "snapshot_key"
	KeyFromComposite KeySource = "composite"
)

// DeriveKey returns a stable idempotency key and the source used.
// - Prefer an explicit Key when provided.
// - Fallback to composite (occurrence id, UTC capture day), so one
// occurrence is stored at most once per day.
func DeriveKey(s *domain.Snapshot) (key string, src KeySource) {
	if s.Key != "" {
		return s.Key, KeyFromSnapshot
	}
	return CompositeKey(s.ID, s.CapturedAt), KeyFromComposite
}

// CompositeKey hashes occurrenceID with the UTC day of capturedAt.
func CompositeKey(occurrenceID string, capturedAt time.Time) string {
	composite := fmt.Sprintf("%s|%s", occurrenceID, capturedAt.UTC().Format(time.DateOnly))
	sum := sha256.Sum256([]byte(composite))
	return hex.EncodeToString(sum[:])
}
