// Package convlog persists interaction log entries and folds them into
// analytics. Entries are append-only and never mutated.
package convlog

import (
	"context"
	"time"
)

// Entry is one logged interaction.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	UserID     string    `json:"user_id"`
	Question   string    `json:"user_question"`
	Intent     string    `json:"predicted_intent"`
	Confidence float64   `json:"confidence"`
	Response   string    `json:"response"`
}

// Store persists interaction entries. Implementations must serialize
// appends; the physical backing may not tolerate interleaved writes.
type Store interface {
	// Append adds one entry to the log.
	Append(ctx context.Context, entry Entry) error

	// Entries returns every logged entry in append order.
	Entries(ctx context.Context) ([]Entry, error)

	// Close releases resources.
	Close() error
}
