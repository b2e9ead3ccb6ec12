// Package readmodel defines the query-side contracts: the denormalized
// time entry row, its repository, and the per-projector watermark. Both
// the rows and the watermarks are disposable derived state that can be
// rebuilt from the event log at any time.
package readmodel

import (
	"context"
	"errors"
	"time"
)

// ErrWatermarkNotFound is returned when a projector has no recorded
// watermark yet.
var ErrWatermarkNotFound = errors.New("watermark not found")

// Row is the denormalized projection of one registered time entry.
// LastEventRef ("stream:version") is idempotency bookkeeping only.
type Row struct {
	EntryID     string
	UserID      string
	StartTime   int64
	EndTime     int64
	Tags        []string
	Description string
	CreatedAt   int64
	CreatedBy   string
	UpdatedAt   int64
	UpdatedBy   string
	DeletedAt   *int64

	LastEventRef string
}

// Repository stores read-model rows keyed by (user_id, entry_id).
// Upsert must be naturally idempotent: re-applying the same event
// overwrites the row with identical content.
type Repository interface {
	// Upsert inserts or replaces the row under its logical key.
	Upsert(ctx context.Context, row Row) error

	// ListByUser returns the user's rows sorted by start time, ascending
	// unless desc is set, paginated by (offset, limit). An offset at or
	// beyond the result length yields an empty list, not an error.
	ListByUser(ctx context.Context, userID string, offset, limit int, desc bool) ([]Row, error)
}

// TxRepository is implemented by repositories that can commit a row
// mutation and its watermark in a single transaction, closing the
// dual-write window between Upsert and WatermarkStore.Save. A nil row
// advances the watermark alone. Projectors use it when the backend
// offers it and fall back to the two-step path otherwise.
type TxRepository interface {
	ApplyInTx(ctx context.Context, row *Row, wm *Watermark) error
}

// Watermark is the last event a named projector has durably applied,
// kept for resumability and gap detection. It advances monotonically and
// never gates the correctness of individual mutations.
type Watermark struct {
	ProjectorName string
	Position      int64
	LastEventRef  string
	UpdatedAt     time.Time
}

// WatermarkStore persists projector watermarks.
type WatermarkStore interface {
	// Save stores the watermark for its projector name.
	Save(ctx context.Context, wm *Watermark) error

	// Load returns the watermark, or ErrWatermarkNotFound.
	Load(ctx context.Context, projectorName string) (*Watermark, error)

	// Delete removes the watermark, typically before a rebuild.
	Delete(ctx context.Context, projectorName string) error
}
