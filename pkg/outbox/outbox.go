// Package outbox implements the transactional outbox: a durable,
// deduplicated ledger of facts to publish, decoupling the event store
// commit from external delivery.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/asaskevich/govalidator"
)

// Row is one publication intent. At most one row may exist for a given
// (StreamID, StreamVersion) pair; that uniqueness is what makes re-driving
// a command handler after a partial failure safe.
type Row struct {
	Topic         string          `valid:"required"`
	EventType     string          `valid:"required"`
	EventVersion  int             `valid:"-"`
	StreamID      string          `valid:"required"`
	StreamVersion int64           `valid:"-"`
	OccurredAt    int64           `valid:"-"`
	Payload       json.RawMessage `valid:"-"`
}

// Validate checks the row's shape before it is accepted into the ledger.
func (r Row) Validate() error {
	if _, err := govalidator.ValidateStruct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if r.StreamVersion < 1 {
		return fmt.Errorf("%w: stream version must be >= 1, got %d", ErrValidation, r.StreamVersion)
	}
	return nil
}

// Key returns the row's uniqueness key.
func (r Row) Key() string {
	return fmt.Sprintf("%s:%d", r.StreamID, r.StreamVersion)
}

// PendingRow is a stored row awaiting delivery by the relay.
type PendingRow struct {
	ID         int64
	Row        Row
	EnqueuedAt int64
}

// Outbox stores publication intents. Enqueue must enforce the
// (stream_id, stream_version) uniqueness atomically; the listing and
// marking operations serve the background relay, which must tolerate
// re-delivery.
type Outbox interface {
	// Enqueue records one intent. A second enqueue for the same
	// (stream_id, stream_version) fails with *DuplicateError, an
	// expected, non-fatal outcome under replay.
	Enqueue(ctx context.Context, row Row) error

	// ListPending returns up to limit undelivered rows in enqueue order.
	ListPending(ctx context.Context, limit int) ([]PendingRow, error)

	// MarkPublished flags rows as delivered so the relay stops picking
	// them up. Marking an already-published row is a no-op.
	MarkPublished(ctx context.Context, ids []int64) error
}
