package outbox

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errOutboxOffline = errors.New("outbox offline")

// MemoryOutbox is an in-memory Outbox for tests and single-process use.
// The seen-set stands in for the durable unique constraint a production
// backend must provide.
type MemoryOutbox struct {
	mu        sync.Mutex
	rows      []PendingRow
	published map[int64]bool
	seen      map[string]struct{}
	nextID    int64

	offline bool
}

// NewMemoryOutbox creates an empty in-memory outbox.
func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{
		published: make(map[int64]bool),
		seen:      make(map[string]struct{}),
	}
}

// SetOffline toggles backend failure injection for every operation.
func (o *MemoryOutbox) SetOffline(on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.offline = on
}

func (o *MemoryOutbox) Enqueue(ctx context.Context, row Row) error {
	if err := row.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.offline {
		return &BackendError{Op: "enqueue", Err: errOutboxOffline}
	}

	key := row.Key()
	if _, dup := o.seen[key]; dup {
		return &DuplicateError{StreamID: row.StreamID, StreamVersion: row.StreamVersion}
	}
	o.seen[key] = struct{}{}

	o.nextID++
	o.rows = append(o.rows, PendingRow{
		ID:         o.nextID,
		Row:        row,
		EnqueuedAt: time.Now().UnixMilli(),
	})
	return nil
}

func (o *MemoryOutbox) ListPending(ctx context.Context, limit int) ([]PendingRow, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.offline {
		return nil, &BackendError{Op: "list pending", Err: errOutboxOffline}
	}

	var out []PendingRow
	for _, r := range o.rows {
		if o.published[r.ID] {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (o *MemoryOutbox) MarkPublished(ctx context.Context, ids []int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.offline {
		return &BackendError{Op: "mark published", Err: errOutboxOffline}
	}

	for _, id := range ids {
		o.published[id] = true
	}
	return nil
}

// Count reports how many rows exist for a key. Test helper.
func (o *MemoryOutbox) Count(streamID string, streamVersion int64) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := 0
	for _, r := range o.rows {
		if r.Row.StreamID == streamID && r.Row.StreamVersion == streamVersion {
			n++
		}
	}
	return n
}
