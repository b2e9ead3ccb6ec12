package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jvhellemondt/api-time-registration/pkg/outbox"
)

// Outbox is a SQLite-backed implementation of outbox.Outbox. The
// UNIQUE (stream_id, stream_version) constraint makes Enqueue safe to
// retry: a replayed command handler hits *DuplicateError instead of
// inserting a second publication intent.
type Outbox struct {
	db  *sql.DB
	now func() time.Time
}

// NewOutbox creates an outbox over an open database handle.
func NewOutbox(db *DB) *Outbox {
	return &Outbox{db: db.db, now: time.Now}
}

// Enqueue records one publication intent.
func (o *Outbox) Enqueue(ctx context.Context, row outbox.Row) error {
	if err := row.Validate(); err != nil {
		return err
	}

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return &outbox.BackendError{Op: "enqueue", Err: err}
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM outbox WHERE stream_id = ? AND stream_version = ?
	`, row.StreamID, row.StreamVersion).Scan(&exists)
	if err != nil {
		return &outbox.BackendError{Op: "enqueue", Err: err}
	}
	if exists > 0 {
		return &outbox.DuplicateError{StreamID: row.StreamID, StreamVersion: row.StreamVersion}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox (topic, event_type, event_version, stream_id, stream_version, occurred_at, payload, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, row.Topic, row.EventType, row.EventVersion, row.StreamID, row.StreamVersion, row.OccurredAt, []byte(row.Payload), o.now().Unix())
	if err != nil {
		// The UNIQUE constraint backstops the pre-check under concurrent
		// enqueues on separate connections.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return &outbox.DuplicateError{StreamID: row.StreamID, StreamVersion: row.StreamVersion}
		}
		return &outbox.BackendError{Op: "enqueue", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &outbox.BackendError{Op: "enqueue", Err: err}
	}
	return nil
}

// ListPending returns up to limit undelivered rows in enqueue order.
func (o *Outbox) ListPending(ctx context.Context, limit int) ([]outbox.PendingRow, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, topic, event_type, event_version, stream_id, stream_version, occurred_at, payload, enqueued_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, &outbox.BackendError{Op: "list_pending", Err: err}
	}
	defer rows.Close()

	var pending []outbox.PendingRow
	for rows.Next() {
		var p outbox.PendingRow
		var payload []byte
		if err := rows.Scan(
			&p.ID,
			&p.Row.Topic,
			&p.Row.EventType,
			&p.Row.EventVersion,
			&p.Row.StreamID,
			&p.Row.StreamVersion,
			&p.Row.OccurredAt,
			&payload,
			&p.EnqueuedAt,
		); err != nil {
			return nil, &outbox.BackendError{Op: "list_pending", Err: err}
		}
		p.Row.Payload = payload
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &outbox.BackendError{Op: "list_pending", Err: err}
	}
	return pending, nil
}

// MarkPublished flags rows as delivered. Marking an already-published row
// is a no-op.
func (o *Outbox) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	args = append(args, o.now().Unix())
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := o.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE outbox SET published_at = ? WHERE id IN (%s) AND published_at IS NULL
	`, placeholders), args...)
	if err != nil {
		return &outbox.BackendError{Op: "mark_published", Err: err}
	}
	return nil
}
