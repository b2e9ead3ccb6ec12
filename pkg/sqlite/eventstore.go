package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jvhellemondt/api-time-registration/pkg/eventstore"
)

// EventStore is a SQLite-backed implementation of eventstore.Store.
// It provides ACID guarantees for event persistence; the optimistic
// concurrency check runs inside the append transaction, and the
// UNIQUE (stream_id, stream_version) constraint backstops it.
type EventStore struct {
	db *sql.DB
}

// NewEventStore creates an event store over an open database handle.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db.db}
}

// Load returns the full history of a stream. An unknown stream is an
// empty history at version 0.
func (s *EventStore) Load(ctx context.Context, streamID string) (eventstore.Stream, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, stream_version, event_type, event_version, occurred_at, payload
		FROM event_log
		WHERE stream_id = ?
		ORDER BY stream_version ASC
	`, streamID)
	if err != nil {
		return eventstore.Stream{}, &eventstore.BackendError{Op: "load", Err: err}
	}
	defer rows.Close()

	var stream eventstore.Stream
	for rows.Next() {
		rec := eventstore.Record{StreamID: streamID}
		if err := rows.Scan(
			&rec.Position,
			&rec.StreamVersion,
			&rec.EventType,
			&rec.EventVersion,
			&rec.OccurredAt,
			&rec.Payload,
		); err != nil {
			return eventstore.Stream{}, &eventstore.BackendError{Op: "load", Err: err}
		}
		stream.Records = append(stream.Records, rec)
		stream.Version = rec.StreamVersion
	}
	if err := rows.Err(); err != nil {
		return eventstore.Stream{}, &eventstore.BackendError{Op: "load", Err: err}
	}
	return stream, nil
}

// Append atomically appends records at consecutive versions. The stream's
// current version is re-read inside the transaction; a concurrent writer
// that advanced it first fails the append with *VersionMismatchError.
func (s *EventStore) Append(ctx context.Context, streamID string, expectedVersion int64, records []eventstore.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &eventstore.BackendError{Op: "append", Err: err}
	}
	defer tx.Rollback()

	var currentVersion int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(stream_version), 0) FROM event_log WHERE stream_id = ?
	`, streamID).Scan(&currentVersion)
	if err != nil {
		return &eventstore.BackendError{Op: "append", Err: fmt.Errorf("check current version: %w", err)}
	}

	if currentVersion != expectedVersion {
		return &eventstore.VersionMismatchError{
			StreamID: streamID,
			Expected: expectedVersion,
			Actual:   currentVersion,
		}
	}

	for i, rec := range records {
		version := expectedVersion + int64(i) + 1
		_, err := tx.ExecContext(ctx, `
			INSERT INTO event_log (stream_id, stream_version, event_type, event_version, occurred_at, payload)
			VALUES (?, ?, ?, ?, ?, ?)
		`, streamID, version, rec.EventType, rec.EventVersion, rec.OccurredAt, rec.Payload)
		if err != nil {
			// A writer that slipped in between the version check and this
			// insert trips the UNIQUE constraint; surface it as the same
			// typed conflict the in-transaction check produces.
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return &eventstore.VersionMismatchError{
					StreamID: streamID,
					Expected: expectedVersion,
					Actual:   version,
				}
			}
			return &eventstore.BackendError{Op: "append", Err: fmt.Errorf("insert version %d: %w", version, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &eventstore.BackendError{Op: "append", Err: err}
	}
	return nil
}

// LoadAll reads the global feed in append order, starting strictly after
// fromPosition.
func (s *EventStore) LoadAll(ctx context.Context, fromPosition int64, limit int) ([]eventstore.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, stream_id, stream_version, event_type, event_version, occurred_at, payload
		FROM event_log
		WHERE position > ?
		ORDER BY position ASC
		LIMIT ?
	`, fromPosition, limit)
	if err != nil {
		return nil, &eventstore.BackendError{Op: "load_all", Err: err}
	}
	defer rows.Close()

	var records []eventstore.Record
	for rows.Next() {
		var rec eventstore.Record
		if err := rows.Scan(
			&rec.Position,
			&rec.StreamID,
			&rec.StreamVersion,
			&rec.EventType,
			&rec.EventVersion,
			&rec.OccurredAt,
			&rec.Payload,
		); err != nil {
			return nil, &eventstore.BackendError{Op: "load_all", Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &eventstore.BackendError{Op: "load_all", Err: err}
	}
	return records, nil
}
