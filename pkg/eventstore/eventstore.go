// Package eventstore defines the contract for a durable, versioned,
// per-stream event log with optimistic concurrency control, plus an
// in-memory implementation and a fault-injecting decorator for tests.
package eventstore

import "context"

// Record is one persisted event slot. StreamVersion is a strictly
// increasing integer per stream starting at 1. Position is the global
// append order assigned by the store; it is zero on records that have not
// been appended yet.
type Record struct {
	StreamID      string
	StreamVersion int64
	EventType     string
	EventVersion  int
	OccurredAt    int64
	Payload       []byte
	Position      int64
}

// Stream is a point-in-time read of one stream's full history.
type Stream struct {
	Records []Record
	Version int64
}

// Store persists and retrieves events. The store owns the canonical
// history; everything derived from it is disposable.
type Store interface {
	// Load returns the whole history of a stream. An unknown stream is an
	// empty history at version 0, never an error.
	Load(ctx context.Context, streamID string) (Stream, error)

	// Append atomically appends records at consecutive versions
	// expectedVersion+1..expectedVersion+len. The stream's current version
	// is re-checked against expectedVersion at commit time; a concurrent
	// writer that advanced it first makes the append fail with
	// *VersionMismatchError. Either all records land or none do.
	Append(ctx context.Context, streamID string, expectedVersion int64, records []Record) error

	// LoadAll reads the global feed across all streams in append order,
	// starting strictly after fromPosition. Used by projections.
	LoadAll(ctx context.Context, fromPosition int64, limit int) ([]Record, error)
}
