package eventstore

import (
	"errors"
	"fmt"
)

var (
	// ErrVersionMismatch classifies optimistic concurrency conflicts.
	// Callers retry by reloading the stream and re-deciding.
	ErrVersionMismatch = errors.New("stream version mismatch")

	// ErrBackend classifies infrastructure failures. Retryable with
	// backoff; never a domain signal.
	ErrBackend = errors.New("event store backend failure")
)

// VersionMismatchError reports a failed compare-and-append: the caller's
// stale expectation and the version the store actually holds.
type VersionMismatchError struct {
	StreamID string
	Expected int64
	Actual   int64
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("stream %s version mismatch: expected %d, actual %d",
		e.StreamID, e.Expected, e.Actual)
}

func (e *VersionMismatchError) Is(target error) bool { return target == ErrVersionMismatch }

// BackendError wraps a storage failure so callers can pick a retry policy
// distinct from version conflicts.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("event store %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }
