package outbox

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicate classifies enqueues for an already-recorded
	// (stream_id, stream_version). Idempotent callers treat it as
	// "already recorded, nothing to do".
	ErrDuplicate = errors.New("outbox row already enqueued")

	// ErrValidation classifies malformed rows.
	ErrValidation = errors.New("invalid outbox row")

	// ErrTransient classifies failures worth an immediate retry.
	ErrTransient = errors.New("transient outbox failure")

	// ErrBackend classifies infrastructure failures.
	ErrBackend = errors.New("outbox backend failure")
)

// DuplicateError carries the key that was already present.
type DuplicateError struct {
	StreamID      string
	StreamVersion int64
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("outbox row for %s:%d already enqueued", e.StreamID, e.StreamVersion)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// BackendError wraps a storage failure.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("outbox %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }
