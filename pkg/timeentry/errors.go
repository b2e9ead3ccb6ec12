package timeentry

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyExists is the rejection for registering an entry on a
	// stream that already holds one.
	ErrAlreadyExists = errors.New("time entry already exists")

	// ErrInvalidInterval is the rejection for an interval whose end does
	// not lie strictly after its start.
	ErrInvalidInterval = errors.New("end time must be after start time")

	// ErrRejected classifies any domain rejection. Rejections are not
	// retryable without a different command.
	ErrRejected = errors.New("command rejected")
)

// RejectedError wraps a domain rejection so callers can both classify it
// (errors.Is(err, ErrRejected)) and inspect the concrete reason
// (errors.Is(err, ErrAlreadyExists)).
type RejectedError struct {
	Reason error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("command rejected: %v", e.Reason)
}

func (e *RejectedError) Unwrap() error { return e.Reason }

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }
