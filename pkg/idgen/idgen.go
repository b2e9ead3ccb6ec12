// Package idgen generates identifiers: lexicographically sortable ULIDs
// for entities and streams, random UUIDs for commands and correlation.
package idgen

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewSortableID returns a ULID. IDs created later sort later, which keeps
// per-entity stream IDs naturally ordered in storage. The shared entropy
// source is monotonic within a millisecond and safe for concurrent use,
// so IDs minted in the same instant never collide.
func NewSortableID() string {
	return ulid.Make().String()
}

// NewCommandID returns a random UUID for command idempotency keys and
// correlation IDs.
func NewCommandID() string {
	return uuid.NewString()
}
