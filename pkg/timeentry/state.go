// Package timeentry contains the time registration domain: the aggregate
// state, its event vocabulary, the pure decide/evolve pair, and the
// orchestration that turns commands into persisted, published events.
package timeentry

// State is the aggregate state reconstructed by folding a stream's events.
// Exactly one variant holds at any time and transitions are monotonic:
// once Registered, a stream never returns to Unregistered.
type State interface {
	isState()
}

// Unregistered is the blank state of a stream with no history.
type Unregistered struct{}

// Registered holds the full denormalized state of a registered time entry.
type Registered struct {
	EntryID     string
	UserID      string
	StartTime   int64
	EndTime     int64
	Tags        []string
	Description string

	CreatedAt int64
	CreatedBy string
	UpdatedAt int64
	UpdatedBy string

	// DeletedAt is set when the entry is soft-deleted. Nil means live.
	DeletedAt *int64

	// LastEventRef is bookkeeping for idempotent projection, never
	// consulted by business rules.
	LastEventRef string
}

func (Unregistered) isState() {}
func (Registered) isState()   {}
