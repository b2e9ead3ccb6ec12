package timeentry

// Evolve folds one event into the state. It is total: any pair it does not
// recognize returns the state unchanged, so a whole stream can always be
// folded. Duplicate registration facts and event types this build does not
// know yet are both harmless no-ops.
func Evolve(state State, ev Event) State {
	switch state.(type) {
	case Unregistered:
		if e, ok := ev.(RegisteredV1); ok {
			return Registered{
				EntryID:     e.EntryID,
				UserID:      e.UserID,
				StartTime:   e.StartTime,
				EndTime:     e.EndTime,
				Tags:        e.Tags,
				Description: e.Description,
				CreatedAt:   e.CreatedAt,
				CreatedBy:   e.CreatedBy,
				UpdatedAt:   e.CreatedAt,
				UpdatedBy:   e.CreatedBy,
				DeletedAt:   nil,
			}
		}
	}
	return state
}

// Fold replays an ordered event sequence from the blank state. Folding the
// store's sequence in version order must reconstruct the exact state the
// history implies.
func Fold(events []Event) State {
	state := State(Unregistered{})
	for _, ev := range events {
		state = Evolve(state, ev)
	}
	return state
}
