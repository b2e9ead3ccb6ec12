package timeentry

// Decide maps the current state and a register command to the events that
// record the decision, or a rejection. It is pure: no I/O, no clock reads
// beyond values already present in the command.
//
// Registration is only legal from Unregistered. The interval is half-open
// and must satisfy end > start strictly; violations reject before any
// event is produced. The result is a slice so future decisions can emit
// more than one event without reshaping the contract.
func Decide(state State, cmd RegisterCommand) ([]Event, error) {
	switch state.(type) {
	case Unregistered:
		if cmd.EndTime <= cmd.StartTime {
			return nil, ErrInvalidInterval
		}
		return []Event{RegisteredV1{
			EntryID:     cmd.EntryID,
			UserID:      cmd.UserID,
			StartTime:   cmd.StartTime,
			EndTime:     cmd.EndTime,
			Tags:        cmd.Tags,
			Description: cmd.Description,
			CreatedAt:   cmd.CreatedAt,
			CreatedBy:   cmd.CreatedBy,
		}}, nil
	default:
		return nil, ErrAlreadyExists
	}
}
