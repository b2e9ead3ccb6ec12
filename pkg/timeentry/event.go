package timeentry

import (
	"encoding/json"
	"fmt"
)

// AggregateType names the aggregate for subjects, metrics and stream metadata.
const AggregateType = "TimeEntry"

// EventTypeRegistered is the type tag of the registration fact.
const EventTypeRegistered = "TimeEntryRegistered"

// Event is an immutable domain fact. Payload schema evolution is
// additive-only; a breaking change gets a new version tag instead of
// mutating the meaning of an already-emitted event.
type Event interface {
	// EventType returns the stable type tag of the event.
	EventType() string

	// EventVersion returns the payload schema version.
	EventVersion() int

	// OccurredAt returns the business timestamp in Unix milliseconds.
	OccurredAt() int64
}

// RegisteredV1 records that a time entry was registered. It carries
// everything needed to reconstruct state without external lookups.
type RegisteredV1 struct {
	EntryID     string   `json:"timeEntryId"`
	UserID      string   `json:"userId"`
	StartTime   int64    `json:"startTime"`
	EndTime     int64    `json:"endTime"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
	CreatedAt   int64    `json:"createdAt"`
	CreatedBy   string   `json:"createdBy"`
}

func (RegisteredV1) EventType() string   { return EventTypeRegistered }
func (RegisteredV1) EventVersion() int   { return 1 }
func (e RegisteredV1) OccurredAt() int64 { return e.CreatedAt }

// UnknownEvent preserves a fact whose type or version this build does not
// understand. Folding over it is a no-op, which keeps replays of newer
// streams safe on older code.
type UnknownEvent struct {
	Type    string
	Version int
	Payload json.RawMessage
}

func (e UnknownEvent) EventType() string { return e.Type }
func (e UnknownEvent) EventVersion() int { return e.Version }
func (UnknownEvent) OccurredAt() int64   { return 0 }

// MarshalEvent serializes an event payload for persistence.
func MarshalEvent(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s v%d: %w", ev.EventType(), ev.EventVersion(), err)
	}
	return data, nil
}

// UnmarshalEvent decodes a persisted payload back into its typed event.
// Unrecognized (type, version) pairs decode into UnknownEvent rather than
// failing, so a whole stream can always be folded.
func UnmarshalEvent(eventType string, eventVersion int, payload []byte) (Event, error) {
	switch {
	case eventType == EventTypeRegistered && eventVersion == 1:
		var e RegisteredV1
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshal %s v%d: %w", eventType, eventVersion, err)
		}
		return e, nil
	}
	return UnknownEvent{Type: eventType, Version: eventVersion, Payload: payload}, nil
}

// EventRef formats the stable reference of an event occupying a stream slot.
func EventRef(streamID string, version int64) string {
	return fmt.Sprintf("%s:%d", streamID, version)
}
