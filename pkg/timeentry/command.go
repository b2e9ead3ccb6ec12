package timeentry

import (
	"time"

	"github.com/jvhellemondt/api-time-registration/pkg/idgen"
)

// RegisterCommand expresses the intent to register a new time entry.
// Commands are never persisted; the caller stamps CreatedAt/CreatedBy
// before handing the command to the decider so the decider stays pure.
type RegisterCommand struct {
	// CommandID identifies this command instance for logging and
	// correlation. It never reaches the event payload.
	CommandID string

	EntryID     string
	UserID      string
	StartTime   int64
	EndTime     int64
	Tags        []string
	Description string
	CreatedAt   int64
	CreatedBy   string
}

// NewRegisterCommand builds a command at the inbound edge: the entry ID is
// a fresh sortable ID, the audit stamp is the caller's identity and the
// current wall clock. The entry ID doubles as the stream ID.
func NewRegisterCommand(userID string, startTime, endTime int64, tags []string, description string) RegisterCommand {
	return RegisterCommand{
		CommandID:   idgen.NewCommandID(),
		EntryID:     idgen.NewSortableID(),
		UserID:      userID,
		StartTime:   startTime,
		EndTime:     endTime,
		Tags:        tags,
		Description: description,
		CreatedAt:   time.Now().UnixMilli(),
		CreatedBy:   userID,
	}
}
