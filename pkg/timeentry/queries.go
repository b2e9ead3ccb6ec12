package timeentry

import (
	"context"
	"fmt"

	"github.com/jvhellemondt/api-time-registration/pkg/readmodel"
)

// Queries serves the read side. It touches only the read model; the event
// log is never consulted at query time.
type Queries struct {
	repo readmodel.Repository
}

// NewQueries creates the query handler over a read model repository.
func NewQueries(repo readmodel.Repository) *Queries {
	return &Queries{repo: repo}
}

// ListByUser returns the user's entries sorted by start time, ascending
// unless desc is set, paginated by (offset, limit). An offset at or beyond
// the number of rows yields an empty result.
func (q *Queries) ListByUser(ctx context.Context, userID string, offset, limit int, desc bool) ([]readmodel.Row, error) {
	rows, err := q.repo.ListByUser(ctx, userID, offset, limit, desc)
	if err != nil {
		return nil, fmt.Errorf("list entries for user %s: %w", userID, err)
	}
	return rows, nil
}
