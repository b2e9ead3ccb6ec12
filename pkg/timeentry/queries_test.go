package timeentry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvhellemondt/api-time-registration/pkg/eventstore"
	"github.com/jvhellemondt/api-time-registration/pkg/outbox"
	"github.com/jvhellemondt/api-time-registration/pkg/readmodel"
	"github.com/jvhellemondt/api-time-registration/pkg/timeentry"
)

// TestRegisterThenList drives the full write-to-read path: commands through
// the handler, the store's global feed through the projector, and the rows
// out through the query layer.
func TestRegisterThenList(t *testing.T) {
	ctx := context.Background()

	store := eventstore.NewMemoryStore()
	ob := outbox.NewMemoryOutbox()
	rm := readmodel.NewMemoryStore()

	handler := timeentry.NewRegisterHandler(testTopic, store, ob)
	projector := timeentry.NewProjector("by-user", rm, rm)
	queries := timeentry.NewQueries(rm)

	entries := []struct {
		entryID   string
		startTime int64
	}{
		{"entry-a", 1000},
		{"entry-b", 2000},
		{"entry-c", 1500},
	}
	for _, e := range entries {
		cmd := validCommand()
		cmd.EntryID = e.entryID
		cmd.StartTime = e.startTime
		cmd.EndTime = e.startTime + 100
		require.NoError(t, handler.Handle(ctx, e.entryID, cmd))
	}

	records, err := store.LoadAll(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		require.NoError(t, projector.ApplyRecord(ctx, rec))
	}

	t.Run("AscendingByStartTime", func(t *testing.T) {
		rows, err := queries.ListByUser(ctx, "user-1", 0, 10, false)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, []int64{1000, 1500, 2000}, startTimes(rows))
	})

	t.Run("DescendingByStartTime", func(t *testing.T) {
		rows, err := queries.ListByUser(ctx, "user-1", 0, 10, true)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, []int64{2000, 1500, 1000}, startTimes(rows))
	})

	t.Run("Pagination", func(t *testing.T) {
		rows, err := queries.ListByUser(ctx, "user-1", 1, 1, false)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(1500), rows[0].StartTime)
	})

	t.Run("OffsetPastEndIsEmpty", func(t *testing.T) {
		rows, err := queries.ListByUser(ctx, "user-1", 3, 10, false)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("UnknownUserIsEmpty", func(t *testing.T) {
		rows, err := queries.ListByUser(ctx, "nobody", 0, 10, false)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("WatermarkAtFeedHead", func(t *testing.T) {
		wm, err := rm.Load(ctx, "by-user")
		require.NoError(t, err)
		assert.Equal(t, records[len(records)-1].Position, wm.Position)
	})
}

func startTimes(rows []readmodel.Row) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.StartTime
	}
	return out
}
