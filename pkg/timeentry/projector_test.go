package timeentry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvhellemondt/api-time-registration/pkg/eventstore"
	"github.com/jvhellemondt/api-time-registration/pkg/readmodel"
	"github.com/jvhellemondt/api-time-registration/pkg/timeentry"
)

func registeredEvent() timeentry.RegisteredV1 {
	return timeentry.RegisteredV1{
		EntryID:     "entry-1",
		UserID:      "user-1",
		StartTime:   1000,
		EndTime:     2000,
		Tags:        []string{"billable"},
		Description: "standup",
		CreatedAt:   5000,
		CreatedBy:   "user-1",
	}
}

// txReadModel counts whether mutations arrive through the transactional
// path or the two-step fallback.
type txReadModel struct {
	rows      map[string]readmodel.Row
	watermark *readmodel.Watermark
	applied   int
	upserts   int
	saves     int
}

func newTxReadModel() *txReadModel {
	return &txReadModel{rows: map[string]readmodel.Row{}}
}

func (m *txReadModel) Upsert(ctx context.Context, row readmodel.Row) error {
	m.upserts++
	m.rows[row.UserID+"/"+row.EntryID] = row
	return nil
}

func (m *txReadModel) ListByUser(ctx context.Context, userID string, offset, limit int, desc bool) ([]readmodel.Row, error) {
	return nil, nil
}

func (m *txReadModel) ApplyInTx(ctx context.Context, row *readmodel.Row, wm *readmodel.Watermark) error {
	m.applied++
	if row != nil {
		m.rows[row.UserID+"/"+row.EntryID] = *row
	}
	copied := *wm
	m.watermark = &copied
	return nil
}

func (m *txReadModel) Save(ctx context.Context, wm *readmodel.Watermark) error {
	m.saves++
	copied := *wm
	m.watermark = &copied
	return nil
}

func (m *txReadModel) Load(ctx context.Context, projectorName string) (*readmodel.Watermark, error) {
	if m.watermark == nil {
		return nil, readmodel.ErrWatermarkNotFound
	}
	copied := *m.watermark
	return &copied, nil
}

func (m *txReadModel) Delete(ctx context.Context, projectorName string) error {
	m.watermark = nil
	return nil
}

func TestProjector(t *testing.T) {
	ctx := context.Background()

	t.Run("ProjectsRegisteredEvent", func(t *testing.T) {
		rm := readmodel.NewMemoryStore()
		p := timeentry.NewProjector("by-user", rm, rm)

		require.NoError(t, p.ApplyOne(ctx, "entry-1", 1, registeredEvent()))

		rows, err := rm.ListByUser(ctx, "user-1", 0, 10, false)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "entry-1", rows[0].EntryID)
		assert.Equal(t, int64(1000), rows[0].StartTime)
		assert.Equal(t, "entry-1:1", rows[0].LastEventRef)
		assert.Equal(t, int64(5000), rows[0].UpdatedAt)
		assert.Equal(t, "user-1", rows[0].UpdatedBy)

		wm, err := rm.Load(ctx, "by-user")
		require.NoError(t, err)
		assert.Equal(t, "entry-1:1", wm.LastEventRef)
	})

	t.Run("ReApplyIsIdempotent", func(t *testing.T) {
		rm := readmodel.NewMemoryStore()
		p := timeentry.NewProjector("by-user", rm, rm)

		ev := registeredEvent()
		require.NoError(t, p.ApplyOne(ctx, "entry-1", 1, ev))
		first, err := rm.ListByUser(ctx, "user-1", 0, 10, false)
		require.NoError(t, err)

		require.NoError(t, p.ApplyOne(ctx, "entry-1", 1, ev))
		second, err := rm.ListByUser(ctx, "user-1", 0, 10, false)
		require.NoError(t, err)

		assert.Equal(t, first, second, "re-applying the same event must be a no-op")
	})

	t.Run("UnknownEventAdvancesWatermarkOnly", func(t *testing.T) {
		rm := readmodel.NewMemoryStore()
		p := timeentry.NewProjector("by-user", rm, rm)

		unknown := timeentry.UnknownEvent{Type: "TimeEntryRelabelled", Version: 2}
		require.NoError(t, p.ApplyOne(ctx, "entry-9", 3, unknown))

		rows, err := rm.ListByUser(ctx, "user-1", 0, 10, false)
		require.NoError(t, err)
		assert.Empty(t, rows)

		wm, err := rm.Load(ctx, "by-user")
		require.NoError(t, err)
		assert.Equal(t, "entry-9:3", wm.LastEventRef)
	})

	t.Run("RepositoryFailureLeavesWatermarkBehind", func(t *testing.T) {
		rm := readmodel.NewMemoryStore()
		p := timeentry.NewProjector("by-user", rm, rm)

		rm.SetRepositoryOffline(true)
		err := p.ApplyOne(ctx, "entry-1", 1, registeredEvent())
		require.ErrorIs(t, err, timeentry.ErrRepository)

		_, err = rm.Load(ctx, "by-user")
		assert.ErrorIs(t, err, readmodel.ErrWatermarkNotFound,
			"watermark must not advance past a failed mutation")
	})

	t.Run("WatermarkFailureIsClassified", func(t *testing.T) {
		rm := readmodel.NewMemoryStore()
		p := timeentry.NewProjector("by-user", rm, rm)

		rm.SetWatermarkOffline(true)
		err := p.ApplyOne(ctx, "entry-1", 1, registeredEvent())
		require.ErrorIs(t, err, timeentry.ErrWatermark)

		// The row mutation itself landed; a retry re-applies it harmlessly.
		rm.SetWatermarkOffline(false)
		require.NoError(t, p.ApplyOne(ctx, "entry-1", 1, registeredEvent()))
	})

	t.Run("UsesOneTransactionWhenRepositorySupportsIt", func(t *testing.T) {
		rm := newTxReadModel()
		p := timeentry.NewProjector("by-user", rm, rm)

		require.NoError(t, p.ApplyOne(ctx, "entry-1", 1, registeredEvent()))

		assert.Equal(t, 1, rm.applied, "row and watermark must land in one apply")
		assert.Zero(t, rm.upserts, "two-step upsert must not run on a transactional repository")
		assert.Zero(t, rm.saves, "two-step save must not run on a transactional repository")
		require.NotNil(t, rm.watermark)
		assert.Equal(t, "entry-1:1", rm.watermark.LastEventRef)
		require.Len(t, rm.rows, 1)

		// Unknown events still go through the transactional path, with no
		// row mutation alongside the watermark.
		unknown := timeentry.UnknownEvent{Type: "TimeEntryRelabelled", Version: 2}
		require.NoError(t, p.ApplyOne(ctx, "entry-9", 3, unknown))
		assert.Equal(t, 2, rm.applied)
		assert.Len(t, rm.rows, 1)
		assert.Equal(t, "entry-9:3", rm.watermark.LastEventRef)
	})

	t.Run("ApplyRecordTracksFeedPosition", func(t *testing.T) {
		rm := readmodel.NewMemoryStore()
		p := timeentry.NewProjector("by-user", rm, rm)

		payload, err := timeentry.MarshalEvent(registeredEvent())
		require.NoError(t, err)

		rec := eventstore.Record{
			StreamID:      "entry-1",
			StreamVersion: 1,
			EventType:     timeentry.EventTypeRegistered,
			EventVersion:  1,
			OccurredAt:    5000,
			Payload:       payload,
			Position:      7,
		}
		require.NoError(t, p.ApplyRecord(ctx, rec))

		wm, err := rm.Load(ctx, "by-user")
		require.NoError(t, err)
		assert.Equal(t, int64(7), wm.Position)

		// A re-applied earlier record must not drag the position back.
		rec.Position = 3
		require.NoError(t, p.ApplyRecord(ctx, rec))
		wm, err = rm.Load(ctx, "by-user")
		require.NoError(t, err)
		assert.Equal(t, int64(7), wm.Position)
	})
}
