package timeentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jvhellemondt/api-time-registration/pkg/eventstore"
	"github.com/jvhellemondt/api-time-registration/pkg/observability"
	"github.com/jvhellemondt/api-time-registration/pkg/readmodel"
)

var (
	// ErrRepository classifies read model mutation failures.
	ErrRepository = errors.New("read model repository failure")

	// ErrWatermark classifies watermark persistence failures.
	ErrWatermark = errors.New("watermark store failure")
)

// Projector translates events into idempotent read-model mutations and
// advances its named watermark. Mutations use the event's logical key,
// never an auto-increment, so re-applying the same event is a no-op at the
// storage level. The watermark moves only after every mutation succeeded:
// a crash in between causes at most a harmless re-apply on restart, never
// a lost update. Repositories implementing readmodel.TxRepository commit
// the mutation and the watermark in one transaction, removing even the
// re-apply window.
//
// One Projector instance is meant to consume sequentially; distinct
// projector names may run concurrently over the same log.
type Projector struct {
	name       string
	repo       readmodel.Repository
	watermarks readmodel.WatermarkStore
	metrics    *observability.Metrics
	now        func() time.Time
}

// ProjectorOption configures a Projector.
type ProjectorOption func(*Projector)

// WithProjectorMetrics attaches metric instruments to the projector.
func WithProjectorMetrics(m *observability.Metrics) ProjectorOption {
	return func(p *Projector) {
		p.metrics = m
	}
}

// NewProjector creates a named projector over the given stores.
func NewProjector(name string, repo readmodel.Repository, watermarks readmodel.WatermarkStore, opts ...ProjectorOption) *Projector {
	p := &Projector{
		name:       name,
		repo:       repo,
		watermarks: watermarks,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the projector's name, the key of its watermark.
func (p *Projector) Name() string { return p.name }

// ApplyOne applies a single event occupying (streamID, version). The call
// fails atomically: either the mutations and the watermark both advance,
// or the error leaves a clean point to re-apply from.
func (p *Projector) ApplyOne(ctx context.Context, streamID string, version int64, ev Event) error {
	return p.apply(ctx, streamID, version, ev, 0)
}

// ApplyRecord applies one record from the event store's global feed,
// also recording the record's position for resumable consumption.
func (p *Projector) ApplyRecord(ctx context.Context, rec eventstore.Record) error {
	ev, err := UnmarshalEvent(rec.EventType, rec.EventVersion, rec.Payload)
	if err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrRepository, EventRef(rec.StreamID, rec.StreamVersion), err)
	}
	return p.apply(ctx, rec.StreamID, rec.StreamVersion, ev, rec.Position)
}

func (p *Projector) apply(ctx context.Context, streamID string, version int64, ev Event, position int64) error {
	ref := EventRef(streamID, version)

	var row *readmodel.Row
	switch e := ev.(type) {
	case RegisteredV1:
		row = &readmodel.Row{
			EntryID:      e.EntryID,
			UserID:       e.UserID,
			StartTime:    e.StartTime,
			EndTime:      e.EndTime,
			Tags:         e.Tags,
			Description:  e.Description,
			CreatedAt:    e.CreatedAt,
			CreatedBy:    e.CreatedBy,
			UpdatedAt:    e.CreatedAt,
			UpdatedBy:    e.CreatedBy,
			LastEventRef: ref,
		}
	default:
		// Unknown events produce no mutations but still advance the
		// watermark, keeping consumption resumable across schema growth.
	}

	wm, err := p.watermarks.Load(ctx, p.name)
	if err != nil {
		if !errors.Is(err, readmodel.ErrWatermarkNotFound) {
			return fmt.Errorf("%w: load: %v", ErrWatermark, err)
		}
		wm = &readmodel.Watermark{ProjectorName: p.name}
	}

	wm.LastEventRef = ref
	if position > wm.Position {
		wm.Position = position
	}
	wm.UpdatedAt = p.now()

	if txRepo, ok := p.repo.(readmodel.TxRepository); ok {
		if err := txRepo.ApplyInTx(ctx, row, wm); err != nil {
			return fmt.Errorf("%w: apply %s: %v", ErrRepository, ref, err)
		}
	} else {
		if row != nil {
			if err := p.repo.Upsert(ctx, *row); err != nil {
				return fmt.Errorf("%w: upsert %s/%s: %v", ErrRepository, row.UserID, row.EntryID, err)
			}
		}
		if err := p.watermarks.Save(ctx, wm); err != nil {
			return fmt.Errorf("%w: save: %v", ErrWatermark, err)
		}
	}

	if p.metrics != nil {
		p.metrics.EventsProjected.Add(ctx, 1)
	}
	return nil
}
