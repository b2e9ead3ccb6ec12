package timeentry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jvhellemondt/api-time-registration/pkg/eventstore"
	"github.com/jvhellemondt/api-time-registration/pkg/readmodel"
)

// ProjectorService drains the event store's global feed through a
// Projector, resuming from the stored watermark position. It implements
// the runner service contract so the daemon can manage its lifecycle.
type ProjectorService struct {
	projector  *Projector
	store      eventstore.Store
	watermarks readmodel.WatermarkStore
	interval   time.Duration
	batchSize  int
	logger     *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ProjectorServiceOption configures a ProjectorService.
type ProjectorServiceOption func(*ProjectorService)

// WithPollInterval sets how often the feed is polled. Default 250ms.
func WithPollInterval(d time.Duration) ProjectorServiceOption {
	return func(s *ProjectorService) {
		s.interval = d
	}
}

// WithBatchSize sets how many records each poll drains. Default 256.
func WithBatchSize(n int) ProjectorServiceOption {
	return func(s *ProjectorService) {
		s.batchSize = n
	}
}

// WithServiceLogger sets the logger. Default slog.Default().
func WithServiceLogger(logger *slog.Logger) ProjectorServiceOption {
	return func(s *ProjectorService) {
		s.logger = logger
	}
}

// NewProjectorService wires a projector to the event store feed.
func NewProjectorService(projector *Projector, store eventstore.Store, watermarks readmodel.WatermarkStore, opts ...ProjectorServiceOption) *ProjectorService {
	s := &ProjectorService{
		projector:  projector,
		store:      store,
		watermarks: watermarks,
		interval:   250 * time.Millisecond,
		batchSize:  256,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name identifies the service in runner logs.
func (s *ProjectorService) Name() string {
	return fmt.Sprintf("projector/%s", s.projector.Name())
}

// Start launches the polling loop. It returns once the loop is running.
func (s *ProjectorService) Start(ctx context.Context) error {
	position := int64(0)
	wm, err := s.watermarks.Load(ctx, s.projector.Name())
	switch {
	case err == nil:
		position = wm.Position
	case errors.Is(err, readmodel.ErrWatermarkNotFound):
		// First run, start from the beginning of the feed.
	default:
		return fmt.Errorf("load watermark for %s: %w", s.projector.Name(), err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(loopCtx, position)

	return nil
}

// Stop cancels the loop and waits for it to drain.
func (s *ProjectorService) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ProjectorService) run(ctx context.Context, position int64) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			next, err := s.drain(ctx, position)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Error("projection pass failed",
					"projector", s.projector.Name(),
					"position", position,
					"error", err)
				continue
			}
			position = next
		}
	}
}

// drain applies feed records until the feed is exhausted, returning the
// position after the last applied record.
func (s *ProjectorService) drain(ctx context.Context, position int64) (int64, error) {
	for {
		records, err := s.store.LoadAll(ctx, position, s.batchSize)
		if err != nil {
			return position, fmt.Errorf("load feed: %w", err)
		}
		if len(records) == 0 {
			return position, nil
		}

		for _, rec := range records {
			if err := s.projector.ApplyRecord(ctx, rec); err != nil {
				return position, err
			}
			position = rec.Position
		}

		if len(records) < s.batchSize {
			return position, nil
		}
	}
}
