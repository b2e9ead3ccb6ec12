// Package relay moves durable outbox rows onto the event bus. It is the
// delivery half of the outbox pattern: the handler records intent, the
// relay publishes it, and bus-side message-id deduplication absorbs the
// inevitable redeliveries.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jvhellemondt/api-time-registration/pkg/messaging"
	"github.com/jvhellemondt/api-time-registration/pkg/observability"
	"github.com/jvhellemondt/api-time-registration/pkg/outbox"
)

// Relay polls the outbox and publishes pending rows. It implements the
// runner service contract.
type Relay struct {
	outbox    outbox.Outbox
	bus       messaging.EventBus
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *observability.Metrics

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Relay.
type Option func(*Relay)

// WithPollInterval sets how often the outbox is polled. Default 250ms.
func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		r.interval = d
	}
}

// WithBatchSize sets how many rows are drained per poll. Default 128.
func WithBatchSize(n int) Option {
	return func(r *Relay) {
		r.batchSize = n
	}
}

// WithLogger sets the logger. Default slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer. Default no-op.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Relay) {
		r.tracer = tracer
	}
}

// WithMetrics attaches metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

// New creates a relay between an outbox and an event bus.
func New(ob outbox.Outbox, bus messaging.EventBus, opts ...Option) *Relay {
	r := &Relay{
		outbox:    ob,
		bus:       bus,
		interval:  250 * time.Millisecond,
		batchSize: 128,
		logger:    slog.Default(),
		tracer:    noop.NewTracerProvider().Tracer("relay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name identifies the service in runner logs.
func (r *Relay) Name() string { return "outbox-relay" }

// Start launches the polling loop.
func (r *Relay) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.wg.Add(1)
	go r.run(loopCtx)
	return nil
}

// Stop cancels the loop and waits for the in-flight pass to finish.
func (r *Relay) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Relay) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				r.logger.Error("relay pass failed", "error", err)
			}
		}
	}
}

// Sweep publishes one batch of pending rows and marks them delivered.
// Publication is keyed by "stream:version", so a crash between publish and
// mark only causes a redelivery the bus deduplicates.
func (r *Relay) Sweep(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "relay.Sweep")
	defer span.End()

	pending, err := r.outbox.ListPending(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("list pending rows: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	rows := make([]outbox.Row, len(pending))
	ids := make([]int64, len(pending))
	for i, p := range pending {
		rows[i] = p.Row
		ids[i] = p.ID
	}

	if err := r.bus.Publish(ctx, rows); err != nil {
		return fmt.Errorf("publish %d rows: %w", len(rows), err)
	}

	if err := r.outbox.MarkPublished(ctx, ids); err != nil {
		return fmt.Errorf("mark %d rows published: %w", len(ids), err)
	}

	if r.metrics != nil {
		r.metrics.RowsRelayed.Add(ctx, int64(len(rows)))
	}
	r.logger.Debug("relayed outbox rows", "count", len(rows))
	return nil
}
