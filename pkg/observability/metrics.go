// Package observability provides OpenTelemetry-based metrics and tracing
// with backend-agnostic configuration. Instruments degrade to no-ops when
// no reader or exporter is configured.
package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments for the write/read pipeline.
type Metrics struct {
	// Command handling
	CommandsTotal    metric.Int64Counter
	CommandsRejected metric.Int64Counter
	VersionConflicts metric.Int64Counter

	// Event store / outbox
	EventsAppended   metric.Int64Counter
	OutboxDuplicates metric.Int64Counter

	// Read side
	EventsProjected metric.Int64Counter
	RowsRelayed     metric.Int64Counter
}

// NewMetrics creates all instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.CommandsTotal, err = meter.Int64Counter(
		"timeentries.commands.total",
		metric.WithDescription("Commands handled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating commands.total: %w", err)
	}

	m.CommandsRejected, err = meter.Int64Counter(
		"timeentries.commands.rejected",
		metric.WithDescription("Commands rejected by domain rules"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating commands.rejected: %w", err)
	}

	m.VersionConflicts, err = meter.Int64Counter(
		"timeentries.store.version_conflicts",
		metric.WithDescription("Optimistic concurrency conflicts on append"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating store.version_conflicts: %w", err)
	}

	m.EventsAppended, err = meter.Int64Counter(
		"timeentries.store.events_appended",
		metric.WithDescription("Events committed to the event log"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating store.events_appended: %w", err)
	}

	m.OutboxDuplicates, err = meter.Int64Counter(
		"timeentries.outbox.duplicates",
		metric.WithDescription("Outbox enqueues rejected as duplicates"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating outbox.duplicates: %w", err)
	}

	m.EventsProjected, err = meter.Int64Counter(
		"timeentries.projector.events_applied",
		metric.WithDescription("Events applied to the read model"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating projector.events_applied: %w", err)
	}

	m.RowsRelayed, err = meter.Int64Counter(
		"timeentries.relay.rows_published",
		metric.WithDescription("Outbox rows published to the event bus"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating relay.rows_published: %w", err)
	}

	return m, nil
}
