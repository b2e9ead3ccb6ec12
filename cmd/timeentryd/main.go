// Command timeentryd runs the time registration backend: the SQLite
// event store, outbox relay, and read model projector, publishing
// registered entries over NATS JetStream.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jvhellemondt/api-time-registration/pkg/observability"
	"github.com/jvhellemondt/api-time-registration/pkg/relay"
	"github.com/jvhellemondt/api-time-registration/pkg/runner"
	"github.com/jvhellemondt/api-time-registration/pkg/sqlite"
	"github.com/jvhellemondt/api-time-registration/pkg/timeentry"

	natsbus "github.com/jvhellemondt/api-time-registration/pkg/nats"
)

type appConfig struct {
	// DBPath is the SQLite database file. ":memory:" keeps everything
	// in-process, useful for local experiments.
	DBPath string `env:"TIMEENTRIES_DB_PATH" envDefault:"timeentries.db"`

	// NATSURL points at the JetStream server. Empty starts an embedded
	// server instead.
	NATSURL string `env:"TIMEENTRIES_NATS_URL"`

	ProjectorName string        `env:"TIMEENTRIES_PROJECTOR_NAME" envDefault:"time-entries-by-user"`
	PollInterval  time.Duration `env:"TIMEENTRIES_POLL_INTERVAL" envDefault:"250ms"`

	// TelemetryStdout turns on stdout trace and metric export. Without
	// a configured exporter the telemetry providers stay no-ops.
	TelemetryStdout bool          `env:"TIMEENTRIES_TELEMETRY_STDOUT"`
	MetricInterval  time.Duration `env:"TIMEENTRIES_METRIC_INTERVAL" envDefault:"10s"`

	Environment string `env:"TIMEENTRIES_ENV" envDefault:"development"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	var cfg appConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	telCfg := observability.Config{
		ServiceName:    "timeentryd",
		ServiceVersion: "dev",
		Environment:    cfg.Environment,
		Logger:         logger,
	}
	if cfg.TelemetryStdout {
		traceExporter, metricReader, err := observability.NewStdoutExporters(os.Stdout, cfg.MetricInterval)
		if err != nil {
			return fmt.Errorf("build telemetry exporters: %w", err)
		}
		telCfg.TraceExporter = traceExporter
		telCfg.MetricReader = metricReader
	}

	tel, err := observability.Init(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer tel.Shutdown(ctx)

	db, err := sqlite.Open(sqlite.WithDSN(cfg.DBPath))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	store := sqlite.NewEventStore(db)
	ob := sqlite.NewOutbox(db)
	rm := sqlite.NewReadModelStore(db)

	busCfg := natsbus.DefaultConfig()
	if cfg.NATSURL != "" {
		busCfg.URL = cfg.NATSURL
	} else {
		srv, err := natsbus.StartEmbeddedServer()
		if err != nil {
			return fmt.Errorf("start embedded nats: %w", err)
		}
		defer srv.Shutdown()
		busCfg.URL = srv.URL()
		logger.Info("running with embedded nats server", "url", busCfg.URL)
	}

	bus, err := natsbus.NewEventBus(busCfg)
	if err != nil {
		return fmt.Errorf("connect event bus: %w", err)
	}
	defer bus.Close()

	projector := timeentry.NewProjector(cfg.ProjectorName, rm, rm,
		timeentry.WithProjectorMetrics(tel.Metrics))

	projectorSvc := timeentry.NewProjectorService(projector, store, rm,
		timeentry.WithPollInterval(cfg.PollInterval),
		timeentry.WithServiceLogger(logger))

	relaySvc := relay.New(ob, bus,
		relay.WithPollInterval(cfg.PollInterval),
		relay.WithLogger(logger),
		relay.WithTracer(tel.TracerProvider.Tracer("relay")),
		relay.WithMetrics(tel.Metrics))

	r := runner.New(
		[]runner.Service{projectorSvc, relaySvc},
		runner.WithLogger(runner.NewSlogLogger(logger)),
	)

	logger.Info("timeentryd starting",
		"db", cfg.DBPath,
		"projector", cfg.ProjectorName,
	)
	return r.Run(ctx)
}
