package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewStdoutExporters builds a stdout span exporter and a periodic stdout
// metric reader writing to w. This is the lightweight pipeline for local
// runs; production deployments pass OTLP equivalents into Config instead.
func NewStdoutExporters(w io.Writer, interval time.Duration) (sdktrace.SpanExporter, sdkmetric.Reader, error) {
	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, nil, fmt.Errorf("create trace exporter: %w", err)
	}

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithEncoder(json.NewEncoder(w)))
	if err != nil {
		return nil, nil, fmt.Errorf("create metric exporter: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(
		metricExporter,
		sdkmetric.WithInterval(interval),
	)
	return traceExporter, reader, nil
}
