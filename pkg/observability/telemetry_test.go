package observability_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jvhellemondt/api-time-registration/pkg/observability"
)

func TestInitWithoutBackendsDegradesToNoop(t *testing.T) {
	ctx := context.Background()

	tel, err := observability.Init(ctx, observability.Config{
		ServiceName: "timeentryd-test",
	})
	require.NoError(t, err)
	defer tel.Shutdown(ctx)

	require.NotNil(t, tel.TracerProvider)
	require.NotNil(t, tel.MeterProvider)
	assert.Nil(t, tel.Metrics, "no reader means no instruments")

	// A span on the noop provider must be usable.
	_, span := tel.TracerProvider.Tracer("test").Start(ctx, "op")
	span.End()
}

func TestInitWithReaderRecordsCounters(t *testing.T) {
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	tel, err := observability.Init(ctx, observability.Config{
		ServiceName:  "timeentryd-test",
		MetricReader: reader,
	})
	require.NoError(t, err)
	defer tel.Shutdown(ctx)
	require.NotNil(t, tel.Metrics)

	tel.Metrics.CommandsTotal.Add(ctx, 3)
	tel.Metrics.VersionConflicts.Add(ctx, 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	found := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			found[m.Name] = total
		}
	}

	assert.Equal(t, int64(3), found["timeentries.commands.total"])
	assert.Equal(t, int64(1), found["timeentries.store.version_conflicts"])
}

func TestStdoutExportersEmitOnShutdown(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	traceExporter, metricReader, err := observability.NewStdoutExporters(&buf, time.Minute)
	require.NoError(t, err)

	tel, err := observability.Init(ctx, observability.Config{
		ServiceName:   "timeentryd-test",
		TraceExporter: traceExporter,
		MetricReader:  metricReader,
	})
	require.NoError(t, err)
	require.NotNil(t, tel.Metrics, "the stdout reader must enable instruments")

	tel.Metrics.CommandsTotal.Add(ctx, 2)
	_, span := tel.TracerProvider.Tracer("test").Start(ctx, "handle-register")
	span.End()

	// Shutdown flushes both pipelines to the writer.
	require.NoError(t, tel.Shutdown(ctx))

	out := buf.String()
	assert.Contains(t, out, "timeentries.commands.total")
	assert.Contains(t, out, "handle-register")
}
