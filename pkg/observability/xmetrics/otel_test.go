package xmetrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestObserver(t *testing.T) (Observer, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	obs, err := NewOTelObserver(
		WithInstrumentationName("test"),
		WithTracerProvider(tp),
		WithMeterProvider(mp),
		nil,
	)
	require.NoError(t, err)
	return obs, exporter, reader
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byStatus := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value(attribute.Key("status"))
				byStatus[status.AsString()] += dp.Value
			}
		}
	}
	return byStatus
}

func TestOTelObserver_RecordsSpanAndMetrics(t *testing.T) {
	obs, exporter, reader := newTestObserver(t)

	ctx, span := obs.Start(context.Background(), SpanOptions{
		Component: "xrest",
		Operation: "dispatch",
		Kind:      KindClient,
		Attrs:     []Attr{String("service", "orders"), Int("attempt", 1), {Key: "", Value: "skipped"}},
	})
	assert.True(t, trace.SpanFromContext(ctx).SpanContext().IsValid())
	span.End(Result{Attrs: []Attr{Int("http.status_code", 200), Duration("wait", time.Millisecond), Bool("replayed", false)}})
	span.End(Result{Err: errors.New("ignored")})

	_, failed := obs.Start(context.Background(), SpanOptions{Component: "xrest", Operation: "dispatch"})
	failed.End(Result{Err: errors.New("boom")})

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "xrest.dispatch", spans[0].Name)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "boom", spans[1].Status.Description)

	counts := collectSum(t, reader, metricOperationTotal)
	assert.Equal(t, int64(1), counts["ok"])
	assert.Equal(t, int64(1), counts["error"])
}

func TestOTelObserver_UnknownNames(t *testing.T) {
	obs, exporter, _ := newTestObserver(t)

	//nolint:staticcheck // 测试 nil ctx
	ctx, span := obs.Start(nil, SpanOptions{})
	require.NotNil(t, ctx)
	span.End(Result{Status: StatusError})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "unknown.unknown", spans[0].Name)
	assert.Equal(t, "operation failed", spans[0].Status.Description)
}

func TestStart_NilSafety(t *testing.T) {
	//nolint:staticcheck // 测试 nil ctx
	ctx, span := Start(nil, nil, SpanOptions{})
	assert.NotNil(t, ctx)
	assert.IsType(t, NoopSpan{}, span)
	span.End(Result{})

	ctx, span = Start(context.Background(), NoopObserver{}, SpanOptions{})
	assert.NotNil(t, ctx)
	assert.IsType(t, NoopSpan{}, span)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Client", KindClient.String())
	assert.Equal(t, "Server", KindServer.String())
	assert.Equal(t, "Internal", KindInternal.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
