package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/RobinCoderZhao/mcp-toolkit/internal/config"
)

func newTestObserver(t *testing.T) (*Observer, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	o, err := NewObserver(mp.Meter("test"), tp.Tracer("test"))
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	return o, reader, exporter
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func TestObserverRecordsMetricsAndSpans(t *testing.T) {
	o, reader, exporter := newTestObserver(t)

	ctx := WithTransport(context.Background(), "http")
	ctx, span := o.Start(ctx, "get_weather")
	o.Finish(ctx, span, Observation{
		Tool:      "get_weather",
		Transport: TransportFrom(ctx),
		Outcome:   OutcomeSoftError,
		Message:   "Failed to execute get_weather: timeout",
		Duration:  120 * time.Millisecond,
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	invocations := findMetric(&rm, "toolkit.tool.invocations")
	if invocations == nil {
		t.Fatal("toolkit.tool.invocations metric not found")
	}
	sum, ok := invocations.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("invocations type = %T, want Sum[int64]", invocations.Data)
	}
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Fatalf("unexpected data points: %+v", sum.DataPoints)
	}

	latency := findMetric(&rm, "toolkit.tool.latency")
	if latency == nil {
		t.Fatal("toolkit.tool.latency metric not found")
	}
	if _, ok := latency.Data.(metricdata.Histogram[float64]); !ok {
		t.Fatalf("latency type = %T, want Histogram[float64]", latency.Data)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "tool.invoke" {
		t.Fatalf("unexpected span name %q", spans[0].Name)
	}
	if spans[0].Status.Code != codes.Error {
		t.Fatalf("expected error status, got %v", spans[0].Status.Code)
	}
}

func TestNilObserverIsNoop(t *testing.T) {
	var o *Observer
	ctx, span := o.Start(context.Background(), "x")
	o.Finish(ctx, span, Observation{Tool: "x", Outcome: OutcomeOK})
}

func TestTransportFromDefault(t *testing.T) {
	if got := TransportFrom(context.Background()); got != "direct" {
		t.Fatalf("expected direct, got %q", got)
	}
}

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}
