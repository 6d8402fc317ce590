// Package telemetry records tool invocations into OpenTelemetry.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope of the global meter and tracer.
const ScopeName = "github.com/RobinCoderZhao/mcp-toolkit"

// Outcome classifies a finished invocation.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeSoftError Outcome = "soft_error"
	OutcomeHardError Outcome = "hard_error"
)

// Observation describes one finished invocation.
type Observation struct {
	Tool      string
	Transport string
	Outcome   Outcome
	Message   string
	Duration  time.Duration
}

// Observer records invocation counters, latency and spans.
// A nil *Observer is valid and records nothing.
type Observer struct {
	tracer      trace.Tracer
	invocations metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewObserver creates an observer bound to the provided meter and tracer.
func NewObserver(meter metric.Meter, tracer trace.Tracer) (*Observer, error) {
	invocations, err := meter.Int64Counter(
		"toolkit.tool.invocations",
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"toolkit.tool.latency",
		metric.WithDescription("Tool invocation latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &Observer{
		tracer:      tracer,
		invocations: invocations,
		latency:     latency,
	}, nil
}

// Start opens the span for one invocation.
func (o *Observer) Start(ctx context.Context, toolName string) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return o.tracer.Start(ctx, "tool.invoke", trace.WithAttributes(
		attribute.String("tool_name", toolName),
		attribute.String("transport", TransportFrom(ctx)),
	))
}

// Finish records the observation and ends span.
func (o *Observer) Finish(ctx context.Context, span trace.Span, obs Observation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool_name", obs.Tool),
		attribute.String("transport", obs.Transport),
		attribute.String("outcome", string(obs.Outcome)),
	}
	options := metric.WithAttributes(attrs...)
	o.invocations.Add(ctx, 1, options)
	o.latency.Record(ctx, obs.Duration.Seconds(), options)

	if span == nil {
		return
	}
	span.SetAttributes(attribute.String("outcome", string(obs.Outcome)))
	switch obs.Outcome {
	case OutcomeOK:
		span.SetStatus(codes.Ok, "")
	default:
		span.SetStatus(codes.Error, obs.Message)
	}
	span.End()
}

type transportKey struct{}

// WithTransport tags ctx with the name of the adapter serving the request.
func WithTransport(ctx context.Context, transport string) context.Context {
	return context.WithValue(ctx, transportKey{}, transport)
}

// TransportFrom returns the adapter name set by WithTransport, or "direct".
func TransportFrom(ctx context.Context) string {
	if v, ok := ctx.Value(transportKey{}).(string); ok && v != "" {
		return v
	}
	return "direct"
}
