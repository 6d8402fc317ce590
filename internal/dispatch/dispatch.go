// Package dispatch is the single entry point both transports use to list and
// invoke tools.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/RobinCoderZhao/mcp-toolkit/internal/telemetry"
	"github.com/RobinCoderZhao/mcp-toolkit/internal/tool"
)

// Result is the outcome of Invoke: exactly one of Payload or Err is set.
//
// A successful Result may still carry a soft failure inside Payload; see
// tool.Payload.SoftError.
type Result struct {
	Payload tool.Payload
	Err     error
}

// Success wraps a payload.
func Success(p tool.Payload) Result {
	if p == nil {
		p = tool.Payload{}
	}
	return Result{Payload: p}
}

// Failure wraps a hard failure.
func Failure(err error) Result {
	return Result{Err: err}
}

// Failed reports whether the result is a hard failure.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Facade looks tools up and executes them through the Executor.
type Facade struct {
	executor *tool.Executor
	observer *telemetry.Observer
	logger   *slog.Logger
}

// Option configures a Facade.
type Option func(*Facade)

// WithObserver records every invocation into o.
func WithObserver(o *telemetry.Observer) Option {
	return func(f *Facade) { f.observer = o }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Facade) { f.logger = l }
}

// New creates a Facade over executor.
func New(executor *tool.Executor, opts ...Option) *Facade {
	f := &Facade{executor: executor, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ListTools returns the catalog in declared order.
func (f *Facade) ListTools() []tool.Descriptor {
	return f.executor.Registry().List()
}

// Invoke runs the named tool and always returns a Result. The payload is
// passed through uninterpreted; only a failure of the Executor itself
// produces a Failure.
func (f *Facade) Invoke(ctx context.Context, name string, args map[string]any) (res Result) {
	start := time.Now()
	ctx, span := f.observer.Start(ctx, name)

	defer func() {
		if r := recover(); r != nil {
			res = Failure(fmt.Errorf("invoke %s: %v", name, r))
		}
		f.record(ctx, span, name, res, time.Since(start))
	}()

	payload, err := f.executor.Execute(ctx, name, args)
	if err != nil {
		return Failure(err)
	}
	return Success(payload)
}

func (f *Facade) record(ctx context.Context, span trace.Span, name string, res Result, elapsed time.Duration) {
	obs := telemetry.Observation{
		Tool:      name,
		Transport: telemetry.TransportFrom(ctx),
		Outcome:   telemetry.OutcomeOK,
		Duration:  elapsed,
	}
	switch {
	case res.Failed():
		obs.Outcome = telemetry.OutcomeHardError
		obs.Message = res.Err.Error()
		f.logger.Error("tool invocation failed", "tool", name, "transport", obs.Transport, "duration", elapsed, "error", res.Err)
	default:
		if msg, soft := res.Payload.SoftError(); soft {
			obs.Outcome = telemetry.OutcomeSoftError
			obs.Message = msg
		}
		f.logger.Info("tool invoked", "tool", name, "transport", obs.Transport, "duration", elapsed, "outcome", obs.Outcome)
	}
	f.observer.Finish(ctx, span, obs)
}
