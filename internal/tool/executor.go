package tool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// HardError is a failure that aborted payload construction. Only panics
// inside a handler produce one.
type HardError struct {
	Tool  string
	Cause any
}

func (e *HardError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Cause)
}

// Executor routes a tool name and arguments to the registered handler.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry, logger: slog.Default()}
}

// Registry returns the catalog the executor dispatches on.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute runs the named tool.
//
// Unknown names and handler errors come back as soft-failure payloads with a
// nil error. The error return is non-nil only for a *HardError.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) (payload Payload, err error) {
	h, ok := e.registry.Lookup(name)
	if !ok {
		return softError("Unknown tool: %s", name), nil
	}
	if args == nil {
		args = map[string]any{}
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic in tool handler", "tool", name, "panic", r, "stack", string(debug.Stack()))
			payload, err = nil, &HardError{Tool: name, Cause: r}
		}
	}()

	payload, err = h.Execute(ctx, args)
	if err != nil {
		e.logger.Warn("tool failed", "tool", name, "error", err)
		return softError("Failed to execute %s: %v", name, err), nil
	}
	if payload == nil {
		payload = Payload{}
	}
	return payload, nil
}
