// Package tool implements the tool catalog and the executor that runs the
// weather, Wikipedia and QR code tools.
package tool

import (
	"context"
	"fmt"
	"time"
)

// TimestampLayout is the ISO-8601 layout of every "timestamp" field.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Descriptor describes a tool to callers.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Handler is the interface every tool implements.
//
// Execute returns the tool's payload. A returned error is reported to the
// caller as a soft failure by the Executor; a handler that wants a specific
// soft-failure shape builds the payload itself and returns a nil error.
type Handler interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, args map[string]any) (Payload, error)
}

// BaseTool provides the descriptor fields. Embed it and implement Execute.
type BaseTool struct {
	ToolName        string
	ToolDescription string
	ToolSchema      map[string]any
}

func (t *BaseTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        t.ToolName,
		Description: t.ToolDescription,
		InputSchema: t.ToolSchema,
	}
}

// Payload is the JSON object a tool produces.
//
// A payload carrying an "error" key is a soft failure: the call itself
// succeeded and the error travels as data. Callers must check SoftError in
// addition to any transport-level success flag.
type Payload map[string]any

// SoftError returns the embedded error message, if any.
func (p Payload) SoftError() (string, bool) {
	v, ok := p["error"]
	if !ok {
		return "", false
	}
	msg, isString := v.(string)
	if !isString {
		msg = fmt.Sprint(v)
	}
	return msg, true
}

// softError builds a payload that only carries an error message.
func softError(format string, args ...any) Payload {
	return Payload{"error": fmt.Sprintf(format, args...)}
}

// stringSchema is the input schema of a tool taking one required string.
func stringSchema(name, description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			name: map[string]any{"type": "string", "description": description},
		},
		"required": []string{name},
	}
}

// stringArg returns args[key] as a string. Missing or null values are empty;
// other JSON scalars are formatted.
func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func timestamp(now time.Time) string {
	return now.Format(TimestampLayout)
}
