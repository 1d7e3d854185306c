// Package tools provides the tool execution framework.
package tools

import (
	"context"
	"encoding/json"

	"github.com/lmercat/webpilot/internal/types"
)

// Tool is the interface that all tools must implement
type Tool interface {
	// Name returns the unique name of the tool
	Name() string

	// Description returns a human-readable description for the LLM
	Description() string

	// Schema returns the JSON Schema for the tool's input parameters
	Schema() map[string]any

	// Execute runs the tool with the given input
	Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error)
}

// ToDefinition converts a Tool to the wire format shown to the model.
func ToDefinition(t Tool) types.ToolDefinition {
	return types.ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Schema:      t.Schema(),
	}
}

type sessionKeyType struct{}

var sessionKey = sessionKeyType{}

// WithSession attaches the browser session id for the current run.
// Tools read it back with SessionFromContext.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionFromContext returns the session id attached to the context.
func SessionFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionKey).(string); ok {
		return v
	}
	return ""
}
