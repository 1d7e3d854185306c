package types

import "encoding/json"

// ToolCall is a request by the model to invoke a named tool with
// JSON arguments. CorrelationID ties the call to its result in the
// event stream.
type ToolCall struct {
	Tool          string          `json:"tool"`
	Arguments     json.RawMessage `json:"arguments"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// ToolDefinition describes a tool to the model: its name, what it does,
// and the JSON schema of its arguments.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"input_schema"`
}
