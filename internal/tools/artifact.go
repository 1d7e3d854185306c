package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lmercat/webpilot/internal/artifacts"
	"github.com/lmercat/webpilot/internal/types"
)

// WriteFileTool saves text content as a session artifact.
type WriteFileTool struct {
	Artifacts *artifacts.Store
}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Description() string {
	return "Save text content as a named artifact of this session. Returns the artifact reference."
}

func (t *WriteFileTool) Schema() map[string]any {
	return objectSchema(map[string]any{
		"name": map[string]any{
			"type":        "string",
			"description": "File name, e.g. notes.txt",
		},
		"content": map[string]any{
			"type":        "string",
			"description": "Text content to save",
		},
	}, "name", "content")
}

func (t *WriteFileTool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	var params struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if params.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	sessionID := SessionFromContext(ctx)
	if sessionID == "" {
		return nil, fmt.Errorf("no session bound to this run")
	}
	art, err := t.Artifacts.Write(sessionID, params.Name, []byte(params.Content))
	if err != nil {
		return nil, err
	}
	return types.TextResult(fmt.Sprintf("Saved %s (%d bytes) as %s", art.Name, art.Size, art.Ref)), nil
}

// ListArtifactsTool lists what the session has produced so far.
type ListArtifactsTool struct {
	Artifacts *artifacts.Store
}

func (t *ListArtifactsTool) Name() string { return "list_artifacts" }

func (t *ListArtifactsTool) Description() string {
	return "List the artifacts stored for this session."
}

func (t *ListArtifactsTool) Schema() map[string]any {
	return objectSchema(map[string]any{})
}

func (t *ListArtifactsTool) Execute(ctx context.Context, input json.RawMessage) (*types.ToolResult, error) {
	sessionID := SessionFromContext(ctx)
	if sessionID == "" {
		return nil, fmt.Errorf("no session bound to this run")
	}
	list, err := t.Artifacts.List(sessionID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return types.TextResult("No artifacts stored yet."), nil
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encoding artifact list: %w", err)
	}
	return types.JSONResult(string(payload)), nil
}
