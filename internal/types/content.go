package types

// ContentBlock represents a piece of content in a message or tool result.
// Type is one of "text", "json", or "image".
type ContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Data     []byte `json:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Source   string `json:"source,omitempty"`
}

// ToolResult is the outcome of a tool invocation. A failed invocation
// still produces a result: Success is false and Error describes what
// went wrong. Tools never propagate panics or Go errors to the caller
// directly.
type ToolResult struct {
	Success bool           `json:"success"`
	Content []ContentBlock `json:"content,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// TextResult builds a successful result with a single text block.
func TextResult(text string) *ToolResult {
	return &ToolResult{
		Success: true,
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

// JSONResult builds a successful result carrying pre-serialized JSON text.
func JSONResult(text string) *ToolResult {
	return &ToolResult{
		Success: true,
		Content: []ContentBlock{{Type: "json", Text: text}},
	}
}

// ErrorResult builds a failed result with the given error message.
func ErrorResult(msg string) *ToolResult {
	return &ToolResult{Success: false, Error: msg}
}

// ImageRefResult builds a successful result referencing an image artifact
// by path rather than carrying the bytes inline.
func ImageRefResult(path, mimeType, source string) *ToolResult {
	return &ToolResult{
		Success: true,
		Content: []ContentBlock{{
			Type:     "image",
			FilePath: path,
			MimeType: mimeType,
			Source:   source,
		}},
	}
}

// FirstText returns the text of the first text or json block, or "".
func (r *ToolResult) FirstText() string {
	for _, b := range r.Content {
		if b.Type == "text" || b.Type == "json" {
			return b.Text
		}
	}
	return ""
}

// HasMedia reports whether any block carries image data or a file reference.
func (r *ToolResult) HasMedia() bool {
	for _, b := range r.Content {
		if b.Type == "image" {
			return true
		}
	}
	return false
}
