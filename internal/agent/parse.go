package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/lmercat/webpilot/internal/types"
)

// fencedJSON matches a ```json fenced block and captures the object
// inside it. Case-insensitive, dot matches newlines, non-greedy so
// trailing prose after the fence is ignored.
var fencedJSON = regexp.MustCompile("(?is)```json\\s*(\\{.*?\\})\\s*```")

// ExtractToolCall pulls a tool call out of assistant text. It accepts
// either a ```json fenced block or a reply that is nothing but a bare
// JSON object. The object must have exactly the keys "tool" and
// "arguments"; anything else means the reply is a final answer, and
// nil is returned.
func ExtractToolCall(text string) *types.ToolCall {
	var candidate string
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	} else {
		trimmed := strings.TrimSpace(text)
		if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
			candidate = trimmed
		}
	}
	if candidate == "" {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil
	}
	if len(raw) != 2 {
		return nil
	}
	toolRaw, ok := raw["tool"]
	if !ok {
		return nil
	}
	args, ok := raw["arguments"]
	if !ok {
		return nil
	}

	var tool string
	if err := json.Unmarshal(toolRaw, &tool); err != nil || tool == "" {
		return nil
	}
	return &types.ToolCall{Tool: tool, Arguments: args}
}
