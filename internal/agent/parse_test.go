package agent

import (
	"encoding/json"
	"testing"
)

func TestExtractToolCall(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantTool string // "" means no tool call expected
	}{
		{
			"fenced block",
			"I'll navigate there.\n```json\n{\"tool\": \"navigate\", \"arguments\": {\"url\": \"https://example.com\"}}\n```",
			"navigate",
		},
		{
			"fenced block uppercase marker",
			"```JSON\n{\"tool\": \"click\", \"arguments\": {\"selector\": \"#go\"}}\n```",
			"click",
		},
		{
			"fenced block multiline arguments",
			"```json\n{\"tool\": \"type_text\", \"arguments\": {\n  \"selector\": \"#q\",\n  \"text\": \"hello\"\n}}\n```",
			"type_text",
		},
		{
			"bare object",
			"  {\"tool\": \"screenshot\", \"arguments\": {}}  ",
			"screenshot",
		},
		{
			"plain text answer",
			"The page title is Example Domain.",
			"",
		},
		{
			"json without tool key",
			"{\"action\": \"navigate\", \"arguments\": {}}",
			"",
		},
		{
			"json with extra keys",
			"{\"tool\": \"navigate\", \"arguments\": {}, \"reason\": \"because\"}",
			"",
		},
		{
			"json missing arguments",
			"{\"tool\": \"navigate\"}",
			"",
		},
		{
			"malformed json in fence",
			"```json\n{\"tool\": \"navigate\", \"arguments\": }\n```",
			"",
		},
		{
			"tool is not a string",
			"{\"tool\": 42, \"arguments\": {}}",
			"",
		},
		{
			"object embedded in prose without fence",
			"Run this: {\"tool\": \"navigate\", \"arguments\": {}} please",
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := ExtractToolCall(tt.text)
			if tt.wantTool == "" {
				if call != nil {
					t.Fatalf("expected no tool call, got %q", call.Tool)
				}
				return
			}
			if call == nil {
				t.Fatalf("expected tool call %q, got nil", tt.wantTool)
			}
			if call.Tool != tt.wantTool {
				t.Errorf("tool = %q, want %q", call.Tool, tt.wantTool)
			}
			if !json.Valid(call.Arguments) {
				t.Errorf("arguments are not valid JSON: %s", call.Arguments)
			}
		})
	}
}

func TestExtractToolCallArguments(t *testing.T) {
	call := ExtractToolCall("```json\n{\"tool\": \"navigate\", \"arguments\": {\"url\": \"https://example.com\"}}\n```")
	if call == nil {
		t.Fatal("expected a tool call")
	}
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		t.Fatalf("unmarshal arguments: %v", err)
	}
	if args.URL != "https://example.com" {
		t.Errorf("url = %q, want https://example.com", args.URL)
	}
}
