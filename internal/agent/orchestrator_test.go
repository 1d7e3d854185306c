package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/lmercat/webpilot/internal/config"
	"github.com/lmercat/webpilot/internal/llm"
	"github.com/lmercat/webpilot/internal/types"
)

// fakeCompleter replays scripted replies and counts calls.
type fakeCompleter struct {
	replies []string
	calls   int
	system  string
}

func (f *fakeCompleter) Send(ctx context.Context, text string) (string, error) {
	if f.calls >= len(f.replies) {
		return "", fmt.Errorf("unexpected call %d", f.calls+1)
	}
	reply := f.replies[f.calls]
	f.calls++
	return reply, nil
}

func (f *fakeCompleter) Reset(system string)                        { f.system = system }
func (f *fakeCompleter) ReplaceHistory(system string, _ []llm.Turn) { f.system = system }
func (f *fakeCompleter) Model() string                              { return "fake" }

// fakeInvoker records invocations and returns canned results.
type fakeInvoker struct {
	calls   []string
	results map[string]*types.ToolResult
}

func (f *fakeInvoker) Invoke(ctx context.Context, name string, input json.RawMessage) *types.ToolResult {
	f.calls = append(f.calls, name)
	if r, ok := f.results[name]; ok {
		return r
	}
	return types.TextResult("ok")
}

func collect(events <-chan AgentEvent) []AgentEvent {
	var out []AgentEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestRunTaskSingleToolCall(t *testing.T) {
	completer := &fakeCompleter{replies: []string{
		"```json\n{\"tool\": \"navigate\", \"arguments\": {\"url\": \"https://example.com\"}}\n```",
		"Done. The page title is Example Domain.",
	}}
	invoker := &fakeInvoker{results: map[string]*types.ToolResult{
		"navigate": types.JSONResult(`{"url":"https://example.com","title":"Example Domain","attempts":1}`),
	}}

	orch := New(completer, invoker, nil, config.AgentConfig{MaxSteps: 20})
	events := collect(orch.RunTask(context.Background(), "Open example.com and report the title"))

	if completer.calls != 2 {
		t.Errorf("model calls = %d, want 2", completer.calls)
	}
	if len(invoker.calls) != 1 || invoker.calls[0] != "navigate" {
		t.Errorf("tool calls = %v, want [navigate]", invoker.calls)
	}

	last, ok := events[len(events)-1].(EventAgentEnd)
	if !ok {
		t.Fatalf("last event = %T, want EventAgentEnd", events[len(events)-1])
	}
	if !last.Completed {
		t.Error("run should be marked completed")
	}
	// one tool call happened, so the run reports one step
	if last.Steps != 1 {
		t.Errorf("steps = %d, want 1", last.Steps)
	}
	if last.FinalText != "Done. The page title is Example Domain." {
		t.Errorf("unexpected final text: %q", last.FinalText)
	}

	var sawStart, sawToolStart, sawToolEnd bool
	for _, ev := range events {
		switch ev.(type) {
		case EventAgentStart:
			sawStart = true
		case EventToolStart:
			sawToolStart = true
		case EventToolEnd:
			sawToolEnd = true
		}
	}
	if !sawStart || !sawToolStart || !sawToolEnd {
		t.Errorf("missing events: start=%v toolStart=%v toolEnd=%v", sawStart, sawToolStart, sawToolEnd)
	}
}

func TestRunTaskStepBudget(t *testing.T) {
	const maxSteps = 5

	// the model never stops asking for tools
	replies := make([]string, maxSteps+1)
	for i := range replies {
		replies[i] = "{\"tool\": \"page_info\", \"arguments\": {}}"
	}
	completer := &fakeCompleter{replies: replies}
	invoker := &fakeInvoker{}

	orch := New(completer, invoker, nil, config.AgentConfig{MaxSteps: maxSteps})
	events := collect(orch.RunTask(context.Background(), "loop forever"))

	if completer.calls > maxSteps+1 {
		t.Errorf("model calls = %d, want at most %d", completer.calls, maxSteps+1)
	}

	last, ok := events[len(events)-1].(EventAgentEnd)
	if !ok {
		t.Fatalf("last event = %T, want EventAgentEnd", events[len(events)-1])
	}
	if last.Completed {
		t.Error("run should not be marked completed")
	}
	if last.Reason == "" {
		t.Error("expected a stop reason")
	}
	if last.Steps != maxSteps {
		t.Errorf("steps = %d, want %d tool calls", last.Steps, maxSteps)
	}
}

func TestRunTaskUnknownToolKeepsLooping(t *testing.T) {
	completer := &fakeCompleter{replies: []string{
		"{\"tool\": \"no_such_tool\", \"arguments\": {}}",
		"I could not use that tool, task finished.",
	}}
	invoker := &fakeInvoker{results: map[string]*types.ToolResult{
		"no_such_tool": types.ErrorResult("unknown tool: no_such_tool"),
	}}

	orch := New(completer, invoker, nil, config.AgentConfig{MaxSteps: 20})
	events := collect(orch.RunTask(context.Background(), "anything"))

	for _, ev := range events {
		if _, isErr := ev.(EventAgentError); isErr {
			t.Fatal("unknown tool must not abort the run")
		}
	}
	last, ok := events[len(events)-1].(EventAgentEnd)
	if !ok || !last.Completed {
		t.Fatalf("run should complete normally, got %T", events[len(events)-1])
	}
}

func TestRunTaskModelError(t *testing.T) {
	completer := &fakeCompleter{} // no replies: first Send errors
	orch := New(completer, &fakeInvoker{}, nil, config.AgentConfig{MaxSteps: 3})
	events := collect(orch.RunTask(context.Background(), "anything"))

	last := events[len(events)-1]
	if _, ok := last.(EventAgentError); !ok {
		t.Fatalf("last event = %T, want EventAgentError", last)
	}
}
