// Package agent runs the tool-call loop that turns a task prompt into
// browser actions.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lmercat/webpilot/internal/browser"
	"github.com/lmercat/webpilot/internal/config"
	"github.com/lmercat/webpilot/internal/llm"
	. "github.com/lmercat/webpilot/internal/logging"
	"github.com/lmercat/webpilot/internal/memory"
	"github.com/lmercat/webpilot/internal/tools"
	"github.com/lmercat/webpilot/internal/types"
)

// Invoker executes tool calls. Satisfied by tools.Invoker; tests use
// fakes.
type Invoker interface {
	Invoke(ctx context.Context, name string, input json.RawMessage) *types.ToolResult
}

// Orchestrator drives one task at a time: it sends the task to the
// model, executes the tool calls the model asks for, feeds results
// back, and stops when the model answers in plain text or the step
// budget runs out.
type Orchestrator struct {
	completer  llm.Completer
	summarizer llm.Completer
	invoker    Invoker
	defs       []types.ToolDefinition
	store      *browser.SessionStore
	cfg        config.AgentConfig
}

// New builds an orchestrator. defs is the tool list shown to the model.
func New(completer llm.Completer, invoker Invoker, defs []types.ToolDefinition, cfg config.AgentConfig) *Orchestrator {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 20
	}
	return &Orchestrator{
		completer: completer,
		invoker:   invoker,
		defs:      defs,
		cfg:       cfg,
	}
}

// WithBrowser makes the orchestrator create a browser session per run
// and destroy it when the run ends.
func (o *Orchestrator) WithBrowser(store *browser.SessionStore) *Orchestrator {
	o.store = store
	return o
}

// WithSummarizer sets a dedicated model client for conversation
// summarization so compaction never disturbs the main history.
func (o *Orchestrator) WithSummarizer(c llm.Completer) *Orchestrator {
	o.summarizer = c
	return o
}

// RunTask starts the loop and returns its event stream. The channel
// closes when the run ends.
func (o *Orchestrator) RunTask(ctx context.Context, task string) <-chan AgentEvent {
	events := make(chan AgentEvent, 16)
	go o.run(ctx, task, events)
	return events
}

func (o *Orchestrator) run(ctx context.Context, task string, events chan<- AgentEvent) {
	defer close(events)

	sessionID := uuid.NewString()[:8]
	if o.store != nil {
		sess, err := o.store.Create()
		if err != nil {
			events <- EventAgentError{Err: fmt.Errorf("creating browser session: %w", err)}
			return
		}
		sessionID = sess.ID
		defer o.store.Destroy(sessionID)
	}
	ctx = tools.WithSession(ctx, sessionID)

	system := SystemPrompt(o.defs)
	conv := memory.NewConversation(system, o.cfg.TokenThreshold, o.cfg.KeepTurns)
	o.completer.Reset(system)

	events <- EventAgentStart{SessionID: sessionID, Task: task}
	L_info("agent: run started", "session", sessionID, "max_steps", o.cfg.MaxSteps)

	prompt := task
	var promptBlocks []types.ContentBlock
	var lastReply string
	toolCalls := 0

	for step := 1; step <= o.cfg.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			events <- EventAgentError{Err: err}
			return
		}

		// memory hygiene runs every iteration
		pruned := conv.PruneMedia()
		changed, err := conv.Compact(ctx, o.summarize)
		if err != nil {
			L_warn("agent: compaction failed", "error", err)
		}
		if pruned > 0 || changed {
			o.pushHistory(conv)
		}

		reply, err := o.completer.Send(ctx, prompt)
		if err != nil {
			events <- EventAgentError{Err: err}
			return
		}
		lastReply = reply

		conv.Append(userMessage(prompt, promptBlocks))
		conv.Append(types.TextMessage(types.RoleAssistant, reply))
		promptBlocks = nil

		events <- EventTextDelta{Text: reply}
		L_debug("agent: model replied",
			"session", sessionID,
			"step", step,
			"reply_tokens", memory.CountTokens(reply),
			"context_estimate", conv.TokenEstimate())

		call := ExtractToolCall(reply)
		if call == nil {
			events <- EventAgentEnd{FinalText: reply, Steps: toolCalls, Completed: true}
			L_info("agent: run complete", "session", sessionID, "steps", toolCalls)
			return
		}
		call.CorrelationID = uuid.NewString()[:8]
		toolCalls++

		events <- EventToolStart{Call: *call}
		result := o.invoker.Invoke(ctx, call.Tool, call.Arguments)
		events <- EventToolEnd{Call: *call, Result: result}

		resultText := renderResult(call, result)
		if result.Success && result.HasMedia() {
			promptBlocks = result.Content
		}
		prompt = resultText + "\n\n" + ContinuationPrompt
	}

	events <- EventAgentEnd{
		FinalText: lastReply,
		Steps:     toolCalls,
		Completed: false,
		Reason:    "max steps reached",
	}
	L_warn("agent: step budget exhausted", "session", sessionID, "max_steps", o.cfg.MaxSteps)
}

// pushHistory rebuilds the provider-side transcript after compaction.
func (o *Orchestrator) pushHistory(conv *memory.Conversation) {
	msgs := conv.Messages()
	turns := make([]llm.Turn, 0, len(msgs)-1)
	for _, m := range msgs[1:] {
		turns = append(turns, llm.Turn{Role: m.Role, Text: m.Text()})
	}
	o.completer.ReplaceHistory(msgs[0].Text(), turns)
}

// summarize condenses older transcript text, via the dedicated
// summarizer model when one is configured.
func (o *Orchestrator) summarize(ctx context.Context, transcript string) (string, error) {
	if o.summarizer == nil {
		const limit = 1000
		if len(transcript) > limit {
			transcript = transcript[:limit] + "..."
		}
		return transcript, nil
	}
	o.summarizer.Reset(summaryPrompt)
	return o.summarizer.Send(ctx, transcript)
}

func userMessage(text string, blocks []types.ContentBlock) types.Message {
	msg := types.TextMessage(types.RoleUser, text)
	if len(blocks) > 0 {
		for _, b := range blocks {
			if b.Type == "image" {
				msg.Content = append(msg.Content, b)
			}
		}
	}
	return msg
}

func renderResult(call *types.ToolCall, result *types.ToolResult) string {
	if !result.Success {
		return fmt.Sprintf("Tool %s failed: %s", call.Tool, result.Error)
	}
	text := result.FirstText()
	if text == "" && result.HasMedia() {
		var refs []string
		for _, b := range result.Content {
			if b.Type == "image" && b.FilePath != "" {
				refs = append(refs, b.FilePath)
			}
		}
		return fmt.Sprintf("Tool %s succeeded, produced: %s", call.Tool, strings.Join(refs, ", "))
	}
	if text == "" {
		return fmt.Sprintf("Tool %s succeeded.", call.Tool)
	}
	return fmt.Sprintf("Tool %s result:\n%s", call.Tool, text)
}
