package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	. "github.com/lmercat/webpilot/internal/logging"
	"github.com/lmercat/webpilot/internal/types"
)

// PageReporter answers "where is the browser now" for the session in
// ctx. Used to annotate tool results; its failures are ignored.
type PageReporter func(ctx context.Context) (url, title string, err error)

// Invoker runs tool calls against a registry with the guarantees the
// agent loop relies on: an unknown tool, a panicking tool, or a tool
// returning a Go error all come back as a failed ToolResult, never as
// something that unwinds the loop.
type Invoker struct {
	registry *Registry

	pageReporter   PageReporter
	browserAffects map[string]bool
}

// NewInvoker wraps a registry.
func NewInvoker(registry *Registry) *Invoker {
	return &Invoker{registry: registry}
}

// WithPageReporter makes the invoker append a best-effort "current
// page" text block after any of the named browser-affecting tools
// succeeds.
func (inv *Invoker) WithPageReporter(r PageReporter, toolNames ...string) *Invoker {
	inv.pageReporter = r
	inv.browserAffects = make(map[string]bool, len(toolNames))
	for _, n := range toolNames {
		inv.browserAffects[n] = true
	}
	return inv
}

// Invoke executes the named tool. The returned result is always
// non-nil.
func (inv *Invoker) Invoke(ctx context.Context, name string, input json.RawMessage) (result *types.ToolResult) {
	tool, ok := inv.registry.Get(name)
	if !ok {
		L_warn("tools: unknown tool requested", "tool", name)
		return types.ErrorResult(fmt.Sprintf("unknown tool: %s", name))
	}

	defer func() {
		if r := recover(); r != nil {
			L_error("tools: tool panicked", "tool", name, "panic", r)
			result = types.ErrorResult(fmt.Sprintf("tool %s panicked: %v", name, r))
		}
	}()

	start := time.Now()
	res, err := tool.Execute(ctx, input)
	elapsed := time.Since(start)

	if err != nil {
		L_warn("tools: tool failed", "tool", name, "elapsed", elapsed, "error", err)
		return types.ErrorResult(err.Error())
	}
	if res == nil {
		return types.ErrorResult(fmt.Sprintf("tool %s returned no result", name))
	}

	L_debug("tools: tool executed", "tool", name, "elapsed", elapsed, "success", res.Success)

	if res.Success && inv.pageReporter != nil && inv.browserAffects[name] {
		if url, title, perr := inv.pageReporter(ctx); perr == nil {
			res.Content = append(res.Content, types.ContentBlock{
				Type: "text",
				Text: fmt.Sprintf("Current page: %s (%s)", title, url),
			})
		}
	}
	return res
}
