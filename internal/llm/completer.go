// Package llm provides LLM client implementations.
package llm

import (
	"context"
	"fmt"

	"github.com/lmercat/webpilot/internal/config"
)

// Completer is a stateful chat client. Each Send appends the user text
// to the conversation held by the provider and returns the assistant
// reply. Reset clears the history and installs a new system instruction.
//
// The orchestrator owns the authoritative transcript; the provider
// history exists so backends that require full-history requests can
// rebuild them. ReplaceHistory lets the memory manager push a compacted
// transcript down after summarization.
type Completer interface {
	Send(ctx context.Context, text string) (string, error)
	Reset(systemInstruction string)
	ReplaceHistory(system string, turns []Turn)
	Model() string
}

// Turn is one user/assistant exchange used when rebuilding provider
// history after summarization.
type Turn struct {
	Role string
	Text string
}

// New builds a Completer from config.
func New(cfg config.LLMConfig) (Completer, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIClient(cfg)
	case "anthropic":
		return NewAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
