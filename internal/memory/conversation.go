// Package memory keeps the agent's conversation transcript within its
// token budget by pruning media and summarizing older turns.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	. "github.com/lmercat/webpilot/internal/logging"
	"github.com/lmercat/webpilot/internal/types"
)

// MediaPlaceholder replaces pruned image and document blocks.
const MediaPlaceholder = "An image or document was removed for brevity."

// Summarizer condenses a transcript into a short summary. Implemented
// by an LLM call in production and by fakes in tests.
type Summarizer func(ctx context.Context, transcript string) (string, error)

// Conversation holds the transcript for one agent run: a system
// message plus the alternating user/assistant history. It tracks a
// running token estimate and compacts itself when the estimate
// crosses the threshold.
type Conversation struct {
	mu        sync.Mutex
	system    types.Message
	messages  []types.Message
	threshold int
	keepTurns int
}

// NewConversation builds a transcript with the given system message.
// threshold is the token estimate above which compaction triggers;
// keepTurns is how many trailing user/assistant turns survive it.
func NewConversation(systemText string, threshold, keepTurns int) *Conversation {
	if threshold <= 0 {
		threshold = 50000
	}
	if keepTurns <= 0 {
		keepTurns = 1
	}
	return &Conversation{
		system:    types.TextMessage(types.RoleSystem, systemText),
		threshold: threshold,
		keepTurns: keepTurns,
	}
}

// Append adds a message to the transcript.
func (c *Conversation) Append(m types.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
}

// Messages returns the full transcript, system message first.
func (c *Conversation) Messages() []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Message, 0, len(c.messages)+1)
	out = append(out, c.system)
	out = append(out, c.messages...)
	return out
}

// Len returns the number of messages including the system message.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages) + 1
}

// TokenEstimate returns the running heuristic estimate for the whole
// transcript.
func (c *Conversation) TokenEstimate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.estimateLocked()
}

func (c *Conversation) estimateLocked() int {
	return EstimateMessage(c.system) + EstimateMessages(c.messages)
}

// ShouldSummarize reports whether the estimate strictly exceeds the
// threshold.
func (c *Conversation) ShouldSummarize() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.estimateLocked() > c.threshold
}

// PruneMedia drops image blocks from every message before the most
// recent user turn, keeping text blocks. A message left empty gets a
// single placeholder text block. The latest user turn keeps its media
// so the model can still see what it just captured. Idempotent.
func (c *Conversation) PruneMedia() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	lastUser := -1
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == types.RoleUser {
			lastUser = i
			break
		}
	}

	pruned := 0
	for i := 0; i < len(c.messages); i++ {
		if lastUser >= 0 && i >= lastUser {
			break
		}
		kept := c.messages[i].Content[:0]
		for _, b := range c.messages[i].Content {
			if b.Type == "image" {
				pruned++
				continue
			}
			kept = append(kept, b)
		}
		if len(kept) == 0 {
			kept = append(kept, types.ContentBlock{Type: "text", Text: MediaPlaceholder})
		}
		c.messages[i].Content = kept
	}
	if pruned > 0 {
		L_info("memory: pruned media", "blocks", pruned, "estimate", c.estimateLocked())
	}
	return pruned
}

// Summarize compacts the transcript: everything older than the last
// keepTurns turns is rendered to text, condensed by the summarizer,
// and replaced with a single summary message. The system message and
// the trailing turns are kept verbatim.
func (c *Conversation) Summarize(ctx context.Context, summarize Summarizer) error {
	c.mu.Lock()
	tailStart := c.tailStartLocked()
	if tailStart <= 0 {
		c.mu.Unlock()
		return nil
	}
	older := make([]types.Message, tailStart)
	copy(older, c.messages[:tailStart])
	c.mu.Unlock()

	transcript := renderTranscript(older)
	summary, err := summarize(ctx, transcript)
	if err != nil {
		return fmt.Errorf("summarizing conversation: %w", err)
	}

	summaryMsg := types.TextMessage(types.RoleAssistant,
		fmt.Sprintf("[CONVERSATION SUMMARY: %s]", strings.TrimSpace(summary)))

	c.mu.Lock()
	defer c.mu.Unlock()
	// the transcript may have grown while the summarizer ran; the tail
	// index still marks the same boundary
	tail := c.messages[tailStart:]
	compacted := make([]types.Message, 0, len(tail)+1)
	compacted = append(compacted, summaryMsg)
	compacted = append(compacted, tail...)
	before := len(c.messages)
	c.messages = compacted

	L_info("memory: summarized",
		"dropped", before-len(tail),
		"kept", len(tail),
		"estimate", c.estimateLocked())
	return nil
}

// tailStartLocked finds the index where the last keepTurns turns
// begin. A turn starts at a user message.
func (c *Conversation) tailStartLocked() int {
	turns := 0
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == types.RoleUser {
			turns++
			if turns == c.keepTurns {
				return i
			}
		}
	}
	return 0
}

// Compact runs the full budget check: prune media first, and if the
// estimate still exceeds the threshold, summarize. Returns whether
// anything changed.
func (c *Conversation) Compact(ctx context.Context, summarize Summarizer) (bool, error) {
	if !c.ShouldSummarize() {
		return false, nil
	}
	c.PruneMedia()
	if !c.ShouldSummarize() {
		return true, nil
	}
	if err := c.Summarize(ctx, summarize); err != nil {
		return true, err
	}
	return true, nil
}

func renderTranscript(msgs []types.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(strings.ToUpper(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Text())
		b.WriteString("\n\n")
	}
	return b.String()
}
