package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/lmercat/webpilot/internal/types"
)

func echoSummarizer(ctx context.Context, transcript string) (string, error) {
	return "summary of earlier steps", nil
}

// buildConversation fills a transcript with n user/assistant turns of
// the given per-message text size.
func buildConversation(threshold, keepTurns, turns, msgSize int) *Conversation {
	conv := NewConversation("You are a browsing agent.", threshold, keepTurns)
	filler := strings.Repeat("x", msgSize)
	for i := 0; i < turns; i++ {
		conv.Append(types.TextMessage(types.RoleUser, filler))
		conv.Append(types.TextMessage(types.RoleAssistant, filler))
	}
	return conv
}

func TestShouldSummarizeThreshold(t *testing.T) {
	// 4 chars per token: a 400-char message estimates to 100 tokens
	conv := NewConversation("", 100, 1)
	conv.Append(types.TextMessage(types.RoleUser, strings.Repeat("a", 400)))
	if conv.ShouldSummarize() {
		t.Error("estimate equal to threshold must not trigger summarization")
	}
	conv.Append(types.TextMessage(types.RoleAssistant, "puts it over"))
	if !conv.ShouldSummarize() {
		t.Error("estimate above threshold must trigger summarization")
	}
}

func TestSummarizeKeepsSystemAndLastTurn(t *testing.T) {
	// 9 turns of ~3333-token messages: about 60k tokens total
	conv := buildConversation(50000, 1, 9, 13335)
	if !conv.ShouldSummarize() {
		t.Fatalf("estimate %d should exceed 50000", conv.TokenEstimate())
	}

	if err := conv.Summarize(context.Background(), echoSummarizer); err != nil {
		t.Fatalf("summarize: %v", err)
	}

	msgs := conv.Messages()
	// system + summary + last user + last assistant
	if len(msgs) != 4 {
		t.Fatalf("message count = %d, want 4", len(msgs))
	}
	if msgs[0].Role != types.RoleSystem {
		t.Errorf("first message role = %q, want system", msgs[0].Role)
	}
	if !strings.HasPrefix(msgs[1].Text(), "[CONVERSATION SUMMARY:") {
		t.Errorf("second message is not a summary: %q", msgs[1].Text()[:40])
	}
	if !strings.HasSuffix(msgs[1].Text(), "]") {
		t.Error("summary marker not closed")
	}
	if msgs[2].Role != types.RoleUser || msgs[3].Role != types.RoleAssistant {
		t.Errorf("tail roles = %q, %q, want user, assistant", msgs[2].Role, msgs[3].Role)
	}

	if conv.TokenEstimate() > 50000 {
		t.Errorf("estimate after summarize = %d, still above threshold", conv.TokenEstimate())
	}
}

func TestPruneMediaKeepsLastUserTurn(t *testing.T) {
	conv := NewConversation("", 50000, 1)
	// earlier turn with mixed content and a media-only message
	conv.Append(types.Message{
		Role: types.RoleUser,
		Content: []types.ContentBlock{
			{Type: "text", Text: "look at this"},
			{Type: "image", FilePath: "artifact://abc/old.png", MimeType: "image/png"},
		},
	})
	conv.Append(types.Message{
		Role: types.RoleAssistant,
		Content: []types.ContentBlock{
			{Type: "image", FilePath: "artifact://abc/chart.png", MimeType: "image/png"},
		},
	})
	// latest user turn carries media that must survive
	conv.Append(types.Message{
		Role: types.RoleUser,
		Content: []types.ContentBlock{
			{Type: "text", Text: "here is the current page"},
			{Type: "image", FilePath: "artifact://abc/new.png", MimeType: "image/png"},
		},
	})

	before := conv.TokenEstimate()
	if pruned := conv.PruneMedia(); pruned != 2 {
		t.Fatalf("pruned = %d, want 2", pruned)
	}
	after := conv.TokenEstimate()
	if after >= before {
		t.Errorf("estimate should drop after pruning: before=%d after=%d", before, after)
	}

	msgs := conv.Messages() // [system, user, assistant, user]
	if msgs[1].HasMedia() {
		t.Error("image block survived in earlier user turn")
	}
	if msgs[1].Text() != "look at this" {
		t.Errorf("text block lost: %q", msgs[1].Text())
	}
	// media-only message gets the placeholder
	if msgs[2].Text() != MediaPlaceholder {
		t.Errorf("placeholder missing, got %q", msgs[2].Text())
	}
	// latest user turn keeps its media
	if !msgs[3].HasMedia() {
		t.Error("media in the latest user turn must be kept")
	}

	if pruned := conv.PruneMedia(); pruned != 0 {
		t.Errorf("second prune = %d, want 0", pruned)
	}
	if conv.TokenEstimate() != after {
		t.Error("second prune changed the estimate")
	}
}

func TestCompactPruneFirstThenSummarize(t *testing.T) {
	conv := buildConversation(50000, 1, 9, 13335)

	called := false
	summarizer := func(ctx context.Context, transcript string) (string, error) {
		called = true
		if transcript == "" {
			t.Error("summarizer received empty transcript")
		}
		return "short summary", nil
	}

	changed, err := conv.Compact(context.Background(), summarizer)
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if !changed {
		t.Error("compact should report a change")
	}
	if !called {
		t.Error("summarizer not called despite over-budget text")
	}

	changed, err = conv.Compact(context.Background(), summarizer)
	if err != nil {
		t.Fatalf("second compact: %v", err)
	}
	if changed {
		t.Error("second compact should be a no-op")
	}
}

func TestEstimateMatchesRetainedText(t *testing.T) {
	conv := buildConversation(50000, 1, 3, 100)
	want := 0
	for _, m := range conv.Messages() {
		for _, b := range m.Content {
			want += len(b.Text) / 4
		}
	}
	if got := conv.TokenEstimate(); got != want {
		t.Errorf("estimate = %d, recomputed = %d", got, want)
	}
}
