package memory

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/lmercat/webpilot/internal/types"
)

// EstimateText approximates the token count of text as len/4. Fast,
// close enough for budget decisions, and independent of any tokenizer
// download.
func EstimateText(text string) int {
	return len(text) / 4
}

// mediaTokenCost is charged per image block in an estimate. Rough, but
// keeps media-heavy transcripts from looking cheap.
const mediaTokenCost = 1000

// EstimateMessage approximates the token count of one message.
func EstimateMessage(m types.Message) int {
	total := 0
	for _, b := range m.Content {
		switch b.Type {
		case "image":
			total += mediaTokenCost
		default:
			total += EstimateText(b.Text)
		}
	}
	return total
}

// EstimateMessages sums the estimates of all messages.
func EstimateMessages(msgs []types.Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateMessage(m)
	}
	return total
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// CountTokens returns a precise cl100k_base token count for text,
// falling back to the len/4 heuristic when the encoding is
// unavailable. Used for context statistics, never for the budget
// decision itself.
func CountTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	if encoding == nil {
		return EstimateText(text)
	}
	return len(encoding.Encode(text, nil, nil))
}
