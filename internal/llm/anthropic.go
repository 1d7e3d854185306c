package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lmercat/webpilot/internal/config"
	. "github.com/lmercat/webpilot/internal/logging"
)

// AnthropicClient implements Completer against the Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int

	mu       sync.Mutex
	system   string
	messages []anthropic.MessageParam
}

// NewAnthropicClient builds a client from config.
func NewAnthropicClient(cfg config.LLMConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic provider requires an api key")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_5)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

func (c *AnthropicClient) Model() string { return c.model }

func (c *AnthropicClient) Reset(systemInstruction string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.system = systemInstruction
	c.messages = c.messages[:0]
}

func (c *AnthropicClient) ReplaceHistory(system string, turns []Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.system = system
	c.messages = c.messages[:0]
	for _, t := range turns {
		if t.Role == "assistant" {
			c.messages = append(c.messages,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
		} else {
			c.messages = append(c.messages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
		}
	}
}

func (c *AnthropicClient) Send(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages,
		anthropic.NewUserMessage(anthropic.NewTextBlock(text)))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  c.messages,
	}
	if c.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.system}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		c.messages = c.messages[:len(c.messages)-1]
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var reply string
	for _, block := range resp.Content {
		if block.Type == "text" {
			reply += block.Text
		}
	}
	c.messages = append(c.messages,
		anthropic.NewAssistantMessage(anthropic.NewTextBlock(reply)))

	L_debug("anthropic completion",
		"model", c.model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens)
	return reply, nil
}
