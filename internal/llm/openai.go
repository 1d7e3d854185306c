package llm

import (
	"context"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lmercat/webpilot/internal/config"
	. "github.com/lmercat/webpilot/internal/logging"
)

// OpenAIClient implements Completer against OpenAI-compatible APIs.
// Works with OpenAI and compatible servers via BaseURL.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64

	mu       sync.Mutex
	messages []openai.ChatCompletionMessage
}

// NewOpenAIClient builds a client from config. The API key may be empty
// for local compatible servers.
func NewOpenAIClient(cfg config.LLMConfig) (*OpenAIClient, error) {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Reset(systemInstruction string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = c.messages[:0]
	if systemInstruction != "" {
		c.messages = append(c.messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemInstruction,
		})
	}
}

func (c *OpenAIClient) ReplaceHistory(system string, turns []Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = c.messages[:0]
	if system != "" {
		c.messages = append(c.messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		if t.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		c.messages = append(c.messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: t.Text,
		})
	}
}

func (c *OpenAIClient) Send(ctx context.Context, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: c.messages,
	}
	if c.maxTokens > 0 {
		req.MaxTokens = c.maxTokens
	}
	if c.temperature > 0 {
		req.Temperature = float32(c.temperature)
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		// drop the unanswered user message so a retry doesn't duplicate it
		c.messages = c.messages[:len(c.messages)-1]
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.messages = c.messages[:len(c.messages)-1]
		return "", fmt.Errorf("openai completion: empty choices")
	}

	reply := resp.Choices[0].Message.Content
	c.messages = append(c.messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: reply,
	})

	L_debug("openai completion",
		"model", c.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)
	return reply, nil
}
