package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/cenkalti/backoff/v4"
)

const (
	defaultCompletionTimeout = 60 * time.Second
	maxCompletionRetries     = 2
)

// AnthropicLLMClient implements LLMClient using the Anthropic API.
// Each call is bounded by an explicit timeout and transient failures are
// retried with exponential backoff.
type AnthropicLLMClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	timeout   time.Duration
	log       *slog.Logger
}

// NewAnthropicLLMClient creates a new Anthropic-based LLM client. The API
// key is read from the environment by the SDK.
func NewAnthropicLLMClient(model anthropic.Model, maxTokens int64, timeout time.Duration, log *slog.Logger) *AnthropicLLMClient {
	if timeout == 0 {
		timeout = defaultCompletionTimeout
	}
	return &AnthropicLLMClient{
		client:    anthropic.NewClient(),
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		log:       log,
	}
}

// Complete sends a prompt to Claude and returns the response text.
func (c *AnthropicLLMClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	operation := func() (string, error) {
		msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     c.model,
			MaxTokens: c.maxTokens,
			System: []anthropic.TextBlockParam{
				{Type: "text", Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
		if err != nil {
			return "", err
		}

		for _, block := range msg.Content {
			if block.Type == "text" {
				return block.Text, nil
			}
		}
		return "", backoff.Permanent(fmt.Errorf("no text content in response"))
	}

	text, err := backoff.RetryWithData(operation,
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxCompletionRetries), ctx))

	duration := time.Since(start)
	if err != nil {
		if c.log != nil {
			c.log.Error("anthropic: API call failed", "duration", duration, "error", err)
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("anthropic API call timed out after %s: %w", c.timeout, err)
		}
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	if c.log != nil {
		c.log.Debug("anthropic: API call completed", "duration", duration, "userPromptLen", len(userPrompt))
	}
	return text, nil
}
