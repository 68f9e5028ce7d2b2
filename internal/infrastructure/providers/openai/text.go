package openai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/craftly/studio-api/internal/core/domain"
)

// TextClient is the chat-completion text provider.
type TextClient struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

func NewTextClient(cfg Config, logger zerolog.Logger) (*TextClient, error) {
	client, cfg, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &TextClient{client: client, model: cfg.ChatModel, logger: logger}, nil
}

// Complete sends one chat-completion request asking the model for n
// candidate completions and returns their raw contents in choice order.
func (c *TextClient) Complete(ctx context.Context, systemPrompt, userPrompt string, n int) ([]string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		N:     n,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: chat completion: %v", domain.ErrProviderUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: chat completion returned no choices", domain.ErrInvalidProviderResponse)
	}

	variants := make([]string, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		variants = append(variants, choice.Message.Content)
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("requested", n).
		Int("received", len(variants)).
		Msg("chat completion finished")

	return variants, nil
}
