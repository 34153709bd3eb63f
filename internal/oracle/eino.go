package oracle

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// EinoClient routes completions through an eino chat model.
type EinoClient struct {
	model generator
}

func NewEinoClient(ctx context.Context, cfg Config) (*EinoClient, error) {
	cfg, err := cfg.normalized()
	if err != nil {
		return nil, err
	}
	temperature := float32(cfg.Temperature)
	maxTokens := cfg.MaxTokens
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL + "/v1",
		Model:       cfg.Model,
		Timeout:     cfg.Timeout,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create eino chat model: %w", err)
	}
	return &EinoClient{model: chatModel}, nil
}

func newEinoClientWithModel(m generator) *EinoClient {
	return &EinoClient{model: m}
}

func (c *EinoClient) Complete(ctx context.Context, prompt string) (string, error) {
	message, err := c.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("eino generate: %w", err)
	}
	if message == nil {
		return "", fmt.Errorf("eino generate returned no message")
	}
	return message.Content, nil
}
