// Package openai adapts the OpenAI chat completions API to the
// generation.Generator contract, mirroring Tangerg-lynx/ai's chat model
// request-building shape (openai.SystemMessage/UserMessage, ChatCompletionNewParams).
package openai

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/ragforge/retrieval/generation"
)

const Provider = "OpenAI"

// Config configures a Generator.
type Config struct {
	// APIKey is the OpenAI API key. Required.
	APIKey string

	// Model is the chat completion model name, e.g. "gpt-4o-mini".
	// Defaults to "gpt-4o-mini".
	Model string

	RequestOptions []option.RequestOption
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("openai: generation config is nil")
	}
	if c.APIKey == "" {
		return errors.New("openai: generation api key is required")
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	return nil
}

var _ generation.Generator = (*Generator)(nil)

// Generator is a generation.Generator backed by OpenAI chat completions.
type Generator struct {
	client openai.Client
	model  string
}

// NewGenerator constructs an OpenAI-backed Generator.
func NewGenerator(cfg *Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, cfg.RequestOptions...)
	client := openai.NewClient(opts...)

	return &Generator{client: client, model: cfg.Model}, nil
}

// Generate sends req as a single-turn chat completion and returns the
// first choice's message content.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       g.model,
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
