// Package openai adapts the OpenAI embeddings API to the embedding.Embedder
// contract, mirroring Tangerg-lynx/ai's EmbeddingModel/Api client shape.
package openai

import (
	"context"
	"errors"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/ragforge/retrieval/embedding"
)

const Provider = "OpenAI"

// Config configures an Embedder.
type Config struct {
	// APIKey is the OpenAI API key. Required.
	APIKey string

	// Model is the embedding model name, e.g. "text-embedding-3-small".
	// Defaults to "text-embedding-3-small".
	Model string

	// Dimensions optionally requests a reduced embedding dimensionality,
	// supported by the text-embedding-3 model family.
	Dimensions int

	// RequestOptions carries additional client options (base URL override,
	// custom HTTP client, retry policy) passed straight to the SDK.
	RequestOptions []option.RequestOption
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("openai: embedding config is nil")
	}
	if c.APIKey == "" {
		return errors.New("openai: embedding api key is required")
	}
	if c.Model == "" {
		c.Model = "text-embedding-3-small"
	}
	return nil
}

var _ embedding.Embedder = (*Embedder)(nil)

// Embedder is an embedding.Embedder backed by the OpenAI embeddings endpoint.
type Embedder struct {
	client     openai.Client
	model      string
	dimensions int

	dimOnce sync.Once
	dimErr  error
}

// NewEmbedder constructs an OpenAI-backed Embedder.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, cfg.RequestOptions...)
	client := openai.NewClient(opts...)

	return &Embedder{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (e *Embedder) buildParams(inputs []string) openai.EmbeddingNewParams {
	params := openai.EmbeddingNewParams{
		Model: e.model,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}
	return params
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

// EmbedDocuments embeds a batch of document texts in a single API call.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, e.buildParams(texts))
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		out[d.Index] = toFloat32(d.Embedding)
	}
	return out, nil
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("openai: embedding response contained no vectors")
	}
	return vectors[0], nil
}

// Dimensions probes the embedder with a one-token request and caches the result.
func (e *Embedder) Dimensions(ctx context.Context) (int, error) {
	e.dimOnce.Do(func() {
		vec, err := e.EmbedQuery(ctx, "dimension probe")
		if err != nil {
			e.dimErr = err
			return
		}
		e.dimensions = len(vec)
	})
	return e.dimensions, e.dimErr
}
