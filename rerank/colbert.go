package rerank

import (
	"context"
	"net/http"
	"time"

	"github.com/ragforge/retrieval/document"
)

// ColBERTConfig configures a ColBERT reranker. It shares the cross-encoder
// HTTP wire format (Jina's rerank endpoint family also serves its ColBERT
// v2 late-interaction model), differing only in its default model name and
// the rerank_method tag it stamps on results.
type ColBERTConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
	Client   *http.Client
}

// ColBERT reranks via a token-level late-interaction API. Like
// CrossEncoder it is deterministic, so SupportsCaching reports true.
type ColBERT struct {
	inner *CrossEncoder
}

// NewColBERT constructs an HTTP-backed ColBERT reranker.
func NewColBERT(cfg *ColBERTConfig) (*ColBERT, error) {
	model := cfg.Model
	if model == "" {
		model = "jina-colbert-v2"
	}

	inner, err := NewCrossEncoder(&CrossEncoderConfig{
		APIKey:   cfg.APIKey,
		Model:    model,
		Endpoint: cfg.Endpoint,
		Timeout:  cfg.Timeout,
		Client:   cfg.Client,
	})
	if err != nil {
		return nil, err
	}
	return &ColBERT{inner: inner}, nil
}

// Rerank delegates to the shared cross-encoder HTTP mechanics, then retags
// the method metadata as late-interaction rather than plain cross-encoder.
func (c *ColBERT) Rerank(ctx context.Context, query string, results []*document.Result, topN int) []*document.Result {
	out := c.inner.Rerank(ctx, query, results, topN)
	for _, r := range out {
		if r.MetaString(MethodKey, "") != "" {
			r.Metadata[MethodKey] = "colbert:" + c.inner.model
		}
	}
	return out
}

// SupportsCaching reports true: ColBERT scoring is deterministic.
func (c *ColBERT) SupportsCaching() bool { return true }

// Stats returns a snapshot of request counters.
func (c *ColBERT) Stats() Stats { return c.inner.Stats() }

var _ Reranker = (*ColBERT)(nil)
