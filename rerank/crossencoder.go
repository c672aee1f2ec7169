package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ragforge/retrieval/document"
)

// CrossEncoderConfig configures a CrossEncoder reranker backed by an HTTP
// cross-encoder API (the shape Jina's rerank endpoint exposes: POST a
// {model, query, documents, top_n} body, get back {results: [{index,
// relevance_score}]}).
type CrossEncoderConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
	Client   *http.Client
	Logger   *slog.Logger
}

func (c *CrossEncoderConfig) validate() error {
	if c.APIKey == "" {
		return errors.New("rerank: cross-encoder api key is required")
	}
	if c.Endpoint == "" {
		return errors.New("rerank: cross-encoder endpoint is required")
	}
	if c.Model == "" {
		c.Model = "jina-reranker-v1-base-en"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: c.Timeout}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

type crossEncoderRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type crossEncoderResponseItem struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type crossEncoderResponse struct {
	Results []crossEncoderResponseItem `json:"results"`
}

// CrossEncoder reranks via a hosted cross-encoder HTTP API. It is
// deterministic, so SupportsCaching reports true.
type CrossEncoder struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	logger   *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// NewCrossEncoder constructs an HTTP-backed CrossEncoder reranker.
func NewCrossEncoder(cfg *CrossEncoderConfig) (*CrossEncoder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &CrossEncoder{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		endpoint: cfg.Endpoint,
		client:   cfg.Client,
		logger:   cfg.Logger,
	}, nil
}

// Rerank sends query and every result's text to the cross-encoder endpoint
// and reorders by the returned relevance scores. On any failure it falls
// back to the input sorted by its existing score.
func (c *CrossEncoder) Rerank(ctx context.Context, query string, results []*document.Result, topN int) []*document.Result {
	c.mu.Lock()
	c.stats.TotalRequests++
	c.mu.Unlock()

	if len(results) == 0 {
		return nil
	}

	start := time.Now()
	out, err := c.doRerank(ctx, query, results, topN)
	if err != nil {
		c.logger.Warn("rerank: cross-encoder request failed, falling back to original order", "error", err)
		c.mu.Lock()
		c.stats.FailedRequests++
		c.mu.Unlock()
		return fallbackOrder(results, topN)
	}

	elapsed := time.Since(start)
	c.mu.Lock()
	c.stats.SuccessfulRequests++
	c.stats.AvgProcessingMs = runningAverage(c.stats.AvgProcessingMs, c.stats.SuccessfulRequests, float64(elapsed.Milliseconds()))
	c.mu.Unlock()
	return out
}

func (c *CrossEncoder) doRerank(ctx context.Context, query string, results []*document.Result, topN int) ([]*document.Result, error) {
	effectiveTopN := topN
	if effectiveTopN <= 0 || effectiveTopN > len(results) {
		effectiveTopN = len(results)
	}

	documents := make([]string, len(results))
	for i, r := range results {
		documents[i] = r.Text
	}

	body, err := json.Marshal(crossEncoderRequest{
		Model:     c.model,
		Query:     query,
		Documents: documents,
		TopN:      effectiveTopN,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rerank: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rerank: cross-encoder returned status %d", resp.StatusCode)
	}

	var parsed crossEncoderResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("rerank: failed to decode response: %w", err)
	}

	reranked := make([]*document.Result, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		if item.Index < 0 || item.Index >= len(results) {
			continue
		}
		clone := results[item.Index].Clone()
		if clone.Metadata == nil {
			clone.Metadata = map[string]any{}
		}
		clone.Metadata[OriginalScoreKey] = results[item.Index].Score
		clone.Metadata[MethodKey] = "cross-encoder:" + c.model
		clone.Score = clamp01(item.RelevanceScore)
		reranked = append(reranked, clone)
	}

	if len(reranked) == 0 {
		return fallbackOrder(results, topN), nil
	}
	return reranked, nil
}

// SupportsCaching reports true: cross-encoder scoring is deterministic.
func (c *CrossEncoder) SupportsCaching() bool { return true }

// Stats returns a snapshot of request counters.
func (c *CrossEncoder) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func runningAverage(currentAvg float64, count int64, newSample float64) float64 {
	if count <= 1 {
		return newSample
	}
	return currentAvg + (newSample-currentAvg)/float64(count)
}

var _ Reranker = (*CrossEncoder)(nil)
