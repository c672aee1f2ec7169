package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ragforge/retrieval/document"
	"github.com/ragforge/retrieval/generation"
)

// LLMJudgeConfig configures an LLMJudge reranker.
type LLMJudgeConfig struct {
	Generator generation.Generator

	// MaxDocuments caps how many candidates are sent to the model in one
	// prompt. Defaults to 20.
	MaxDocuments int

	// PreviewChars caps each document's preview length in the prompt.
	// Defaults to 250.
	PreviewChars int

	Logger *slog.Logger
}

func (c *LLMJudgeConfig) validate() error {
	if c.Generator == nil {
		return fmt.Errorf("rerank: llm judge requires a generator")
	}
	if c.MaxDocuments <= 0 {
		c.MaxDocuments = 20
	}
	if c.PreviewChars <= 0 {
		c.PreviewChars = 250
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// LLMJudge reranks by asking a Generator to score a batch of candidates in
// a single prompt and return JSON. It is not deterministic in general, so
// SupportsCaching reports false.
type LLMJudge struct {
	generator    generation.Generator
	maxDocuments int
	previewChars int
	logger       *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// NewLLMJudge constructs an LLM-as-judge reranker.
func NewLLMJudge(cfg *LLMJudgeConfig) (*LLMJudge, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &LLMJudge{
		generator:    cfg.Generator,
		maxDocuments: cfg.MaxDocuments,
		previewChars: cfg.PreviewChars,
		logger:       cfg.Logger,
	}, nil
}

type llmJudgeItem struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

type llmJudgeResponse struct {
	Results []llmJudgeItem `json:"results"`
}

var (
	fencedObjectPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	jsonObjectPattern   = regexp.MustCompile(`(?s)\{.*\}`)
)

// Rerank prompts the Generator to score the first MaxDocuments candidates
// and reorders by the returned scores. On any failure — generation error,
// empty response, or unparseable JSON — it falls back to the input sorted
// by existing score.
func (j *LLMJudge) Rerank(ctx context.Context, query string, results []*document.Result, topN int) []*document.Result {
	j.mu.Lock()
	j.stats.TotalRequests++
	j.mu.Unlock()

	if len(results) == 0 {
		return nil
	}
	if topN <= 0 {
		topN = 15
	}

	start := time.Now()
	processCount := len(results)
	if processCount > j.maxDocuments {
		processCount = j.maxDocuments
	}

	prompt := j.buildPrompt(query, results[:processCount], topN)
	raw, err := j.generator.Generate(ctx, generation.Request{
		System:      "You are a fast document ranking specialist. Focus on speed and accuracy.",
		Prompt:      prompt,
		Temperature: 0,
	})
	if err != nil {
		j.logger.Warn("rerank: llm judge generation failed, falling back to original order", "error", err)
		j.markFailed()
		return fallbackOrder(results, topN)
	}

	parsed, ok := j.parseResponse(raw)
	if !ok {
		j.logger.Warn("rerank: llm judge response was not parseable JSON, falling back to original order")
		j.markFailed()
		return fallbackOrder(results, topN)
	}

	out := j.buildResults(parsed, results, topN)

	j.mu.Lock()
	j.stats.SuccessfulRequests++
	j.stats.AvgProcessingMs = runningAverage(j.stats.AvgProcessingMs, j.stats.SuccessfulRequests, float64(time.Since(start).Milliseconds()))
	j.mu.Unlock()
	return out
}

func (j *LLMJudge) buildPrompt(query string, results []*document.Result, topN int) string {
	var b strings.Builder
	for i, r := range results {
		text := r.Text
		if len(text) > j.previewChars {
			text = text[:j.previewChars]
		}
		preview := strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
		fmt.Fprintf(&b, "\n[%d] %s...", i, preview)
	}

	return fmt.Sprintf(`You are a document ranking expert. Evaluate and rank documents based on their relevance to the query.

Query: "%s"

Documents:
%s

Task: Score each document from 0.0 to 1.0 based on relevance to the query.
Select only the top %d most relevant documents.

IMPORTANT: Respond ONLY with valid JSON in this exact format:
{"results": [{"index": 0, "score": 0.95}, {"index": 2, "score": 0.8}, {"index": 1, "score": 0.6}]}

Do not include any other text, explanation, or formatting. Only the JSON object.`, query, b.String(), topN)
}

// parseResponse implements the 3-stage JSON-parse policy: direct parse,
// then extraction of an object between ``` fences, then a greedy {...}
// regex; it reports false when all three fail.
func (j *LLMJudge) parseResponse(raw string) (llmJudgeResponse, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return llmJudgeResponse{}, false
	}

	var parsed llmJudgeResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return parsed, true
	}

	if m := fencedObjectPattern.FindStringSubmatch(raw); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &parsed); err == nil {
			return parsed, true
		}
	}

	if match := jsonObjectPattern.FindString(raw); match != "" {
		if err := json.Unmarshal([]byte(match), &parsed); err == nil {
			return parsed, true
		}
	}

	return llmJudgeResponse{}, false
}

func (j *LLMJudge) buildResults(parsed llmJudgeResponse, original []*document.Result, topN int) []*document.Result {
	items := parsed.Results
	if len(items) > topN {
		items = items[:topN]
	}

	out := make([]*document.Result, 0, len(items))
	for _, item := range items {
		if item.Index < 0 || item.Index >= len(original) {
			continue
		}
		src := original[item.Index]
		clone := src.Clone()
		if clone.Metadata == nil {
			clone.Metadata = map[string]any{}
		}
		clone.Metadata[OriginalScoreKey] = src.Score
		clone.Metadata[MethodKey] = "llm-judge"
		clone.Score = clamp01(item.Score)
		out = append(out, clone)
	}

	if len(out) == 0 {
		return fallbackOrder(original, topN)
	}

	sortByScoreDesc(out)
	return out
}

func (j *LLMJudge) markFailed() {
	j.mu.Lock()
	j.stats.FailedRequests++
	j.mu.Unlock()
}

// SupportsCaching reports false: LLM judge output is not guaranteed
// deterministic across calls.
func (j *LLMJudge) SupportsCaching() bool { return false }

// Stats returns a snapshot of request counters.
func (j *LLMJudge) Stats() Stats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

var _ Reranker = (*LLMJudge)(nil)
