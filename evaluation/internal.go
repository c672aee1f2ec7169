package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ragforge/retrieval/generation"
)

// InternalConfig configures an InternalEvaluator.
type InternalConfig struct {
	Generator generation.Generator
	Logger    *slog.Logger
}

func (c *InternalConfig) validate() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// InternalEvaluator is a fast LLM-as-judge evaluator: it scores
// faithfulness (is the answer grounded in the context?) and relevance (does
// it address the query?) in one generation call. It is used as the
// Self-RAG acceptance gate because it is cheap relative to a full
// library-based batch evaluator.
type InternalEvaluator struct {
	generator generation.Generator
	logger    *slog.Logger
}

// NewInternalEvaluator constructs an InternalEvaluator. A nil Generator is
// allowed: IsAvailable then reports false and every call degrades to the
// neutral result.
func NewInternalEvaluator(cfg *InternalConfig) *InternalEvaluator {
	if cfg == nil {
		cfg = &InternalConfig{}
	}
	cfg.validate()
	return &InternalEvaluator{generator: cfg.Generator, logger: cfg.Logger}
}

func (e *InternalEvaluator) Name() string { return "internal" }

func (e *InternalEvaluator) IsAvailable() bool { return e.generator != nil }

type internalResponse struct {
	Faithfulness float64 `json:"faithfulness"`
	Relevance    float64 `json:"relevance"`
	Reasoning    string  `json:"reasoning"`
}

var (
	fencedEvalJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	greedyJSONPattern     = regexp.MustCompile(`(?s)\{.*\}`)
)

func (e *InternalEvaluator) Evaluate(ctx context.Context, query, answer string, context []string, reference string) (Result, error) {
	if !e.IsAvailable() {
		e.logger.Warn("evaluation: internal evaluator unavailable, no generator configured")
		return Neutral("unavailable: no generator configured"), nil
	}

	prompt := buildPrompt(query, answer, context)
	raw, err := e.generator.Generate(ctx, generation.Request{
		System:      "You are an expert, objective judge of AI answer quality. Respond only with JSON.",
		Prompt:      prompt,
		Temperature: 0,
	})
	if err != nil {
		e.logger.Error("evaluation: generation failed", "error", err)
		return Neutral(fmt.Sprintf("evaluation failed: %v", err)), nil
	}

	parsed, ok := parseInternalResponse(raw)
	if !ok {
		e.logger.Warn("evaluation: could not parse response")
		return Neutral("parsing failed"), nil
	}

	faithfulness := clamp01(parsed.Faithfulness)
	relevance := clamp01(parsed.Relevance)
	return Result{
		Faithfulness: faithfulness,
		Relevance:    relevance,
		Overall:      0.5*faithfulness + 0.5*relevance,
		Reasoning:    parsed.Reasoning,
		RawScores:    map[string]any{"faithfulness": faithfulness, "relevance": relevance},
	}, nil
}

func (e *InternalEvaluator) BatchEvaluate(ctx context.Context, samples []Sample) ([]Result, error) {
	results := make([]Result, len(samples))
	for i, sample := range samples {
		result, err := e.Evaluate(ctx, sample.Query, sample.Answer, sample.Context, sample.Reference)
		if err != nil {
			return nil, err
		}
		results[i] = result
	}
	return results, nil
}

func buildPrompt(query, answer string, context []string) string {
	var b strings.Builder
	b.WriteString("Score the following answer on two criteria, each 0.0-1.0:\n\n")
	b.WriteString("1. faithfulness: is the answer grounded in the provided context? 1.0 = fully grounded, 0.0 = hallucinated.\n")
	b.WriteString("2. relevance: does the answer address the question's intent? 1.0 = fully answers it, 0.0 = unrelated.\n\n")
	b.WriteString("Question:\n")
	b.WriteString(query)
	b.WriteString("\n\nContext:\n")
	for i, doc := range context {
		fmt.Fprintf(&b, "Document %d:\n%s\n\n", i+1, doc)
	}
	b.WriteString("Answer:\n")
	b.WriteString(answer)
	b.WriteString("\n\nRespond with JSON of the exact shape:\n")
	b.WriteString(`{"faithfulness": 0.0, "relevance": 0.0, "reasoning": "..."}`)
	return b.String()
}

// parseInternalResponse tries direct JSON parse, then an object inside a
// ``` fence, then a greedy {...} regex extraction, matching the reranker's
// JSON-parse fallback policy.
func parseInternalResponse(raw string) (internalResponse, bool) {
	var resp internalResponse
	if err := json.Unmarshal([]byte(raw), &resp); err == nil {
		return resp, true
	}
	if m := fencedEvalJSONPattern.FindStringSubmatch(raw); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &resp); err == nil {
			return resp, true
		}
	}
	if m := greedyJSONPattern.FindString(raw); m != "" {
		if err := json.Unmarshal([]byte(m), &resp); err == nil {
			return resp, true
		}
	}
	return internalResponse{}, false
}

var _ Evaluator = (*InternalEvaluator)(nil)
