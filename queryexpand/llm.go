package queryexpand

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/ragforge/retrieval/generation"
)

// LLMConfig configures an LLMEngine.
type LLMConfig struct {
	Generator     generation.Generator
	NumAlternates int
	Logger        *slog.Logger
}

func (c *LLMConfig) validate() error {
	if c.Generator == nil {
		return errors.New("queryexpand: generator is required")
	}
	if c.NumAlternates <= 0 {
		c.NumAlternates = MaxQueries - 1
	}
	if c.NumAlternates > MaxQueries-1 {
		c.NumAlternates = MaxQueries - 1
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// LLMEngine expands a query using a language model, asking it to produce
// alternate phrasings plus a complexity/intent classification as JSON.
type LLMEngine struct {
	generator     generation.Generator
	numAlternates int
	logger        *slog.Logger
}

// NewLLMEngine constructs an LLMEngine.
func NewLLMEngine(cfg *LLMConfig) (*LLMEngine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &LLMEngine{
		generator:     cfg.Generator,
		numAlternates: cfg.NumAlternates,
		logger:        cfg.Logger,
	}, nil
}

type llmExpansionResponse struct {
	Alternates []llmAlternate `json:"alternates"`
	Complexity string         `json:"complexity"`
	Intent     string         `json:"intent"`
}

type llmAlternate struct {
	Query  string  `json:"query"`
	Weight float64 `json:"weight"`
}

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
var greedyJSONPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Expand asks the language model to classify and expand query. On any
// failure to generate or parse a response, it returns Fallback(query) and
// a nil error: callers should treat expansion as best-effort.
func (e *LLMEngine) Expand(ctx context.Context, query string, contextHint string) (*ExpandedQuery, error) {
	if query == "" {
		return Fallback(query), nil
	}

	prompt := e.buildPrompt(query, contextHint)
	raw, err := e.generator.Generate(ctx, generation.Request{
		System:      "You are a search query expansion specialist. Respond only with JSON.",
		Prompt:      prompt,
		Temperature: 0,
	})
	if err != nil {
		e.logger.Error("queryexpand: generation failed", "error", err)
		return Fallback(query), nil
	}

	parsed, ok := parseResponse(raw)
	if !ok {
		e.logger.Error("queryexpand: could not parse expansion response")
		return Fallback(query), nil
	}

	return e.buildExpandedQuery(query, parsed), nil
}

func (e *LLMEngine) buildPrompt(query, contextHint string) string {
	var b strings.Builder
	b.WriteString("Given a user search query, generate up to ")
	b.WriteString(strconv.Itoa(e.numAlternates))
	b.WriteString(" alternate phrasings that capture different angles of the same intent, ")
	b.WriteString("plus a complexity classification (simple, moderate, or complex) and a short intent tag.\n\n")
	b.WriteString("Original query: ")
	b.WriteString(query)
	b.WriteString("\n")
	if contextHint != "" {
		b.WriteString("Context: ")
		b.WriteString(contextHint)
		b.WriteString("\n")
	}
	b.WriteString("\nRespond with JSON of the exact shape:\n")
	b.WriteString(`{"alternates": [{"query": "...", "weight": 0.8}], "complexity": "simple", "intent": "lookup"}`)
	return b.String()
}

// parseResponse tries direct JSON parse, then a fenced-code-block
// extraction, then a greedy {...} regex extraction.
func parseResponse(raw string) (llmExpansionResponse, bool) {
	var resp llmExpansionResponse
	if err := json.Unmarshal([]byte(raw), &resp); err == nil {
		return resp, true
	}

	if m := fencedJSONPattern.FindStringSubmatch(raw); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &resp); err == nil {
			return resp, true
		}
	}

	if m := greedyJSONPattern.FindString(raw); m != "" {
		if err := json.Unmarshal([]byte(m), &resp); err == nil {
			return resp, true
		}
	}

	return llmExpansionResponse{}, false
}

func (e *LLMEngine) buildExpandedQuery(original string, parsed llmExpansionResponse) *ExpandedQuery {
	queries := []string{original}
	weights := []float64{1.0}

	alternates := lo.Filter(parsed.Alternates, func(alt llmAlternate, _ int) bool {
		return alt.Query != ""
	})

	lastWeight := 1.0
	for _, alt := range alternates {
		if len(queries) >= MaxQueries {
			break
		}
		w := clampWeight(alt.Weight)
		if w > lastWeight {
			w = lastWeight
		}
		queries = append(queries, alt.Query)
		weights = append(weights, w)
		lastWeight = w
	}

	complexity := normalizeComplexity(parsed.Complexity)
	intent := parsed.Intent
	if intent == "" {
		intent = UnknownIntent
	}

	return &ExpandedQuery{
		Original:   original,
		Queries:    queries,
		Weights:    weights,
		Complexity: complexity,
		Intent:     intent,
	}
}

func clampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

func normalizeComplexity(c string) string {
	switch strings.ToLower(c) {
	case ComplexityModerate:
		return ComplexityModerate
	case ComplexityComplex:
		return ComplexityComplex
	default:
		return ComplexitySimple
	}
}

var _ Engine = (*LLMEngine)(nil)
