// Package generation narrows LLM chat completion down to the single
// capability the retrieval pipeline needs: turn a prompt into text.
// Query expansion, the reranker's LLM-judge stage and the evaluator all
// depend on Generator rather than any specific model client.
package generation

import "context"

// Request is a single generation call: an optional system instruction plus
// the user-facing prompt, with sampling knobs a caller may want to pin
// (e.g. temperature 0 for judge/evaluator calls that need determinism).
type Request struct {
	System      string
	Prompt      string
	Temperature float64 // always forwarded; 0 pins deterministic/greedy decoding
	MaxTokens   int     // 0 uses the model's default
}

// Generator produces text completions from a prompt.
type Generator interface {
	// Generate runs req and returns the model's raw text response.
	Generate(ctx context.Context, req Request) (string, error)
}
