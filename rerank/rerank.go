// Package rerank re-scores a candidate result list against a query, via a
// uniform Reranker interface implemented by HTTP cross-encoder/ColBERT
// backends and an LLM-as-judge backend, composable into a Chain.
package rerank

import (
	"context"
	"sort"

	"github.com/ragforge/retrieval/document"
)

// MethodKey is the metadata key a Reranker sets to name the stage that
// produced a result's current score.
const MethodKey = "rerank_method"

// OriginalScoreKey is the metadata key under which the pre-rerank score is
// preserved, so a caller can always recover "what did it score before".
const OriginalScoreKey = "original_score"

// Reranker re-scores results against query. Implementations never return
// an error: on any internal failure they fall back to the input list
// sorted by its existing Score, descending, truncated to topN.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []*document.Result, topN int) []*document.Result

	// SupportsCaching reports whether this reranker is deterministic (so a
	// caller may safely cache its output keyed by (query, input)). LLM
	// rerankers are not deterministic enough to report true.
	SupportsCaching() bool

	// Stats returns a snapshot of this reranker's request counters.
	Stats() Stats
}

// Stats tracks request counts and average latency for a Reranker.
type Stats struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	TotalTokensUsed    int64
	AvgProcessingMs    float64
}

// SuccessRate returns SuccessfulRequests / TotalRequests, or 0 if no
// requests have been made.
func (s Stats) SuccessRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.SuccessfulRequests) / float64(s.TotalRequests)
}

// fallbackOrder returns results sorted by descending Score and truncated to
// topN, the universal failure-path behavior every Reranker falls back to.
func fallbackOrder(results []*document.Result, topN int) []*document.Result {
	out := document.CloneAll(results)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}
	return out
}

func sortByScoreDesc(results []*document.Result) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
