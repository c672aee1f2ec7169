// Package queryexpand expands a single user query into an ordered set of
// alternate queries with descending weights, used to widen retrieval recall
// before RRF-merging the results back together.
package queryexpand

import (
	"context"
)

// Complexity classifies how involved a query is to answer.
const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"

	// UnknownIntent is the intent tag used when classification is unavailable.
	UnknownIntent = "unknown"

	// MaxQueries bounds the total number of queries (original + alternates)
	// an Engine may return.
	MaxQueries = 5
)

// ExpandedQuery is the result of expanding one query.
type ExpandedQuery struct {
	Original string
	// Queries holds the original query first (weight 1.0) followed by zero
	// or more alternates with weights monotonically non-increasing in
	// [0,1].
	Queries    []string
	Weights    []float64
	Complexity string
	Intent     string
}

// Fallback is the universal degraded result: {original, [original], simple,
// unknown}, returned whenever expansion cannot be performed.
func Fallback(query string) *ExpandedQuery {
	return &ExpandedQuery{
		Original:   query,
		Queries:    []string{query},
		Weights:    []float64{1.0},
		Complexity: ComplexitySimple,
		Intent:     UnknownIntent,
	}
}

// Engine produces an ExpandedQuery from one user query. Implementations
// must never return an error from Expand to callers who do not need to
// inspect the cause: they should fall back to Fallback(query) and return
// (fallback, nil) unless the caller explicitly needs to distinguish
// failure, in which case the error is also returned alongside the
// fallback value.
type Engine interface {
	Expand(ctx context.Context, query string, contextHint string) (*ExpandedQuery, error)
}
