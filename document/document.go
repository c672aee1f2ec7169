// Package document defines the result representation shared by every stage
// of the retrieval pipeline: vector search, graph search, reranking, hybrid
// fusion, and the Self-RAG evaluation loop all produce and consume Results.
package document

import (
	"errors"
	"maps"
)

// Result is a single retrieved unit of content together with its relevance
// score and arbitrary provenance metadata. It is intentionally the one
// representation that flows through the whole pipeline: a dense vector hit,
// a graph entity projected into text, and a reranked or RRF-fused document
// are all Results, distinguished only by their Metadata.
type Result struct {
	ID       string
	Text     string
	Score    float64
	Metadata map[string]any
}

// New creates a Result with an initialized metadata map.
// Returns an error if id or text is empty.
func New(id, text string) (*Result, error) {
	if id == "" {
		return nil, errors.New("document: id must not be empty")
	}
	if text == "" {
		return nil, errors.New("document: text must not be empty")
	}
	return &Result{
		ID:       id,
		Text:     text,
		Metadata: make(map[string]any),
	}, nil
}

// Clone returns a deep copy of the Result, including its metadata map, so
// that pipeline stages can freely mutate metadata (rank, provenance, score
// history) without aliasing the caller's copy.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	return &Result{
		ID:       r.ID,
		Text:     r.Text,
		Score:    r.Score,
		Metadata: maps.Clone(r.Metadata),
	}
}

// MetaString returns the string value of a metadata key, or def if the key
// is absent or not a string.
func (r *Result) MetaString(key, def string) string {
	if r.Metadata == nil {
		return def
	}
	if v, ok := r.Metadata[key].(string); ok {
		return v
	}
	return def
}

// CloneAll deep-copies a slice of Results.
func CloneAll(results []*Result) []*Result {
	out := make([]*Result, len(results))
	for i, r := range results {
		out[i] = r.Clone()
	}
	return out
}
