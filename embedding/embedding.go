// Package embedding defines the narrow external contract the retrieval
// pipeline depends on for turning text into vectors. Concrete providers
// (the openai subpackage, or others) implement Embedder; everything
// upstream — vector store backends, query expansion, hybrid search — only
// ever depends on this interface, never on a specific provider's SDK types.
package embedding

import "context"

// Embedder converts text into dense vector representations.
type Embedder interface {
	// EmbedQuery embeds a single query string, e.g. for a similarity search.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments embeds a batch of document texts, preserving order so
	// callers can zip the result back onto the originating documents.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of vectors this embedder produces.
	// Used by vector store backends to size collections on first use.
	Dimensions(ctx context.Context) (int, error)
}
