package cache

import (
	"context"
	"strings"
	"testing"
)

// fakeEmbedder maps text to a small deterministic vector so that similar
// queries (sharing a keyword) embed close together and dissimilar queries
// embed orthogonally, without depending on a real embedding model.
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 4)
	lower := strings.ToLower(text)
	if strings.Contains(lower, "cat") {
		vec[0] = 1
	}
	if strings.Contains(lower, "dog") {
		vec[1] = 1
	}
	if strings.Contains(lower, "car") {
		vec[2] = 1
	}
	vec[3] = 0.01 // small shared component so no vector is all-zero
	return vec, nil
}

func (fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := fakeEmbedder{}.EmbedQuery(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (fakeEmbedder) Dimensions(context.Context) (int, error) { return 4, nil }

func TestSemantic_HitsOnSimilarQuery(t *testing.T) {
	ctx := context.Background()
	c, err := NewSemantic(&SemanticConfig{Embedder: fakeEmbedder{}, SimilarityThreshold: 0.9})
	if err != nil {
		t.Fatalf("NewSemantic: %v", err)
	}

	key := GenerateCacheKey("tell me about cats", 5, nil)
	if err := c.SetByQuery(ctx, "tell me about cats", key, resultList("a"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok := c.GetByQuery(ctx, "what are cats like")
	if !ok {
		t.Fatalf("expected a semantic hit for a near-identical query vector")
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
}

func TestSemantic_MissesOnDissimilarQuery(t *testing.T) {
	ctx := context.Background()
	c, _ := NewSemantic(&SemanticConfig{Embedder: fakeEmbedder{}, SimilarityThreshold: 0.9})

	key := GenerateCacheKey("tell me about cats", 5, nil)
	_ = c.SetByQuery(ctx, "tell me about cats", key, resultList("a"), 0)

	if _, ok := c.GetByQuery(ctx, "how do I fix my car"); ok {
		t.Fatalf("expected dissimilar query to miss")
	}
}

func TestSemantic_EmptyCacheMisses(t *testing.T) {
	ctx := context.Background()
	c, _ := NewSemantic(&SemanticConfig{Embedder: fakeEmbedder{}})

	if _, ok := c.GetByQuery(ctx, "anything"); ok {
		t.Fatalf("expected miss on empty cache")
	}
}

func TestSemantic_Invalidate(t *testing.T) {
	ctx := context.Background()
	c, _ := NewSemantic(&SemanticConfig{Embedder: fakeEmbedder{}, SimilarityThreshold: 0.9})

	key := GenerateCacheKey("tell me about cats", 5, nil)
	_ = c.SetByQuery(ctx, "tell me about cats", key, resultList("a"), 0)
	_ = c.Invalidate(ctx, key)

	if _, ok := c.GetByQuery(ctx, "tell me about cats"); ok {
		t.Fatalf("expected invalidated entry to miss even on exact re-query")
	}
}
