package orchestrator

import (
	"context"
	"testing"

	"github.com/ragforge/retrieval/cache"
	"github.com/ragforge/retrieval/document"
)

func TestSimpleMergeQueries_DedupesAndSortsByScore(t *testing.T) {
	a := &document.Result{ID: "1", Score: 0.5}
	b := &document.Result{ID: "2", Score: 0.9}
	c := &document.Result{ID: "1", Score: 0.1} // duplicate of a, lower score, ignored

	out := simpleMergeQueries([][]*document.Result{{a}, {b, c}}, 0)
	if len(out) != 2 {
		t.Fatalf("expected 2 deduped results, got %d", len(out))
	}
	if out[0].ID != "2" || out[1].ID != "1" {
		t.Fatalf("expected results sorted by score descending, got %v, %v", out[0].ID, out[1].ID)
	}
}

func TestSimpleMergeQueries_RespectsTopK(t *testing.T) {
	docs := []*document.Result{{ID: "1", Score: 0.9}, {ID: "2", Score: 0.8}, {ID: "3", Score: 0.7}}
	out := simpleMergeQueries([][]*document.Result{docs}, 2)
	if len(out) != 2 {
		t.Fatalf("expected topK truncation to 2, got %d", len(out))
	}
}

func TestHealthCheck_UnwiredCollaboratorsYieldNil(t *testing.T) {
	retriever := &fakeRetriever{}
	o := New(Deps{Retriever: retriever}, nil)

	h := o.HealthCheck(context.Background())
	if h.Cache != nil || h.Graph != nil {
		t.Fatalf("expected nil for unwired collaborators, got %+v", h)
	}
	if h.Retriever == nil || !*h.Retriever {
		t.Fatalf("expected retriever without HealthCheck to report healthy, got %+v", h.Retriever)
	}
}

func TestHealthCheck_CacheWithoutHealthCheckMethodReportsHealthy(t *testing.T) {
	c, err := cache.New(&cache.Config{Kind: cache.KindMemory})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	o := New(Deps{Retriever: &fakeRetriever{}, Cache: c}, nil)

	h := o.HealthCheck(context.Background())
	if h.Cache == nil || !*h.Cache {
		t.Fatalf("expected in-memory cache to report healthy by default, got %+v", h.Cache)
	}
}
