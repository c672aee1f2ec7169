package hybrid

import (
	"context"
	"testing"

	"github.com/ragforge/retrieval/document"
	"github.com/ragforge/retrieval/graph"
	"github.com/ragforge/retrieval/vectorstore"
)

type fakeRetriever struct {
	results []*document.Result
	err     error
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ *vectorstore.RetrievalRequest) ([]*document.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeGraphStore struct {
	graph.Store
	result graph.GraphSearchResult
	err    error
}

func (f *fakeGraphStore) Search(_ context.Context, _ string, _ []string, _ int) (graph.GraphSearchResult, error) {
	if f.err != nil {
		return graph.GraphSearchResult{}, f.err
	}
	return f.result, nil
}

func docs(ids ...string) []*document.Result {
	out := make([]*document.Result, len(ids))
	for i, id := range ids {
		out[i] = &document.Result{ID: id, Text: "t", Score: 1.0 / float64(i+1), Metadata: map[string]any{}}
	}
	return out
}

func TestSearch_TopKZeroReturnsEmpty(t *testing.T) {
	s := New(&fakeRetriever{results: docs("a", "b")}, nil, nil)
	result, err := s.Search(context.Background(), "q", 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Documents) != 0 {
		t.Fatalf("expected empty result for topK<=0, got %d docs", len(result.Documents))
	}
}

func TestSearch_VectorOnlyWhenNoGraphStore(t *testing.T) {
	s := New(&fakeRetriever{results: docs("a", "b", "c")}, nil, nil)
	result, err := s.Search(context.Background(), "q", 3, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.GraphCount != 0 {
		t.Fatalf("expected graph count 0, got %d", result.GraphCount)
	}
	if len(result.Documents) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(result.Documents))
	}
}

func TestSearch_GraphFailureDegradesToVectorOnly(t *testing.T) {
	gs := &fakeGraphStore{err: assertErr{"boom"}}
	s := New(&fakeRetriever{results: docs("a", "b")}, gs, nil)

	result, err := s.Search(context.Background(), "q", 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.GraphCount != 0 {
		t.Fatalf("expected graph results to degrade to empty on failure, got %d", result.GraphCount)
	}
	if len(result.Documents) != 2 {
		t.Fatalf("expected vector-only results to still be returned, got %d", len(result.Documents))
	}
}

func TestSearch_CooccurringDocRanksAboveSingleSourceDoc(t *testing.T) {
	vector := docs("x", "y")
	gs := &fakeGraphStore{result: graph.GraphSearchResult{
		Entities: []graph.ScoredEntity{
			{Entity: graph.Entity{ID: "ex", Name: "X", Properties: map[string]any{"doc_id": "x"}}, Score: 1.0},
		},
	}}
	s := New(&fakeRetriever{results: vector}, gs, &Config{VectorWeight: 0.5, GraphWeight: 0.5})

	result, err := s.Search(context.Background(), "q", 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Documents) == 0 || result.Documents[0].ID != "x" {
		t.Fatalf("expected doc 'x' (present in both sources) to rank first, got %+v", result.Documents)
	}
}

func TestSearch_TiedScoresBreakByFirstSeenOrder(t *testing.T) {
	vector := docs("a")
	gs := &fakeGraphStore{result: graph.GraphSearchResult{
		Entities: []graph.ScoredEntity{
			{Entity: graph.Entity{ID: "eb", Name: "B", Properties: map[string]any{"doc_id": "b"}}, Score: 1.0},
		},
	}}
	s := New(&fakeRetriever{results: vector}, gs, &Config{VectorWeight: 0.5, GraphWeight: 0.5})

	result, err := s.Search(context.Background(), "q", 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(result.Documents))
	}
	if result.Documents[0].ID != "a" || result.Documents[1].ID != "b" {
		t.Fatalf("expected tie broken by insertion order (vector 'a' before graph 'b'), got %+v", result.Documents)
	}
}

func TestSearch_WeightsNormalizeWhenBothZero(t *testing.T) {
	s := New(&fakeRetriever{results: docs("a")}, nil, &Config{VectorWeight: 0, GraphWeight: 0})
	result, err := s.Search(context.Background(), "q", 1, &SearchOptions{
		VectorWeight: floatPtr(0), GraphWeight: floatPtr(0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Metadata["vector_weight"] != 1.0 || result.Metadata["graph_weight"] != 0.0 {
		t.Fatalf("expected fallback to vector-only weights, got %+v", result.Metadata)
	}
}

func TestSearch_GraphEntityWithoutDocIDIsSkipped(t *testing.T) {
	gs := &fakeGraphStore{result: graph.GraphSearchResult{
		Entities: []graph.ScoredEntity{
			{Entity: graph.Entity{ID: "e1", Name: "no doc id"}, Score: 1.0},
		},
	}}
	s := New(&fakeRetriever{results: docs("a")}, gs, nil)
	result, err := s.Search(context.Background(), "q", 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.GraphCount != 0 {
		t.Fatalf("expected entity without doc_id to be skipped, got graph count %d", result.GraphCount)
	}
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

func floatPtr(f float64) *float64 { return &f }
