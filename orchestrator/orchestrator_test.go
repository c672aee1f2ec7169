package orchestrator

import (
	"context"
	"testing"

	"github.com/ragforge/retrieval/cache"
	"github.com/ragforge/retrieval/document"
	"github.com/ragforge/retrieval/vectorstore"
)

type fakeRetriever struct {
	byQuery map[string][]*document.Result
	err     error
	calls   int
}

func (f *fakeRetriever) Retrieve(_ context.Context, req *vectorstore.RetrievalRequest) ([]*document.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byQuery[req.Query], nil
}

func mkDoc(id string, fileType string) *document.Result {
	return &document.Result{ID: id, Text: "t", Score: 1, Metadata: map[string]any{"file_type": fileType}}
}

func TestSearch_CacheMissThenHit(t *testing.T) {
	retriever := &fakeRetriever{byQuery: map[string][]*document.Result{"x": {mkDoc("1", "PDF")}}}
	c, err := cache.New(&cache.Config{Kind: cache.KindMemory})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}

	o := New(Deps{Retriever: retriever, Cache: c}, nil)

	first := o.Search(context.Background(), "x", &SearchOptions{TopK: 5})
	second := o.Search(context.Background(), "x", &SearchOptions{TopK: 5})

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected 1 result both times, got %d and %d", len(first), len(second))
	}
	stats := o.StatsSnapshot()
	if stats.CacheMisses != 1 || stats.CacheHits != 1 {
		t.Fatalf("expected 1 miss then 1 hit, got %+v", stats)
	}
	if stats.TotalRequests != 2 {
		t.Fatalf("expected 2 total requests, got %d", stats.TotalRequests)
	}
}

func TestSearch_DiversityCapLimitsTXTResults(t *testing.T) {
	var docs []*document.Result
	for i := 0; i < 20; i++ {
		docs = append(docs, mkDoc(string(rune('a'+i)), "TXT"))
	}
	retriever := &fakeRetriever{byQuery: map[string][]*document.Result{"q": docs}}
	o := New(Deps{Retriever: retriever}, nil)

	out := o.Search(context.Background(), "q", &SearchOptions{TopK: 15})
	if len(out) > DefaultDiversityCapLimit {
		t.Fatalf("expected at most %d TXT results, got %d", DefaultDiversityCapLimit, len(out))
	}
}

func TestSearch_NonTXTFileTypesPassThroughDiversityCap(t *testing.T) {
	var docs []*document.Result
	for i := 0; i < 20; i++ {
		docs = append(docs, mkDoc(string(rune('a'+i)), "PDF"))
	}
	retriever := &fakeRetriever{byQuery: map[string][]*document.Result{"q": docs}}
	o := New(Deps{Retriever: retriever}, nil)

	out := o.Search(context.Background(), "q", &SearchOptions{TopK: 50})
	if len(out) != 20 {
		t.Fatalf("expected all 20 non-TXT results to pass through, got %d", len(out))
	}
}

func TestSearch_RetrievalFailureDegradesToEmptyNotError(t *testing.T) {
	retriever := &fakeRetriever{err: assertErr{"down"}}
	o := New(Deps{Retriever: retriever}, nil)

	out := o.Search(context.Background(), "q", nil)
	if len(out) != 0 {
		t.Fatalf("expected empty results on retrieval failure, got %d", len(out))
	}
}

func TestSearch_BumpsRetrievalCountOnSingleQuery(t *testing.T) {
	retriever := &fakeRetriever{byQuery: map[string][]*document.Result{"q": {mkDoc("1", "PDF")}}}
	o := New(Deps{Retriever: retriever}, nil)

	o.Search(context.Background(), "q", nil)
	stats := o.StatsSnapshot()
	if stats.RetrievalCount != 1 {
		t.Fatalf("expected retrieval count 1, got %d", stats.RetrievalCount)
	}
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
