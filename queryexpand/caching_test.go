package queryexpand

import (
	"context"
	"testing"
)

type countingEngine struct {
	calls  int
	result *ExpandedQuery
}

func (c *countingEngine) Expand(_ context.Context, query string, _ string) (*ExpandedQuery, error) {
	c.calls++
	return c.result, nil
}

func TestCachingEngine_SecondCallHitsCache(t *testing.T) {
	inner := &countingEngine{result: &ExpandedQuery{Original: "q", Queries: []string{"q"}, Weights: []float64{1}}}
	cached := NewCachingEngine(inner)

	_, _ = cached.Expand(context.Background(), "q", "")
	_, _ = cached.Expand(context.Background(), "q", "")

	if inner.calls != 1 {
		t.Fatalf("expected inner engine to be called once, got %d", inner.calls)
	}
}

func TestCachingEngine_DifferentContextHintMisses(t *testing.T) {
	inner := &countingEngine{result: &ExpandedQuery{Original: "q"}}
	cached := NewCachingEngine(inner)

	_, _ = cached.Expand(context.Background(), "q", "ctx-a")
	_, _ = cached.Expand(context.Background(), "q", "ctx-b")

	if inner.calls != 2 {
		t.Fatalf("expected distinct context hints to miss the cache, got %d calls", inner.calls)
	}
}

func TestCachingEngine_ClearEvictsEntries(t *testing.T) {
	inner := &countingEngine{result: &ExpandedQuery{Original: "q"}}
	cached := NewCachingEngine(inner)

	_, _ = cached.Expand(context.Background(), "q", "")
	cached.Clear()
	_, _ = cached.Expand(context.Background(), "q", "")

	if inner.calls != 2 {
		t.Fatalf("expected Clear to evict the cache, got %d calls", inner.calls)
	}
}
