package cache

import (
	"context"
	"testing"
	"time"

	"github.com/ragforge/retrieval/document"
)

func resultList(ids ...string) []*document.Result {
	out := make([]*document.Result, 0, len(ids))
	for _, id := range ids {
		r, _ := document.New(id, "text-"+id)
		out = append(out, r)
	}
	return out
}

func TestLRU_SetThenGet(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(&LRUConfig{MaxSize: 10})

	key := GenerateCacheKey("x", 5, nil)
	if err := c.Set(ctx, key, resultList("a", "b"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok := c.Get(ctx, key)
	if !ok {
		t.Fatalf("expected hit")
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Sets != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestLRU_MissIncrementsStats(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(nil)

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Fatalf("expected miss")
	}
	if c.Stats().Misses != 1 {
		t.Fatalf("expected 1 miss recorded")
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(&LRUConfig{MaxSize: 2})

	_ = c.Set(ctx, "a", resultList("1"), -1)
	_ = c.Set(ctx, "b", resultList("2"), -1)
	_ = c.Set(ctx, "c", resultList("3"), -1)

	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatalf("expected 'a' to have been evicted")
	}
	if _, ok := c.Get(ctx, "c"); !ok {
		t.Fatalf("expected 'c' to still be present")
	}
}

func TestLRU_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(&LRUConfig{MaxSize: 10})

	_ = c.Set(ctx, "k", resultList("1"), -1)
	el := c.items["k"]
	el.Value.(*lruItem).expireAt = time.Now().Add(-time.Second)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestLRU_InvalidateAndClear(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(nil)

	_ = c.Set(ctx, "k", resultList("1"), 0)
	_ = c.Invalidate(ctx, "k")
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expected invalidated key to miss")
	}

	_ = c.Set(ctx, "k2", resultList("1"), 0)
	_ = c.Clear(ctx)
	if c.Stats().CurrentSize != 0 {
		t.Fatalf("expected empty cache after clear")
	}
}

func TestLRU_GetReturnsIndependentClone(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(nil)
	key := "k"
	_ = c.Set(ctx, key, resultList("1"), 0)

	got, _ := c.Get(ctx, key)
	got[0].Text = "mutated"

	got2, _ := c.Get(ctx, key)
	if got2[0].Text == "mutated" {
		t.Fatalf("expected cached copy to be isolated from caller mutation")
	}
}

func TestGenerateCacheKey_StableUnderFilterOrder(t *testing.T) {
	k1 := GenerateCacheKey("q", 5, map[string]any{"a": 1, "b": 2})
	k2 := GenerateCacheKey("q", 5, map[string]any{"b": 2, "a": 1})
	if k1 != k2 {
		t.Fatalf("expected filter map key order to not affect cache key")
	}
}

func TestGenerateCacheKey_DiffersOnQuery(t *testing.T) {
	k1 := GenerateCacheKey("q1", 5, nil)
	k2 := GenerateCacheKey("q2", 5, nil)
	if k1 == k2 {
		t.Fatalf("expected different queries to produce different keys")
	}
}
