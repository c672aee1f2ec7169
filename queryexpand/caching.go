package queryexpand

import (
	"context"
	"sync"
)

// CachingEngine decorates an Engine with a deterministic, in-process cache
// of query -> ExpandedQuery, keyed on the (query, contextHint) pair.
type CachingEngine struct {
	inner Engine

	mu    sync.Mutex
	cache map[string]*ExpandedQuery
}

// NewCachingEngine wraps inner with an unbounded in-memory cache.
func NewCachingEngine(inner Engine) *CachingEngine {
	return &CachingEngine{
		inner: inner,
		cache: make(map[string]*ExpandedQuery),
	}
}

func cacheKey(query, contextHint string) string {
	return query + "\x00" + contextHint
}

// Expand returns a cached expansion if present; otherwise it delegates to
// the wrapped engine and caches a successful result unless it is nil or
// fallback-shaped (a single query tagged simple/unknown).
func (c *CachingEngine) Expand(ctx context.Context, query string, contextHint string) (*ExpandedQuery, error) {
	key := cacheKey(query, contextHint)

	c.mu.Lock()
	if cached, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	result, err := c.inner.Expand(ctx, query, contextHint)
	if err != nil {
		return result, err
	}
	if result == nil || (len(result.Queries) == 1 && result.Complexity == ComplexitySimple && result.Intent == UnknownIntent) {
		return result, nil
	}

	c.mu.Lock()
	c.cache[key] = result
	c.mu.Unlock()

	return result, nil
}

// Clear empties the cache.
func (c *CachingEngine) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*ExpandedQuery)
}

var _ Engine = (*CachingEngine)(nil)
