package cache

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ragforge/retrieval/document"
)

// LRUConfig configures an LRU-backed Cache.
type LRUConfig struct {
	// MaxSize bounds the number of entries; the least recently used entry is
	// evicted once this is exceeded. Defaults to 1000.
	MaxSize int

	// DefaultTTL is applied to entries set without an explicit ttl.
	// Defaults to 1 hour. Set with ttlSeconds 0 uses this TTL; a negative
	// ttlSeconds means "no expiry".
	DefaultTTL time.Duration

	Logger *slog.Logger
}

func (c *LRUConfig) validate() error {
	if c.MaxSize <= 0 {
		c.MaxSize = 1000
	}
	if c.DefaultTTL == 0 {
		c.DefaultTTL = time.Hour
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// LRU is an in-process, size-bounded cache with lazy per-entry TTL expiry.
// It is the default Cache implementation: safe for concurrent use, and the
// fallback target for the Redis-backed cache on transport failure.
type LRU struct {
	mu         sync.Mutex
	maxSize    int
	defaultTTL time.Duration
	logger     *slog.Logger

	ll    *list.List
	items map[string]*list.Element

	stats Stats
}

type lruItem struct {
	key      string
	value    []*document.Result
	expireAt time.Time // zero means no expiry
}

// NewLRU constructs an in-memory LRU cache.
func NewLRU(cfg *LRUConfig) *LRU {
	if cfg == nil {
		cfg = &LRUConfig{}
	}
	_ = cfg.validate()

	return &LRU{
		maxSize:    cfg.MaxSize,
		defaultTTL: cfg.DefaultTTL,
		logger:     cfg.Logger,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Get returns a clone of the cached result list and true on a hit; on a
// miss, or on a lazily-discovered expired entry, it returns (nil, false).
func (c *LRU) Get(_ context.Context, key string) ([]*document.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	item := el.Value.(*lruItem)
	if !item.expireAt.IsZero() && time.Now().After(item.expireAt) {
		c.removeElementLocked(el)
		c.stats.Misses++
		logKey := key
		if len(logKey) > 16 {
			logKey = logKey[:16]
		}
		c.logger.Debug("cache entry expired", "key", logKey)
		return nil, false
	}

	c.ll.MoveToFront(el)
	c.stats.Hits++
	return cloneResults(item.value), true
}

// Set stores value under key. ttlSeconds of 0 uses DefaultTTL; a negative
// ttlSeconds means no expiry.
func (c *LRU) Set(_ context.Context, key string, value []*document.Result, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expireAt time.Time
	switch {
	case ttlSeconds < 0:
		// no expiry
	case ttlSeconds == 0:
		expireAt = time.Now().Add(c.defaultTTL)
	default:
		expireAt = time.Now().Add(time.Duration(ttlSeconds) * time.Second)
	}

	item := &lruItem{key: key, value: cloneResults(value), expireAt: expireAt}

	if el, ok := c.items[key]; ok {
		el.Value = item
		c.ll.MoveToFront(el)
	} else {
		el := c.ll.PushFront(item)
		c.items[key] = el
	}

	c.stats.Sets++

	for c.ll.Len() > c.maxSize {
		c.evictOldestLocked()
	}
	return nil
}

func (c *LRU) evictOldestLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.removeElementLocked(el)
}

func (c *LRU) removeElementLocked(el *list.Element) {
	item := el.Value.(*lruItem)
	c.ll.Remove(el)
	delete(c.items, item.key)
}

// Invalidate removes key from the cache, if present.
func (c *LRU) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElementLocked(el)
	}
	c.stats.Invalidations++
	return nil
}

// Clear removes every entry from the cache.
func (c *LRU) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll = list.New()
	c.items = make(map[string]*list.Element)
	c.stats.Clears++
	return nil
}

// Stats returns a snapshot of cache counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.CurrentSize = c.ll.Len()
	s.MaxSize = c.maxSize
	return s
}

// RecordSavedTime adds durationMs to the cumulative saved-time counter,
// an estimate of wall-clock time avoided by serving from cache instead of
// re-running retrieval.
func (c *LRU) RecordSavedTime(durationMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.SavedTimeMs += durationMs
}

var _ Cache = (*LRU)(nil)
