package cache

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ragforge/retrieval/document"
	"github.com/ragforge/retrieval/embedding"
)

// SemanticConfig configures a Semantic cache.
type SemanticConfig struct {
	Embedder embedding.Embedder

	// MaxEntries bounds the number of stored query embeddings; least
	// recently used entries are evicted first. Defaults to 1000.
	MaxEntries int

	// SimilarityThreshold is the minimum cosine similarity against any
	// stored query embedding for a Get to count as a hit. Conservative by
	// default to minimize false-positive hits. Defaults to 0.92.
	SimilarityThreshold float64

	DefaultTTL time.Duration

	Logger *slog.Logger
}

func (c *SemanticConfig) validate() error {
	if c.Embedder == nil {
		return fmt.Errorf("cache: semantic cache requires an embedder")
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = 1000
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = 0.92
	}
	if c.DefaultTTL == 0 {
		c.DefaultTTL = time.Hour
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

type semanticItem struct {
	key       string
	embedding []float32
	value     []*document.Result
	expireAt  time.Time
}

// Semantic is a Cache that hits on approximate query match: a lookup
// embeds the incoming query and scans stored entries for the nearest
// cosine neighbor, treating it as a hit when similarity clears
// SimilarityThreshold. GenerateCacheKey's exact-match key is still stored
// per entry (for Invalidate) but is not used for lookup.
type Semantic struct {
	mu        sync.Mutex
	embedder  embedding.Embedder
	maxSize   int
	threshold float64
	ttl       time.Duration
	logger    *slog.Logger

	ll    *list.List
	items map[string]*list.Element

	stats Stats
}

// NewSemantic constructs an embedding-similarity cache.
func NewSemantic(cfg *SemanticConfig) (*Semantic, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Semantic{
		embedder:  cfg.Embedder,
		maxSize:   cfg.MaxEntries,
		threshold: cfg.SimilarityThreshold,
		ttl:       cfg.DefaultTTL,
		logger:    cfg.Logger,
		ll:        list.New(),
		items:     make(map[string]*list.Element),
	}, nil
}

// GetByQuery embeds query and returns the stored results of the closest
// non-expired entry whose similarity clears the configured threshold.
// Unlike Get, this is the intended entry point for callers holding the raw
// query text rather than a precomputed fingerprint key.
func (s *Semantic) GetByQuery(ctx context.Context, query string) ([]*document.Result, bool) {
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.logger.Warn("semantic cache: failed to embed query, treating as miss", "error", err)
		s.mu.Lock()
		s.stats.Misses++
		s.mu.Unlock()
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked()

	var best *list.Element
	bestScore := -1.0
	for el := s.ll.Front(); el != nil; el = el.Next() {
		item := el.Value.(*semanticItem)
		score := cosineSimilarity(vec, item.embedding)
		if score > bestScore {
			bestScore = score
			best = el
		}
	}

	if best == nil || bestScore < s.threshold {
		s.stats.Misses++
		return nil, false
	}

	s.ll.MoveToFront(best)
	s.stats.Hits++
	item := best.Value.(*semanticItem)
	return cloneResults(item.value), true
}

// Get is not semantically meaningful for this cache (it has no query text
// to embed) and always reports a miss. Use GetByQuery instead.
func (s *Semantic) Get(_ context.Context, _ string) ([]*document.Result, bool) {
	s.mu.Lock()
	s.stats.Misses++
	s.mu.Unlock()
	return nil, false
}

// SetByQuery embeds query and stores value alongside it.
func (s *Semantic) SetByQuery(ctx context.Context, query string, key string, value []*document.Result, ttlSeconds int) error {
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return fmt.Errorf("cache: failed to embed query for semantic cache: %w", err)
	}

	var expireAt time.Time
	if ttlSeconds < 0 {
		// no expiry
	} else if ttlSeconds == 0 {
		expireAt = time.Now().Add(s.ttl)
	} else {
		expireAt = time.Now().Add(time.Duration(ttlSeconds) * time.Second)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := &semanticItem{key: key, embedding: vec, value: cloneResults(value), expireAt: expireAt}
	if el, ok := s.items[key]; ok {
		el.Value = item
		s.ll.MoveToFront(el)
	} else {
		el := s.ll.PushFront(item)
		s.items[key] = el
	}
	s.stats.Sets++

	for s.ll.Len() > s.maxSize {
		if back := s.ll.Back(); back != nil {
			s.removeElementLocked(back)
		}
	}
	return nil
}

// Set stores value under key, embedding the key text itself as the query
// text, so the entry is reachable only through GetByQuery by similarity to
// that key text. Exists to satisfy the Cache interface for callers that only
// have a fingerprint key, not the original query text.
func (s *Semantic) Set(ctx context.Context, key string, value []*document.Result, ttlSeconds int) error {
	return s.SetByQuery(ctx, key, key, value, ttlSeconds)
}

func (s *Semantic) evictExpiredLocked() {
	now := time.Now()
	var next *list.Element
	for el := s.ll.Front(); el != nil; el = next {
		next = el.Next()
		item := el.Value.(*semanticItem)
		if !item.expireAt.IsZero() && now.After(item.expireAt) {
			s.removeElementLocked(el)
		}
	}
}

func (s *Semantic) removeElementLocked(el *list.Element) {
	item := el.Value.(*semanticItem)
	s.ll.Remove(el)
	delete(s.items, item.key)
}

// Invalidate removes the entry stored under key, if present.
func (s *Semantic) Invalidate(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.items[key]; ok {
		s.removeElementLocked(el)
	}
	s.stats.Invalidations++
	return nil
}

// Clear removes every entry.
func (s *Semantic) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ll = list.New()
	s.items = make(map[string]*list.Element)
	s.stats.Clears++
	return nil
}

// Stats returns a snapshot of cache counters.
func (s *Semantic) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.CurrentSize = s.ll.Len()
	st.MaxSize = s.maxSize
	return st
}

// RecordSavedTime adds durationMs to the cumulative saved-time counter.
func (s *Semantic) RecordSavedTime(durationMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.SavedTimeMs += durationMs
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ Cache = (*Semantic)(nil)
