// Package cache maps a retrieval request fingerprint to a previously
// computed result list, so repeated queries skip the retrieval pipeline
// entirely. All implementations share the Cache interface and the same
// failure contract: a cache failure is never fatal to the caller, it is
// logged and treated as a miss (get) or a silent no-op (set).
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ragforge/retrieval/document"
)

// Cache stores result lists keyed by a request fingerprint.
type Cache interface {
	Get(ctx context.Context, key string) ([]*document.Result, bool)
	Set(ctx context.Context, key string, value []*document.Result, ttl int) error
	Invalidate(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Stats() Stats
	RecordSavedTime(durationMs int64)
}

// Stats reports cache hit/miss/set/invalidation/clear counters, current and
// maximum size, and the recorded saved time.
type Stats struct {
	Hits          int64
	Misses        int64
	Sets          int64
	Invalidations int64
	Clears        int64
	CurrentSize   int
	MaxSize       int
	SavedTimeMs   int64
}

// HitRate returns Hits / (Hits + Misses), or 0 when no requests were made.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// MissRate returns Misses / (Hits + Misses), or 0 when no requests were made.
func (s Stats) MissRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Misses) / float64(total)
}

// GenerateCacheKey derives a deterministic SHA-256 key from the query,
// top_k and an optional metadata filter, matching the source system's
// `query | top_k | sorted(filters)` key derivation so that equivalent
// requests collide on the same key regardless of filter key ordering.
func GenerateCacheKey(query string, topK int, filters map[string]any) string {
	parts := []string{query, strconv.Itoa(topK)}

	if len(filters) > 0 {
		keys := make([]string, 0, len(filters))
		for k := range filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, filters[k]))
		}
		parts = append(parts, strings.Join(pairs, ","))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func cloneResults(results []*document.Result) []*document.Result {
	return document.CloneAll(results)
}
