package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ragforge/retrieval/document"
)

// RedisConfig configures a Redis-backed distributed Cache.
type RedisConfig struct {
	Client *redis.Client

	// KeyPrefix namespaces keys within a shared Redis instance.
	// Defaults to "rag:cache:".
	KeyPrefix string

	DefaultTTL time.Duration

	// OperationTimeout bounds every individual Redis round trip. Defaults
	// to 2 seconds.
	OperationTimeout time.Duration

	// FallbackMaxSize bounds the in-process fallback cache used whenever a
	// Redis operation errors out. Defaults to 1000.
	FallbackMaxSize int

	Logger *slog.Logger
}

func (c *RedisConfig) validate() error {
	if c.Client == nil {
		return errors.New("cache: redis client is required")
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "rag:cache:"
	}
	if c.DefaultTTL == 0 {
		c.DefaultTTL = time.Hour
	}
	if c.OperationTimeout == 0 {
		c.OperationTimeout = 2 * time.Second
	}
	if c.FallbackMaxSize <= 0 {
		c.FallbackMaxSize = 1000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

type cacheEntryWire struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// Redis is a distributed Cache: multiple service instances share cached
// results through a Redis keyspace. On any Redis transport error it falls
// back to an in-process LRU cache and keeps serving rather than
// propagating the error, per the "distributed cache MUST fall back"
// contract; it also tracks whether it is currently degraded.
type Redis struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	opTimeout time.Duration
	logger    *slog.Logger

	fallback *LRU

	mu            sync.Mutex
	stats         Stats
	fallbackHits  int64
	fallbackActive bool
}

// NewRedis constructs a Redis-backed Cache.
func NewRedis(cfg *RedisConfig) (*Redis, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Redis{
		client:    cfg.Client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.DefaultTTL,
		opTimeout: cfg.OperationTimeout,
		logger:    cfg.Logger,
		fallback: NewLRU(&LRUConfig{
			MaxSize:    cfg.FallbackMaxSize,
			DefaultTTL: cfg.DefaultTTL,
			Logger:     cfg.Logger,
		}),
	}, nil
}

func (r *Redis) redisKey(key string) string {
	return r.keyPrefix + key
}

// Get tries Redis first; on a transport error it serves from the local
// fallback cache instead of returning an error.
func (r *Redis) Get(ctx context.Context, key string) ([]*document.Result, bool) {
	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	raw, err := r.client.Get(opCtx, r.redisKey(key)).Bytes()
	switch {
	case err == nil:
		results, decodeErr := deserializeResults(raw)
		if decodeErr != nil {
			r.logger.Warn("cache: failed to decode redis value", "error", decodeErr)
			r.markMiss()
			return nil, false
		}
		r.markActive()
		r.markHit()
		return results, true

	case errors.Is(err, redis.Nil):
		r.markActive()
		r.markMiss()
		return nil, false

	default:
		r.logger.Warn("cache: redis get failed, falling back to local cache", "error", err)
		r.markFallbackActive()
		if results, ok := r.fallback.Get(ctx, key); ok {
			r.mu.Lock()
			r.fallbackHits++
			r.mu.Unlock()
			return results, true
		}
		r.markMiss()
		return nil, false
	}
}

// Set writes value to Redis; on a transport error it writes to the local
// fallback cache instead of returning an error, so the caller never needs
// special-case handling for a degraded Redis.
func (r *Redis) Set(ctx context.Context, key string, value []*document.Result, ttlSeconds int) error {
	ttl := r.ttl
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	} else if ttlSeconds < 0 {
		ttl = 0 // Redis treats 0 as "no expiry" for SetEX-equivalent paths
	}

	payload, err := serializeResults(value)
	if err != nil {
		return fmt.Errorf("cache: failed to serialize results: %w", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.Set(opCtx, r.redisKey(key), payload, ttl).Err(); err != nil {
		r.logger.Warn("cache: redis set failed, falling back to local cache", "error", err)
		r.markFallbackActive()
		return r.fallback.Set(ctx, key, value, ttlSeconds)
	}

	r.markActive()
	r.mu.Lock()
	r.stats.Sets++
	r.mu.Unlock()
	return nil
}

// Invalidate deletes key from both Redis and the local fallback cache.
func (r *Redis) Invalidate(ctx context.Context, key string) error {
	opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.client.Del(opCtx, r.redisKey(key)).Err(); err != nil {
		r.logger.Warn("cache: redis invalidate failed", "error", err)
	}
	_ = r.fallback.Invalidate(ctx, key)

	r.mu.Lock()
	r.stats.Invalidations++
	r.mu.Unlock()
	return nil
}

// Clear removes every key under this cache's namespace from Redis, and
// clears the local fallback cache.
func (r *Redis) Clear(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, 2*r.opTimeout)
	defer cancel()

	iter := r.client.Scan(opCtx, 0, r.keyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(opCtx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("cache: redis scan failed during clear", "error", err)
	} else if len(keys) > 0 {
		if err := r.client.Del(opCtx, keys...).Err(); err != nil {
			r.logger.Warn("cache: redis delete failed during clear", "error", err)
		}
	}

	_ = r.fallback.Clear(ctx)

	r.mu.Lock()
	r.stats.Clears++
	r.mu.Unlock()
	return nil
}

// Stats returns a merged snapshot of this cache's own counters and the
// fallback cache's current size.
func (r *Redis) Stats() Stats {
	r.mu.Lock()
	s := r.stats
	r.mu.Unlock()

	fb := r.fallback.Stats()
	s.CurrentSize = fb.CurrentSize
	s.MaxSize = fb.MaxSize
	return s
}

// RecordSavedTime adds durationMs to the cumulative saved-time counter.
func (r *Redis) RecordSavedTime(durationMs int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.SavedTimeMs += durationMs
}

// FallbackActive reports whether the most recent operation had to degrade
// to the local fallback cache because Redis was unreachable.
func (r *Redis) FallbackActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fallbackActive
}

// HealthCheck pings Redis with a short timeout.
func (r *Redis) HealthCheck(ctx context.Context) bool {
	opCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return r.client.Ping(opCtx).Err() == nil
}

func (r *Redis) markHit() {
	r.mu.Lock()
	r.stats.Hits++
	r.mu.Unlock()
}

func (r *Redis) markMiss() {
	r.mu.Lock()
	r.stats.Misses++
	r.mu.Unlock()
}

func (r *Redis) markActive() {
	r.mu.Lock()
	r.fallbackActive = false
	r.mu.Unlock()
}

func (r *Redis) markFallbackActive() {
	r.mu.Lock()
	r.fallbackActive = true
	r.mu.Unlock()
}

func serializeResults(results []*document.Result) ([]byte, error) {
	wire := make([]cacheEntryWire, 0, len(results))
	for _, r := range results {
		wire = append(wire, cacheEntryWire{
			ID:       r.ID,
			Text:     r.Text,
			Score:    r.Score,
			Metadata: r.Metadata,
		})
	}
	return json.Marshal(wire)
}

func deserializeResults(raw []byte) ([]*document.Result, error) {
	var wire []cacheEntryWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}

	results := make([]*document.Result, 0, len(wire))
	for _, w := range wire {
		results = append(results, &document.Result{
			ID:       w.ID,
			Text:     w.Text,
			Score:    w.Score,
			Metadata: w.Metadata,
		})
	}
	return results, nil
}

var _ Cache = (*Redis)(nil)
