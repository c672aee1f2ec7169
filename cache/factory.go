package cache

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ragforge/retrieval/embedding"
)

// Kind identifies a supported Cache backend.
type Kind string

const (
	KindMemory   Kind = "memory"
	KindRedis    Kind = "redis"
	KindSemantic Kind = "semantic"
)

// Supported lists every Kind the factory can construct.
var Supported = []Kind{KindMemory, KindRedis, KindSemantic}

// Config selects and configures a Cache backend. Only the fields relevant
// to Kind need be set; the rest are ignored.
type Config struct {
	Kind Kind

	MaxSize    int
	DefaultTTL time.Duration
	Logger     *slog.Logger

	// Redis fields.
	RedisClient      *redis.Client
	RedisKeyPrefix   string
	OperationTimeout time.Duration

	// Semantic fields.
	Embedder            embedding.Embedder
	SimilarityThreshold float64
}

// New constructs a Cache of the configured Kind. With no cache present,
// callers should simply hold a nil Cache and skip every cache operation;
// this factory exists only for the opt-in path.
func New(cfg *Config) (Cache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cache: config is required")
	}

	switch cfg.Kind {
	case KindMemory, "":
		return NewLRU(&LRUConfig{
			MaxSize:    cfg.MaxSize,
			DefaultTTL: cfg.DefaultTTL,
			Logger:     cfg.Logger,
		}), nil

	case KindRedis:
		return NewRedis(&RedisConfig{
			Client:           cfg.RedisClient,
			KeyPrefix:        cfg.RedisKeyPrefix,
			DefaultTTL:       cfg.DefaultTTL,
			OperationTimeout: cfg.OperationTimeout,
			FallbackMaxSize:  cfg.MaxSize,
			Logger:           cfg.Logger,
		})

	case KindSemantic:
		return NewSemantic(&SemanticConfig{
			Embedder:            cfg.Embedder,
			MaxEntries:          cfg.MaxSize,
			SimilarityThreshold: cfg.SimilarityThreshold,
			DefaultTTL:          cfg.DefaultTTL,
			Logger:              cfg.Logger,
		})

	default:
		return nil, fmt.Errorf("cache: unsupported kind %q (supported: %v)", cfg.Kind, Supported)
	}
}
