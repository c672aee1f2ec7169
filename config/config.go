// Package config loads and validates the typed configuration for every
// component this module wires together: github.com/spf13/viper reads a
// YAML file plus environment overrides into one struct, which callers then
// decode into narrower per-component Config values at construction time.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig is the root configuration tree. Every field carries a
// mapstructure tag so it binds the same way whether it comes from a YAML
// file, environment variable, or flag.
type AppConfig struct {
	Cache        CacheConfig        `mapstructure:"cache"`
	Scoring      ScoringConfig      `mapstructure:"scoring"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Hybrid       HybridConfig       `mapstructure:"hybrid"`
	GraphRAG     GraphRAGConfig     `mapstructure:"graph_rag"`
	QueryExpand  QueryExpandConfig  `mapstructure:"query_expansion"`
	SelfRAG      SelfRAGConfig      `mapstructure:"self_rag"`
	Evaluation   EvaluationConfig   `mapstructure:"evaluation"`
	Session      SessionConfig      `mapstructure:"session"`
	Rerank       RerankConfig       `mapstructure:"rerank"`
}

type CacheConfig struct {
	Kind                string        `mapstructure:"kind"`
	MaxSize             int           `mapstructure:"max_size"`
	DefaultTTL          time.Duration `mapstructure:"default_ttl"`
	RedisAddr           string        `mapstructure:"redis_addr"`
	RedisKeyPrefix      string        `mapstructure:"redis_key_prefix"`
	OperationTimeout    time.Duration `mapstructure:"operation_timeout"`
	SimilarityThreshold float64       `mapstructure:"similarity_threshold"`
}

type ScoringConfig struct {
	CollectionWeightEnabled bool               `mapstructure:"collection_weight_enabled"`
	FileTypeWeightEnabled   bool               `mapstructure:"file_type_weight_enabled"`
	CollectionWeights       map[string]float64 `mapstructure:"collection_weights"`
	FileTypeWeights         map[string]float64 `mapstructure:"file_type_weights"`
}

type OrchestratorConfig struct {
	DiversityCapFileType string `mapstructure:"diversity_cap_file_type"`
	DiversityCapLimit    int    `mapstructure:"diversity_cap_limit"`
	RRFK                 int    `mapstructure:"rrf_k"`
	GraphHybridEnabled   bool   `mapstructure:"graph_hybrid_enabled"`
	GraphAutoEnable      bool   `mapstructure:"graph_auto_enable"`
}

type HybridConfig struct {
	VectorWeight float64 `mapstructure:"vector_weight"`
	GraphWeight  float64 `mapstructure:"graph_weight"`
	RRFK         int     `mapstructure:"rrf_k"`
}

// GraphRAGConfig configures the networked graph backend (graph/neo4j).
type GraphRAGConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	URI                string        `mapstructure:"uri"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	MaxPoolSize        int           `mapstructure:"max_pool_size"`
	AcquisitionTimeout time.Duration `mapstructure:"acquisition_timeout"`
	QueryTimeout       time.Duration `mapstructure:"query_timeout"`
	MaxRetries         int           `mapstructure:"max_retries"`
	RetryBaseDelay     time.Duration `mapstructure:"retry_base_delay"`
}

type QueryExpandConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	Cached        bool `mapstructure:"cached"`
	NumAlternates int  `mapstructure:"num_alternates"`
}

type SelfRAGConfig struct {
	Enabled                    bool          `mapstructure:"enabled"`
	AcceptThreshold            float64       `mapstructure:"accept_threshold"`
	RegenerateThreshold        float64       `mapstructure:"regenerate_threshold"`
	BreakerMaxRequests         uint32        `mapstructure:"breaker_max_requests"`
	BreakerInterval            time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout             time.Duration `mapstructure:"breaker_timeout"`
	BreakerConsecutiveFailures uint32        `mapstructure:"breaker_consecutive_failures"`
}

type EvaluationConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Provider string `mapstructure:"provider"`
}

type SessionConfig struct {
	MaxMessages int `mapstructure:"max_messages"`
}

type RerankConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Strategy string `mapstructure:"strategy"`
	TopN     int    `mapstructure:"top_n"`
}

// Loader wraps a viper.Viper instance: config-file-plus-environment-overrides
// with a dotted-key to SCREAMING_SNAKE_CASE env var replacer.
type Loader struct {
	v *viper.Viper
}

// NewLoader builds a Loader. configName/configPaths are passed straight to
// viper (omit configName to skip the file and rely on defaults/env only).
// envPrefix scopes environment variable lookups, e.g. "RAGFORGE" binds
// RAGFORGE_CACHE_KIND to the cache.kind key.
func NewLoader(configName string, configPaths []string, envPrefix string) (*Loader, error) {
	v := viper.New()
	applyDefaults(v)

	if configName != "" {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		for _, p := range configPaths {
			v.AddConfigPath(p)
		}
	}

	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configName != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: read config file: %w", err)
			}
		}
	}

	return &Loader{v: v}, nil
}

// Load decodes the full configuration tree and validates it.
func (l *Loader) Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field invariants the individual component
// validate() methods don't see on their own (e.g. threshold ordering).
func (c *AppConfig) Validate() error {
	if c.SelfRAG.AcceptThreshold != 0 && c.SelfRAG.RegenerateThreshold != 0 &&
		c.SelfRAG.RegenerateThreshold > c.SelfRAG.AcceptThreshold {
		return fmt.Errorf("config: self_rag.regenerate_threshold (%.2f) must not exceed accept_threshold (%.2f)",
			c.SelfRAG.RegenerateThreshold, c.SelfRAG.AcceptThreshold)
	}
	if c.Hybrid.VectorWeight < 0 || c.Hybrid.GraphWeight < 0 {
		return fmt.Errorf("config: hybrid weights must be non-negative")
	}
	return nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("cache.kind", "memory")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.default_ttl", "1h")

	v.SetDefault("orchestrator.diversity_cap_file_type", "TXT")
	v.SetDefault("orchestrator.diversity_cap_limit", 15)
	v.SetDefault("orchestrator.rrf_k", 60)

	v.SetDefault("hybrid.vector_weight", 0.6)
	v.SetDefault("hybrid.graph_weight", 0.4)
	v.SetDefault("hybrid.rrf_k", 60)

	v.SetDefault("graph_rag.max_pool_size", 50)
	v.SetDefault("graph_rag.acquisition_timeout", "60s")
	v.SetDefault("graph_rag.query_timeout", "30s")
	v.SetDefault("graph_rag.max_retries", 3)
	v.SetDefault("graph_rag.retry_base_delay", "200ms")

	v.SetDefault("query_expansion.num_alternates", 2)

	v.SetDefault("self_rag.accept_threshold", 0.7)
	v.SetDefault("self_rag.regenerate_threshold", 0.5)
	v.SetDefault("self_rag.breaker_max_requests", 1)
	v.SetDefault("self_rag.breaker_interval", "60s")
	v.SetDefault("self_rag.breaker_timeout", "30s")
	v.SetDefault("self_rag.breaker_consecutive_failures", 5)

	v.SetDefault("evaluation.provider", "internal")

	v.SetDefault("session.max_messages", 20)

	v.SetDefault("rerank.strategy", "cross_encoder")
	v.SetDefault("rerank.top_n", 10)
}
