package config

import (
	"github.com/ragforge/retrieval/cache"
	"github.com/ragforge/retrieval/evaluation"
	"github.com/ragforge/retrieval/generation"
	"github.com/ragforge/retrieval/hybrid"
	"github.com/ragforge/retrieval/orchestrator"
	"github.com/ragforge/retrieval/queryexpand"
	"github.com/ragforge/retrieval/scoring"
	"github.com/ragforge/retrieval/selfrag"
	"github.com/ragforge/retrieval/session"
)

// ToCacheConfig adapts the decoded cache section to cache.Config. Backend-
// specific dependencies (a live *redis.Client, an embedding.Embedder) are
// not config-shaped and must be supplied by the caller after loading.
func (c CacheConfig) ToCacheConfig() *cache.Config {
	return &cache.Config{
		Kind:                cache.Kind(c.Kind),
		MaxSize:             c.MaxSize,
		DefaultTTL:          c.DefaultTTL,
		RedisKeyPrefix:      c.RedisKeyPrefix,
		OperationTimeout:    c.OperationTimeout,
		SimilarityThreshold: c.SimilarityThreshold,
	}
}

func (c ScoringConfig) ToScoringConfig() *scoring.Config {
	return &scoring.Config{
		CollectionWeightEnabled: c.CollectionWeightEnabled,
		FileTypeWeightEnabled:   c.FileTypeWeightEnabled,
		CollectionWeights:       c.CollectionWeights,
		FileTypeWeights:         c.FileTypeWeights,
	}
}

func (c OrchestratorConfig) ToOrchestratorConfig() *orchestrator.Config {
	return &orchestrator.Config{
		DiversityCapFileType: c.DiversityCapFileType,
		DiversityCapLimit:    c.DiversityCapLimit,
		RRFK:                 c.RRFK,
		GraphHybridEnabled:   c.GraphHybridEnabled,
		GraphAutoEnable:      c.GraphAutoEnable,
	}
}

func (c HybridConfig) ToHybridConfig() *hybrid.Config {
	return &hybrid.Config{
		VectorWeight: c.VectorWeight,
		GraphWeight:  c.GraphWeight,
		RRFK:         c.RRFK,
	}
}

// ToLLMConfig builds a queryexpand.LLMConfig around gen, the one dependency
// this section of config cannot express declaratively.
func (c QueryExpandConfig) ToLLMConfig(gen generation.Generator) *queryexpand.LLMConfig {
	return &queryexpand.LLMConfig{Generator: gen, NumAlternates: c.NumAlternates}
}

func (c SelfRAGConfig) ToSelfRAGConfig() *selfrag.Config {
	return &selfrag.Config{
		SelfRAGEnabled:             c.Enabled,
		AcceptThreshold:            c.AcceptThreshold,
		RegenerateThreshold:        c.RegenerateThreshold,
		BreakerMaxRequests:         c.BreakerMaxRequests,
		BreakerInterval:            c.BreakerInterval,
		BreakerTimeout:             c.BreakerTimeout,
		BreakerConsecutiveFailures: c.BreakerConsecutiveFailures,
	}
}

func (c EvaluationConfig) ToEvaluationConfig() *evaluation.Config {
	return &evaluation.Config{
		Enabled:  c.Enabled,
		Provider: evaluation.Provider(c.Provider),
	}
}

func (c SessionConfig) ToSessionConfig() *session.Config {
	return &session.Config{MaxMessages: c.MaxMessages}
}
