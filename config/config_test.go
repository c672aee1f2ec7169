package config

import (
	"testing"
	"time"
)

func TestLoad_DefaultsAppliedWithoutConfigFile(t *testing.T) {
	loader, err := NewLoader("", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Cache.Kind != "memory" {
		t.Fatalf("expected default cache kind memory, got %q", cfg.Cache.Kind)
	}
	if cfg.Orchestrator.DiversityCapFileType != "TXT" {
		t.Fatalf("expected default diversity cap file type TXT, got %q", cfg.Orchestrator.DiversityCapFileType)
	}
	if cfg.SelfRAG.AcceptThreshold != 0.7 {
		t.Fatalf("expected default accept threshold 0.7, got %v", cfg.SelfRAG.AcceptThreshold)
	}
	if cfg.GraphRAG.AcquisitionTimeout != 60*time.Second {
		t.Fatalf("expected default acquisition timeout 60s, got %v", cfg.GraphRAG.AcquisitionTimeout)
	}
}

func TestLoad_EnvVarOverridesDefault(t *testing.T) {
	t.Setenv("RAGFORGE_CACHE_KIND", "redis")

	loader, err := NewLoader("", nil, "RAGFORGE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Cache.Kind != "redis" {
		t.Fatalf("expected env override to win, got %q", cfg.Cache.Kind)
	}
}

func TestValidate_RegenerateThresholdAboveAcceptIsRejected(t *testing.T) {
	cfg := &AppConfig{}
	cfg.SelfRAG.AcceptThreshold = 0.5
	cfg.SelfRAG.RegenerateThreshold = 0.9

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for inverted thresholds")
	}
}

func TestValidate_NegativeHybridWeightsRejected(t *testing.T) {
	cfg := &AppConfig{}
	cfg.Hybrid.VectorWeight = -0.1
	cfg.Hybrid.GraphWeight = 0.4

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for negative hybrid weight")
	}
}

func TestToCacheConfig_MapsFieldsThrough(t *testing.T) {
	c := CacheConfig{Kind: "semantic", MaxSize: 100, SimilarityThreshold: 0.8}
	out := c.ToCacheConfig()
	if string(out.Kind) != "semantic" || out.MaxSize != 100 || out.SimilarityThreshold != 0.8 {
		t.Fatalf("unexpected conversion: %+v", out)
	}
}
