// Package scoring applies optional, configuration-driven weight multipliers
// to retrieval scores. It follows a Blank System philosophy: with every
// toggle left at its default, Service.ApplyWeight is the identity function,
// so enabling the orchestrator's scoring stage never changes behavior until
// an operator opts in explicitly.
package scoring

import "strings"

// Config configures a Service.
type Config struct {
	// CollectionWeightEnabled toggles per-collection score multipliers.
	// Defaults to false (Plain Result: scores pass through unchanged).
	CollectionWeightEnabled bool

	// FileTypeWeightEnabled toggles per-file-type score multipliers.
	// Defaults to false (Plain Result: scores pass through unchanged).
	FileTypeWeightEnabled bool

	// CollectionWeights maps a collection name to its score multiplier.
	// A collection absent from this map gets multiplier 1.0 (safe fallback).
	CollectionWeights map[string]float64

	// FileTypeWeights maps a normalized (upper-cased) file type to its score
	// multiplier. A file type absent from this map gets multiplier 1.0.
	FileTypeWeights map[string]float64
}

func (c *Config) validate() error {
	if c == nil {
		return nil
	}
	if c.CollectionWeights == nil {
		c.CollectionWeights = map[string]float64{}
	}
	if c.FileTypeWeights == nil {
		c.FileTypeWeights = map[string]float64{}
	}
	return nil
}

// Service applies configured weight multipliers to retrieval scores.
type Service struct {
	collectionWeightEnabled bool
	fileTypeWeightEnabled   bool
	collectionWeights       map[string]float64
	fileTypeWeights         map[string]float64
}

// NewService constructs a Service from cfg. A nil cfg yields a Service whose
// ApplyWeight is the identity function.
func NewService(cfg *Config) *Service {
	if cfg == nil {
		cfg = &Config{}
	}
	_ = cfg.validate()

	return &Service{
		collectionWeightEnabled: cfg.CollectionWeightEnabled,
		fileTypeWeightEnabled:   cfg.FileTypeWeightEnabled,
		collectionWeights:       cfg.CollectionWeights,
		fileTypeWeights:         cfg.FileTypeWeights,
	}
}

// ApplyWeight multiplies score by the configured collection and file-type
// weights, in that order. Each toggle is independent: a disabled toggle
// leaves its factor at 1.0 regardless of the weights map contents. An
// unrecognized collection or file type also falls back to a 1.0 multiplier,
// so unconfigured values never distort scores.
func (s *Service) ApplyWeight(score float64, collection, fileType string) float64 {
	result := score

	if s.collectionWeightEnabled && collection != "" {
		if multiplier, ok := s.collectionWeights[collection]; ok {
			result *= multiplier
		}
	}

	if s.fileTypeWeightEnabled && fileType != "" {
		normalized := strings.ToUpper(fileType)
		if multiplier, ok := s.fileTypeWeights[normalized]; ok {
			result *= multiplier
		}
	}

	return result
}

// Active reports whether any weighting toggle is enabled. The orchestrator
// uses this to decide whether pre-weight scores need to be preserved in
// result metadata before ApplyWeight overwrites them.
func (s *Service) Active() bool {
	return s.collectionWeightEnabled || s.fileTypeWeightEnabled
}
