package evaluation

import "fmt"

// Provider selects which Evaluator implementation a Config builds.
type Provider string

const (
	ProviderInternal Provider = "internal"
	ProviderRagas    Provider = "ragas"
)

// Config selects and configures an Evaluator. Enabled=false yields a nil
// Evaluator from New, regardless of Provider.
type Config struct {
	Enabled  bool
	Provider Provider

	Internal *InternalConfig
	Ragas    *BatchConfig
}

// New builds an Evaluator from cfg, or nil if cfg is nil or cfg.Enabled is
// false.
func New(cfg *Config) (Evaluator, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Provider {
	case ProviderInternal, "":
		return NewInternalEvaluator(cfg.Internal), nil
	case ProviderRagas:
		return NewBatchEvaluator(cfg.Ragas), nil
	default:
		return nil, fmt.Errorf("evaluation: unsupported provider %q", cfg.Provider)
	}
}
