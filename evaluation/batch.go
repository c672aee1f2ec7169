package evaluation

import "context"

// BatchLibrary is a thin adapter boundary for an external batch-evaluation
// library (a Ragas-equivalent): it accepts samples and returns per-metric
// scores for each, in one call. No such Go binding exists in the present
// dependency set; BatchEvaluator degrades gracefully when none is wired.
type BatchLibrary interface {
	Evaluate(ctx context.Context, samples []Sample) ([]map[string]float64, error)
}

// BatchConfig configures a BatchEvaluator.
type BatchConfig struct {
	Library BatchLibrary
}

// BatchEvaluator adapts an external batch-evaluation library to the
// Evaluator interface. When no Library is configured, IsAvailable returns
// false and every call returns the neutral result.
type BatchEvaluator struct {
	library BatchLibrary
}

// NewBatchEvaluator constructs a BatchEvaluator. A nil Library is allowed.
func NewBatchEvaluator(cfg *BatchConfig) *BatchEvaluator {
	if cfg == nil {
		cfg = &BatchConfig{}
	}
	return &BatchEvaluator{library: cfg.Library}
}

func (e *BatchEvaluator) Name() string { return "ragas" }

func (e *BatchEvaluator) IsAvailable() bool { return e.library != nil }

func (e *BatchEvaluator) Evaluate(ctx context.Context, query, answer string, context []string, reference string) (Result, error) {
	results, err := e.BatchEvaluate(ctx, []Sample{{Query: query, Answer: answer, Context: context, Reference: reference}})
	if err != nil || len(results) == 0 {
		return Neutral("batch library unavailable or returned no results"), nil
	}
	return results[0], nil
}

func (e *BatchEvaluator) BatchEvaluate(ctx context.Context, samples []Sample) ([]Result, error) {
	if !e.IsAvailable() {
		return neutralBatch(len(samples), "batch library not installed"), nil
	}

	scored, err := e.library.Evaluate(ctx, samples)
	if err != nil {
		return neutralBatch(len(samples), "batch library call failed"), nil
	}

	results := make([]Result, len(samples))
	for i := range samples {
		if i >= len(scored) {
			results[i] = Neutral("batch library returned fewer results than samples")
			continue
		}
		results[i] = mapToResult(scored[i])
	}
	return results, nil
}

func mapToResult(metrics map[string]float64) Result {
	faithfulness := clamp01(metrics["faithfulness"])
	relevance := clamp01(metrics["relevance"])
	overall, ok := metrics["overall"]
	if !ok {
		overall = 0.5*faithfulness + 0.5*relevance
	}
	raw := make(map[string]any, len(metrics))
	for k, v := range metrics {
		raw[k] = v
	}
	return Result{
		Faithfulness: faithfulness,
		Relevance:    relevance,
		Overall:      clamp01(overall),
		RawScores:    raw,
	}
}

func neutralBatch(n int, reason string) []Result {
	out := make([]Result, n)
	for i := range out {
		out[i] = Neutral(reason)
	}
	return out
}

var _ Evaluator = (*BatchEvaluator)(nil)
