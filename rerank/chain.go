package rerank

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ragforge/retrieval/document"
)

// Stage is one link in a Chain: a Reranker plus whether it currently runs.
type Stage struct {
	Name     string
	Reranker Reranker
	Enabled  bool
}

// Chain runs an ordered sequence of rerankers, feeding stage i's output
// into stage i+1. A disabled or failing stage is transparent: its input
// flows through unchanged to the next stage (a Reranker's own fallback
// behavior already guarantees it never errors outward, so "failing" here
// only means a stage panics, which Chain also recovers from).
type Chain struct {
	stages []*Stage
	logger *slog.Logger

	mu         sync.Mutex
	stageStats map[string]Stats
}

// NewChain constructs a Chain from stages, run in the given order.
func NewChain(logger *slog.Logger, stages ...*Stage) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{stages: stages, logger: logger, stageStats: make(map[string]Stats)}
}

// Rerank runs every enabled stage in order against the running result
// list, finally truncating to topN.
func (c *Chain) Rerank(ctx context.Context, query string, results []*document.Result, topN int) []*document.Result {
	current := results
	for _, stage := range c.stages {
		if !stage.Enabled {
			continue
		}
		current = c.runStage(ctx, stage, query, current, topN)
	}

	if topN > 0 && topN < len(current) {
		current = current[:topN]
	}
	return current
}

func (c *Chain) runStage(ctx context.Context, stage *Stage, query string, input []*document.Result, topN int) (out []*document.Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("rerank: chain stage panicked, passing input through unchanged", "stage", stage.Name, "panic", r)
			out = input
		}
	}()

	out = stage.Reranker.Rerank(ctx, query, input, topN)

	c.mu.Lock()
	c.stageStats[stage.Name] = stage.Reranker.Stats()
	c.mu.Unlock()
	return out
}

// StageStats returns a snapshot of the most recent Stats recorded per
// stage name.
func (c *Chain) StageStats() map[string]Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]Stats, len(c.stageStats))
	for k, v := range c.stageStats {
		out[k] = v
	}
	return out
}
