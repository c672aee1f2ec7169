// Package hybrid fuses a dense vector search with a knowledge-graph search
// using weighted Reciprocal Rank Fusion (RRF), producing a single ranked
// document list.
package hybrid

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ragforge/retrieval/document"
	"github.com/ragforge/retrieval/graph"
	"github.com/ragforge/retrieval/vectorstore"
)

const (
	// DefaultVectorWeight is used when no explicit vector weight is given.
	DefaultVectorWeight = 0.6
	// DefaultGraphWeight is used when no explicit graph weight is given.
	DefaultGraphWeight = 0.4
	// DefaultRRFK is the RRF constant k.
	DefaultRRFK = 60

	vectorRankKey = "vector_rank"
	graphRankKey  = "graph_rank"
	hybridScoreKey = "hybrid_score"
)

// Result is the output of a hybrid search.
type Result struct {
	Documents   []*document.Result
	VectorCount int
	GraphCount  int
	TotalScore  float64
	Metadata    map[string]any
}

// Config configures a Strategy.
type Config struct {
	VectorWeight float64
	GraphWeight  float64
	RRFK         int
	Logger       *slog.Logger
}

func (c *Config) validate() {
	if c.VectorWeight == 0 && c.GraphWeight == 0 {
		c.VectorWeight = DefaultVectorWeight
		c.GraphWeight = DefaultGraphWeight
	}
	if c.RRFK <= 0 {
		c.RRFK = DefaultRRFK
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Strategy is a vector+graph hybrid search combining both sources with RRF.
// A nil GraphStore degrades it to vector-only search.
type Strategy struct {
	retriever  vectorstore.Retriever
	graphStore graph.Store

	defaultVectorWeight float64
	defaultGraphWeight  float64
	rrfK                int
	logger              *slog.Logger
}

// New constructs a Strategy. graphStore may be nil, in which case Search
// always runs vector-only.
func New(retriever vectorstore.Retriever, graphStore graph.Store, cfg *Config) *Strategy {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.validate()
	return &Strategy{
		retriever:           retriever,
		graphStore:          graphStore,
		defaultVectorWeight: cfg.VectorWeight,
		defaultGraphWeight:  cfg.GraphWeight,
		rrfK:                cfg.RRFK,
		logger:              cfg.Logger,
	}
}

// SearchOptions overrides the Strategy's default weights for one call.
type SearchOptions struct {
	VectorWeight *float64
	GraphWeight  *float64
	Filter       vectorstore.Filter
}

// Search executes vector and (if configured and weighted) graph search in
// parallel and fuses them via weighted RRF.
func (s *Strategy) Search(ctx context.Context, query string, topK int, opts *SearchOptions) (Result, error) {
	if topK <= 0 {
		return Result{Metadata: map[string]any{"query": query}}, nil
	}
	if opts == nil {
		opts = &SearchOptions{}
	}

	vWeight := s.defaultVectorWeight
	if opts.VectorWeight != nil {
		vWeight = *opts.VectorWeight
	}
	gWeight := s.defaultGraphWeight
	if opts.GraphWeight != nil {
		gWeight = *opts.GraphWeight
	}

	total := vWeight + gWeight
	if total > 0 {
		vWeight /= total
		gWeight /= total
	} else {
		vWeight, gWeight = 1.0, 0.0
	}

	var vectorResults, graphResults []*document.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vectorResults = s.vectorSearch(gctx, query, topK*2, opts.Filter)
		return nil
	})
	if s.graphStore != nil && gWeight > 0 {
		g.Go(func() error {
			graphResults = s.graphSearch(gctx, query, topK*2)
			return nil
		})
	}
	_ = g.Wait()

	combined, totalScore := s.combineWithRRF(vectorResults, graphResults, vWeight, gWeight, topK)

	return Result{
		Documents:   combined,
		VectorCount: len(vectorResults),
		GraphCount:  len(graphResults),
		TotalScore:  totalScore,
		Metadata: map[string]any{
			"vector_weight": vWeight,
			"graph_weight":  gWeight,
			"query":         query,
			"rrf_k":         s.rrfK,
		},
	}, nil
}

func (s *Strategy) vectorSearch(ctx context.Context, query string, topK int, filter vectorstore.Filter) []*document.Result {
	req := &vectorstore.RetrievalRequest{Query: query, TopK: topK, Filter: filter}
	results, err := s.retriever.Retrieve(ctx, req)
	if err != nil {
		s.logger.Error("hybrid: vector search failed", "error", err)
		return nil
	}
	return results
}

func (s *Strategy) graphSearch(ctx context.Context, query string, topK int) []*document.Result {
	if s.graphStore == nil {
		return nil
	}

	searchResult, err := s.graphStore.Search(ctx, query, nil, topK)
	if err != nil {
		s.logger.Error("hybrid: graph search failed", "error", err)
		return nil
	}

	var out []*document.Result
	for idx, scored := range searchResult.Entities {
		docID, ok := scored.Entity.Properties["doc_id"]
		if !ok {
			continue
		}
		id := fmt.Sprintf("%v", docID)
		out = append(out, &document.Result{
			ID:    id,
			Text:  "[graph] " + scored.Entity.Name,
			Score: scored.Score * (1.0 / float64(idx+1)),
			Metadata: map[string]any{
				"source":      "graph",
				"entity_id":   scored.Entity.ID,
				"entity_type": scored.Entity.Type,
				"graph_score": scored.Score,
			},
		})
	}
	return out
}

func (s *Strategy) combineWithRRF(vectorResults, graphResults []*document.Result, vWeight, gWeight float64, topK int) ([]*document.Result, float64) {
	vectorRanks := buildRanks(vectorResults)
	graphRanks := buildRanks(graphResults)

	firstSeen := make(map[string]*document.Result, len(vectorRanks)+len(graphRanks))
	order := make([]string, 0, len(vectorRanks)+len(graphRanks))
	for _, r := range append(append([]*document.Result{}, vectorResults...), graphResults...) {
		if _, ok := firstSeen[r.ID]; !ok {
			firstSeen[r.ID] = r
			order = append(order, r.ID)
		}
	}

	scores := make(map[string]float64, len(order))
	for _, id := range order {
		var score float64
		if rank, ok := vectorRanks[id]; ok {
			score += vWeight * (1.0 / float64(s.rrfK+rank))
		}
		if rank, ok := graphRanks[id]; ok {
			score += gWeight * (1.0 / float64(s.rrfK+rank))
		}
		scores[id] = score
	}

	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })
	ids := order
	if topK < len(ids) {
		ids = ids[:topK]
	}

	out := make([]*document.Result, 0, len(ids))
	var sum float64
	for _, id := range ids {
		base, ok := firstSeen[id]
		if !ok {
			continue
		}
		clone := base.Clone()
		clone.Score = scores[id]
		if clone.Metadata == nil {
			clone.Metadata = map[string]any{}
		}
		clone.Metadata[hybridScoreKey] = scores[id]
		if rank, ok := vectorRanks[id]; ok {
			clone.Metadata[vectorRankKey] = rank
		}
		if rank, ok := graphRanks[id]; ok {
			clone.Metadata[graphRankKey] = rank
		}
		out = append(out, clone)
		sum += scores[id]
	}

	var totalScore float64
	if len(out) > 0 {
		totalScore = sum / float64(len(out))
	}
	return out, totalScore
}

func buildRanks(results []*document.Result) map[string]int {
	ranks := make(map[string]int, len(results))
	for i, r := range results {
		if _, exists := ranks[r.ID]; !exists {
			ranks[r.ID] = i + 1
		}
	}
	return ranks
}
