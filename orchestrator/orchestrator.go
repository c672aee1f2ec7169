// Package orchestrator is the retrieval facade: it composes a vector
// retriever with an optional reranker, cache, query-expansion engine, graph
// store, and hybrid strategy behind a single search_and_rerank-shaped
// pipeline, handling multi-query fan-out, RRF merging, scoring, diversity
// enforcement, and graceful degradation.
package orchestrator

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ragforge/retrieval/cache"
	"github.com/ragforge/retrieval/document"
	"github.com/ragforge/retrieval/graph"
	"github.com/ragforge/retrieval/hybrid"
	"github.com/ragforge/retrieval/queryexpand"
	"github.com/ragforge/retrieval/rerank"
	"github.com/ragforge/retrieval/scoring"
	"github.com/ragforge/retrieval/vectorstore"
)

const (
	// DefaultTopK is used when a caller does not specify one.
	DefaultTopK = 15

	// DefaultDiversityCapFileType is the file type the diversity cap
	// restricts by default.
	DefaultDiversityCapFileType = "TXT"

	// DefaultDiversityCapLimit bounds how many results of
	// DefaultDiversityCapFileType may appear in one returned list.
	DefaultDiversityCapLimit = 15

	// DefaultRRFK is the RRF constant used by the multi-query merge.
	DefaultRRFK = 60

	scoreBeforeWeightKey = "_score_before_weight"
	queryAppearancesKey  = "query_appearances"
	collectionMetaKey    = "_collection"
	fileTypeMetaKey      = "file_type"
)

// Config configures an Orchestrator.
type Config struct {
	DiversityCapFileType string
	DiversityCapLimit    int
	RRFK                 int

	// GraphHybridEnabled mirrors graph_rag.hybrid_search.enabled: whether a
	// hybrid strategy should be constructed/used when a graph store is
	// wired. Defaults to true when a graph store is present.
	GraphHybridEnabled bool
	// GraphAutoEnable mirrors graph_rag.hybrid_search.auto_enable: whether
	// hybrid search runs by default when the caller does not override
	// use_graph.
	GraphAutoEnable bool

	Logger *slog.Logger
}

func (c *Config) validate() {
	if c.DiversityCapFileType == "" {
		c.DiversityCapFileType = DefaultDiversityCapFileType
	}
	if c.DiversityCapLimit <= 0 {
		c.DiversityCapLimit = DefaultDiversityCapLimit
	}
	if c.RRFK <= 0 {
		c.RRFK = DefaultRRFK
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Stats reports cumulative pipeline counters.
type Stats struct {
	TotalRequests       int64
	CacheHits           int64
	CacheMisses         int64
	QueryExpansionCount int64
	RetrievalCount      int64
	HybridSearchCount   int64
	RerankCount         int64
}

// Deps wires the Orchestrator's collaborators. Retriever is required;
// everything else is optional.
type Deps struct {
	Retriever      vectorstore.Retriever
	Reranker       rerank.Reranker
	Cache          cache.Cache
	QueryExpander  queryexpand.Engine
	GraphStore     graph.Store
	HybridStrategy *hybrid.Strategy
	Scoring        *scoring.Service
}

// Orchestrator is the retrieval facade.
type Orchestrator struct {
	retriever      vectorstore.Retriever
	reranker       rerank.Reranker
	cacheImpl      cache.Cache
	queryExpander  queryexpand.Engine
	graphStore     graph.Store
	hybridStrategy *hybrid.Strategy
	scoringSvc     *scoring.Service

	diversityCapFileType string
	diversityCapLimit    int
	rrfK                 int
	autoUseGraph         bool
	logger               *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// New constructs an Orchestrator. If deps.GraphStore is set and no
// HybridStrategy was explicitly injected, one is constructed internally
// when cfg.GraphHybridEnabled holds (or is left zero-valued, since a graph
// store implies hybrid search is wanted by default).
func New(deps Deps, cfg *Config) *Orchestrator {
	if cfg == nil {
		cfg = &Config{}
	}
	if deps.GraphStore != nil && !cfg.GraphHybridEnabled {
		cfg.GraphHybridEnabled = true
	}
	cfg.validate()

	hybridStrategy := deps.HybridStrategy
	if hybridStrategy == nil && deps.GraphStore != nil && cfg.GraphHybridEnabled {
		hybridStrategy = hybrid.New(deps.Retriever, deps.GraphStore, nil)
	}

	autoUseGraph := cfg.GraphAutoEnable && hybridStrategy != nil && cfg.GraphHybridEnabled

	return &Orchestrator{
		retriever:             deps.Retriever,
		reranker:              deps.Reranker,
		cacheImpl:             deps.Cache,
		queryExpander:         deps.QueryExpander,
		graphStore:            deps.GraphStore,
		hybridStrategy:        hybridStrategy,
		scoringSvc:            deps.Scoring,
		diversityCapFileType:  cfg.DiversityCapFileType,
		diversityCapLimit:     cfg.DiversityCapLimit,
		rrfK:                  cfg.RRFK,
		autoUseGraph:          autoUseGraph,
		logger:                cfg.Logger,
	}
}

// SearchOptions parameterizes one search_and_rerank call. Nil pointer
// fields take their documented default.
type SearchOptions struct {
	TopK                  int
	Filter                vectorstore.Filter
	RerankEnabled         *bool
	QueryExpansionEnabled *bool
	UseGraph              *bool
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// Search runs the full search_and_rerank pipeline. It never returns an
// error: any unexpected failure anywhere in the pipeline is caught and
// degrades to an empty result so the service keeps serving.
func (o *Orchestrator) Search(ctx context.Context, query string, opts *SearchOptions) (results []*document.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("orchestrator: recovered from panic in search_and_rerank", "panic", r)
			results = nil
		}
	}()

	if opts == nil {
		opts = &SearchOptions{}
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	o.mu.Lock()
	o.stats.TotalRequests++
	o.mu.Unlock()

	effectiveUseGraph := boolOr(opts.UseGraph, o.autoUseGraph)

	var cacheKey string
	if o.cacheImpl != nil {
		cacheKey = cache.GenerateCacheKey(query, topK, opts.Filter)
		if cached, hit := o.safeCacheGet(ctx, cacheKey); hit {
			o.mu.Lock()
			o.stats.CacheHits++
			o.mu.Unlock()
			return applyDiversityCap(cached, o.diversityCapFileType, o.diversityCapLimit)
		}
		o.mu.Lock()
		o.stats.CacheMisses++
		o.mu.Unlock()
	}

	expanded := o.expandQuery(ctx, query, opts)

	fetched := o.retrieve(ctx, query, expanded, topK, opts.Filter, effectiveUseGraph)

	if o.scoringSvc != nil && o.scoringSvc.Active() {
		applyScoringWeights(fetched, o.scoringSvc)
	}

	finalResults := fetched
	if boolOr(opts.RerankEnabled, true) && o.reranker != nil && len(fetched) > 0 {
		reranked := o.reranker.Rerank(ctx, query, fetched, topK)
		if len(reranked) > 0 {
			finalResults = reranked
			o.mu.Lock()
			o.stats.RerankCount++
			o.mu.Unlock()
		}
	}

	finalResults = applyDiversityCap(finalResults, o.diversityCapFileType, o.diversityCapLimit)

	if o.cacheImpl != nil {
		o.safeCacheSet(ctx, cacheKey, finalResults)
	}

	return finalResults
}

func (o *Orchestrator) safeCacheGet(ctx context.Context, key string) (results []*document.Result, hit bool) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("orchestrator: cache get panicked", "panic", r)
			hit = false
		}
	}()
	return o.cacheImpl.Get(ctx, key)
}

func (o *Orchestrator) safeCacheSet(ctx context.Context, key string, results []*document.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("orchestrator: cache set panicked", "panic", r)
		}
	}()
	if err := o.cacheImpl.Set(ctx, key, results, 0); err != nil {
		o.logger.Warn("orchestrator: cache set failed", "error", err)
	}
}

func (o *Orchestrator) expandQuery(ctx context.Context, query string, opts *SearchOptions) *queryexpand.ExpandedQuery {
	if o.queryExpander == nil || !boolOr(opts.QueryExpansionEnabled, true) {
		return queryexpand.Fallback(query)
	}

	expanded, err := o.queryExpander.Expand(ctx, query, "")
	if err != nil || expanded == nil {
		return queryexpand.Fallback(query)
	}

	o.mu.Lock()
	o.stats.QueryExpansionCount++
	o.mu.Unlock()
	return expanded
}

func (o *Orchestrator) retrieve(ctx context.Context, query string, expanded *queryexpand.ExpandedQuery, topK int, filter vectorstore.Filter, effectiveUseGraph bool) []*document.Result {
	if effectiveUseGraph && o.hybridStrategy != nil {
		hr, err := o.hybridStrategy.Search(ctx, query, topK*2, &hybrid.SearchOptions{Filter: filter})
		o.mu.Lock()
		o.stats.HybridSearchCount++
		o.mu.Unlock()
		if err != nil {
			o.logger.Error("orchestrator: hybrid search failed", "error", err)
			return nil
		}
		return hr.Documents
	}

	if len(expanded.Queries) <= 1 {
		req := &vectorstore.RetrievalRequest{Query: query, TopK: topK * 2, Filter: filter}
		results, err := o.retriever.Retrieve(ctx, req)
		o.mu.Lock()
		o.stats.RetrievalCount++
		o.mu.Unlock()
		if err != nil {
			o.logger.Error("orchestrator: retrieval failed", "error", err)
			return nil
		}
		return results
	}

	return o.multiQueryRetrieve(ctx, expanded, topK, filter)
}

// multiQueryRetrieve runs one retrieval per expanded query in parallel and
// RRF-merges the results, weighting each query's contribution by its
// expansion weight. A failing query degrades its own contribution to zero
// without failing the request.
func (o *Orchestrator) multiQueryRetrieve(ctx context.Context, expanded *queryexpand.ExpandedQuery, topK int, filter vectorstore.Filter) []*document.Result {
	n := len(expanded.Queries)
	perQuery := make([][]*document.Result, n)

	g, gctx := errgroup.WithContext(ctx)
	for i := range expanded.Queries {
		i := i
		g.Go(func() error {
			req := &vectorstore.RetrievalRequest{Query: expanded.Queries[i], TopK: topK * 2, Filter: filter}
			results, err := o.retriever.Retrieve(gctx, req)
			if err != nil {
				o.logger.Error("orchestrator: multi-query retrieval failed", "query_index", i, "error", err)
				return nil
			}
			perQuery[i] = results
			return nil
		})
	}
	_ = g.Wait()

	o.mu.Lock()
	o.stats.RetrievalCount += int64(n)
	o.mu.Unlock()

	return rrfMergeQueries(perQuery, expanded.Weights, o.rrfK)
}

// rrfMergeQueries merges per-query ranked result lists via weighted RRF:
// score(id) = Σ weight_i / (k + rank_i(id)) over queries where id appeared.
func rrfMergeQueries(perQuery [][]*document.Result, weights []float64, k int) []*document.Result {
	scores := map[string]float64{}
	appearances := map[string]int{}
	firstSeen := map[string]*document.Result{}
	var order []string

	for qi, results := range perQuery {
		weight := 1.0
		if qi < len(weights) {
			weight = weights[qi]
		}
		for rank, r := range results {
			if _, ok := firstSeen[r.ID]; !ok {
				firstSeen[r.ID] = r
				order = append(order, r.ID)
			}
			scores[r.ID] += weight * (1.0 / float64(k+rank+1))
			appearances[r.ID]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })

	out := make([]*document.Result, 0, len(order))
	for _, id := range order {
		clone := firstSeen[id].Clone()
		clone.Score = scores[id]
		if clone.Metadata == nil {
			clone.Metadata = map[string]any{}
		}
		clone.Metadata[queryAppearancesKey] = appearances[id]
		out = append(out, clone)
	}
	return out
}

func applyScoringWeights(results []*document.Result, svc *scoring.Service) {
	for _, r := range results {
		before := r.Score
		collection := r.MetaString(collectionMetaKey, "")
		fileType := r.MetaString(fileTypeMetaKey, "")
		r.Score = svc.ApplyWeight(r.Score, collection, fileType)
		if r.Metadata == nil {
			r.Metadata = map[string]any{}
		}
		r.Metadata[scoreBeforeWeightKey] = before
	}
}

// applyDiversityCap limits how many results of fileType may appear in the
// returned list, preserving relative order and passing all other file
// types through unchanged.
func applyDiversityCap(results []*document.Result, fileType string, limit int) []*document.Result {
	out := make([]*document.Result, 0, len(results))
	count := 0
	for _, r := range results {
		if r.MetaString(fileTypeMetaKey, "") == fileType {
			if count >= limit {
				continue
			}
			count++
		}
		out = append(out, r)
	}
	return out
}

// StatsSnapshot returns a copy of the current cumulative stats.
func (o *Orchestrator) StatsSnapshot() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}

// simpleMergeQueries merges per-query ranked result lists without rank
// reweighting: first-seen order is kept and the result is sorted by each
// document's own retrieval score. Unlike rrfMergeQueries it does not
// reward documents that co-occur across multiple expanded queries. Not
// used by Search's default pipeline (which always RRF-merges per spec),
// kept as a documented alternative merge strategy a future caller can
// wire in.
func simpleMergeQueries(perQuery [][]*document.Result, topK int) []*document.Result {
	seen := map[string]bool{}
	var merged []*document.Result
	for _, results := range perQuery {
		for _, r := range results {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })

	if topK > 0 && len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}

// healthChecker is an optional capability: a collaborator that can report
// its own connectivity, matching spec §4.3's fast health-check contract.
// Collaborators that don't implement it (e.g. the in-memory cache/graph
// backends) are always reported healthy.
type healthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// Health reports the fast connectivity state of each optional collaborator.
// A nil field means that collaborator is not wired at all.
type Health struct {
	Cache     *bool
	Retriever *bool
	Graph     *bool
}

func checkHealth(ctx context.Context, v any) bool {
	hc, ok := v.(healthChecker)
	if !ok {
		return true
	}
	return hc.HealthCheck(ctx)
}

// HealthCheck runs the fast health check against every wired collaborator
// that supports one. It never blocks on a slow backend op and never
// panics: an unhealthy collaborator is reported as false, not an error.
func (o *Orchestrator) HealthCheck(ctx context.Context) Health {
	var h Health
	if o.cacheImpl != nil {
		ok := checkHealth(ctx, o.cacheImpl)
		h.Cache = &ok
	}
	if o.retriever != nil {
		ok := checkHealth(ctx, o.retriever)
		h.Retriever = &ok
	}
	if o.graphStore != nil {
		ok := checkHealth(ctx, o.graphStore)
		h.Graph = &ok
	}
	return h
}
