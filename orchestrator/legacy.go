package orchestrator

import (
	"context"

	"github.com/ragforge/retrieval/document"
	"github.com/ragforge/retrieval/vectorstore"
)

// SearchLegacy is a legacy adapter delegating to Search with reranking
// disabled, kept for callers migrating off an older search(query, options)
// signature.
func (o *Orchestrator) SearchLegacy(ctx context.Context, query string, opts *SearchOptions) []*document.Result {
	merged := cloneOptions(opts)
	disabled := false
	merged.RerankEnabled = &disabled
	return o.Search(ctx, query, merged)
}

// RerankLegacy is a legacy adapter delegating to Search with reranking
// enabled and an explicit top_n, kept for callers migrating off an older
// rerank(query, results, top_n) signature. It takes no result list: it
// always reranks this orchestrator's own freshly retrieved list.
func (o *Orchestrator) RerankLegacy(ctx context.Context, query string, topN int) []*document.Result {
	merged := &SearchOptions{TopK: topN}
	enabled := true
	merged.RerankEnabled = &enabled
	return o.Search(ctx, query, merged)
}

// AddDocuments delegates to the retriever when it implements
// vectorstore.Creator; returns false if the retriever does not support
// document creation.
func (o *Orchestrator) AddDocuments(ctx context.Context, docs []*document.Result) (bool, error) {
	creator, ok := o.retriever.(vectorstore.Creator)
	if !ok {
		return false, nil
	}
	req, err := vectorstore.NewCreateRequest(docs)
	if err != nil {
		return false, err
	}
	if err := creator.Create(ctx, req); err != nil {
		return false, err
	}
	return true, nil
}

func cloneOptions(opts *SearchOptions) *SearchOptions {
	if opts == nil {
		return &SearchOptions{}
	}
	cp := *opts
	return &cp
}
