package rerank

import (
	"context"

	"github.com/ragforge/retrieval/document"
)

type stubReranker struct {
	tag    string
	called int
}

func (s *stubReranker) Rerank(_ context.Context, _ string, results []*document.Result, topN int) []*document.Result {
	s.called++
	out := document.CloneAll(results)
	for _, r := range out {
		r.Metadata[MethodKey] = s.tag
	}
	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}
	return out
}

func (s *stubReranker) SupportsCaching() bool { return true }
func (s *stubReranker) Stats() Stats          { return Stats{TotalRequests: int64(s.called)} }

var _ Reranker = (*stubReranker)(nil)
