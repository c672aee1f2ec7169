package orchestrator

import (
	"testing"

	"github.com/ragforge/retrieval/document"
)

func TestRRFMergeQueries_CooccurringDocRanksHighest(t *testing.T) {
	q1 := []*document.Result{{ID: "a", Text: "a"}, {ID: "b", Text: "b"}}
	q2 := []*document.Result{{ID: "a", Text: "a"}, {ID: "c", Text: "c"}}

	out := rrfMergeQueries([][]*document.Result{q1, q2}, []float64{1.0, 0.8}, 60)
	if len(out) == 0 || out[0].ID != "a" {
		t.Fatalf("expected doc 'a' (co-occurring) to rank first, got %+v", out)
	}
}

func TestRRFMergeQueries_AttachesQueryAppearances(t *testing.T) {
	q1 := []*document.Result{{ID: "a", Text: "a", Metadata: map[string]any{}}}
	q2 := []*document.Result{{ID: "a", Text: "a", Metadata: map[string]any{}}}

	out := rrfMergeQueries([][]*document.Result{q1, q2}, []float64{1.0, 1.0}, 60)
	if out[0].Metadata[queryAppearancesKey] != 2 {
		t.Fatalf("expected query_appearances=2, got %v", out[0].Metadata[queryAppearancesKey])
	}
}

func TestRRFMergeQueries_EmptyQueryContributesZero(t *testing.T) {
	q1 := []*document.Result{{ID: "a", Text: "a"}}
	var q2 []*document.Result

	out := rrfMergeQueries([][]*document.Result{q1, q2}, []float64{1.0, 1.0}, 60)
	if len(out) != 1 || out[0].ID != "a" {
		t.Fatalf("expected only doc 'a' to survive, got %+v", out)
	}
}

func TestApplyDiversityCap_PreservesOrderAndCount(t *testing.T) {
	docs := []*document.Result{
		{ID: "1", Metadata: map[string]any{"file_type": "TXT"}},
		{ID: "2", Metadata: map[string]any{"file_type": "PDF"}},
		{ID: "3", Metadata: map[string]any{"file_type": "TXT"}},
	}
	out := applyDiversityCap(docs, "TXT", 1)
	if len(out) != 2 {
		t.Fatalf("expected 2 results (1 TXT + 1 PDF), got %d", len(out))
	}
	if out[0].ID != "1" || out[1].ID != "2" {
		t.Fatalf("expected order preserved, got %+v", out)
	}
}
