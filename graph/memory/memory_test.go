package memory

import (
	"context"
	"testing"

	"github.com/ragforge/retrieval/graph"
)

func TestStore_AddEntityIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	_ = s.AddEntity(ctx, graph.Entity{ID: "e1", Name: "first"})
	_ = s.AddEntity(ctx, graph.Entity{ID: "e1", Name: "second"})

	e, ok, _ := s.GetEntity(ctx, "e1")
	if !ok || e.Name != "second" {
		t.Fatalf("expected last write to win, got %+v", e)
	}

	stats, _ := s.Stats(ctx)
	if stats.EntityCount != 1 {
		t.Fatalf("expected 1 entity, got %d", stats.EntityCount)
	}
}

func TestStore_AddRelationCreatesPlaceholderEndpoints(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	_ = s.AddRelation(ctx, graph.Relation{SourceID: "a", TargetID: "b", Type: "knows"})

	a, ok, _ := s.GetEntity(ctx, "a")
	if !ok || a.Type != graph.UnknownType {
		t.Fatalf("expected placeholder entity 'a' of unknown type, got %+v", a)
	}
	b, ok, _ := s.GetEntity(ctx, "b")
	if !ok || b.Type != graph.UnknownType {
		t.Fatalf("expected placeholder entity 'b' of unknown type, got %+v", b)
	}
}

func TestStore_AddRelationMergeSemantics(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	_ = s.AddRelation(ctx, graph.Relation{SourceID: "a", TargetID: "b", Type: "knows", Weight: 1})
	_ = s.AddRelation(ctx, graph.Relation{SourceID: "a", TargetID: "b", Type: "knows", Weight: 2})

	stats, _ := s.Stats(ctx)
	if stats.RelationCount != 1 {
		t.Fatalf("expected MERGE semantics to collapse to 1 relation, got %d", stats.RelationCount)
	}
}

func TestStore_GetNeighborsBidirectionalAndDeduped(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	_ = s.AddRelation(ctx, graph.Relation{SourceID: "a", TargetID: "b", Type: "rel"})
	_ = s.AddRelation(ctx, graph.Relation{SourceID: "c", TargetID: "a", Type: "rel"})

	result, err := s.GetNeighbors(ctx, "a", nil, 1)
	if err != nil {
		t.Fatalf("GetNeighbors: %v", err)
	}
	if len(result.Entities) != 2 {
		t.Fatalf("expected 2 neighbors (b via outgoing, c via incoming), got %d", len(result.Entities))
	}
}

func TestStore_GetNeighborsRespectsMaxDepth(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	_ = s.AddRelation(ctx, graph.Relation{SourceID: "a", TargetID: "b", Type: "rel"})
	_ = s.AddRelation(ctx, graph.Relation{SourceID: "b", TargetID: "c", Type: "rel"})

	depth1, _ := s.GetNeighbors(ctx, "a", nil, 1)
	if len(depth1.Entities) != 1 {
		t.Fatalf("expected only 'b' at depth 1, got %d entities", len(depth1.Entities))
	}

	depth2, _ := s.GetNeighbors(ctx, "a", nil, 2)
	if len(depth2.Entities) != 2 {
		t.Fatalf("expected 'b' and 'c' at depth 2, got %d entities", len(depth2.Entities))
	}
}

func TestStore_SearchFallsBackToSubstringMatch(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	_ = s.AddEntity(ctx, graph.Entity{ID: "1", Name: "Golang Concurrency", Type: "doc"})
	_ = s.AddEntity(ctx, graph.Entity{ID: "2", Name: "Python Basics", Type: "doc"})

	result, err := s.Search(ctx, "golang", nil, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Entities) != 1 || result.Entities[0].Entity.ID != "1" {
		t.Fatalf("expected substring match on 'golang', got %+v", result.Entities)
	}
	if result.Score != 1.0 {
		t.Fatalf("expected aggregate score 1.0 on a substring match, got %v", result.Score)
	}
}

func TestStore_SearchNoMatchYieldsZeroScore(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	_ = s.AddEntity(ctx, graph.Entity{ID: "1", Name: "Golang Concurrency", Type: "doc"})

	result, err := s.Search(ctx, "rust", nil, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Entities) != 0 || result.Score != 0.0 {
		t.Fatalf("expected empty result with zero score, got %+v", result)
	}
}

func TestStore_GetNeighborsYieldsUnitScoreWhenFound(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	_ = s.AddRelation(ctx, graph.Relation{SourceID: "a", TargetID: "b", Type: "rel"})

	result, err := s.GetNeighbors(ctx, "a", nil, 1)
	if err != nil {
		t.Fatalf("GetNeighbors: %v", err)
	}
	if result.Score != 1.0 {
		t.Fatalf("expected score 1.0 when neighbors are found, got %v", result.Score)
	}
}

func TestStore_GetNeighborsYieldsZeroScoreWhenNoneFound(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	_ = s.AddEntity(ctx, graph.Entity{ID: "a", Name: "Lonely"})

	result, err := s.GetNeighbors(ctx, "a", nil, 1)
	if err != nil {
		t.Fatalf("GetNeighbors: %v", err)
	}
	if result.Score != 0.0 {
		t.Fatalf("expected score 0.0 when no neighbors are found, got %v", result.Score)
	}
}

func TestStore_ClearRemovesEverything(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	_ = s.AddRelation(ctx, graph.Relation{SourceID: "a", TargetID: "b", Type: "rel"})
	_ = s.Clear(ctx)

	stats, _ := s.Stats(ctx)
	if stats.EntityCount != 0 || stats.RelationCount != 0 {
		t.Fatalf("expected empty store after clear, got %+v", stats)
	}
}
