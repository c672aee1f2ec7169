// Package graph stores entities and the relations between them, offering
// neighbor traversal and a free-text/embedding search, behind a single
// Store interface shared by an in-memory reference backend and a Neo4j
// backend.
package graph

import (
	"context"
	"fmt"
)

// Entity is a named node in the graph, typed and carrying free-form
// properties (e.g. "doc_id" linking it back to a retrieved document).
type Entity struct {
	ID         string
	Name       string
	Type       string
	Properties map[string]any
	Embedding  []float32
}

// UnknownType is the placeholder type assigned to an entity that was
// auto-created as a relation endpoint rather than explicitly added.
const UnknownType = "unknown"

// Relation is a typed, directed edge between two entities.
type Relation struct {
	SourceID string
	TargetID string
	Type     string
	Weight   float64
	Properties map[string]any
}

// key returns the MERGE identity of a relation: at most one edge exists
// per (source, target, type) triple.
func (r Relation) key() string {
	return r.SourceID + "\x00" + r.TargetID + "\x00" + r.Type
}

// ScoredEntity pairs an Entity with a search or traversal relevance score.
type ScoredEntity struct {
	Entity Entity
	Score  float64
}

// GraphSearchResult is the output of a neighbor traversal or a graph
// search: the matched/reached entities plus the relations connecting them,
// and an aggregate Score in [0,1] summarizing match quality (0 when no
// entities were found, 1 on a BFS traversal or substring-name match, or the
// best cosine similarity among matches when embedding search was used).
type GraphSearchResult struct {
	Entities  []ScoredEntity
	Relations []Relation
	Score     float64
}

// Stats reports the current size of a Store.
type Stats struct {
	EntityCount   int
	RelationCount int
}

// Store is the capability every graph backend implements.
type Store interface {
	AddEntity(ctx context.Context, e Entity) error
	AddRelation(ctx context.Context, r Relation) error
	GetEntity(ctx context.Context, id string) (*Entity, bool, error)

	// GetNeighbors returns every entity reachable from id within maxDepth
	// hops (exclusive of id itself), deduplicated, traversing relations in
	// either direction. relationTypes, if non-empty, restricts traversal to
	// those relation types.
	GetNeighbors(ctx context.Context, id string, relationTypes []string, maxDepth int) (GraphSearchResult, error)

	// Search finds entities relevant to query, optionally restricted to
	// entityTypes, returning up to topK results.
	Search(ctx context.Context, query string, entityTypes []string, topK int) (GraphSearchResult, error)

	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}

// ErrEntityNotFound is returned by backends that distinguish "not found"
// from a transport/driver error; callers generally prefer the (v, false,
// nil) return of GetEntity instead of checking this directly.
var ErrEntityNotFound = fmt.Errorf("graph: entity not found")
