// Package memory is an in-process, single-instance graph.Store: a directed
// adjacency-list graph held in memory, lost on restart. With an Embedder
// configured, Search ranks the entities that carry an embedding by cosine
// similarity; when no entity was scored that way, it falls back to a
// case-insensitive substring match on entity name.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/ragforge/retrieval/embedding"
	"github.com/ragforge/retrieval/graph"
)

// Config configures a Store. Embedder is optional: without one, Search
// always falls back to substring match.
type Config struct {
	Embedder embedding.Embedder
}

// Store is an in-memory graph.Store.
type Store struct {
	mu       sync.RWMutex
	embedder embedding.Embedder

	entities map[string]graph.Entity
	// outgoing and incoming map an entity id to the relations leaving and
	// entering it, supporting bidirectional traversal.
	outgoing map[string][]graph.Relation
	incoming map[string][]graph.Relation
	relations map[string]graph.Relation
}

// New constructs an in-memory graph Store.
func New(cfg *Config) *Store {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Store{
		embedder:  cfg.Embedder,
		entities:  make(map[string]graph.Entity),
		outgoing:  make(map[string][]graph.Relation),
		incoming:  make(map[string][]graph.Relation),
		relations: make(map[string]graph.Relation),
	}
}

// AddEntity upserts e by id; the last write wins.
func (s *Store) AddEntity(_ context.Context, e graph.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.ID] = e
	return nil
}

func relKey(sourceID, targetID, relType string) string {
	return sourceID + "\x00" + targetID + "\x00" + relType
}

// AddRelation upserts r (MERGE semantics: at most one edge per (source,
// target, type) triple), auto-creating missing endpoints as placeholder
// "unknown"-typed entities.
func (s *Store) AddRelation(_ context.Context, r graph.Relation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensurePlaceholderLocked(r.SourceID)
	s.ensurePlaceholderLocked(r.TargetID)

	key := relKey(r.SourceID, r.TargetID, r.Type)
	if _, exists := s.relations[key]; !exists {
		s.outgoing[r.SourceID] = append(s.outgoing[r.SourceID], r)
		s.incoming[r.TargetID] = append(s.incoming[r.TargetID], r)
	} else {
		s.replaceRelationLocked(r.SourceID, key, r)
		s.replaceIncomingLocked(r.TargetID, key, r)
	}
	s.relations[key] = r
	return nil
}

func (s *Store) replaceRelationLocked(sourceID, key string, r graph.Relation) {
	list := s.outgoing[sourceID]
	for i, existing := range list {
		if relKey(existing.SourceID, existing.TargetID, existing.Type) == key {
			list[i] = r
			return
		}
	}
}

func (s *Store) replaceIncomingLocked(targetID, key string, r graph.Relation) {
	list := s.incoming[targetID]
	for i, existing := range list {
		if relKey(existing.SourceID, existing.TargetID, existing.Type) == key {
			list[i] = r
			return
		}
	}
}

func (s *Store) ensurePlaceholderLocked(id string) {
	if _, ok := s.entities[id]; !ok {
		s.entities[id] = graph.Entity{ID: id, Name: id, Type: graph.UnknownType}
	}
}

// GetEntity returns the entity stored under id.
func (s *Store) GetEntity(_ context.Context, id string) (*graph.Entity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

// GetNeighbors performs a breadth-first traversal up to maxDepth hops,
// visiting relations in both directions and deduplicating reached
// entities.
func (s *Store) GetNeighbors(_ context.Context, id string, relationTypes []string, maxDepth int) (graph.GraphSearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if maxDepth <= 0 {
		maxDepth = 1
	}
	typeSet := toSet(relationTypes)

	visited := map[string]bool{id: true}
	relationsSeen := map[string]bool{}
	var result graph.GraphSearchResult

	frontier := []string{id}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, current := range frontier {
			for _, r := range s.touchingLocked(current) {
				if len(typeSet) > 0 && !typeSet[r.Type] {
					continue
				}
				other := r.TargetID
				if other == current {
					other = r.SourceID
				}

				rk := relKey(r.SourceID, r.TargetID, r.Type)
				if !relationsSeen[rk] {
					relationsSeen[rk] = true
					result.Relations = append(result.Relations, r)
				}

				if !visited[other] {
					visited[other] = true
					next = append(next, other)
					if e, ok := s.entities[other]; ok {
						result.Entities = append(result.Entities, graph.ScoredEntity{Entity: e, Score: 1})
					}
				}
			}
		}
		frontier = next
	}

	if len(result.Entities) > 0 {
		result.Score = 1.0
	}
	return result, nil
}

func (s *Store) touchingLocked(id string) []graph.Relation {
	out := make([]graph.Relation, 0, len(s.outgoing[id])+len(s.incoming[id]))
	out = append(out, s.outgoing[id]...)
	out = append(out, s.incoming[id]...)
	return out
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// Search ranks entities by cosine similarity against an embedded query
// when an Embedder is configured; otherwise it falls back to a
// case-insensitive substring match on entity name.
func (s *Store) Search(ctx context.Context, query string, entityTypes []string, topK int) (graph.GraphSearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	typeSet := toSet(entityTypes)

	var scored []graph.ScoredEntity
	var usedEmbedding bool
	if s.embedder != nil {
		vec, err := s.embedder.EmbedQuery(ctx, query)
		if err == nil {
			usedEmbedding = true
			for _, e := range s.entities {
				if len(typeSet) > 0 && !typeSet[e.Type] {
					continue
				}
				if len(e.Embedding) == 0 {
					continue
				}
				scored = append(scored, graph.ScoredEntity{Entity: e, Score: cosineSimilarity(vec, e.Embedding)})
			}
		}
	}

	if scored == nil {
		usedEmbedding = false
		lower := strings.ToLower(query)
		for _, e := range s.entities {
			if len(typeSet) > 0 && !typeSet[e.Type] {
				continue
			}
			if strings.Contains(strings.ToLower(e.Name), lower) {
				scored = append(scored, graph.ScoredEntity{Entity: e, Score: 1})
			}
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && topK < len(scored) {
		scored = scored[:topK]
	}

	var aggScore float64
	if len(scored) > 0 {
		if usedEmbedding {
			aggScore = scored[0].Score
		} else {
			aggScore = 1.0
		}
	}
	return graph.GraphSearchResult{Entities: scored, Score: aggScore}, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Clear removes every entity and relation.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = make(map[string]graph.Entity)
	s.outgoing = make(map[string][]graph.Relation)
	s.incoming = make(map[string][]graph.Relation)
	s.relations = make(map[string]graph.Relation)
	return nil
}

// Stats returns the current entity and relation counts.
func (s *Store) Stats(_ context.Context) (graph.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return graph.Stats{EntityCount: len(s.entities), RelationCount: len(s.relations)}, nil
}

var _ graph.Store = (*Store)(nil)
