// Package neo4j adapts a Neo4j (Cypher) database to the graph.Store
// interface: durable, multi-process storage with connection pooling,
// exponential-backoff retry on transient errors, and explicit transactional
// commit/rollback semantics.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/ragforge/retrieval/graph"
)

// Config configures a Neo4j-backed Store.
type Config struct {
	URI      string
	Username string
	Password string

	MaxPoolSize        int
	AcquisitionTimeout time.Duration
	QueryTimeout       time.Duration

	MaxRetries     int
	RetryBaseDelay time.Duration

	Logger *slog.Logger
}

func (c *Config) validate() error {
	if c.URI == "" {
		return errors.New("neo4j: uri is required")
	}
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = 50
	}
	if c.AcquisitionTimeout == 0 {
		c.AcquisitionTimeout = 60 * time.Second
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = 200 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Store is a graph.Store backed by a Neo4j database.
type Store struct {
	driver neo4j.DriverWithContext

	queryTimeout   time.Duration
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// New constructs a Neo4j-backed Store and verifies connectivity.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *config.Config) {
			c.MaxConnectionPoolSize = cfg.MaxPoolSize
			c.ConnectionAcquisitionTimeout = cfg.AcquisitionTimeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("neo4j: failed to create driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j: failed to verify connectivity: %w", err)
	}

	return &Store{
		driver:         driver,
		queryTimeout:   cfg.QueryTimeout,
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		logger:         cfg.Logger,
	}, nil
}

// Close shuts the driver down, releasing pooled connections.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// HealthCheck is the fast health check: it verifies driver connectivity
// within a short, bounded timeout without touching any data. Callers
// wanting a detailed check should pair this with Stats, which also
// confirms query execution end-to-end.
func (s *Store) HealthCheck(ctx context.Context) bool {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.driver.VerifyConnectivity(opCtx) == nil
}

func isTransient(err error) bool {
	var neo4jErr *db.Neo4jError
	if errors.As(err, &neo4jErr) {
		return neo4jErr.IsRetriable()
	}
	return false
}

// withRetry runs op, retrying on transient Neo4j errors with exponential
// backoff (retryBaseDelay * 2^attempt).
func (s *Store) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.retryBaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		s.logger.Warn("neo4j: transient error, retrying", "attempt", attempt, "error", lastErr)
	}
	return lastErr
}

func (s *Store) writeTx(ctx context.Context, fn func(tx neo4j.ManagedTransaction) error) error {
	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.withRetry(ctx, func(ctx context.Context) error {
		session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		defer session.Close(ctx)

		_, err := session.ExecuteWrite(opCtx, func(tx neo4j.ManagedTransaction) (any, error) {
			return nil, fn(tx)
		})
		return err
	})
}

func (s *Store) readTx(ctx context.Context, fn func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var result any
	err := s.withRetry(ctx, func(ctx context.Context) error {
		session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
		defer session.Close(ctx)

		r, err := session.ExecuteRead(opCtx, fn)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// AddEntity upserts e (MERGE by id), overwriting name/type/properties.
func (s *Store) AddEntity(ctx context.Context, e graph.Entity) error {
	return s.writeTx(ctx, func(tx neo4j.ManagedTransaction) error {
		_, err := tx.Run(ctx, `
			MERGE (n:Entity {id: $id})
			SET n.name = $name, n.type = $type, n.properties = $properties
		`, map[string]any{
			"id":         e.ID,
			"name":       e.Name,
			"type":       e.Type,
			"properties": flattenProperties(e.Properties),
		})
		return err
	})
}

// AddRelation upserts r, MERGE semantics on (source, target, type), and
// auto-creates placeholder endpoints of type "unknown" if missing.
func (s *Store) AddRelation(ctx context.Context, r graph.Relation) error {
	return s.writeTx(ctx, func(tx neo4j.ManagedTransaction) error {
		_, err := tx.Run(ctx, `
			MERGE (s:Entity {id: $source})
			ON CREATE SET s.name = $source, s.type = $unknown
			MERGE (t:Entity {id: $target})
			ON CREATE SET t.name = $target, t.type = $unknown
			MERGE (s)-[rel:RELATES {type: $type}]->(t)
			SET rel.weight = $weight, rel.properties = $properties
		`, map[string]any{
			"source":     r.SourceID,
			"target":     r.TargetID,
			"type":       r.Type,
			"weight":     r.Weight,
			"properties": flattenProperties(r.Properties),
			"unknown":    graph.UnknownType,
		})
		return err
	})
}

// GetEntity returns the entity stored under id.
func (s *Store) GetEntity(ctx context.Context, id string) (*graph.Entity, bool, error) {
	raw, err := s.readTx(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `MATCH (n:Entity {id: $id}) RETURN n LIMIT 1`, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, nil // no record found
		}
		return recordToEntity(record)
	})
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	e := raw.(graph.Entity)
	return &e, true, nil
}

// GetNeighbors performs a bounded-depth, bidirectional traversal. The
// result lists the reached entities only; its Relations field is left empty.
func (s *Store) GetNeighbors(ctx context.Context, id string, relationTypes []string, maxDepth int) (graph.GraphSearchResult, error) {
	if maxDepth <= 0 {
		maxDepth = 1
	}

	raw, err := s.readTx(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		cypher := fmt.Sprintf(`
			MATCH path = (start:Entity {id: $id})-[rel:RELATES*1..%d]-(neighbor:Entity)
			WHERE ($types = [] OR ALL(r IN rel WHERE r.type IN $types))
			RETURN DISTINCT neighbor, relationships(path) AS rels
		`, maxDepth)

		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":    id,
			"types": relationTypes,
		})
		if err != nil {
			return nil, err
		}

		var out graph.GraphSearchResult
		seen := map[string]bool{}
		for result.Next(ctx) {
			record := result.Record()
			neighborVal, _ := record.Get("neighbor")
			if node, ok := neighborVal.(neo4j.Node); ok {
				entity := nodeToEntity(node)
				if !seen[entity.ID] {
					seen[entity.ID] = true
					out.Entities = append(out.Entities, graph.ScoredEntity{Entity: entity, Score: 1})
				}
			}
		}
		if len(out.Entities) > 0 {
			out.Score = 1.0
		}
		return out, result.Err()
	})
	if err != nil {
		return graph.GraphSearchResult{}, err
	}
	return raw.(graph.GraphSearchResult), nil
}

// Search finds entities by case-insensitive name match, optionally
// restricted to entityTypes. Neo4j full-text indexing is out of scope
// here; callers needing embedding-similarity search should layer a vector
// index search on top.
func (s *Store) Search(ctx context.Context, query string, entityTypes []string, topK int) (graph.GraphSearchResult, error) {
	raw, err := s.readTx(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (n:Entity)
			WHERE toLower(n.name) CONTAINS toLower($query)
			  AND ($types = [] OR n.type IN $types)
			RETURN n
			LIMIT $limit
		`, map[string]any{
			"query": query,
			"types": entityTypes,
			"limit": int64(topK),
		})
		if err != nil {
			return nil, err
		}

		var out graph.GraphSearchResult
		for result.Next(ctx) {
			record := result.Record()
			nodeVal, _ := record.Get("n")
			if node, ok := nodeVal.(neo4j.Node); ok {
				out.Entities = append(out.Entities, graph.ScoredEntity{Entity: nodeToEntity(node), Score: 1})
			}
		}
		if len(out.Entities) > 0 {
			out.Score = 1.0
		}
		return out, result.Err()
	})
	if err != nil {
		return graph.GraphSearchResult{}, err
	}
	return raw.(graph.GraphSearchResult), nil
}

// Clear deletes every node and relationship.
func (s *Store) Clear(ctx context.Context) error {
	return s.writeTx(ctx, func(tx neo4j.ManagedTransaction) error {
		_, err := tx.Run(ctx, `MATCH (n:Entity) DETACH DELETE n`, nil)
		return err
	})
}

// Stats returns the current node and relationship counts.
func (s *Store) Stats(ctx context.Context) (graph.Stats, error) {
	raw, err := s.readTx(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (n:Entity) WITH count(n) AS nodes
			OPTIONAL MATCH ()-[r:RELATES]->() RETURN nodes, count(r) AS rels
		`, nil)
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return graph.Stats{}, nil
		}
		nodes, _ := record.Get("nodes")
		rels, _ := record.Get("rels")
		return graph.Stats{
			EntityCount:   int(nodes.(int64)),
			RelationCount: int(rels.(int64)),
		}, nil
	})
	if err != nil {
		return graph.Stats{}, err
	}
	return raw.(graph.Stats), nil
}

func flattenProperties(props map[string]any) []string {
	out := make([]string, 0, len(props))
	for k, v := range props {
		out = append(out, fmt.Sprintf("%s=%v", k, v))
	}
	return out
}

// unflattenProperties reverses flattenProperties, splitting each "key=value"
// pair on the first "=". Values come back as strings regardless of their
// original Go type, since flattenProperties already discarded that.
func unflattenProperties(raw []string) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]any, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}

// toStringSlice accommodates the driver returning a Bolt list as []any
// (each element a string) rather than []string directly.
func toStringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func nodeToEntity(node neo4j.Node) graph.Entity {
	e := graph.Entity{ID: fmt.Sprintf("%v", node.Props["id"])}
	if name, ok := node.Props["name"].(string); ok {
		e.Name = name
	}
	if typ, ok := node.Props["type"].(string); ok {
		e.Type = typ
	}
	if raw, ok := node.Props["properties"]; ok {
		e.Properties = unflattenProperties(toStringSlice(raw))
	}
	return e
}

func recordToEntity(record *db.Record) (any, error) {
	val, ok := record.Get("n")
	if !ok {
		return nil, errors.New("neo4j: record missing column 'n'")
	}
	node, ok := val.(neo4j.Node)
	if !ok {
		return nil, errors.New("neo4j: column 'n' was not a node")
	}
	return nodeToEntity(node), nil
}

var _ graph.Store = (*Store)(nil)
