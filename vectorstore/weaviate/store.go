// Package weaviate adapts a Weaviate class to the vectorstore.Store
// interface, mirroring the structure of the qdrant backend but using
// Weaviate's hybrid dense+sparse (BM25) search, which the dense-only
// qdrant backend cannot offer.
package weaviate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/ragforge/retrieval/document"
	"github.com/ragforge/retrieval/embedding"
	"github.com/ragforge/retrieval/vectorstore"
)

const Provider = "Weaviate"

const contentProperty = "content"

// Config contains configuration options for a Weaviate-backed Store.
type Config struct {
	// Client is the Weaviate client instance. Required.
	Client *weaviate.Client

	// ClassName is the Weaviate class to use. Required.
	ClassName string

	// Embedder generates vector embeddings from text. Required: Weaviate is
	// used here in bring-your-own-vector mode so embeddings stay consistent
	// with the rest of the pipeline.
	Embedder embedding.Embedder

	// Alpha controls Weaviate's hybrid search balance between vector (alpha=1)
	// and BM25 keyword (alpha=0) scoring. Defaults to 0.5.
	Alpha float32
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("weaviate: config is nil")
	}
	if c.Client == nil {
		return errors.New("weaviate: client is required")
	}
	if c.ClassName == "" {
		return errors.New("weaviate: class name is required")
	}
	if c.Embedder == nil {
		return errors.New("weaviate: embedder is required")
	}
	if c.Alpha <= 0 {
		c.Alpha = 0.5
	}
	return nil
}

var _ vectorstore.Store = (*Store)(nil)

// Store is a vectorstore.Store backed by a Weaviate class, using hybrid
// vector+BM25 search internally.
type Store struct {
	client    *weaviate.Client
	embedder  embedding.Embedder
	className string
	alpha     float32
}

// New constructs a Weaviate-backed Store.
func New(cfg *Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Store{
		client:    cfg.Client,
		embedder:  cfg.Embedder,
		className: cfg.ClassName,
		alpha:     cfg.Alpha,
	}, nil
}

// Create embeds and batch-inserts the given documents as Weaviate objects.
func (s *Store) Create(ctx context.Context, req *vectorstore.CreateRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("weaviate: invalid create request: %w", err)
	}

	batcher := s.client.Batch().ObjectsBatcher()
	for _, doc := range req.Documents {
		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}

		vector, err := s.embedder.EmbedQuery(ctx, doc.Text)
		if err != nil {
			return fmt.Errorf("weaviate: failed to embed document %s: %w", id, err)
		}

		properties := map[string]any{contentProperty: doc.Text}
		for k, v := range doc.Metadata {
			properties[k] = v
		}

		batcher.WithObjects(&models.Object{
			Class:      s.className,
			ID:         asStrfmtUUID(id),
			Properties: properties,
			Vector:     vector,
		})
	}

	_, err := batcher.Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate: failed to batch-insert objects into class %s: %w", s.className, err)
	}
	return nil
}

func filterToWhere(f vectorstore.Filter) *filters.WhereBuilder {
	if len(f) == 0 {
		return nil
	}

	operands := make([]*filters.WhereBuilder, 0, len(f))
	for key, value := range f {
		operands = append(operands, filters.Where().
			WithPath([]string{key}).
			WithOperator(filters.Equal).
			WithValueText(fmt.Sprintf("%v", value)))
	}
	if len(operands) == 1 {
		return operands[0]
	}
	return filters.Where().WithOperator(filters.And).WithOperands(operands)
}

// Retrieve performs a hybrid vector+BM25 search, embedding the query first
// so the vector leg of the search uses the same embedding space as Create.
func (s *Store) Retrieve(ctx context.Context, req *vectorstore.RetrievalRequest) ([]*document.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("weaviate: invalid retrieval request: %w", err)
	}

	vector, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("weaviate: failed to embed query: %w", err)
	}

	hybrid := s.client.GraphQL().HybridArgumentBuilder().
		WithQuery(req.Query).
		WithVector(vector).
		WithAlpha(s.alpha)

	builder := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(
			graphql.Field{Name: contentProperty},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{
				{Name: "id"},
				{Name: "score"},
			}},
		).
		WithHybrid(hybrid).
		WithLimit(req.TopK)

	if where := filterToWhere(req.Filter); where != nil {
		builder = builder.WithWhere(where)
	}

	resp, err := builder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate: failed to query class %s: %w", s.className, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate: graphql query returned errors: %v", resp.Errors)
	}

	return parseGetResponse(resp, s.className, req.MinScore), nil
}

// Delete removes objects by id or by metadata filter.
func (s *Store) Delete(ctx context.Context, req *vectorstore.DeleteRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("weaviate: invalid delete request: %w", err)
	}

	if len(req.IDs) > 0 {
		for _, id := range req.IDs {
			err := s.client.Data().Deleter().
				WithClassName(s.className).
				WithID(id).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("weaviate: failed to delete object %s: %w", id, err)
			}
		}
		return nil
	}

	where := filterToWhere(req.Filter)
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.className).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate: failed to delete objects from class %s: %w", s.className, err)
	}
	return nil
}

// Name identifies this backend.
func (s *Store) Name() string { return Provider }

// NativeClient exposes the underlying Weaviate client.
func (s *Store) NativeClient() any { return s.client }
