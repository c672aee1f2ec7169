// Package qdrant adapts a Qdrant collection to the vectorstore.Store
// interface, mirroring Tangerg-lynx/ai's qdrant vector store provider.
package qdrant

import (
	"context"
	"errors"
	"fmt"

	"github.com/Tangerg/lynx/pkg/ptr"
	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"

	"github.com/ragforge/retrieval/document"
	"github.com/ragforge/retrieval/embedding"
	"github.com/ragforge/retrieval/vectorstore"
)

const Provider = "Qdrant"

// payloadContentKey is the payload field used to store the original document text.
const payloadContentKey = "__content__"

// Config contains configuration options for a Qdrant-backed Store.
type Config struct {
	// Client is the Qdrant client instance. Required.
	Client *qdrantclient.Client

	// CollectionName is the name of the collection to use. Required.
	CollectionName string

	// Embedder generates vector embeddings from text. Required.
	Embedder embedding.Embedder

	// InitializeSchema creates the collection on first use if it is missing,
	// sizing it from Embedder.Dimensions.
	InitializeSchema bool
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("qdrant: config is nil")
	}
	if c.Client == nil {
		return errors.New("qdrant: client is required")
	}
	if c.CollectionName == "" {
		return errors.New("qdrant: collection name is required")
	}
	if c.Embedder == nil {
		return errors.New("qdrant: embedder is required")
	}
	return nil
}

var _ vectorstore.Store = (*Store)(nil)

// Store is a vectorstore.Store backed by a Qdrant collection.
type Store struct {
	client           *qdrantclient.Client
	embedder         embedding.Embedder
	collectionName   string
	initializeSchema bool
}

// New constructs a Qdrant-backed Store, optionally creating the collection.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Store{
		client:           cfg.Client,
		embedder:         cfg.Embedder,
		collectionName:   cfg.CollectionName,
		initializeSchema: cfg.InitializeSchema,
	}

	if err := s.initialize(ctx); err != nil {
		return nil, fmt.Errorf("qdrant: failed to initialize collection: %w", err)
	}
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	if !s.initializeSchema {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	dims, err := s.embedder.Dimensions(ctx)
	if err != nil {
		return fmt.Errorf("failed to determine embedding dimensions: %w", err)
	}

	return s.client.CreateCollection(ctx, &qdrantclient.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qdrantclient.NewVectorsConfig(&qdrantclient.VectorParams{
			Size:     uint64(dims),
			Distance: qdrantclient.Distance_Cosine,
		}),
	})
}

func toQdrantPayload(metadata map[string]any) (map[string]*qdrantclient.Value, error) {
	return qdrantclient.TryValueMap(metadata)
}

func (s *Store) buildPoint(ctx context.Context, doc *document.Result) (*qdrantclient.PointStruct, error) {
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}

	vector, err := s.embedder.EmbedQuery(ctx, doc.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed document %s: %w", id, err)
	}

	payload, err := toQdrantPayload(doc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to convert metadata to payload: %w", err)
	}

	contentValue, err := qdrantclient.NewValue(doc.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to create content value: %w", err)
	}
	payload[payloadContentKey] = contentValue

	return &qdrantclient.PointStruct{
		Id:      qdrantclient.NewID(id),
		Vectors: qdrantclient.NewVectors(vector...),
		Payload: payload,
	}, nil
}

// Create embeds and upserts the given documents.
func (s *Store) Create(ctx context.Context, req *vectorstore.CreateRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("qdrant: invalid create request: %w", err)
	}

	points := make([]*qdrantclient.PointStruct, 0, len(req.Documents))
	for _, doc := range req.Documents {
		point, err := s.buildPoint(ctx, doc)
		if err != nil {
			return err
		}
		points = append(points, point)
	}

	_, err := s.client.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         points,
		Wait:           ptr.Pointer(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

func filterToQdrant(f vectorstore.Filter) *qdrantclient.Filter {
	if len(f) == 0 {
		return nil
	}

	conditions := make([]*qdrantclient.Condition, 0, len(f))
	for key, value := range f {
		conditions = append(conditions, qdrantclient.NewMatch(key, fmt.Sprintf("%v", value)))
	}
	return &qdrantclient.Filter{Must: conditions}
}

func convertValue(value *qdrantclient.Value) any {
	if value == nil {
		return nil
	}
	switch kind := value.Kind.(type) {
	case *qdrantclient.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrantclient.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrantclient.Value_StringValue:
		return kind.StringValue
	case *qdrantclient.Value_BoolValue:
		return kind.BoolValue
	default:
		return nil
	}
}

func convertPayload(payload map[string]*qdrantclient.Value) map[string]any {
	metadata := make(map[string]any, len(payload))
	for key, value := range payload {
		if key == payloadContentKey {
			continue
		}
		metadata[key] = convertValue(value)
	}
	return metadata
}

// Retrieve embeds the query and performs a similarity search.
func (s *Store) Retrieve(ctx context.Context, req *vectorstore.RetrievalRequest) ([]*document.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("qdrant: invalid retrieval request: %w", err)
	}

	vector, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to embed query: %w", err)
	}

	queryPoints := &qdrantclient.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrantclient.NewQuery(vector...),
		ScoreThreshold: ptr.Pointer(float32(req.MinScore)),
		Limit:          ptr.Pointer(uint64(req.TopK)),
		WithPayload:    qdrantclient.NewWithPayload(true),
		Filter:         filterToQdrant(req.Filter),
	}

	scoredPoints, err := s.client.Query(ctx, queryPoints)
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to query collection %s: %w", s.collectionName, err)
	}

	docs := make([]*document.Result, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		doc := &document.Result{
			Score: float64(point.GetScore()),
		}
		if id := point.GetId(); id != nil {
			doc.ID = id.GetUuid()
		}

		payload := point.GetPayload()
		if payload != nil {
			if contentValue, ok := payload[payloadContentKey]; ok {
				doc.Text = contentValue.GetStringValue()
			}
			doc.Metadata = convertPayload(payload)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes points by id or by metadata filter.
func (s *Store) Delete(ctx context.Context, req *vectorstore.DeleteRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("qdrant: invalid delete request: %w", err)
	}

	var selector *qdrantclient.PointsSelector
	if len(req.IDs) > 0 {
		ids := make([]*qdrantclient.PointId, len(req.IDs))
		for i, id := range req.IDs {
			ids[i] = qdrantclient.NewID(id)
		}
		selector = qdrantclient.NewPointsSelectorIDs(ids)
	} else {
		selector = qdrantclient.NewPointsSelectorFilter(filterToQdrant(req.Filter))
	}

	_, err := s.client.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: s.collectionName,
		Points:         selector,
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to delete points from collection %s: %w", s.collectionName, err)
	}
	return nil
}

// Name identifies this backend.
func (s *Store) Name() string { return Provider }

// NativeClient exposes the underlying Qdrant client.
func (s *Store) NativeClient() any { return s.client }

// Close releases the underlying Qdrant client connection.
func (s *Store) Close() error { return s.client.Close() }
