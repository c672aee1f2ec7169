package vectorstore

import (
	"context"
	"errors"

	"github.com/ragforge/retrieval/document"
)

const (
	// DefaultTopK is the default maximum number of documents to return in similarity search.
	DefaultTopK = 5

	// MinSimilarityScore is the minimum valid similarity score.
	MinSimilarityScore = 0.0

	// MaxSimilarityScore is the maximum valid similarity score.
	MaxSimilarityScore = 1.0

	// AcceptAllScores is a special threshold that accepts all results regardless of similarity score.
	AcceptAllScores = MinSimilarityScore
)

// Filter is a flat equality filter over document metadata fields, applied
// by the backend as a pre-filter alongside the vector similarity search.
// Keys absent from a document's metadata never match.
type Filter map[string]any

// RetrievalRequest specifies parameters for retrieving documents from vector stores.
type RetrievalRequest struct {
	// Query is the text that defines the search input. The backend is
	// responsible for embedding it before issuing the similarity search.
	Query string

	// TopK is the maximum number of documents to return, ranked by similarity score.
	// Must be greater than 0. Defaults to DefaultTopK (5) if not specified.
	TopK int

	// MinScore is the minimum similarity score threshold for filtering results.
	// Valid range: [0.0, 1.0]. Use AcceptAllScores (0.0) to accept all results.
	MinScore float64

	// Filter is an optional metadata equality filter. If nil, no filtering is applied.
	Filter Filter
}

// NewRetrievalRequest creates a new retrieval request with a text query.
// The request is initialized with default values (TopK=5, MinScore=0.0, no filter).
func NewRetrievalRequest(text string) (*RetrievalRequest, error) {
	req := &RetrievalRequest{
		Query:    text,
		TopK:     DefaultTopK,
		MinScore: AcceptAllScores,
	}
	return req, req.Validate()
}

// WithTopK sets the maximum number of results to return.
// If k <= 0, the value is ignored and the request remains unchanged.
func (r *RetrievalRequest) WithTopK(k int) *RetrievalRequest {
	if k > 0 {
		r.TopK = k
	}
	return r
}

// WithMinScore sets the minimum similarity score threshold.
// If score is outside the valid range [0.0, 1.0], the value is ignored.
func (r *RetrievalRequest) WithMinScore(score float64) *RetrievalRequest {
	if score >= MinSimilarityScore && score <= MaxSimilarityScore {
		r.MinScore = score
	}
	return r
}

// WithFilter sets the metadata equality filter.
// If filter is empty, the value is ignored and the request remains unchanged.
func (r *RetrievalRequest) WithFilter(filter Filter) *RetrievalRequest {
	if len(filter) > 0 {
		r.Filter = filter
	}
	return r
}

// Validate checks if the request parameters are valid.
func (r *RetrievalRequest) Validate() error {
	if r == nil {
		return errors.New("vectorstore: request cannot be nil")
	}
	if r.Query == "" {
		return errors.New("vectorstore: query text cannot be empty")
	}
	if r.TopK <= 0 {
		return errors.New("vectorstore: topK must be greater than 0")
	}
	if r.MinScore < MinSimilarityScore || r.MinScore > MaxSimilarityScore {
		return errors.New("vectorstore: minScore must be between 0.0 and 1.0")
	}
	return nil
}

// Retriever retrieves semantically relevant documents from vector stores.
type Retriever interface {
	// Retrieve finds documents similar to the query based on vector similarity,
	// ranked by similarity score in descending order, limited to request.TopK,
	// and filtered by request.MinScore and request.Filter.
	Retrieve(ctx context.Context, request *RetrievalRequest) ([]*document.Result, error)
}

// CreateRequest specifies parameters for creating documents in the vector store.
type CreateRequest struct {
	Documents []*document.Result
}

// NewCreateRequest creates a new create request with the given documents.
func NewCreateRequest(docs []*document.Result) (*CreateRequest, error) {
	req := &CreateRequest{Documents: docs}
	return req, req.Validate()
}

// Validate ensures that the documents list is not empty.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return errors.New("vectorstore: request cannot be nil")
	}
	if len(r.Documents) == 0 {
		return errors.New("vectorstore: documents list cannot be empty")
	}
	return nil
}

// Creator embeds and indexes documents in the vector store.
type Creator interface {
	Create(ctx context.Context, request *CreateRequest) error
}

// DeleteRequest specifies parameters for deleting documents from the vector store.
type DeleteRequest struct {
	// IDs, if non-empty, deletes documents by identifier.
	IDs []string
	// Filter, if non-empty, deletes documents matching the metadata filter.
	Filter Filter
}

// Validate ensures that at least one selection criterion is present.
func (r *DeleteRequest) Validate() error {
	if r == nil {
		return errors.New("vectorstore: request cannot be nil")
	}
	if len(r.IDs) == 0 && len(r.Filter) == 0 {
		return errors.New("vectorstore: delete request must specify ids or a filter")
	}
	return nil
}

// Deleter removes documents from the vector store.
type Deleter interface {
	Delete(ctx context.Context, request *DeleteRequest) error
}

// Store is a comprehensive interface combining document creation,
// retrieval, and deletion operations for a vector database backend.
type Store interface {
	Creator
	Retriever
	Deleter

	// Name identifies the backend implementation, e.g. "qdrant", "weaviate".
	Name() string

	// NativeClient exposes the underlying provider client for operations
	// not covered by Store, e.g. schema management.
	NativeClient() any
}
