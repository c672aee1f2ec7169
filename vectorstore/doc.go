// Package vectorstore provides a unified abstraction over dense-vector
// similarity search backends used by the retrieval orchestrator.
//
// A Store embeds, indexes, and retrieves document.Result values by semantic
// similarity. Concrete backends (qdrant, weaviate subpackages) translate
// RetrievalRequest into provider-specific queries; callers only depend on
// the Store interface, never on a backend's native client.
package vectorstore
