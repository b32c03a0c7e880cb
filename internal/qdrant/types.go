// Package qdrant provides a wrapper around the Qdrant Go client with
// simplified APIs for the FAQ index.
package qdrant

// CollectionConfig defines the configuration for creating a collection.
type CollectionConfig struct {
	// Name is the collection name (will be prefixed with "faq_").
	Name string

	// VectorSize is the embedding dimension.
	VectorSize uint64

	// OnDiskPayload stores payload on disk to save RAM.
	OnDiskPayload bool
}

// DefaultCollectionConfig returns sensible defaults for a FAQ collection.
func DefaultCollectionConfig(name string) CollectionConfig {
	return CollectionConfig{
		Name:       name,
		VectorSize: 1536,
	}
}

// Point represents a point to upsert.
type Point struct {
	// ID is the unique point identifier. Corpus row position is used,
	// so rebuilding from the same corpus overwrites rather than merges.
	ID uint64

	// Vector is the embedding of the composed entry content.
	Vector []float32

	// Payload is the metadata associated with this point.
	Payload FAQPayload
}

// FAQPayload contains the corpus entry behind an indexed document.
type FAQPayload struct {
	Intent   string `json:"intent"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Row      int    `json:"row"`
}

// SearchRequest defines parameters for a dense similarity search.
type SearchRequest struct {
	// Vector is the query embedding.
	Vector []float32

	// Limit is the maximum number of results to return.
	Limit uint64

	// WithVectors includes stored vectors in results (needed for MMR).
	WithVectors bool
}

// SearchResult represents a single search result.
type SearchResult struct {
	// ID is the point identifier (corpus row position).
	ID uint64

	// Score is the cosine similarity to the query.
	Score float32

	// Payload contains the point metadata.
	Payload FAQPayload

	// Vector is the stored embedding (only populated if WithVectors).
	Vector []float32
}
