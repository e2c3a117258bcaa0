package ports

import "context"

// Embedder defines the interface for generating vector embeddings.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vector embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// SimilarAffair is one semantic-similarity hit from the vector index.
type SimilarAffair struct {
	AffairID string
	Score    float32
}

// VectorIndex stores affair embeddings and answers similarity queries.
// It is optional infrastructure: the duplicate detector degrades to its
// deterministic signals when no index is configured.
type VectorIndex interface {
	// EnsureCollection creates the collection if it doesn't exist.
	EnsureCollection(ctx context.Context, vectorSize uint64) error

	// Close closes the connection.
	Close() error

	// SaveAffairVector upserts the embedding for an affair.
	SaveAffairVector(ctx context.Context, affairID, figureID string, vector []float32) error

	// SearchSimilar returns affairs of the same figure ranked by cosine
	// similarity, excluding the given affair.
	SearchSimilar(ctx context.Context, vector []float32, figureID, excludeAffairID string, limit int) ([]SimilarAffair, error)

	// DeleteAffairVector removes the embedding for an affair.
	DeleteAffairVector(ctx context.Context, affairID string) error
}
