package port

import (
	"context"

	"docsqa/internal/domain"
)

// Embedder generates vector embeddings for text.
// The same model must be used to build an index and to query it.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorIndex ranks stored entries by similarity to a query vector.
type VectorIndex interface {
	Query(vector []float32, topK int) (domain.RetrievalResult, error)
}
