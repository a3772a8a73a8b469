package port

import "docsqa/internal/domain"

// Chunker splits documents into overlapping windows with provenance.
type Chunker interface {
	Chunk(doc domain.Document) ([]domain.Chunk, error)

	// ChunkAll keeps documents in input order and chunks in sequence order.
	ChunkAll(docs []domain.Document) ([]domain.Chunk, error)
}
