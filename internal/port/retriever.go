package port

import (
	"context"

	"docsqa/internal/domain"
)

// Retriever finds the chunks most similar to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (domain.RetrievalResult, error)
}
