package usecase

import (
	"context"
	"fmt"

	"docsqa/internal/domain"
	"docsqa/internal/port"
)

// RetrieveUseCase embeds a query and ranks index entries against it.
type RetrieveUseCase struct {
	embedder          port.Embedder
	index             port.VectorIndex
	minScoreThreshold float64 // Filter results below this score (0 = disabled)
}

// NewRetrieveUseCase creates a new retrieve use case.
func NewRetrieveUseCase(
	embedder port.Embedder,
	index port.VectorIndex,
	minScoreThreshold float64,
) *RetrieveUseCase {
	return &RetrieveUseCase{
		embedder:          embedder,
		index:             index,
		minScoreThreshold: minScoreThreshold,
	}
}

// Retrieve embeds query once and returns up to topK entries. Query vectors
// are not cached between calls.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, topK int) (domain.RetrievalResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidArgument, topK)
	}

	vectors, err := u.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for one query", domain.ErrEmbedding, len(vectors))
	}

	results, err := u.index.Query(vectors[0], topK)
	if err != nil {
		return nil, err
	}

	if u.minScoreThreshold > 0 {
		results = u.filterByThreshold(results)
	}

	return results, nil
}

// filterByThreshold removes results below the minimum score threshold.
func (u *RetrieveUseCase) filterByThreshold(results domain.RetrievalResult) domain.RetrievalResult {
	filtered := make(domain.RetrievalResult, 0, len(results))
	for _, r := range results {
		if r.Score >= u.minScoreThreshold {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ScoredChunkResult is a simplified result for CLI output.
type ScoredChunkResult struct {
	Path  string  `json:"path"`
	Seq   int     `json:"seq"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// ToScoredChunkResults flattens a retrieval result for display.
func ToScoredChunkResults(results domain.RetrievalResult) []ScoredChunkResult {
	out := make([]ScoredChunkResult, len(results))
	for i, r := range results {
		out[i] = ScoredChunkResult{
			Path:  r.Entry.Path,
			Seq:   r.Entry.Seq,
			Score: r.Score,
			Text:  r.Entry.Text,
		}
	}
	return out
}
