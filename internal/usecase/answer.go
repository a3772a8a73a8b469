package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docsqa/internal/domain"
	"docsqa/internal/port"
)

// AnswerUseCase runs retrieval then synthesis for one question. It holds no
// per-query state and is safe for concurrent use.
type AnswerUseCase struct {
	retriever   port.Retriever
	synthesizer *SynthesizeUseCase
	topK        int
	log         *slog.Logger
}

// NewAnswerUseCase creates a new answer use case. topK is fixed by
// configuration, not by callers.
func NewAnswerUseCase(retriever port.Retriever, synthesizer *SynthesizeUseCase, topK int, log *slog.Logger) *AnswerUseCase {
	return &AnswerUseCase{
		retriever:   retriever,
		synthesizer: synthesizer,
		topK:        topK,
		log:         log,
	}
}

// AnswerQuery returns a grounded answer with the passages it used. An empty
// retrieval still reaches the model, whose instruction covers the missing
// context. Source deduplication is left to callers.
func (u *AnswerUseCase) AnswerQuery(ctx context.Context, query string) (domain.RagResponse, error) {
	if strings.TrimSpace(query) == "" {
		return domain.RagResponse{}, fmt.Errorf("%w: query must not be empty", domain.ErrInvalidArgument)
	}

	retrieved, err := u.retriever.Retrieve(ctx, query, u.topK)
	if err != nil {
		return domain.RagResponse{}, err
	}
	u.log.Debug("retrieved", "query", query, "chunks", len(retrieved))

	synthesis, err := u.synthesizer.Synthesize(ctx, query, retrieved)
	if err != nil {
		return domain.RagResponse{}, err
	}
	if dropped := len(retrieved) - len(synthesis.Used); dropped > 0 {
		u.log.Debug("context truncated", "dropped", dropped)
	}

	sources := make([]domain.SourceDocument, len(synthesis.Used))
	for i, r := range synthesis.Used {
		sources[i] = domain.SourceDocument{
			Text:       r.Entry.Text,
			SourcePath: r.Entry.Path,
			Score:      r.Score,
		}
	}

	return domain.RagResponse{
		Answer:          synthesis.Answer,
		SourceDocuments: sources,
	}, nil
}
