package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"docsqa/config"
	"docsqa/internal/adapter/analyzer"
	"docsqa/internal/adapter/embedding"
	"docsqa/internal/adapter/llm"
	"docsqa/internal/adapter/store"
	"docsqa/internal/domain"
	"docsqa/internal/port"
	"docsqa/internal/usecase"
)

// openIndex loads the persisted index and checks it against the configured
// embedder.
func openIndex(cfg *config.Config, dir string, embedder port.Embedder) (*store.Index, error) {
	path := cfg.IndexPath(dir)

	ix, err := store.Load(path)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return nil, fmt.Errorf("%w at %s. Run 'docsqa index' first", err, path)
		}
		return nil, err
	}

	if err := ix.Compatible(embedder); err != nil {
		return nil, fmt.Errorf("%w. Rebuild with 'docsqa index'", err)
	}

	if reason := store.StaleReason(ix.Meta(), cfg); reason != "" {
		GetLogger().Warn("index is stale, results may not reflect the configuration", "reason", reason)
	}

	return ix, nil
}

// newRetriever builds the embedder, loads the index and returns a retriever
// over both.
func newRetriever(cfg *config.Config, dir string) (*usecase.RetrieveUseCase, *store.Index, error) {
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, nil, err
	}

	ix, err := openIndex(cfg, dir, embedder)
	if err != nil {
		return nil, nil, err
	}

	return usecase.NewRetrieveUseCase(embedder, ix, cfg.Retrieve.MinScore), ix, nil
}

// newAnswerUseCase wires the full query pipeline.
func newAnswerUseCase(cfg *config.Config, dir string, log *slog.Logger) (*usecase.AnswerUseCase, *store.Index, error) {
	retriever, ix, err := newRetriever(cfg, dir)
	if err != nil {
		return nil, nil, err
	}

	generator, err := llm.New(cfg.Generate)
	if err != nil {
		return nil, nil, err
	}

	tmpl, err := usecase.LoadPromptTemplate(config.ResolvePath(dir, cfg.Generate.PromptTemplate))
	if err != nil {
		return nil, nil, err
	}

	synth := usecase.NewSynthesizeUseCase(generator, analyzer.NewTokenizer(), cfg.Generate.ContextTokenBudget, tmpl)
	log.Debug("query pipeline ready",
		"embedding_model", ix.Meta().EmbeddingModel,
		"generation_model", generator.ModelName(),
		"entries", ix.Len())

	return usecase.NewAnswerUseCase(retriever, synth, cfg.Retrieve.TopK, log), ix, nil
}
