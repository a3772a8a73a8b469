package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docsqa/internal/adapter/store"
	"docsqa/internal/port"
)

// IndexUseCase rebuilds the vector index from a corpus directory.
type IndexUseCase struct {
	loader   port.DocumentLoader
	chunker  port.Chunker
	embedder port.Embedder
	opts     IndexOptions
	log      *slog.Logger
}

// IndexOptions carry the build settings recorded in the index.
type IndexOptions struct {
	Location     string
	BatchSize    int
	ChunkSize    int
	ChunkOverlap int
	ConfigHash   string
}

// NewIndexUseCase creates a new index use case.
func NewIndexUseCase(
	loader port.DocumentLoader,
	chunker port.Chunker,
	embedder port.Embedder,
	opts IndexOptions,
	log *slog.Logger,
) *IndexUseCase {
	return &IndexUseCase{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		opts:     opts,
		log:      log,
	}
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	Documents int
	Chunks    int
	Entries   int
	Model     string
	Dimension int
	Location  string
	Duration  time.Duration
}

// Index loads, chunks and embeds everything under root and replaces the
// index. Nothing is persisted unless every step succeeds.
func (u *IndexUseCase) Index(ctx context.Context, root string, progress func(done, total int)) (*IndexResult, error) {
	start := time.Now()

	docs, err := u.loader.Load(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	u.log.Debug("corpus loaded", "root", root, "documents", len(docs))

	chunks, err := u.chunker.ChunkAll(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk corpus: %w", err)
	}
	u.log.Debug("corpus chunked", "chunks", len(chunks))

	ix, err := store.Build(ctx, u.opts.Location, chunks, u.embedder, store.BuildOptions{
		BatchSize:    u.opts.BatchSize,
		ChunkSize:    u.opts.ChunkSize,
		ChunkOverlap: u.opts.ChunkOverlap,
		ConfigHash:   u.opts.ConfigHash,
		Progress:     progress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	result := &IndexResult{
		Documents: len(docs),
		Chunks:    len(chunks),
		Entries:   ix.Len(),
		Model:     ix.Meta().EmbeddingModel,
		Dimension: ix.Meta().Dimension,
		Location:  ix.Location(),
		Duration:  time.Since(start),
	}
	u.log.Info("index built",
		"documents", result.Documents,
		"entries", result.Entries,
		"location", result.Location,
		"duration", result.Duration.Round(time.Millisecond))

	return result, nil
}
