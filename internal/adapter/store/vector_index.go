package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"docsqa/internal/domain"
	"docsqa/internal/port"
)

// Index is an in-memory copy of a persisted vector index. It is never
// mutated after Build or Load returns, so concurrent queries need no locking.
// Search is brute force.
type Index struct {
	location string
	meta     domain.IndexMeta
	entries  []domain.IndexEntry
}

var _ port.VectorIndex = (*Index)(nil)

// BuildOptions tune Build.
type BuildOptions struct {
	// BatchSize is the number of chunk texts per embedding call.
	BatchSize int

	// ChunkSize, ChunkOverlap and ConfigHash are recorded in the index metadata.
	ChunkSize    int
	ChunkOverlap int
	ConfigHash   string

	// Progress is called after each embedded batch.
	Progress func(done, total int)
}

// Build embeds every chunk and persists the result at location, replacing
// any previous index only once everything succeeded.
func Build(ctx context.Context, location string, chunks []domain.Chunk, embedder port.Embedder, opts BuildOptions) (*Index, error) {
	dimension := embedder.Dimension()
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: embedder reports dimension %d", domain.ErrEmbedding, dimension)
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}

	entries := make([]domain.IndexEntry, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbedding, len(vectors), len(batch))
		}

		for i, c := range batch {
			if len(vectors[i]) != dimension {
				return nil, fmt.Errorf("%w: chunk %s has %d dimensions, embedder reports %d",
					domain.ErrDimensionMismatch, c.ID, len(vectors[i]), dimension)
			}
			if !finite(vectors[i]) {
				return nil, fmt.Errorf("%w: chunk %s has a non-finite vector component", domain.ErrEmbedding, c.ID)
			}
			entries = append(entries, domain.IndexEntry{
				ChunkID: c.ID,
				DocID:   c.DocID,
				Path:    c.Path,
				Seq:     c.Seq,
				Text:    c.Text,
				Vector:  vectors[i],
			})
		}

		if opts.Progress != nil {
			opts.Progress(end, len(chunks))
		}
	}

	meta := domain.IndexMeta{
		SchemaVersion:  CurrentSchemaVersion,
		EmbeddingModel: embedder.ModelName(),
		Dimension:      dimension,
		ChunkSize:      opts.ChunkSize,
		ChunkOverlap:   opts.ChunkOverlap,
		EntryCount:     len(entries),
		ConfigHash:     opts.ConfigHash,
		BuiltAt:        time.Now().UTC(),
	}

	if err := writeIndexFile(location, meta, entries); err != nil {
		return nil, err
	}

	return &Index{location: location, meta: meta, entries: entries}, nil
}

// Load reads a persisted index fully into memory.
func Load(location string) (*Index, error) {
	meta, entries, err := readIndexFile(location)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if len(e.Vector) != meta.Dimension {
			return nil, fmt.Errorf("%w: entry %s has %d dimensions, index records %d",
				domain.ErrPersistence, e.ChunkID, len(e.Vector), meta.Dimension)
		}
	}

	return &Index{location: location, meta: meta, entries: entries}, nil
}

// Query returns up to topK entries by descending cosine similarity. Equal
// scores keep insertion order.
func (ix *Index) Query(vector []float32, topK int) (domain.RetrievalResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidArgument, topK)
	}
	if len(vector) != ix.meta.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(vector), ix.meta.Dimension)
	}
	if !finite(vector) {
		return nil, fmt.Errorf("%w: query vector has a non-finite component", domain.ErrEmbedding)
	}

	scored := make(domain.RetrievalResult, len(ix.entries))
	for i, entry := range ix.entries {
		scored[i] = domain.ScoredEntry{
			Entry: entry,
			Score: cosineSimilarity(vector, entry.Vector),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

// Compatible checks that embedder produces vectors comparable with the ones
// the index was built from.
func (ix *Index) Compatible(embedder port.Embedder) error {
	if embedder.Dimension() != ix.meta.Dimension {
		return fmt.Errorf("%w: index built with %d dimensions (%s), embedder %s has %d",
			domain.ErrDimensionMismatch, ix.meta.Dimension, ix.meta.EmbeddingModel, embedder.ModelName(), embedder.Dimension())
	}
	if embedder.ModelName() != ix.meta.EmbeddingModel {
		return fmt.Errorf("%w: index built with model %s, embedder is %s",
			domain.ErrEmbedding, ix.meta.EmbeddingModel, embedder.ModelName())
	}
	return nil
}

func (ix *Index) Meta() domain.IndexMeta {
	return ix.meta
}

func (ix *Index) Len() int {
	return len(ix.entries)
}

func (ix *Index) Location() string {
	return ix.location
}

// cosineSimilarity calculates the cosine similarity between two vectors.
// A zero vector scores 0 against everything.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// finite reports whether v has no NaN or infinite components.
func finite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
