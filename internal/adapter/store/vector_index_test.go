package store

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"docsqa/config"
	"docsqa/internal/domain"
)

// tableEmbedder returns fixed vectors per text.
type tableEmbedder struct {
	vectors map[string][]float32
	dim     int
	model   string
	err     error
	calls   int
}

func (e *tableEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			v = make([]float32, e.dim)
		}
		out[i] = v
	}
	return out, nil
}

func (e *tableEmbedder) Dimension() int   { return e.dim }
func (e *tableEmbedder) ModelName() string { return e.model }

func testChunks() ([]domain.Chunk, *tableEmbedder) {
	chunks := []domain.Chunk{
		{ID: "c0", DocID: "d1", Path: "docs/install.md", Text: "install", Seq: 0},
		{ID: "c1", DocID: "d1", Path: "docs/install.md", Text: "configure", Seq: 1},
		{ID: "c2", DocID: "d2", Path: "docs/query.md", Text: "query", Seq: 0},
		{ID: "c3", DocID: "d2", Path: "docs/query.md", Text: "query again", Seq: 1},
	}
	emb := &tableEmbedder{
		dim:   3,
		model: "table-3",
		vectors: map[string][]float32{
			"install":     {1, 0, 0},
			"configure":   {0.8, 0.6, 0},
			"query":       {0, 0, 1},
			"query again": {0, 0, 2},
		},
	}
	return chunks, emb
}

func buildTestIndex(t *testing.T) (*Index, string) {
	t.Helper()
	chunks, emb := testChunks()
	location := filepath.Join(t.TempDir(), ".rag", "index.db")

	ix, err := Build(context.Background(), location, chunks, emb, BuildOptions{BatchSize: 3})
	require.NoError(t, err)
	return ix, location
}

func TestBuild_QueryIdenticalVector(t *testing.T) {
	ix, _ := buildTestIndex(t)

	res, err := ix.Query([]float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)

	assert.Equal(t, "c0", res[0].Entry.ChunkID)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.Equal(t, "docs/install.md", res[0].Entry.Path)
	assert.Equal(t, "c1", res[1].Entry.ChunkID)
	assert.InDelta(t, 0.8, res[1].Score, 1e-6)
}

func TestQuery_TopKBounds(t *testing.T) {
	ix, _ := buildTestIndex(t)

	for _, k := range []int{1, 2, 4, 10} {
		res, err := ix.Query([]float32{0.5, 0.5, 0.5}, k)
		require.NoError(t, err)

		want := k
		if want > ix.Len() {
			want = ix.Len()
		}
		assert.Len(t, res, want)
		for i := 1; i < len(res); i++ {
			assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
		}
	}
}

func TestQuery_TiesKeepInsertionOrder(t *testing.T) {
	ix, _ := buildTestIndex(t)

	// "query" and "query again" point the same way.
	res, err := ix.Query([]float32{0, 0, 5}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "c2", res[0].Entry.ChunkID)
	assert.Equal(t, "c3", res[1].Entry.ChunkID)
	assert.Equal(t, res[0].Score, res[1].Score)
}

func TestQuery_InvalidTopK(t *testing.T) {
	ix, _ := buildTestIndex(t)

	for _, k := range []int{0, -3} {
		_, err := ix.Query([]float32{1, 0, 0}, k)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	}
}

func TestQuery_DimensionMismatch(t *testing.T) {
	ix, _ := buildTestIndex(t)

	res, err := ix.Query([]float32{1, 0}, 2)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Nil(t, res)
}

func TestLoad_RoundTrip(t *testing.T) {
	built, location := buildTestIndex(t)

	loaded, err := Load(location)
	require.NoError(t, err)
	assert.Equal(t, built.Len(), loaded.Len())
	assert.Equal(t, built.entries, loaded.entries)
	assert.Equal(t, "table-3", loaded.Meta().EmbeddingModel)
	assert.Equal(t, 3, loaded.Meta().Dimension)
	assert.Equal(t, CurrentSchemaVersion, loaded.Meta().SchemaVersion)

	res, err := loaded.Query([]float32{0, 0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "c2", res[0].Entry.ChunkID)
}

func TestLoad_NotFound(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.db")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a bolt file"), 0644))

	bigGarbage := filepath.Join(dir, "big-garbage.db")
	require.NoError(t, os.WriteFile(bigGarbage, make([]byte, 64*1024), 0644))

	noBuckets := filepath.Join(dir, "empty.db")
	db, err := bbolt.Open(noBuckets, 0644, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	for name, location := range map[string]string{
		"missing":    filepath.Join(dir, "absent.db"),
		"directory":  dir,
		"garbage":    garbage,
		"zeroed":     bigGarbage,
		"no buckets": noBuckets,
	} {
		t.Run(name, func(t *testing.T) {
			ix, err := Load(location)
			assert.ErrorIs(t, err, domain.ErrIndexNotFound)
			assert.Nil(t, ix)
		})
	}
}

func TestBuild_DimensionMismatchPersistsNothing(t *testing.T) {
	chunks, emb := testChunks()
	emb.vectors["query"] = []float32{1, 2}
	location := filepath.Join(t.TempDir(), "index.db")

	_, err := Build(context.Background(), location, chunks, emb, BuildOptions{})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, statErr := os.Stat(location)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestBuild_NonFiniteVectorRejected(t *testing.T) {
	for name, bad := range map[string]float32{
		"nan": float32(math.NaN()),
		"inf": float32(math.Inf(1)),
	} {
		t.Run(name, func(t *testing.T) {
			chunks, emb := testChunks()
			emb.vectors["configure"] = []float32{0.5, bad, 0}
			location := filepath.Join(t.TempDir(), "index.db")

			_, err := Build(context.Background(), location, chunks, emb, BuildOptions{})
			assert.ErrorIs(t, err, domain.ErrEmbedding)

			_, statErr := os.Stat(location)
			assert.True(t, errors.Is(statErr, os.ErrNotExist))
		})
	}
}

func TestQuery_NonFiniteVectorRejected(t *testing.T) {
	ix, _ := buildTestIndex(t)

	res, err := ix.Query([]float32{float32(math.NaN()), 0, 1}, 2)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Nil(t, res)
}

func TestBuild_FailureKeepsPreviousIndex(t *testing.T) {
	_, location := buildTestIndex(t)

	chunks, emb := testChunks()
	emb.err = domain.ErrEmbedding
	_, err := Build(context.Background(), location, chunks[:1], emb, BuildOptions{})
	assert.ErrorIs(t, err, domain.ErrEmbedding)

	ix, err := Load(location)
	require.NoError(t, err)
	assert.Equal(t, 4, ix.Len())

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(location), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestBuild_PersistenceError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	chunks, emb := testChunks()
	_, err := Build(context.Background(), filepath.Join(blocker, "index.db"), chunks, emb, BuildOptions{})
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestBuild_Idempotent(t *testing.T) {
	first, location := buildTestIndex(t)

	chunks, emb := testChunks()
	_, err := Build(context.Background(), location, chunks, emb, BuildOptions{})
	require.NoError(t, err)
	second, err := Load(location)
	require.NoError(t, err)

	require.Equal(t, first.Len(), second.Len())
	for i := range first.entries {
		assert.Equal(t, first.entries[i].Text, second.entries[i].Text)
		assert.Equal(t, first.entries[i].Path, second.entries[i].Path)
	}
}

func TestBuild_ProgressAndBatches(t *testing.T) {
	chunks, emb := testChunks()
	var progress [][2]int

	_, err := Build(context.Background(), filepath.Join(t.TempDir(), "index.db"), chunks, emb, BuildOptions{
		BatchSize: 3,
		Progress:  func(done, total int) { progress = append(progress, [2]int{done, total}) },
	})
	require.NoError(t, err)
	assert.Equal(t, 2, emb.calls)
	assert.Equal(t, [][2]int{{3, 4}, {4, 4}}, progress)
}

func TestBuild_ZeroChunks(t *testing.T) {
	_, emb := testChunks()
	location := filepath.Join(t.TempDir(), "index.db")

	ix, err := Build(context.Background(), location, nil, emb, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
	assert.Equal(t, 0, emb.calls)

	loaded, err := Load(location)
	require.NoError(t, err)
	res, err := loaded.Query([]float32{1, 0, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestCompatible(t *testing.T) {
	ix, _ := buildTestIndex(t)

	assert.NoError(t, ix.Compatible(&tableEmbedder{dim: 3, model: "table-3"}))
	assert.ErrorIs(t, ix.Compatible(&tableEmbedder{dim: 4, model: "table-3"}), domain.ErrDimensionMismatch)

	err := ix.Compatible(&tableEmbedder{dim: 3, model: "other"})
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.NotErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestStaleReason(t *testing.T) {
	cfg := config.DefaultConfig()
	meta := domain.IndexMeta{
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
		ConfigHash:   ComputeConfigHash(cfg),
	}
	assert.Empty(t, StaleReason(meta, cfg))

	changed := config.DefaultConfig()
	changed.Index.ChunkSize = 500
	assert.Contains(t, StaleReason(meta, changed), "chunking changed")

	changed = config.DefaultConfig()
	changed.Embedding.Model = "hash-512"
	assert.Equal(t, "index configuration changed", StaleReason(meta, changed))

	assert.Empty(t, StaleReason(domain.IndexMeta{}, changed))
}
