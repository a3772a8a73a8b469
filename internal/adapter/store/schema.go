package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"docsqa/config"
	"docsqa/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

// ComputeConfigHash computes a hash of index-relevant configuration.
// Changes to this hash indicate the index should be rebuilt.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		ChunkSize    int      `json:"chunk_size"`
		ChunkOverlap int      `json:"chunk_overlap"`
		Separators   []string `json:"separators"`
		Includes     []string `json:"includes"`
		Excludes     []string `json:"excludes"`
		EmbProvider  string   `json:"emb_provider"`
		EmbModel     string   `json:"emb_model"`
		EmbDimension int      `json:"emb_dimension"`
	}{
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
		Separators:   cfg.Index.Separators,
		Includes:     cfg.Corpus.Includes,
		Excludes:     cfg.Corpus.Excludes,
		EmbProvider:  cfg.Embedding.Provider,
		EmbModel:     cfg.Embedding.Model,
		EmbDimension: cfg.Embedding.Dimension,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// StaleReason reports why an index built with meta no longer matches cfg,
// or "" when it is current.
func StaleReason(meta domain.IndexMeta, cfg *config.Config) string {
	switch {
	case meta.ConfigHash == "":
		return ""
	case meta.ConfigHash != ComputeConfigHash(cfg):
		if meta.ChunkSize != cfg.Index.ChunkSize || meta.ChunkOverlap != cfg.Index.ChunkOverlap {
			return fmt.Sprintf("chunking changed (built with %d/%d, configured %d/%d)",
				meta.ChunkSize, meta.ChunkOverlap, cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
		}
		return "index configuration changed"
	}
	return ""
}
