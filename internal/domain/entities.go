package domain

import "time"

// Document is one corpus file read by the loader.
type Document struct {
	ID   string
	Path string
	Text string
}

// Chunk is an overlapping window of a document's text.
// Text[Overlap:] is the chunk's own content; it starts at rune Offset of the parent.
type Chunk struct {
	ID      string
	DocID   string
	Path    string
	Text    string
	Seq     int
	Offset  int
	Overlap int
}

// Content returns the part of the chunk not repeated from its predecessor.
func (c Chunk) Content() string {
	if c.Overlap <= 0 {
		return c.Text
	}
	runes := []rune(c.Text)
	if c.Overlap >= len(runes) {
		return ""
	}
	return string(runes[c.Overlap:])
}

// IndexEntry is the unit persisted by the vector index.
type IndexEntry struct {
	ChunkID string    `json:"chunk_id"`
	DocID   string    `json:"doc_id"`
	Path    string    `json:"path"`
	Seq     int       `json:"seq"`
	Text    string    `json:"text"`
	Vector  []float32 `json:"vector"`
}

type ScoredEntry struct {
	Entry IndexEntry
	Score float64
}

// RetrievalResult is ordered by descending similarity.
type RetrievalResult []ScoredEntry

// IndexMeta describes how a persisted index was built.
type IndexMeta struct {
	SchemaVersion  int       `json:"schema_version"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap"`
	EntryCount     int       `json:"entry_count"`
	ConfigHash     string    `json:"config_hash,omitempty"`
	BuiltAt        time.Time `json:"built_at"`
}

type SourceDocument struct {
	Text       string  `json:"text"`
	SourcePath string  `json:"source_path"`
	Score      float64 `json:"score"`
}

// RagResponse is the answer to one query with the evidence it was given.
type RagResponse struct {
	Answer          string           `json:"answer"`
	SourceDocuments []SourceDocument `json:"source_documents"`
}

// UniqueSources returns the distinct source paths in first-seen order.
func (r RagResponse) UniqueSources() []string {
	seen := make(map[string]struct{}, len(r.SourceDocuments))
	sources := make([]string, 0, len(r.SourceDocuments))
	for _, doc := range r.SourceDocuments {
		if doc.SourcePath == "" {
			continue
		}
		if _, ok := seen[doc.SourcePath]; ok {
			continue
		}
		seen[doc.SourcePath] = struct{}{}
		sources = append(sources, doc.SourcePath)
	}
	return sources
}
