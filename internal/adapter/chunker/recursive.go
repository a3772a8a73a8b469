package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"docsqa/internal/domain"
)

// DefaultSeparators are tried in order: paragraphs, lines, sentences, words.
// Appending "" allows hard splits inside a word.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// RecursiveChunker splits text into windows of at most size runes, each window
// after the first repeating up to overlap runes that precede it. Only a piece
// with no separator left and longer than size produces a longer window.
type RecursiveChunker struct {
	size       int
	overlap    int
	separators []string
}

func NewRecursiveChunker(size, overlap int, separators []string) (*RecursiveChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidArgument, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", domain.ErrInvalidArgument, size, overlap)
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return &RecursiveChunker{
		size:       size,
		overlap:    overlap,
		separators: separators,
	}, nil
}

// segment is a run of document text that becomes the content of one chunk.
type segment struct {
	text   string
	offset int // rune offset in the document
	length int // runes
}

func (c *RecursiveChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	if doc.Text == "" {
		return nil, nil
	}

	segments := c.merge(c.split(doc.Text, c.separators))
	runes := []rune(doc.Text)

	chunks := make([]domain.Chunk, 0, len(segments))
	for seq, seg := range segments {
		prefixStart := seg.offset - c.overlapFor(seg)
		if prefixStart < 0 {
			prefixStart = 0
		}
		chunks = append(chunks, domain.Chunk{
			ID:      generateChunkID(doc.ID, seq),
			DocID:   doc.ID,
			Path:    doc.Path,
			Text:    string(runes[prefixStart : seg.offset+seg.length]),
			Seq:     seq,
			Offset:  seg.offset,
			Overlap: seg.offset - prefixStart,
		})
	}
	return chunks, nil
}

// ChunkAll chunks documents in input order.
func (c *RecursiveChunker) ChunkAll(docs []domain.Document) ([]domain.Chunk, error) {
	var all []domain.Chunk
	for _, doc := range docs {
		chunks, err := c.Chunk(doc)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", doc.Path, err)
		}
		all = append(all, chunks...)
	}
	return all, nil
}

// overlapFor returns the prefix length for seg: the configured overlap, or
// whatever still fits under size when seg holds a piece longer than the
// budget. A segment longer than size gets no prefix.
func (c *RecursiveChunker) overlapFor(seg segment) int {
	room := c.size - seg.length
	switch {
	case room >= c.overlap:
		return c.overlap
	case room > 0:
		return room
	default:
		return 0
	}
}

// budget is the room left for new content once the overlap prefix is added.
func (c *RecursiveChunker) budget() int {
	return c.size - c.overlap
}

// split cuts text into pieces no longer than the budget, keeping each
// separator attached to the piece it ends. Pieces concatenate back to text.
// A piece with no separator left to try is returned whole.
func (c *RecursiveChunker) split(text string, separators []string) []string {
	if utf8.RuneCountInString(text) <= c.budget() || len(separators) == 0 {
		return []string{text}
	}

	sep, rest := separators[0], separators[1:]
	if sep == "" {
		return splitRunes(text, c.budget())
	}

	parts := strings.SplitAfter(text, sep)
	if len(parts) == 1 {
		return c.split(text, rest)
	}

	var pieces []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= c.budget() {
			pieces = append(pieces, part)
			continue
		}
		sub := c.split(part, rest)
		if len(sub) == 1 && part != sep && strings.HasSuffix(part, sep) {
			// detach the separator so a word of exactly size runes still fits
			sub = []string{strings.TrimSuffix(part, sep), sep}
		}
		pieces = append(pieces, sub...)
	}
	return pieces
}

// merge packs adjacent pieces greedily. The first segment may use the full
// size since it carries no overlap prefix.
func (c *RecursiveChunker) merge(pieces []string) []segment {
	var (
		segments []segment
		cur      strings.Builder
		curLen   int
		offset   int
		limit    = c.size
	)

	flush := func() {
		if curLen == 0 {
			return
		}
		segments = append(segments, segment{text: cur.String(), offset: offset - curLen, length: curLen})
		cur.Reset()
		curLen = 0
		limit = c.budget()
	}

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if n > c.budget() {
			flush()
			segments = append(segments, segment{text: piece, offset: offset, length: n})
			offset += n
			limit = c.budget()
			continue
		}
		if curLen > 0 && curLen+n > limit {
			flush()
		}
		cur.WriteString(piece)
		curLen += n
		offset += n
	}
	flush()

	return segments
}

func splitRunes(text string, n int) []string {
	runes := []rune(text)
	pieces := make([]string, 0, len(runes)/n+1)
	for start := 0; start < len(runes); start += n {
		end := start + n
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

func generateChunkID(docID string, seq int) string {
	data := fmt.Sprintf("%s:%d", docID, seq)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
