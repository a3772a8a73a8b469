package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"unicode/utf8"

	"docsqa/internal/domain"
	"docsqa/internal/port"
)

// Loader reads every file found by a FileWalker into a Document.
type Loader struct {
	walker port.FileWalker
}

func NewLoader(walker port.FileWalker) *Loader {
	return &Loader{walker: walker}
}

// Load returns one document per file in walk order. Any unreadable or
// non-text file fails the whole load.
func (l *Loader) Load(root string) ([]domain.Document, error) {
	files, err := l.walker.Walk(root)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(files))
	for _, f := range files {
		text, err := ReadFile(f.Path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, domain.Document{
			ID:   DocumentID(f.Path),
			Path: f.Path,
			Text: text,
		})
	}
	return docs, nil
}

// DocumentID derives a stable identifier from a source path.
func DocumentID(path string) string {
	h := sha256.Sum256([]byte(path))
	return hex.EncodeToString(h[:8])
}

// ReadFile reads a UTF-8 text file.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrIngestion, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8 text", domain.ErrIngestion, path)
	}
	return string(data), nil
}
