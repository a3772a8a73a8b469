package port

import "docsqa/internal/domain"

type FileWalker interface {
	Walk(root string) ([]FileInfo, error)
}

type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}

// DocumentLoader reads a corpus directory into documents.
type DocumentLoader interface {
	Load(root string) ([]domain.Document, error)
}
