package domain

import (
	"errors"
	"fmt"
)

// Failure kinds. Adapters wrap these with %w so callers can use errors.Is.
var (
	// ErrIngestion indicates the corpus or one of its files could not be read.
	ErrIngestion = errors.New("ingestion failed")

	// ErrEmbedding indicates the embedding provider failed, was unreachable or rate limited.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch indicates vectors of different dimensionality were mixed.
	ErrDimensionMismatch = fmt.Errorf("%w: dimension mismatch", ErrEmbedding)

	// ErrPersistence indicates the index could not be written or read.
	ErrPersistence = errors.New("index persistence failed")

	// ErrIndexNotFound indicates no usable index exists at the location.
	ErrIndexNotFound = errors.New("index not found")

	// ErrGeneration indicates the language model call failed or timed out.
	ErrGeneration = errors.New("generation failed")

	ErrInvalidArgument = errors.New("invalid argument")
)

// Kind is the failure category reported to API callers.
type Kind string

const (
	KindInvalidArgument Kind = "invalid_argument"
	KindEmbedding       Kind = "embedding"
	KindRetrieval       Kind = "retrieval"
	KindGeneration      Kind = "generation"
	KindIngestion       Kind = "ingestion"
	KindInternal        Kind = "internal"
)

// KindOf classifies err. Index lookup and persistence failures at query time
// are retrieval failures.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrEmbedding):
		return KindEmbedding
	case errors.Is(err, ErrIndexNotFound), errors.Is(err, ErrPersistence):
		return KindRetrieval
	case errors.Is(err, ErrGeneration):
		return KindGeneration
	case errors.Is(err, ErrIngestion):
		return KindIngestion
	default:
		return KindInternal
	}
}
