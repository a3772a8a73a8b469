package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"docsqa/internal/domain"
)

// fakeEmbedder maps known texts to fixed vectors and everything else to a
// vector of the configured width.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	dim     int
	err     error
	calls   int
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.vectors[t]; ok {
			out[i] = v
			continue
		}
		v := make([]float32, e.dim)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func (e *fakeEmbedder) Dimension() int   { return e.dim }
func (e *fakeEmbedder) ModelName() string { return "fake" }

// fakeLLM records prompts and answers like an instruction-following model
// would when given no context.
type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	answer  string
	err     error
}

const insufficientAnswer = "The provided documentation does not cover this question."

func (l *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	if l.err != nil {
		return "", l.err
	}
	if strings.Contains(prompt, "(no relevant context was found)") {
		return insufficientAnswer, nil
	}
	return l.answer, nil
}

func (l *fakeLLM) ModelName() string { return "fake-llm" }

type fakeRetriever struct {
	result domain.RetrievalResult
	err    error
	calls  int
	topK   int
}

func (r *fakeRetriever) Retrieve(_ context.Context, _ string, topK int) (domain.RetrievalResult, error) {
	r.calls++
	r.topK = topK
	return r.result, r.err
}

var errProviderDown = errors.New("provider down")

func scored(path, text string, score float64) domain.ScoredEntry {
	return domain.ScoredEntry{
		Entry: domain.IndexEntry{ChunkID: path + ":" + text, Path: path, Text: text},
		Score: score,
	}
}
