package usecase

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"text/template"

	"docsqa/internal/domain"
	"docsqa/internal/port"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

const defaultPromptTemplate = "templates/answer_prompt.txt"

// PromptData is what answer prompt templates render.
type PromptData struct {
	Question string
	Sources  []PromptSource
}

// PromptSource is one numbered context passage.
type PromptSource struct {
	N     int
	Path  string
	Text  string
	Score float64
}

// LoadPromptTemplate parses the template at path, or the built-in one when
// path is empty.
func LoadPromptTemplate(path string) (*template.Template, error) {
	if path == "" {
		return template.ParseFS(promptTemplates, defaultPromptTemplate)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt template: %w", err)
	}
	return template.New(path).Parse(string(data))
}

// Synthesis is a generated answer and the passages it was grounded on.
type Synthesis struct {
	Answer string
	Used   domain.RetrievalResult
	Prompt string
}

// SynthesizeUseCase packs retrieved passages into a token-bounded context and
// asks the language model once.
type SynthesizeUseCase struct {
	llm     port.LLM
	counter port.TokenCounter
	budget  int
	tmpl    *template.Template
}

// NewSynthesizeUseCase creates a new synthesize use case. budget bounds the
// context block in estimated tokens.
func NewSynthesizeUseCase(llm port.LLM, counter port.TokenCounter, budget int, tmpl *template.Template) *SynthesizeUseCase {
	return &SynthesizeUseCase{
		llm:     llm,
		counter: counter,
		budget:  budget,
		tmpl:    tmpl,
	}
}

// Synthesize answers query from retrieved, which must be ordered strongest
// first. Passages are kept in that order until one does not fit the budget;
// it and every weaker passage are dropped. The answer is returned verbatim.
func (u *SynthesizeUseCase) Synthesize(ctx context.Context, query string, retrieved domain.RetrievalResult) (Synthesis, error) {
	used, sources := u.pack(retrieved)

	var buf bytes.Buffer
	if err := u.tmpl.Execute(&buf, PromptData{Question: query, Sources: sources}); err != nil {
		return Synthesis{}, fmt.Errorf("failed to render prompt: %w", err)
	}
	prompt := buf.String()

	answer, err := u.llm.Generate(ctx, prompt)
	if err != nil {
		if !errors.Is(err, domain.ErrGeneration) {
			err = fmt.Errorf("%w: %v", domain.ErrGeneration, err)
		}
		return Synthesis{}, err
	}

	return Synthesis{Answer: answer, Used: used, Prompt: prompt}, nil
}

func (u *SynthesizeUseCase) pack(retrieved domain.RetrievalResult) (domain.RetrievalResult, []PromptSource) {
	used := make(domain.RetrievalResult, 0, len(retrieved))
	sources := make([]PromptSource, 0, len(retrieved))
	usedTokens := 0

	for i, r := range retrieved {
		tokens := u.counter.CountTokens(r.Entry.Path) + u.counter.CountTokens(r.Entry.Text)
		if usedTokens+tokens > u.budget {
			break
		}
		usedTokens += tokens
		used = append(used, r)
		sources = append(sources, PromptSource{
			N:     i + 1,
			Path:  r.Entry.Path,
			Text:  r.Entry.Text,
			Score: r.Score,
		})
	}
	return used, sources
}
