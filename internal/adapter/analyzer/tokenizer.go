// Package analyzer holds the text measures shared by the local embedder and
// the context packer.
package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer splits text into lowercase terms and estimates LLM token counts.
type Tokenizer struct {
	stopwords map[string]struct{}
}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{stopwords: stopwordSet}
}

// Tokenize returns the content-bearing terms of text in order. Stopwords and
// single-rune words are dropped.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	terms := words[:0]
	for _, w := range words {
		w = strings.ToLower(w)
		if len([]rune(w)) < 2 {
			continue
		}
		if _, stop := t.stopwords[w]; stop {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}

// CountTokens returns an approximate token count for LLM budget estimation.
// Words average about 1.3 subword tokens; punctuation runs count as one each.
func (t *Tokenizer) CountTokens(text string) int {
	words := len(splitWords(text))
	runs := len(strings.FieldsFunc(text, func(r rune) bool { return !isPunct(r) }))
	if words == 0 && runs == 0 {
		return 0
	}
	return int(float64(words)*1.3+0.5) + runs
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func isPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// stopwordSet covers function words and the question words that open most
// queries against documentation.
var stopwordSet = func() map[string]struct{} {
	words := strings.Fields(`
		a an and are as at be been being but by can could did do does
		for from had has have how i if in into is it its me my of on or
		should so than that the their there these they this those to was
		we were what when where which who why will with would you your`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
