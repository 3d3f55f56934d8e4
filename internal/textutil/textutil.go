// Package textutil holds the tokenizer shared by the TF-IDF embedder and the summarizer.
package textutil

import (
	"regexp"
	"strings"
)

var (
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now", "what", "which", "who", "how", "why", "when", "where",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// Tokens lowercases text and returns its word tokens, stopwords removed.
func Tokens(text string) []string {
	raw := wordRe.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if IsStopword(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// IsStopword reports whether the lowercased token carries no retrieval signal.
func IsStopword(tok string) bool {
	_, ok := stopwords[tok]
	return ok
}

// Sentences splits text on terminal punctuation. Text without any is returned whole.
func Sentences(text string) []string {
	found := sentenceRe.FindAllString(text, -1)
	if len(found) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}
	for i := range found {
		found[i] = strings.TrimSpace(found[i])
	}
	return found
}
