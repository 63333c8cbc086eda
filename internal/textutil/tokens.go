// Package textutil holds the word tokenizer shared by the hashing embedder
// and the extractive summarizer.
package textutil

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// Tokens returns the lowercased words and numbers of text in order.
func Tokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// IsStopword reports whether the lowercased token carries no topic signal.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// ContentTokens is Tokens without stopwords.
func ContentTokens(text string) []string {
	raw := Tokens(text)
	out := raw[:0]
	for _, t := range raw {
		if !IsStopword(t) {
			out = append(out, t)
		}
	}
	return out
}
