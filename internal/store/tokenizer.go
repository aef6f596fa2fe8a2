package store

import (
	"strings"
	"unicode"
)

// DefaultStopWords are filtered from indexed text and queries. They
// carry no ranking signal for knowledge-base prose.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "can", "do",
	"does", "for", "from", "how", "i", "in", "is", "it", "my", "of",
	"on", "or", "that", "the", "this", "to", "was", "we", "what",
	"when", "where", "which", "who", "will", "with", "you", "your",
}

// BuildStopWordMap converts a stop word list to a lookup map.
func BuildStopWordMap(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// TokenizeText splits text into lowercase tokens on any non-alphanumeric
// boundary. Single-character tokens are dropped.
func TokenizeText(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() >= 2 {
			tokens = append(tokens, strings.ToLower(current.String()))
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}
