package search

import (
	"strings"
	"unicode"
)

// snippetLength is the soft cap on snippet size in runes.
const snippetLength = 240

// makeSnippet extracts a short excerpt from body, preferring the first
// sentence window that contains a query term. Falls back to the start
// of the body when nothing matches.
func makeSnippet(body, query string) string {
	body = strings.TrimSpace(collapseWhitespace(body))
	if body == "" {
		return ""
	}
	runes := []rune(body)
	if len(runes) <= snippetLength {
		return body
	}

	start := 0
	if idx := firstTermIndex(body, query); idx >= 0 {
		// Back up to a word boundary a little before the match.
		start = idx - snippetLength/3
		if start < 0 {
			start = 0
		}
		for start > 0 && !unicode.IsSpace(runes[start]) {
			start--
		}
	}

	end := start + snippetLength
	if end > len(runes) {
		end = len(runes)
		start = end - snippetLength
		if start < 0 {
			start = 0
		}
	}
	for end < len(runes) && !unicode.IsSpace(runes[end]) {
		end++
	}

	snippet := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(runes) {
		snippet += "…"
	}
	return snippet
}

// firstTermIndex returns the rune index of the first query term found
// in body, or -1.
func firstTermIndex(body, query string) int {
	lowerBody := strings.ToLower(body)
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if len(term) < 3 {
			continue
		}
		if byteIdx := strings.Index(lowerBody, term); byteIdx >= 0 {
			// Convert byte offset to rune offset.
			return len([]rune(lowerBody[:byteIdx]))
		}
	}
	return -1
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
