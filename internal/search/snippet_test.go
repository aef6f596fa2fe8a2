package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeSnippetShortBodyUnchanged(t *testing.T) {
	assert.Equal(t, "Refunds within 30 days.",
		makeSnippet("Refunds within 30 days.", "refund"))
}

func TestMakeSnippetCentersOnMatch(t *testing.T) {
	body := strings.Repeat("filler words here. ", 40) +
		"The refund window is thirty days. " +
		strings.Repeat("more filler after. ", 40)

	got := makeSnippet(body, "refund window")
	assert.Contains(t, got, "refund window")
	assert.LessOrEqual(t, len([]rune(got)), snippetLength+40)
	assert.True(t, strings.HasPrefix(got, "…"))
}

func TestMakeSnippetNoMatchTakesPrefix(t *testing.T) {
	body := strings.Repeat("alpha beta gamma delta. ", 40)
	got := makeSnippet(body, "zeppelin")
	assert.True(t, strings.HasPrefix(got, "alpha beta"))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestMakeSnippetCollapsesWhitespace(t *testing.T) {
	got := makeSnippet("line one\n\n  line\ttwo", "line")
	assert.Equal(t, "line one line two", got)
}

func TestMakeSnippetEmpty(t *testing.T) {
	assert.Equal(t, "", makeSnippet("   ", "query"))
}
