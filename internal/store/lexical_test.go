package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLexicalFixture(t *testing.T) *LexicalIndex {
	t.Helper()
	idx, err := NewLexicalIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	require.NoError(t, idx.Index(map[string]DocMeta{
		"f1": {ID: "f1", Title: "What is the refund window?",
			Body: "Refunds are accepted within 30 days of purchase."},
		"f2": {ID: "f2", Title: "How do I reset my password?",
			Body: "Use the forgot password link on the login page."},
		"a1": {ID: "a1", Title: "Shipping policy",
			Body: "Orders ship within two business days. Express shipping is available."},
	}))
	return idx
}

func TestLexicalSearchRanksMatchingDoc(t *testing.T) {
	idx := newLexicalFixture(t)

	results, err := idx.Search(context.Background(), "refund window", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "f1", results[0].DocID)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestLexicalSearchTitleTerms(t *testing.T) {
	idx := newLexicalFixture(t)

	results, err := idx.Search(context.Background(), "password reset", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "f2", results[0].DocID)
}

func TestLexicalSearchEmptyQuery(t *testing.T) {
	idx := newLexicalFixture(t)

	results, err := idx.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLexicalSearchNoMatch(t *testing.T) {
	idx := newLexicalFixture(t)

	results, err := idx.Search(context.Background(), "quantum chromodynamics", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLexicalSearchRespectsLimit(t *testing.T) {
	idx := newLexicalFixture(t)

	results, err := idx.Search(context.Background(), "shipping refund password", 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 1)
}

func TestLexicalDocCount(t *testing.T) {
	idx := newLexicalFixture(t)

	n, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestLexicalClosed(t *testing.T) {
	idx, err := NewLexicalIndex()
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	_, err = idx.Search(context.Background(), "anything", 5)
	assert.Error(t, err)
}

func TestTokenizeText(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Refund Window", []string{"refund", "window"}},
		{"30-day money-back", []string{"30", "day", "money", "back"}},
		{"a b c", nil},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TokenizeText(tt.input), "input %q", tt.input)
	}
}

func TestLexicalSearchMatchesTags(t *testing.T) {
	idx, err := NewLexicalIndex()
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Index(map[string]DocMeta{
		"f1": {ID: "f1", Title: "Can I change my plan?",
			Body: "Plans can be changed at any time.",
			Tags: []string{"billing", "subscription"}},
		"f2": {ID: "f2", Title: "Where is my invoice?",
			Body: "Invoices are emailed monthly."},
	}))

	// The term appears only in f1's tags.
	results, err := idx.Search(context.Background(), "subscription", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "f1", results[0].DocID)
}
