// Package search executes hybrid queries against a project's current
// index version. Lexical BM25 and vector similarity run in parallel
// and are fused with min-max normalized weighted scores; when the
// query embedding is unavailable the retriever degrades to lexical
// scoring alone.
package search

import (
	"time"
)

// Result is one ranked hit.
type Result struct {
	ItemID    string    `json:"item_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Snippet   string    `json:"snippet"`
	SourceRef string    `json:"source_ref,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`

	// Score is the fused relevance in [0, 1].
	Score float64 `json:"score"`

	// LexicalScore and VectorScore are the normalized per-signal
	// scores that produced Score. Zero when the signal had no hit.
	LexicalScore float64 `json:"lexical_score"`
	VectorScore  float64 `json:"vector_score"`
}

// Response is a completed query.
type Response struct {
	Results []Result `json:"results"`

	// VersionID identifies the index version that served the query.
	VersionID int64 `json:"version_id"`

	// Degraded is true when vector scoring was unavailable and only
	// lexical ranking applied.
	Degraded bool `json:"degraded"`

	Took time.Duration `json:"took"`
}

// Options tunes a single query.
type Options struct {
	// TopK is the number of results to return. Zero means the
	// configured default.
	TopK int
}
