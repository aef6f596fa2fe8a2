// Package store holds the immutable index versions that queries run
// against. A version bundles a lexical BM25 index and a vector index
// built from one content snapshot; once ready it never changes, and a
// per-project pointer selects which version serves queries.
package store

import (
	"time"
)

// VersionStatus is the lifecycle state of an index version.
type VersionStatus string

const (
	// StatusBuilding means the version is still being constructed.
	StatusBuilding VersionStatus = "building"
	// StatusReady means the version is complete and publishable.
	StatusReady VersionStatus = "ready"
	// StatusFailed means the build aborted; the version never serves
	// queries.
	StatusFailed VersionStatus = "failed"
)

// DocMeta is the per-item metadata carried inside a version so query
// results can be returned without consulting the content store.
type DocMeta struct {
	ID        string
	Kind      string
	Title     string
	Body      string
	Tags      []string
	SourceRef string
	UpdatedAt time.Time
}

// IndexVersion is one immutable build of a project's indexes.
type IndexVersion struct {
	// VersionID is monotonically increasing per project.
	VersionID int64

	ProjectID string
	Status    VersionStatus

	// Fingerprint identifies the content snapshot this version was
	// built from.
	Fingerprint string

	BuiltAt       time.Time
	BuildDuration time.Duration

	// ItemCount is the number of items indexed lexically.
	ItemCount int

	// SkippedEmbeddings counts items present in the lexical index but
	// absent from the vector index because embedding failed.
	SkippedEmbeddings int

	// FailureReason is set when Status is StatusFailed.
	FailureReason string

	Lexical *LexicalIndex
	Vector  *VectorIndex

	// Docs maps item ID to its metadata at build time.
	Docs map[string]DocMeta
}

// Close releases the version's index resources.
func (v *IndexVersion) Close() error {
	var firstErr error
	if v.Lexical != nil {
		if err := v.Lexical.Close(); err != nil {
			firstErr = err
		}
	}
	if v.Vector != nil {
		if err := v.Vector.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LexicalResult is one hit from the BM25 index.
type LexicalResult struct {
	DocID string
	Score float64
}

// VectorResult is one hit from the vector index.
type VectorResult struct {
	DocID string
	Score float64
}
