// Package content manages the source-of-truth knowledge items that
// indexes are built from. Items live in per-project collections; every
// mutation notifies registered listeners so indexing can react.
package content

import (
	"context"
	"time"
)

// Kind classifies a content item.
type Kind string

const (
	// KindFAQ is a question/answer pair.
	KindFAQ Kind = "faq"
	// KindArticle is a knowledge-base article.
	KindArticle Kind = "article"
)

// Item is a single unit of indexable knowledge.
type Item struct {
	// ID uniquely identifies the item within its project.
	ID string

	// ProjectID is the owning tenant.
	ProjectID string

	// Kind is faq or article.
	Kind Kind

	// Title is the question text for FAQs, the headline for articles.
	Title string

	// Body is the answer or article text.
	Body string

	// Tags are optional free-form labels.
	Tags []string

	// SourceRef points back to the system the item came from,
	// e.g. a ticket URL or import path. Informational only.
	SourceRef string

	// UpdatedAt is the last modification time. It participates in
	// snapshot fingerprints, so any edit must bump it.
	UpdatedAt time.Time
}

// SearchText returns the text that feeds both indexes.
func (it *Item) SearchText() string {
	if it.Title == "" {
		return it.Body
	}
	return it.Title + "\n" + it.Body
}

// Source provides read access to a project's items for index builds.
type Source interface {
	// Snapshot returns every item in the project at a single point in
	// time. Builds operate on this slice and never re-read the source.
	Snapshot(ctx context.Context, projectID string) ([]Item, error)

	// Projects lists all project IDs that have at least one item.
	Projects(ctx context.Context) ([]string, error)
}

// ChangeListener receives mutation notifications.
type ChangeListener func(projectID string)

// Store is a mutable content source.
type Store interface {
	Source

	// Put inserts or replaces an item and notifies listeners.
	Put(ctx context.Context, item Item) error

	// Delete removes an item and notifies listeners. Deleting an
	// unknown ID is a no-op.
	Delete(ctx context.Context, projectID, id string) error

	// Get returns a single item by ID.
	Get(ctx context.Context, projectID, id string) (*Item, error)

	// OnChange registers a listener called after every mutation.
	OnChange(fn ChangeListener)

	// Close releases underlying resources.
	Close() error
}
