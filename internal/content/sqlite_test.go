package content

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	akerrors "github.com/askbase/askbase/internal/errors"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStorePutGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := Item{
		ProjectID: "acme",
		Kind:      KindFAQ,
		Title:     "What is the refund window?",
		Body:      "Refunds are accepted within 30 days of purchase.",
		Tags:      []string{"billing", "refunds"},
		SourceRef: "https://support.example.com/kb/17",
	}
	require.NoError(t, s.Put(ctx, item))

	items, err := s.Snapshot(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, items, 1)

	got := items[0]
	assert.NotEmpty(t, got.ID, "missing ID should be assigned")
	assert.Equal(t, KindFAQ, got.Kind)
	assert.Equal(t, []string{"billing", "refunds"}, got.Tags)
	assert.False(t, got.UpdatedAt.IsZero())

	fetched, err := s.Get(ctx, "acme", got.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Title, fetched.Title)
}

func TestSQLiteStoreUpsertReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Put(ctx, Item{
		ID: "f1", ProjectID: "acme", Kind: KindFAQ,
		Title: "old title", Body: "old body", UpdatedAt: base,
	}))
	require.NoError(t, s.Put(ctx, Item{
		ID: "f1", ProjectID: "acme", Kind: KindFAQ,
		Title: "new title", Body: "new body", UpdatedAt: base.Add(time.Hour),
	}))

	items, err := s.Snapshot(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "new title", items[0].Title)
	assert.Equal(t, base.Add(time.Hour), items[0].UpdatedAt)
}

func TestSQLiteStoreProjectIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Item{ID: "a", ProjectID: "p1", Body: "alpha"}))
	require.NoError(t, s.Put(ctx, Item{ID: "a", ProjectID: "p2", Body: "beta"}))

	p1, err := s.Snapshot(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, p1, 1)
	assert.Equal(t, "alpha", p1[0].Body)

	projects, err := s.Projects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, projects)
}

func TestSQLiteStoreDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Item{ID: "a", ProjectID: "p1", Body: "x"}))
	require.NoError(t, s.Delete(ctx, "p1", "a"))

	items, err := s.Snapshot(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = s.Get(ctx, "p1", "a")
	assert.True(t, akerrors.IsCode(err, akerrors.ErrCodeInvalidInput))

	// Deleting an unknown ID is a no-op.
	require.NoError(t, s.Delete(ctx, "p1", "nope"))
}

func TestSQLiteStoreNotifications(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var notified []string
	s.OnChange(func(projectID string) { notified = append(notified, projectID) })

	require.NoError(t, s.Put(ctx, Item{ID: "a", ProjectID: "p1", Body: "x"}))
	require.NoError(t, s.Delete(ctx, "p1", "a"))
	// Unknown-ID delete must not notify.
	require.NoError(t, s.Delete(ctx, "p1", "ghost"))

	assert.Equal(t, []string{"p1", "p1"}, notified)
}

func TestSQLiteStoreRejectsEmptyProject(t *testing.T) {
	s := newTestStore(t)
	err := s.Put(context.Background(), Item{ID: "a", Body: "x"})
	assert.True(t, akerrors.IsCode(err, akerrors.ErrCodeInvalidInput))
}

func TestSQLiteStorePersistsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, Item{ID: "a", ProjectID: "p1", Body: "persisted"}))
	require.NoError(t, s.Close())

	s2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()

	items, err := s2.Snapshot(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "persisted", items[0].Body)
}

func TestSQLiteStoreClosed(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	err := s.Put(context.Background(), Item{ID: "a", ProjectID: "p1"})
	assert.True(t, akerrors.IsCode(err, akerrors.ErrCodeContentSource))
}

func TestSQLiteStoreAppliesPragmas(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	defer s.Close()

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, s.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}
