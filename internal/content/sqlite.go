package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	akerrors "github.com/askbase/askbase/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
    id         TEXT NOT NULL,
    project_id TEXT NOT NULL,
    kind       TEXT NOT NULL,
    title      TEXT NOT NULL,
    body       TEXT NOT NULL,
    tags       TEXT NOT NULL DEFAULT '[]',
    source_ref TEXT NOT NULL DEFAULT '',
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (project_id, id)
);
CREATE INDEX IF NOT EXISTS idx_items_project ON items(project_id);
`

// SQLiteStore persists content items in a SQLite database.
// WAL mode allows a reader (index build) to snapshot while writers
// continue to mutate.
type SQLiteStore struct {
	mu        sync.RWMutex
	db        *sql.DB
	closed    bool
	listeners []ChangeListener
}

// Verify interface implementation at compile time
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a content database at path.
// An empty path creates an in-memory store for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, akerrors.Wrap(akerrors.ErrCodeStorageWrite, err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, akerrors.Wrap(akerrors.ErrCodeContentSource, err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// table-lock contention on in-memory databases.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, akerrors.Wrap(akerrors.ErrCodeContentSource,
			fmt.Errorf("apply schema: %w", err))
	}

	return &SQLiteStore{db: db}, nil
}

// OnChange registers a mutation listener.
func (s *SQLiteStore) OnChange(fn ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *SQLiteStore) notify(projectID string) {
	s.mu.RLock()
	listeners := make([]ChangeListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(projectID)
	}
}

// Put inserts or replaces an item. A missing ID is assigned a UUID and
// a zero UpdatedAt is set to now.
func (s *SQLiteStore) Put(ctx context.Context, item Item) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if item.ProjectID == "" {
		return akerrors.New(akerrors.ErrCodeInvalidInput, "item project_id is empty", nil)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}

	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return akerrors.Wrap(akerrors.ErrCodeStorageWrite, err)
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO items (id, project_id, kind, title, body, tags, source_ref, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(project_id, id) DO UPDATE SET
            kind=excluded.kind, title=excluded.title, body=excluded.body,
            tags=excluded.tags, source_ref=excluded.source_ref,
            updated_at=excluded.updated_at`,
		item.ID, item.ProjectID, string(item.Kind), item.Title, item.Body,
		string(tags), item.SourceRef, item.UpdatedAt.UnixNano())
	if err != nil {
		return akerrors.Wrap(akerrors.ErrCodeStorageWrite, err)
	}

	slog.Debug("content_item_put",
		"project_id", item.ProjectID,
		"item_id", item.ID,
		"kind", item.Kind)

	s.notify(item.ProjectID)
	return nil
}

// Delete removes an item. Unknown IDs are a no-op and do not notify.
func (s *SQLiteStore) Delete(ctx context.Context, projectID, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM items WHERE project_id = ? AND id = ?`, projectID, id)
	if err != nil {
		return akerrors.Wrap(akerrors.ErrCodeStorageWrite, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil
	}

	slog.Debug("content_item_deleted", "project_id", projectID, "item_id", id)
	s.notify(projectID)
	return nil
}

// Get returns a single item, or a VALIDATION error when absent.
func (s *SQLiteStore) Get(ctx context.Context, projectID, id string) (*Item, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
        SELECT id, project_id, kind, title, body, tags, source_ref, updated_at
        FROM items WHERE project_id = ? AND id = ?`, projectID, id)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, akerrors.New(akerrors.ErrCodeInvalidInput,
			fmt.Sprintf("item %s not found in project %s", id, projectID), nil)
	}
	if err != nil {
		return nil, akerrors.Wrap(akerrors.ErrCodeStorageRead, err)
	}
	return item, nil
}

// Snapshot returns all items in the project ordered by ID.
func (s *SQLiteStore) Snapshot(ctx context.Context, projectID string) ([]Item, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT id, project_id, kind, title, body, tags, source_ref, updated_at
        FROM items WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, akerrors.Wrap(akerrors.ErrCodeContentSource, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, akerrors.Wrap(akerrors.ErrCodeContentSource, err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, akerrors.Wrap(akerrors.ErrCodeContentSource, err)
	}
	return items, nil
}

// Projects lists the distinct project IDs present in the store.
func (s *SQLiteStore) Projects(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT project_id FROM items ORDER BY project_id`)
	if err != nil {
		return nil, akerrors.Wrap(akerrors.ErrCodeContentSource, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, akerrors.Wrap(akerrors.ErrCodeContentSource, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database. Further calls return a STORAGE error.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return akerrors.New(akerrors.ErrCodeContentSource, "content store is closed", nil)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item      Item
		kind      string
		tags      string
		updatedAt int64
	)
	if err := row.Scan(&item.ID, &item.ProjectID, &kind, &item.Title,
		&item.Body, &tags, &item.SourceRef, &updatedAt); err != nil {
		return nil, err
	}
	item.Kind = Kind(kind)
	item.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return &item, nil
}
