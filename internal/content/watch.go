package content

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fileOp is a coalesced filesystem operation for one item file.
type fileOp int

const (
	opWrite fileOp = iota
	opRemove
)

// itemFile is the on-disk JSON shape for dropped content files.
// The item ID is the file name without extension; the project is the
// parent directory name.
type itemFile struct {
	Kind      string   `json:"kind"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Tags      []string `json:"tags,omitempty"`
	SourceRef string   `json:"source_ref,omitempty"`
}

// DirWatcher mirrors a content drop directory into a Store. The layout
// is <root>/<project_id>/<item_id>.json; writing a file upserts the
// item, removing it deletes the item. Events for the same file within
// the debounce window are coalesced so editor save bursts produce a
// single mutation:
//   - WRITE then REMOVE within the window cancels to a REMOVE
//   - REMOVE then WRITE becomes a WRITE (file was replaced)
type DirWatcher struct {
	root    string
	store   Store
	window  time.Duration
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]fileOp
	timer   *time.Timer

	doneCh chan struct{}
}

// NewDirWatcher creates a watcher over root. Start must be called to
// begin processing events.
func NewDirWatcher(root string, store Store, window time.Duration) (*DirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &DirWatcher{
		root:    root,
		store:   store,
		window:  window,
		watcher: w,
		pending: make(map[string]fileOp),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start performs an initial sync of all existing files, then processes
// filesystem events until ctx is cancelled.
func (w *DirWatcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return err
	}
	if err := w.watcher.Add(w.root); err != nil {
		return err
	}

	// Watch existing project directories and sync their files.
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(w.root, e.Name())
		if err := w.watcher.Add(dir); err != nil {
			slog.Warn("content_watch_add_failed", "dir", dir, "error", err)
			continue
		}
		w.syncExisting(ctx, dir)
	}

	go w.loop(ctx)
	return nil
}

// Done is closed when the event loop has exited.
func (w *DirWatcher) Done() <-chan struct{} { return w.doneCh }

// Close stops the underlying fsnotify watcher, which makes the event
// loop exit. Safe to call more than once.
func (w *DirWatcher) Close() error {
	return w.watcher.Close()
}

func (w *DirWatcher) syncExisting(ctx context.Context, dir string) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		w.applyWrite(ctx, filepath.Join(dir, f.Name()))
	}
}

func (w *DirWatcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("content_watch_error", "error", err)
		}
	}
}

func (w *DirWatcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	// New project directory: start watching it.
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if filepath.Dir(ev.Name) == w.root {
				_ = w.watcher.Add(ev.Name)
				w.syncExisting(ctx, ev.Name)
			}
			return
		}
	}

	if !strings.HasSuffix(ev.Name, ".json") {
		return
	}

	var op fileOp
	switch {
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		op = opRemove
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		op = opWrite
	default:
		return
	}

	w.mu.Lock()
	// The latest event reflects the file's final state, so it simply
	// replaces any pending op for the path.
	w.pending[ev.Name] = op
	if w.timer == nil {
		w.timer = time.AfterFunc(w.window, func() { w.flush(ctx) })
	}
	w.mu.Unlock()
}

func (w *DirWatcher) flush(ctx context.Context) {
	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string]fileOp)
	w.timer = nil
	w.mu.Unlock()

	for path, op := range batch {
		switch op {
		case opWrite:
			w.applyWrite(ctx, path)
		case opRemove:
			w.applyRemove(ctx, path)
		}
	}
}

// splitPath derives (projectID, itemID) from an item file path.
func (w *DirWatcher) splitPath(path string) (string, string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".json"), true
}

func (w *DirWatcher) applyWrite(ctx context.Context, path string) {
	projectID, itemID, ok := w.splitPath(path)
	if !ok {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// The file may have been removed between event and flush.
		return
	}

	var f itemFile
	if err := json.Unmarshal(data, &f); err != nil {
		slog.Warn("content_file_invalid", "path", path, "error", err)
		return
	}

	info, err := os.Stat(path)
	updatedAt := time.Now().UTC()
	if err == nil {
		updatedAt = info.ModTime().UTC()
	}

	kind := Kind(f.Kind)
	if kind == "" {
		kind = KindArticle
	}

	item := Item{
		ID:        itemID,
		ProjectID: projectID,
		Kind:      kind,
		Title:     f.Title,
		Body:      f.Body,
		Tags:      f.Tags,
		SourceRef: f.SourceRef,
		UpdatedAt: updatedAt,
	}
	if err := w.store.Put(ctx, item); err != nil {
		slog.Warn("content_file_put_failed", "path", path, "error", err)
	}
}

func (w *DirWatcher) applyRemove(ctx context.Context, path string) {
	projectID, itemID, ok := w.splitPath(path)
	if !ok {
		return
	}
	if err := w.store.Delete(ctx, projectID, itemID); err != nil {
		slog.Warn("content_file_delete_failed", "path", path, "error", err)
	}
}
