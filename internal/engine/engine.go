// Package engine assembles the content store, embedder, index
// builder, rebuild orchestration and retriever into one façade that
// the CLI and server expose.
package engine

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/askbase/askbase/internal/config"
	"github.com/askbase/askbase/internal/content"
	"github.com/askbase/askbase/internal/embed"
	akerrors "github.com/askbase/askbase/internal/errors"
	"github.com/askbase/askbase/internal/index"
	"github.com/askbase/askbase/internal/rebuild"
	"github.com/askbase/askbase/internal/search"
	"github.com/askbase/askbase/internal/store"
)

// Engine is the top-level retrieval engine.
type Engine struct {
	cfg       *config.Config
	lock      *store.DirLock
	content   content.Store
	embedder  embed.Embedder
	versions  *store.VersionStore
	manager   *rebuild.Manager
	orch      *rebuild.Orchestrator
	retriever *search.Retriever
	watcher   *content.DirWatcher
}

// ProjectStatus describes one project's index state.
type ProjectStatus struct {
	ProjectID string             `json:"project_id"`
	ItemCount int                `json:"item_count"`
	Current   *VersionInfo       `json:"current,omitempty"`
	Versions  []VersionInfo      `json:"versions"`
	Build     rebuild.BuildState `json:"build"`
}

// VersionInfo is the reportable subset of an index version.
type VersionInfo struct {
	VersionID         int64  `json:"version_id"`
	Status            string `json:"status"`
	ItemCount         int    `json:"item_count"`
	SkippedEmbeddings int    `json:"skipped_embeddings"`
	BuiltAt           string `json:"built_at"`
	BuildDurationMS   int64  `json:"build_duration_ms"`
}

// New assembles an engine from configuration. The data directory is
// locked for the engine's lifetime.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	lock, err := store.AcquireDirLock(cfg.Paths.DataDir)
	if err != nil {
		return nil, err
	}

	cs, err := content.NewSQLiteStore(filepath.Join(cfg.Paths.DataDir, "content.db"))
	if err != nil {
		_ = lock.Release()
		return nil, err
	}

	embedder, err := embed.New(ctx, embed.Options{
		Provider:   cfg.Embeddings.Provider,
		Host:       cfg.Embeddings.OllamaHost,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
		Timeout:    cfg.Embeddings.BuildTimeout.Std(),
		CacheSize:  cfg.Embeddings.CacheSize,
	})
	if err != nil {
		_ = cs.Close()
		_ = lock.Release()
		return nil, err
	}

	versions := store.NewVersionStore(cfg.Build.RetainedVersions)
	builder := index.NewBuilder(versions, embedder,
		cfg.Embeddings.BuildTimeout.Std(), cfg.Build.MaxEmbedFailureFraction,
		cfg.Embeddings.BatchSize)
	manager := rebuild.NewManager()
	orch := rebuild.NewOrchestrator(cs, builder, versions, manager, cfg.Build.DebounceWindow.Std())

	retriever := search.NewRetriever(versions, embedder, search.Config{
		LexicalWeight:    cfg.Search.LexicalWeight,
		VectorWeight:     cfg.Search.VectorWeight,
		MinScore:         cfg.Search.MinScore,
		VectorCandidates: cfg.Search.VectorCandidates,
		DefaultTopK:      cfg.Search.DefaultTopK,
		MaxTopK:          cfg.Search.MaxTopK,
		QueryTimeout:     cfg.Embeddings.QueryTimeout.Std(),
	})

	e := &Engine{
		cfg:       cfg,
		lock:      lock,
		content:   cs,
		embedder:  embedder,
		versions:  versions,
		manager:   manager,
		orch:      orch,
		retriever: retriever,
	}
	cs.OnChange(orch.OnContentChanged)
	return e, nil
}

// Start begins background rebuild processing, indexes all existing
// projects, and starts the content directory watcher when configured.
func (e *Engine) Start(ctx context.Context) error {
	e.orch.Start(ctx)

	projects, err := e.content.Projects(ctx)
	if err != nil {
		return err
	}
	for _, projectID := range projects {
		if err := e.orch.Sync(ctx, projectID); err != nil {
			// A failed startup build leaves the project without an
			// index until its content changes again; queries degrade
			// to empty results rather than blocking startup.
			slog.Error("startup_index_failed",
				"project_id", projectID,
				"error", err)
		}
	}

	if e.cfg.Paths.ContentDir != "" {
		w, err := content.NewDirWatcher(e.cfg.Paths.ContentDir, e.content,
			e.cfg.Build.DebounceWindow.Std())
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		e.watcher = w
		slog.Info("content_watch_started", "dir", e.cfg.Paths.ContentDir)
	}
	return nil
}

// Query runs a hybrid search. A project with no published index
// returns an empty response rather than an error.
func (e *Engine) Query(ctx context.Context, projectID, query string, opts search.Options) (*search.Response, error) {
	resp, err := e.retriever.Search(ctx, projectID, query, opts)
	if akerrors.IsCode(err, akerrors.ErrCodeNoIndexAvailable) {
		slog.Debug("query_no_index", "project_id", projectID)
		return &search.Response{Results: []search.Result{}}, nil
	}
	return resp, err
}

// Rebuild synchronously brings the project's index up to date. It
// returns ErrConcurrentBuildRejected when a build is already running.
func (e *Engine) Rebuild(ctx context.Context, projectID string) error {
	return e.orch.Sync(ctx, projectID)
}

// Content exposes the mutable content store.
func (e *Engine) Content() content.Store { return e.content }

// Status reports one project's index and build state.
func (e *Engine) Status(ctx context.Context, projectID string) (*ProjectStatus, error) {
	items, err := e.content.Snapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}

	st := &ProjectStatus{
		ProjectID: projectID,
		ItemCount: len(items),
		Build:     e.manager.State(projectID),
	}

	current, err := e.versions.GetCurrent(projectID)
	if err == nil {
		info := versionInfo(current)
		st.Current = &info
	}
	for _, v := range e.versions.List(projectID) {
		st.Versions = append(st.Versions, versionInfo(v))
	}
	return st, nil
}

// StatusAll reports every project known to the content store.
func (e *Engine) StatusAll(ctx context.Context) ([]ProjectStatus, error) {
	projects, err := e.content.Projects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectStatus, 0, len(projects))
	for _, projectID := range projects {
		st, err := e.Status(ctx, projectID)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, nil
}

// Close shuts the engine down in dependency order.
func (e *Engine) Close() error {
	if e.watcher != nil {
		_ = e.watcher.Close()
	}
	e.orch.Stop()

	var firstErr error
	if err := e.embedder.Close(); err != nil {
		firstErr = err
	}
	if err := e.versions.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.content.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.lock.Release(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func versionInfo(v *store.IndexVersion) VersionInfo {
	return VersionInfo{
		VersionID:         v.VersionID,
		Status:            string(v.Status),
		ItemCount:         v.ItemCount,
		SkippedEmbeddings: v.SkippedEmbeddings,
		BuiltAt:           v.BuiltAt.Format("2006-01-02T15:04:05Z07:00"),
		BuildDurationMS:   v.BuildDuration.Milliseconds(),
	}
}
