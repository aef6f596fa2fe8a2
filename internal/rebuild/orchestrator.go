package rebuild

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/askbase/askbase/internal/content"
	akerrors "github.com/askbase/askbase/internal/errors"
	"github.com/askbase/askbase/internal/index"
	"github.com/askbase/askbase/internal/store"
)

// Orchestrator reacts to content mutations by rebuilding the affected
// project's index in the background. Mutation bursts are debounced,
// triggers during a running build coalesce into a single follow-up
// check, and a build failure leaves the previously published version
// serving queries.
type Orchestrator struct {
	source   content.Source
	builder  *index.Builder
	versions *store.VersionStore
	manager  *Manager

	debounce time.Duration

	mu      sync.Mutex
	workers map[string]*worker
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// worker is the per-project rebuild goroutine and its trigger channel.
type worker struct {
	notify chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// NewOrchestrator wires the rebuild pipeline together.
func NewOrchestrator(source content.Source, builder *index.Builder,
	versions *store.VersionStore, manager *Manager, debounce time.Duration) *Orchestrator {
	return &Orchestrator{
		source:   source,
		builder:  builder,
		versions: versions,
		manager:  manager,
		debounce: debounce,
		workers:  make(map[string]*worker),
	}
}

// Start makes the orchestrator ready to accept triggers. It owns no
// goroutines until the first trigger arrives.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return
	}
	o.ctx, o.cancel = context.WithCancel(ctx)
	o.started = true
}

// Stop cancels all rebuild work and waits for workers to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return
	}
	o.cancel()
	o.started = false
	o.mu.Unlock()
	o.wg.Wait()

	// The worker goroutines have exited; drop them so a later Start
	// spawns fresh ones instead of notifying dead channels.
	o.mu.Lock()
	o.workers = make(map[string]*worker)
	o.mu.Unlock()
}

// OnContentChanged is the mutation hook. It is cheap and non-blocking;
// the actual rebuild happens on the project's worker goroutine after
// the debounce window closes.
func (o *Orchestrator) OnContentChanged(projectID string) {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return
	}
	w := o.workers[projectID]
	if w == nil {
		w = &worker{notify: make(chan struct{}, 1)}
		o.workers[projectID] = w
		o.wg.Add(1)
		go o.run(projectID, w)
	}
	o.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		// A pending trigger already covers this mutation.
		return
	}
	w.timer = time.AfterFunc(o.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		w.mu.Unlock()

		select {
		case w.notify <- struct{}{}:
		default:
		}
	})
}

func (o *Orchestrator) run(projectID string, w *worker) {
	defer o.wg.Done()
	for {
		select {
		case <-o.ctx.Done():
			return
		case <-w.notify:
			if err := o.Sync(o.ctx, projectID); err != nil {
				if akerrors.IsCode(err, akerrors.ErrCodeBuildFailed) ||
					o.ctx.Err() != nil {
					continue
				}
				slog.Error("rebuild_sync_failed",
					"project_id", projectID,
					"error", err)
			}
		}
	}
}

// Sync brings the project's published index up to date with its
// content, building as many times as needed until the fingerprints
// match. It returns ErrConcurrentBuildRejected when another build
// holds the project's slot; the holder re-checks dirtiness before
// releasing it, so the caller's mutation is still covered.
func (o *Orchestrator) Sync(ctx context.Context, projectID string) error {
	if !o.manager.TryBegin(projectID) {
		// Make sure the in-flight build is followed by a re-check even
		// if its own loop already passed the fingerprint comparison.
		o.OnContentChanged(projectID)
		return akerrors.ErrConcurrentBuildRejected
	}

	var err error
	defer func() { o.manager.End(projectID, err) }()

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
			return err
		}

		var items []content.Item
		items, err = o.source.Snapshot(ctx, projectID)
		if err != nil {
			return err
		}

		fingerprint := index.Fingerprint(items)
		if fingerprint == o.versions.CurrentFingerprint(projectID) {
			return nil
		}

		var v *store.IndexVersion
		v, err = o.builder.Build(ctx, projectID, items)
		if err != nil {
			slog.Warn("rebuild_kept_previous_version",
				"project_id", projectID,
				"error", err)
			return err
		}

		if err = o.versions.Publish(projectID, v.VersionID); err != nil {
			return err
		}
		// Loop to re-check: content may have changed during the build.
	}
}
