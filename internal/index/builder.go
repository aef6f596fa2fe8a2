package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/askbase/askbase/internal/content"
	"github.com/askbase/askbase/internal/embed"
	akerrors "github.com/askbase/askbase/internal/errors"
	"github.com/askbase/askbase/internal/store"
)

// Builder constructs index versions from content snapshots.
type Builder struct {
	versions *store.VersionStore
	embedder embed.Embedder

	// embedTimeout bounds each embedding batch during a build.
	embedTimeout time.Duration

	// maxFailureFraction aborts the build when more than this share of
	// items fail embedding.
	maxFailureFraction float64

	batchSize int
}

// NewBuilder creates a builder writing versions into the given store.
func NewBuilder(versions *store.VersionStore, embedder embed.Embedder,
	embedTimeout time.Duration, maxFailureFraction float64, batchSize int) *Builder {
	if batchSize <= 0 {
		batchSize = embed.DefaultBatchSize
	}
	return &Builder{
		versions:           versions,
		embedder:           embedder,
		embedTimeout:       embedTimeout,
		maxFailureFraction: maxFailureFraction,
		batchSize:          batchSize,
	}
}

// Build constructs a new index version from the snapshot and returns
// it in the ready state. On failure the version is marked failed,
// dropped from the store, and an error returned; the previously
// published version is untouched either way.
//
// Items whose embedding fails are indexed lexically but skipped in the
// vector index, up to the configured failure fraction.
func (b *Builder) Build(ctx context.Context, projectID string, items []content.Item) (*store.IndexVersion, error) {
	start := time.Now()
	fingerprint := Fingerprint(items)
	v := b.versions.Begin(projectID, fingerprint)

	slog.Info("index_build_started",
		"project_id", projectID,
		"version_id", v.VersionID,
		"item_count", len(items))

	if err := b.populate(ctx, v, items); err != nil {
		v.Status = store.StatusFailed
		v.FailureReason = err.Error()
		_ = v.Close()

		slog.Error("index_build_failed",
			"project_id", projectID,
			"version_id", v.VersionID,
			"error", err)
		return nil, akerrors.BuildFailed(projectID, err)
	}

	v.Status = store.StatusReady
	v.BuildDuration = time.Since(start)
	if err := b.versions.Complete(v); err != nil {
		_ = v.Close()
		return nil, akerrors.BuildFailed(projectID, err)
	}

	slog.Info("index_build_completed",
		"project_id", projectID,
		"version_id", v.VersionID,
		"item_count", v.ItemCount,
		"skipped_embeddings", v.SkippedEmbeddings,
		"duration_ms", v.BuildDuration.Milliseconds())
	return v, nil
}

func (b *Builder) populate(ctx context.Context, v *store.IndexVersion, items []content.Item) error {
	lexical, err := store.NewLexicalIndex()
	if err != nil {
		return err
	}
	vector, err := store.NewVectorIndex(b.embedder.Dimensions())
	if err != nil {
		_ = lexical.Close()
		return err
	}
	v.Lexical = lexical
	v.Vector = vector

	docs := make(map[string]store.DocMeta, len(items))
	for _, it := range items {
		docs[it.ID] = store.DocMeta{
			ID:        it.ID,
			Kind:      string(it.Kind),
			Title:     it.Title,
			Body:      it.Body,
			Tags:      it.Tags,
			SourceRef: it.SourceRef,
			UpdatedAt: it.UpdatedAt,
		}
	}
	v.Docs = docs
	v.ItemCount = len(items)

	if err := lexical.Index(docs); err != nil {
		return err
	}

	if err := b.embedAll(ctx, v, items); err != nil {
		return err
	}

	failed := v.SkippedEmbeddings
	if len(items) > 0 && float64(failed)/float64(len(items)) > b.maxFailureFraction {
		return fmt.Errorf("embedding failed for %d of %d items, above the %.2f limit",
			failed, len(items), b.maxFailureFraction)
	}
	return checkConsistency(v)
}

// checkConsistency verifies the built index structures agree with the
// snapshot before the version may transition to ready.
func checkConsistency(v *store.IndexVersion) error {
	lexCount, err := v.Lexical.DocCount()
	if err != nil {
		return err
	}
	if int(lexCount) != len(v.Docs) {
		return fmt.Errorf("lexical index holds %d documents, snapshot has %d",
			lexCount, len(v.Docs))
	}
	if want := len(v.Docs) - v.SkippedEmbeddings; v.Vector.Count() != want {
		return fmt.Errorf("vector index holds %d entries, expected %d",
			v.Vector.Count(), want)
	}
	return nil
}

// embedAll embeds items in batches. A failed batch falls back to
// per-item embedding so one bad item does not discard its whole batch.
func (b *Builder) embedAll(ctx context.Context, v *store.IndexVersion, items []content.Item) error {
	for start := 0; start < len(items); start += b.batchSize {
		end := min(start+b.batchSize, len(items))
		batch := items[start:end]

		texts := make([]string, len(batch))
		ids := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].SearchText()
			ids[i] = batch[i].ID
		}

		vectors, err := b.embedBatch(ctx, texts)
		if err == nil {
			if err := v.Vector.Add(ids, vectors); err != nil {
				return err
			}
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		for i := range batch {
			vec, err := b.embedBatch(ctx, texts[i:i+1])
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				v.SkippedEmbeddings++
				slog.Warn("embedding_skipped",
					"project_id", v.ProjectID,
					"version_id", v.VersionID,
					"item_id", ids[i],
					"error", err)
				continue
			}
			if err := v.Vector.Add(ids[i:i+1], vec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embedCtx := ctx
	if b.embedTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, b.embedTimeout)
		defer cancel()
	}
	return b.embedder.EmbedBatch(embedCtx, texts)
}
