package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/askbase/askbase/internal/embed"
	akerrors "github.com/askbase/askbase/internal/errors"
	"github.com/askbase/askbase/internal/store"
)

// Config tunes the retriever.
type Config struct {
	LexicalWeight    float64
	VectorWeight     float64
	MinScore         float64
	VectorCandidates int
	DefaultTopK      int
	MaxTopK          int

	// QueryTimeout bounds the query-embedding call; on expiry the
	// query degrades to lexical-only.
	QueryTimeout time.Duration
}

// Retriever answers queries against published index versions.
type Retriever struct {
	versions *store.VersionStore
	embedder embed.Embedder
	cfg      Config
}

// NewRetriever creates a retriever over the given version store.
func NewRetriever(versions *store.VersionStore, embedder embed.Embedder, cfg Config) *Retriever {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 10
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = 100
	}
	if cfg.VectorCandidates <= 0 {
		cfg.VectorCandidates = 50
	}
	return &Retriever{versions: versions, embedder: embedder, cfg: cfg}
}

// Search runs a hybrid query against the project's current index
// version. The version pointer is read once; a publish happening
// mid-query does not affect the result set.
func (r *Retriever) Search(ctx context.Context, projectID, query string, opts Options) (*Response, error) {
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		return nil, akerrors.New(akerrors.ErrCodeQueryEmpty, "query text is empty", nil)
	}
	if projectID == "" {
		return nil, akerrors.New(akerrors.ErrCodeUnknownProject, "project id is empty", nil)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = r.cfg.DefaultTopK
	}
	if topK > r.cfg.MaxTopK {
		topK = r.cfg.MaxTopK
	}

	version, err := r.versions.GetCurrent(projectID)
	if err != nil {
		return nil, err
	}

	candidates := r.cfg.VectorCandidates
	if topK > candidates {
		candidates = topK
	}

	var (
		lexicalHits []store.LexicalResult
		vectorHits  []store.VectorResult
		degraded    bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var lexErr error
		lexicalHits, lexErr = version.Lexical.Search(gctx, query, candidates)
		return lexErr
	})
	g.Go(func() error {
		vec, vecErr := r.embedQuery(gctx, query)
		if vecErr != nil {
			// Vector scoring is best-effort; the lexical signal still
			// answers the query.
			degraded = true
			slog.Warn("query_degraded_lexical_only",
				"project_id", projectID,
				"version_id", version.VersionID,
				"error", vecErr)
			return nil
		}
		var searchErr error
		vectorHits, searchErr = version.Vector.Search(vec, candidates)
		if searchErr != nil {
			degraded = true
			vectorHits = nil
			slog.Warn("query_degraded_lexical_only",
				"project_id", projectID,
				"version_id", version.VersionID,
				"error", searchErr)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lexicalWeight, vectorWeight := r.cfg.LexicalWeight, r.cfg.VectorWeight
	if degraded || len(vectorHits) == 0 {
		// With no vector signal the lexical score carries full weight.
		lexicalWeight, vectorWeight = 1, 0
	}

	fused := fuse(lexicalHits, vectorHits, lexicalWeight, vectorWeight, version.Docs)

	results := make([]Result, 0, topK)
	for _, c := range fused {
		if len(results) == topK {
			break
		}
		if c.fused < r.cfg.MinScore {
			continue
		}
		doc, ok := version.Docs[c.id]
		if !ok {
			continue
		}
		results = append(results, Result{
			ItemID:       c.id,
			Kind:         doc.Kind,
			Title:        doc.Title,
			Snippet:      makeSnippet(doc.Body, query),
			SourceRef:    doc.SourceRef,
			UpdatedAt:    doc.UpdatedAt,
			Score:        c.fused,
			LexicalScore: c.lexicalNorm,
			VectorScore:  c.vectorNorm,
		})
	}

	took := time.Since(start)
	slog.Debug("query_completed",
		"project_id", projectID,
		"version_id", version.VersionID,
		"result_count", len(results),
		"degraded", degraded,
		"took_ms", took.Milliseconds())

	return &Response{
		Results:   results,
		VersionID: version.VersionID,
		Degraded:  degraded,
		Took:      took,
	}, nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.QueryTimeout)
		defer cancel()
	}
	return r.embedder.Embed(ctx, query)
}
