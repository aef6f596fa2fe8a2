package index

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askbase/askbase/internal/content"
	"github.com/askbase/askbase/internal/embed"
	akerrors "github.com/askbase/askbase/internal/errors"
	"github.com/askbase/askbase/internal/store"
)

// flakyEmbedder fails embedding for texts containing a marker string.
type flakyEmbedder struct {
	*embed.StaticEmbedder
	failOn string
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errors.New("provider unavailable")
	}
	return f.StaticEmbedder.Embed(ctx, text)
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func testItems(ids ...string) []content.Item {
	items := make([]content.Item, len(ids))
	for i, id := range ids {
		items[i] = content.Item{
			ID:        id,
			ProjectID: "p1",
			Kind:      content.KindFAQ,
			Title:     "title " + id,
			Body:      "body text for " + id,
			UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		}
	}
	return items
}

func TestBuildProducesReadyVersion(t *testing.T) {
	versions := store.NewVersionStore(1)
	defer versions.Close()
	b := NewBuilder(versions, embed.NewStaticEmbedder(), time.Minute, 0.5, 2)

	items := testItems("a", "b", "c")
	v, err := b.Build(context.Background(), "p1", items)
	require.NoError(t, err)

	assert.Equal(t, store.StatusReady, v.Status)
	assert.Equal(t, 3, v.ItemCount)
	assert.Equal(t, 0, v.SkippedEmbeddings)
	assert.Equal(t, Fingerprint(items), v.Fingerprint)
	assert.Equal(t, 3, v.Vector.Count())

	n, err := v.Lexical.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestBuildSkipsFailedEmbeddings(t *testing.T) {
	versions := store.NewVersionStore(1)
	defer versions.Close()
	e := &flakyEmbedder{StaticEmbedder: embed.NewStaticEmbedder(), failOn: "body text for b"}
	b := NewBuilder(versions, e, time.Minute, 0.5, 10)

	v, err := b.Build(context.Background(), "p1", testItems("a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, store.StatusReady, v.Status)
	assert.Equal(t, 1, v.SkippedEmbeddings)
	assert.Equal(t, 2, v.Vector.Count())
	assert.False(t, v.Vector.Contains("b"))

	// The skipped item is still searchable lexically.
	results, err := v.Lexical.Search(context.Background(), "title b", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
}

func TestBuildAbortsAboveFailureFraction(t *testing.T) {
	versions := store.NewVersionStore(1)
	defer versions.Close()
	e := &flakyEmbedder{StaticEmbedder: embed.NewStaticEmbedder(), failOn: "body text"}
	b := NewBuilder(versions, e, time.Minute, 0.5, 10)

	_, err := b.Build(context.Background(), "p1", testItems("a", "b", "c"))
	require.Error(t, err)
	assert.True(t, akerrors.IsCode(err, akerrors.ErrCodeBuildFailed))

	// The failed version is not kept around.
	assert.Empty(t, versions.List("p1"))
}

func TestBuildEmptySnapshot(t *testing.T) {
	versions := store.NewVersionStore(1)
	defer versions.Close()
	b := NewBuilder(versions, embed.NewStaticEmbedder(), time.Minute, 0.5, 10)

	v, err := b.Build(context.Background(), "p1", nil)
	require.NoError(t, err)
	assert.Equal(t, store.StatusReady, v.Status)
	assert.Equal(t, 0, v.ItemCount)

	require.NoError(t, versions.Publish("p1", v.VersionID))
}

func TestBuildCancelled(t *testing.T) {
	versions := store.NewVersionStore(1)
	defer versions.Close()
	b := NewBuilder(versions, embed.NewStaticEmbedder(), time.Minute, 0.5, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Build(ctx, "p1", testItems("a"))
	require.Error(t, err)
	assert.True(t, akerrors.IsCode(err, akerrors.ErrCodeBuildFailed))
}

func TestFingerprintStability(t *testing.T) {
	items := testItems("a", "b")

	assert.Equal(t, Fingerprint(items), Fingerprint(items))

	// Order does not matter.
	reversed := []content.Item{items[1], items[0]}
	assert.Equal(t, Fingerprint(items), Fingerprint(reversed))

	// Touching an item changes the fingerprint.
	touched := testItems("a", "b")
	touched[0].UpdatedAt = touched[0].UpdatedAt.Add(time.Second)
	assert.NotEqual(t, Fingerprint(items), Fingerprint(touched))

	// Adding or removing items changes the fingerprint.
	assert.NotEqual(t, Fingerprint(items), Fingerprint(testItems("a")))
	assert.NotEqual(t, Fingerprint(nil), Fingerprint(testItems("a")))
}

// stallingEmbedder blocks every batch until released.
type stallingEmbedder struct {
	*embed.StaticEmbedder
	release chan struct{}
}

func (s *stallingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestBuildInFlightVersionNotVisible(t *testing.T) {
	versions := store.NewVersionStore(1)
	defer versions.Close()
	e := &stallingEmbedder{StaticEmbedder: embed.NewStaticEmbedder(), release: make(chan struct{})}
	b := NewBuilder(versions, e, time.Minute, 0.5, 10)

	built := make(chan *store.IndexVersion, 1)
	errCh := make(chan error, 1)
	go func() {
		v, err := b.Build(context.Background(), "p1", testItems("a", "b"))
		built <- v
		errCh <- err
	}()

	// Readers must never see the version while the build mutates it.
	for i := 0; i < 20; i++ {
		assert.Empty(t, versions.List("p1"))
		time.Sleep(time.Millisecond)
	}

	close(e.release)
	v := <-built
	require.NoError(t, <-errCh)
	assert.Equal(t, store.StatusReady, v.Status)

	listed := versions.List("p1")
	require.Len(t, listed, 1)
	assert.Equal(t, store.StatusReady, listed[0].Status)
}

func TestCheckConsistency(t *testing.T) {
	lexical, err := store.NewLexicalIndex()
	require.NoError(t, err)
	defer lexical.Close()
	vector, err := store.NewVectorIndex(4)
	require.NoError(t, err)
	defer vector.Close()

	docs := map[string]store.DocMeta{
		"a": {ID: "a", Title: "first", Body: "alpha body"},
		"b": {ID: "b", Title: "second", Body: "beta body"},
	}
	v := &store.IndexVersion{Lexical: lexical, Vector: vector, Docs: docs}

	// Only one of the two documents made it into the lexical index.
	require.NoError(t, lexical.Index(map[string]store.DocMeta{"a": docs["a"]}))
	err = checkConsistency(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lexical index")

	// Lexical counts agree but the vector index is missing entries
	// that were not recorded as skipped.
	require.NoError(t, lexical.Index(map[string]store.DocMeta{"b": docs["b"]}))
	err = checkConsistency(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector index")

	v.SkippedEmbeddings = 2
	require.NoError(t, checkConsistency(v))
}
