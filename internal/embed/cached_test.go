package embed

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps StaticEmbedder and counts provider calls.
type countingEmbedder struct {
	*StaticEmbedder
	mu    sync.Mutex
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.calls += len(texts)
	c.mu.Unlock()
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedderHitAvoidsProvider(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	e, err := NewCachedEmbedder(inner, 10)
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	first, err := e.Embed(ctx, "refund policy")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "refund policy")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedderBatchMixesHitsAndMisses(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	e, err := NewCachedEmbedder(inner, 10)
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	_, err = e.Embed(ctx, "alpha")
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)

	batch, err := e.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, batch, 3)

	// alpha was cached; only beta and gamma hit the provider.
	assert.Equal(t, 3, inner.calls)

	direct, err := NewStaticEmbedder().Embed(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, direct, batch[1])
}

func TestCachedEmbedderEviction(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	e, err := NewCachedEmbedder(inner, 2)
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	_, _ = e.Embed(ctx, "one")
	_, _ = e.Embed(ctx, "two")
	_, _ = e.Embed(ctx, "three") // evicts "one"
	_, _ = e.Embed(ctx, "one")

	assert.Equal(t, 4, inner.calls)
}

func TestCachedEmbedderPassthroughMetadata(t *testing.T) {
	e, err := NewCachedEmbedder(NewStaticEmbedder(), 10)
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, StaticDimensions, e.Dimensions())
	assert.Equal(t, "static-hash-v1", e.ModelName())
	assert.True(t, e.Available(context.Background()))
}
