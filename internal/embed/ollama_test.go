package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	akerrors "github.com/askbase/askbase/internal/errors"
)

func fakeOllama(t *testing.T, dims int, failures *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if failures != nil && failures.Add(-1) >= 0 {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
			return
		}

		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		texts, ok := req.Input.([]any)
		require.True(t, ok)

		embeddings := make([][]float32, len(texts))
		for i := range texts {
			v := make([]float32, dims)
			v[i%dims] = 1.0
			embeddings[i] = v
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: embeddings})
	}))
}

func TestOllamaEmbedBatch(t *testing.T) {
	srv := fakeOllama(t, 4, nil)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		Model:           "test-model",
		SkipHealthCheck: true,
	})
	require.NoError(t, err)
	defer e.Close()

	vectors, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Len(t, vectors[0], 4)
	assert.True(t, e.Available(context.Background()))
}

func TestOllamaRetriesTransientFailures(t *testing.T) {
	var failures atomic.Int32
	failures.Store(2)
	srv := fakeOllama(t, 4, &failures)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		SkipHealthCheck: true,
		MaxRetries:      3,
	})
	require.NoError(t, err)
	defer e.Close()

	vectors, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
}

func TestOllamaExhaustedRetriesReturnProviderError(t *testing.T) {
	var failures atomic.Int32
	failures.Store(100)
	srv := fakeOllama(t, 4, &failures)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:            srv.URL,
		SkipHealthCheck: true,
		MaxRetries:      2,
	})
	require.NoError(t, err)
	defer e.Close()

	_, err = e.EmbedBatch(context.Background(), []string{"a"})
	assert.True(t, akerrors.IsCode(err, akerrors.ErrCodeEmbeddingUnavailable))
}

func TestOllamaHealthCheckFailure(t *testing.T) {
	_, err := NewOllamaEmbedder(context.Background(), OllamaConfig{
		Host:       "http://127.0.0.1:1", // nothing listens here
		Timeout:    500 * time.Millisecond,
		MaxRetries: 1,
	})
	require.Error(t, err)
	assert.True(t, akerrors.IsCode(err, akerrors.ErrCodeEmbeddingUnavailable))
}

func TestOllamaDimensionDetection(t *testing.T) {
	srv := fakeOllama(t, 8, nil)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), OllamaConfig{Host: srv.URL})
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, 8, e.Dimensions())
}

func TestFactorySelectsProvider(t *testing.T) {
	e, err := New(context.Background(), Options{Provider: "static", CacheSize: 16})
	require.NoError(t, err)
	defer e.Close()

	_, isCached := e.(*CachedEmbedder)
	assert.True(t, isCached)
	assert.Equal(t, StaticDimensions, e.Dimensions())

	_, err = New(context.Background(), Options{Provider: "bogus"})
	assert.Error(t, err)
}
