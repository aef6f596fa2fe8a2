// Package embed generates vector embeddings for content items and
// queries. Two providers are available: an Ollama-backed embedder for
// real semantic vectors and a deterministic static embedder that needs
// no external service.
package embed

import (
	"context"
	"time"
)

const (
	// DefaultBatchSize is the default number of texts per embedding
	// request.
	DefaultBatchSize = 32

	// MaxBatchSize caps batch size to prevent memory exhaustion.
	MaxBatchSize = 256

	// DefaultMaxRetries is the default number of retry attempts for
	// transient provider failures.
	DefaultMaxRetries = 3

	// DefaultOllamaHost is the default Ollama API endpoint.
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is the default embedding model.
	DefaultOllamaModel = "nomic-embed-text"

	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 60 * time.Second

	// StaticDimensions is the embedding dimension of the static
	// provider.
	StaticDimensions = 256
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName returns the provider's model identifier.
	ModelName() string

	// Available reports whether the provider can currently serve
	// requests.
	Available(ctx context.Context) bool

	// Close releases provider resources.
	Close() error
}
