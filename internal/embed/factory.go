package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Options selects and configures an embedding provider.
type Options struct {
	// Provider is "ollama" or "static".
	Provider   string
	Host       string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration

	// CacheSize enables an LRU cache around the provider when
	// positive.
	CacheSize int
}

// New creates an embedder for the chosen provider, wrapped in a cache
// when configured.
func New(ctx context.Context, opts Options) (Embedder, error) {
	var (
		inner Embedder
		err   error
	)

	switch opts.Provider {
	case "static":
		inner = NewStaticEmbedder()
	case "ollama":
		inner, err = NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       opts.Host,
			Model:      opts.Model,
			Dimensions: opts.Dimensions,
			BatchSize:  opts.BatchSize,
			Timeout:    opts.Timeout,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}

	slog.Info("embedder_ready",
		"provider", opts.Provider,
		"model", inner.ModelName(),
		"dimensions", inner.Dimensions())

	if opts.CacheSize > 0 {
		return NewCachedEmbedder(inner, opts.CacheSize)
	}
	return inner, nil
}
