package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".askbase", cfg.Paths.DataDir)
	assert.InDelta(t, 1.0, cfg.Search.LexicalWeight+cfg.Search.VectorWeight, 0.001)
	assert.Equal(t, 0.5, cfg.Build.MaxEmbedFailureFraction)
	assert.Equal(t, 1, cfg.Build.RetainedVersions)
	assert.Equal(t, Duration(3*time.Second), cfg.Embeddings.QueryTimeout)

	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Search.DefaultTopK, cfg.Search.DefaultTopK)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "askbase.yaml")
	data := `
paths:
  data_dir: /tmp/askbase-test
search:
  lexical_weight: 0.3
  vector_weight: 0.7
  default_top_k: 5
build:
  max_embed_failure_fraction: 0.25
  debounce_window: 500ms
embeddings:
  provider: ollama
  model: nomic-embed-text
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/askbase-test", cfg.Paths.DataDir)
	assert.Equal(t, 0.3, cfg.Search.LexicalWeight)
	assert.Equal(t, 0.7, cfg.Search.VectorWeight)
	assert.Equal(t, 5, cfg.Search.DefaultTopK)
	assert.Equal(t, 0.25, cfg.Build.MaxEmbedFailureFraction)
	assert.Equal(t, Duration(500*time.Millisecond), cfg.Build.DebounceWindow)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embeddings.Model)

	// Unset fields keep defaults.
	assert.Equal(t, 100, cfg.Search.MaxTopK)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ASKBASE_DATA_DIR", "/custom/data")
	t.Setenv("ASKBASE_LEXICAL_WEIGHT", "0.5")
	t.Setenv("ASKBASE_VECTOR_WEIGHT", "0.5")
	t.Setenv("ASKBASE_MAX_EMBED_FAILURE_FRACTION", "0.1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/custom/data", cfg.Paths.DataDir)
	assert.Equal(t, 0.5, cfg.Search.LexicalWeight)
	assert.Equal(t, 0.5, cfg.Search.VectorWeight)
	assert.Equal(t, 0.1, cfg.Build.MaxEmbedFailureFraction)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"empty data dir", func(c *Config) { c.Paths.DataDir = "" }, true},
		{"weights sum below one", func(c *Config) {
			c.Search.LexicalWeight = 0.2
			c.Search.VectorWeight = 0.2
		}, true},
		{"negative weight", func(c *Config) {
			c.Search.LexicalWeight = -0.5
			c.Search.VectorWeight = 1.5
		}, true},
		{"lexical only", func(c *Config) {
			c.Search.LexicalWeight = 1.0
			c.Search.VectorWeight = 0.0
		}, false},
		{"zero top_k", func(c *Config) { c.Search.DefaultTopK = 0 }, true},
		{"default exceeds max", func(c *Config) {
			c.Search.DefaultTopK = 200
		}, true},
		{"failure fraction above one", func(c *Config) {
			c.Build.MaxEmbedFailureFraction = 1.5
		}, true},
		{"zero retained versions", func(c *Config) {
			c.Build.RetainedVersions = 0
		}, true},
		{"unknown provider", func(c *Config) {
			c.Embeddings.Provider = "openai"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
