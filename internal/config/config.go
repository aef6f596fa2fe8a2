// Package config loads and validates the engine configuration.
//
// Configuration is resolved in priority order:
//  1. Environment variables (ASKBASE_*)
//  2. Config file (askbase.yaml)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "200ms" or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the complete engine configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Search     SearchConfig     `yaml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Build      BuildConfig      `yaml:"build"`
	Server     ServerConfig     `yaml:"server"`
}

// PathsConfig configures data locations.
type PathsConfig struct {
	// DataDir is the root directory for content and index storage.
	DataDir string `yaml:"data_dir"`
	// ContentDir, when set, is watched for dropped content files.
	ContentDir string `yaml:"content_dir"`
}

// SearchConfig configures hybrid query execution and score fusion.
//
// LexicalWeight and VectorWeight must sum to 1.0. Scores from each
// signal are min-max normalized per query before the weighted sum, so
// neither signal's raw scale can dominate.
type SearchConfig struct {
	// LexicalWeight is the weight for BM25 keyword matching (0.0-1.0).
	LexicalWeight float64 `yaml:"lexical_weight"`

	// VectorWeight is the weight for embedding similarity (0.0-1.0).
	VectorWeight float64 `yaml:"vector_weight"`

	// MinScore is the relevance floor; fused candidates below it are
	// dropped. Zero keeps everything.
	MinScore float64 `yaml:"min_score"`

	// VectorCandidates is the number of nearest neighbors pulled from
	// the vector index before fusion.
	VectorCandidates int `yaml:"vector_candidates"`

	// DefaultTopK is used when a query does not specify top_k.
	DefaultTopK int `yaml:"default_top_k"`

	// MaxTopK caps top_k regardless of what the caller asks for.
	MaxTopK int `yaml:"max_top_k"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the backend: "ollama" or "static".
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`

	// OllamaHost is the Ollama API endpoint.
	OllamaHost string `yaml:"ollama_host"`

	// BuildTimeout bounds a single embedding call during index builds.
	// A timed-out item counts as an embedding failure for that item.
	BuildTimeout Duration `yaml:"build_timeout"`

	// QueryTimeout bounds the query-embedding call. On expiry the
	// retriever degrades to lexical-only scoring.
	QueryTimeout Duration `yaml:"query_timeout"`

	// CacheSize is the LRU cache capacity for query embeddings.
	CacheSize int `yaml:"cache_size"`
}

// BuildConfig configures background index rebuilds.
type BuildConfig struct {
	// MaxEmbedFailureFraction aborts a build when more than this
	// fraction of snapshot items fail embedding (0.0-1.0).
	MaxEmbedFailureFraction float64 `yaml:"max_embed_failure_fraction"`

	// RetainedVersions is how many prior ready versions to keep beyond
	// the currently published one.
	RetainedVersions int `yaml:"retained_versions"`

	// DebounceWindow coalesces bursts of content-changed events before
	// a rebuild is scheduled.
	DebounceWindow Duration `yaml:"debounce_window"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir: ".askbase",
		},
		Search: SearchConfig{
			LexicalWeight:    0.4,
			VectorWeight:     0.6,
			MinScore:         0.05,
			VectorCandidates: 50,
			DefaultTopK:      10,
			MaxTopK:          100,
		},
		Embeddings: EmbeddingsConfig{
			Provider:     "static",
			OllamaHost:   "http://localhost:11434",
			BatchSize:    32,
			BuildTimeout: Duration(60 * time.Second),
			QueryTimeout: Duration(3 * time.Second),
			CacheSize:    1000,
		},
		Build: BuildConfig{
			MaxEmbedFailureFraction: 0.5,
			RetainedVersions:        1,
			DebounceWindow:          Duration(200 * time.Millisecond),
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
	}
}

// Load reads configuration from the given YAML file, falling back to
// defaults for anything unset, then applies environment overrides.
// A missing file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies ASKBASE_* environment variables on top of
// the loaded configuration. Invalid values are ignored.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ASKBASE_DATA_DIR"); v != "" {
		cfg.Paths.DataDir = v
	}
	if v := os.Getenv("ASKBASE_EMBED_PROVIDER"); v != "" {
		cfg.Embeddings.Provider = v
	}
	if v := os.Getenv("ASKBASE_OLLAMA_HOST"); v != "" {
		cfg.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("ASKBASE_LEXICAL_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.LexicalWeight = f
		}
	}
	if v := os.Getenv("ASKBASE_VECTOR_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.VectorWeight = f
		}
	}
	if v := os.Getenv("ASKBASE_MAX_EMBED_FAILURE_FRACTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Build.MaxEmbedFailureFraction = f
		}
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}

	sum := c.Search.LexicalWeight + c.Search.VectorWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("search weights must sum to 1.0, got %.3f", sum)
	}
	if c.Search.LexicalWeight < 0 || c.Search.VectorWeight < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}
	if c.Search.DefaultTopK <= 0 || c.Search.MaxTopK <= 0 {
		return fmt.Errorf("search top_k limits must be positive")
	}
	if c.Search.DefaultTopK > c.Search.MaxTopK {
		return fmt.Errorf("search.default_top_k (%d) exceeds search.max_top_k (%d)",
			c.Search.DefaultTopK, c.Search.MaxTopK)
	}

	if f := c.Build.MaxEmbedFailureFraction; f < 0 || f > 1 {
		return fmt.Errorf("build.max_embed_failure_fraction must be in [0,1], got %.2f", f)
	}
	if c.Build.RetainedVersions < 1 {
		return fmt.Errorf("build.retained_versions must be at least 1")
	}

	switch c.Embeddings.Provider {
	case "ollama", "static":
	default:
		return fmt.Errorf("embeddings.provider must be \"ollama\" or \"static\", got %q",
			c.Embeddings.Provider)
	}

	return nil
}
