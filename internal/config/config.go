// Package config defines the engine's configuration schema. Loading a
// config file from disk is left to the embedding application; this
// package only owns the struct, its defaults, and validation.
package config

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Search     SearchConfig     `yaml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Store      StoreConfig      `yaml:"store"`
}

// PathsConfig controls which files discovery considers.
type PathsConfig struct {
	Include      []string `yaml:"include"`
	Exclude      []string `yaml:"exclude"`
	MaxFileBytes int64    `yaml:"max_file_bytes"`
}

// SearchConfig controls hybrid fusion weighting.
type SearchConfig struct {
	BM25Weight     float64 `yaml:"bm25_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	RRFConstant    int     `yaml:"rrf_constant"`
	MaxResults     int     `yaml:"max_results"`
}

// EmbeddingsConfig controls embedding provider selection.
type EmbeddingsConfig struct {
	Provider      string `yaml:"provider"` // "native" or "fallback"; empty auto-detects
	TextDim       int    `yaml:"text_dim"`
	ImageDim      int    `yaml:"image_dim"`
	CacheSize     int    `yaml:"cache_size"`
	BatchSize     int    `yaml:"batch_size"`
}

// StoreConfig controls the ingest worker count.
type StoreConfig struct {
	IndexWorkers int `yaml:"index_workers"`
}

var defaultExcludePatterns = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/.index/**",
	"**/.filesearch/**",
	"**/target/**",
	"**/.ssh/**",
	"**/.gnupg/**",
	"**/passwords/**",
	"*.key",
	"*.pem",
}

// Default returns the engine's baked-in defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Exclude:      defaultExcludePatterns,
			MaxFileBytes: 50 * 1024 * 1024,
		},
		Search: SearchConfig{
			BM25Weight:     0.5,
			SemanticWeight: 0.5,
			RRFConstant:    60,
			MaxResults:     20,
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "",
			TextDim:   384,
			ImageDim:  512,
			CacheSize: 2000,
			BatchSize: 32,
		},
		Store: StoreConfig{
			IndexWorkers: runtime.NumCPU(),
		},
	}
}

// ParseYAML decodes cfg from YAML, starting from Default() and
// overwriting only fields present in data.
func ParseYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal serializes cfg to YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks invariants the rest of the engine assumes hold.
func (c *Config) Validate() error {
	if c.Search.BM25Weight < 0 || c.Search.BM25Weight > 1 {
		return fmt.Errorf("search.bm25_weight must be in [0,1], got %f", c.Search.BM25Weight)
	}
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return fmt.Errorf("search.semantic_weight must be in [0,1], got %f", c.Search.SemanticWeight)
	}
	if sum := c.Search.BM25Weight + c.Search.SemanticWeight; math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("search.bm25_weight + search.semantic_weight must equal 1.0, got %.2f", sum)
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Embeddings.Provider != "" {
		p := strings.ToLower(c.Embeddings.Provider)
		if p != "native" && p != "fallback" {
			return fmt.Errorf("embeddings.provider must be 'native', 'fallback', or empty, got %s", c.Embeddings.Provider)
		}
	}
	return nil
}
