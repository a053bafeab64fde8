// Package config loads and validates docdex configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/docdex/config.yaml)
//  3. Project config (.docdex.yaml in the working directory)
//  4. .env file in the working directory
//  5. Environment variables (DOCDEX_*)
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete docdex configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Policy    PolicyConfig    `yaml:"policy" json:"policy"`
	Chunking  ChunkingConfig  `yaml:"chunking" json:"chunking"`
	Indexing  IndexingConfig  `yaml:"indexing" json:"indexing"`
	Watch     WatchConfig     `yaml:"watch" json:"watch"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// PolicyConfig sets the default source policy applied at registration when
// the caller supplies none.
type PolicyConfig struct {
	Include     []string `yaml:"include" json:"include"`
	Exclude     []string `yaml:"exclude" json:"exclude"`
	MaxFileSize int64    `yaml:"max_file_size" json:"max_file_size"`
	MaxDepth    int      `yaml:"max_depth" json:"max_depth"`
	Watch       bool     `yaml:"watch" json:"watch"`
}

// ChunkingConfig configures the markdown chunker.
type ChunkingConfig struct {
	// Strategy is one of "heading", "fixed", "paragraph".
	Strategy string `yaml:"strategy" json:"strategy"`
	// MaxChunkSize is the chunk size bound in characters.
	MaxChunkSize int `yaml:"max_chunk_size" json:"max_chunk_size"`
	// OverlapSize is the overlap prefix length in characters.
	OverlapSize int `yaml:"overlap_size" json:"overlap_size"`
}

// IndexingConfig configures the indexer's concurrency and retry behavior.
type IndexingConfig struct {
	// MaxConcurrent bounds the worker pool processing files.
	MaxConcurrent int `yaml:"max_concurrent" json:"max_concurrent"`
	// BatchSize is the number of chunks per embedding batch.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// RetryAttempts is extra attempts after the initial try.
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`
	// RetryDelayMs is the fixed wait between attempts.
	RetryDelayMs int `yaml:"retry_delay_ms" json:"retry_delay_ms"`
}

// WatchConfig configures the watch service.
type WatchConfig struct {
	// MaxQueueSize bounds the pending change queue per service.
	MaxQueueSize int `yaml:"max_queue_size" json:"max_queue_size"`
	// FlushInterval is how often the CLI watch loop drains the queue.
	FlushInterval string `yaml:"flush_interval" json:"flush_interval"`
}

// SearchConfig configures hybrid ranking.
type SearchConfig struct {
	// SemanticWeight and KeywordWeight must sum to 1.0.
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
	KeywordWeight  float64 `yaml:"keyword_weight" json:"keyword_weight"`
	// MinScore filters results after weighting.
	MinScore float64 `yaml:"min_score" json:"min_score"`
	// TopK is the default result count.
	TopK int `yaml:"top_k" json:"top_k"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "hash" (built-in, offline) today; the contract admits
	// external providers.
	Provider string `yaml:"provider" json:"provider"`
	// Dimensions overrides the provider's native dimension when non-zero.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	// CacheSize is the LRU embedding cache capacity.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// defaultExcludePatterns are always carried into the default policy.
var defaultExcludePatterns = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/.docdex/**",
	"**/*.min.js",
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Policy: PolicyConfig{
			Include:     []string{},
			Exclude:     defaultExcludePatterns,
			MaxFileSize: 10 * 1024 * 1024,
			MaxDepth:    10,
			Watch:       true,
		},
		Chunking: ChunkingConfig{
			Strategy:     "heading",
			MaxChunkSize: 1500,
			OverlapSize:  200,
		},
		Indexing: IndexingConfig{
			MaxConcurrent: 5,
			BatchSize:     10,
			RetryAttempts: 2,
			RetryDelayMs:  500,
		},
		Watch: WatchConfig{
			MaxQueueSize:  1000,
			FlushInterval: "2s",
		},
		Search: SearchConfig{
			SemanticWeight: 0.7,
			KeywordWeight:  0.3,
			MinScore:       0.0,
			TopK:           10,
		},
		Embedding: EmbeddingConfig{
			Provider:   "hash",
			Dimensions: 0,
			CacheSize:  1000,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// UserConfigPath returns the user/global config path, honoring
// XDG_CONFIG_HOME.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docdex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docdex", "config.yaml")
	}
	return filepath.Join(home, ".config", "docdex", "config.yaml")
}

// Load builds the configuration for the given directory, applying the full
// precedence chain and validating the result.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := UserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}

	// A .env next to the project config feeds the env overrides below.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromDir loads .docdex.yaml (or .yml) from dir. Missing files are fine.
func (c *Config) loadFromDir(dir string) error {
	for _, name := range []string{".docdex.yaml", ".docdex.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML parses a YAML file and merges its non-zero values.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c. Exclude patterns are
// appended to the defaults rather than replacing them.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Policy.Include) > 0 {
		c.Policy.Include = other.Policy.Include
	}
	if len(other.Policy.Exclude) > 0 {
		c.Policy.Exclude = append(c.Policy.Exclude, other.Policy.Exclude...)
	}
	if other.Policy.MaxFileSize != 0 {
		c.Policy.MaxFileSize = other.Policy.MaxFileSize
	}
	if other.Policy.MaxDepth != 0 {
		c.Policy.MaxDepth = other.Policy.MaxDepth
	}

	if other.Chunking.Strategy != "" {
		c.Chunking.Strategy = other.Chunking.Strategy
	}
	if other.Chunking.MaxChunkSize != 0 {
		c.Chunking.MaxChunkSize = other.Chunking.MaxChunkSize
	}
	if other.Chunking.OverlapSize != 0 {
		c.Chunking.OverlapSize = other.Chunking.OverlapSize
	}

	if other.Indexing.MaxConcurrent != 0 {
		c.Indexing.MaxConcurrent = other.Indexing.MaxConcurrent
	}
	if other.Indexing.BatchSize != 0 {
		c.Indexing.BatchSize = other.Indexing.BatchSize
	}
	if other.Indexing.RetryAttempts != 0 {
		c.Indexing.RetryAttempts = other.Indexing.RetryAttempts
	}
	if other.Indexing.RetryDelayMs != 0 {
		c.Indexing.RetryDelayMs = other.Indexing.RetryDelayMs
	}

	if other.Watch.MaxQueueSize != 0 {
		c.Watch.MaxQueueSize = other.Watch.MaxQueueSize
	}
	if other.Watch.FlushInterval != "" {
		c.Watch.FlushInterval = other.Watch.FlushInterval
	}

	if other.Search.SemanticWeight != 0 {
		c.Search.SemanticWeight = other.Search.SemanticWeight
	}
	if other.Search.KeywordWeight != 0 {
		c.Search.KeywordWeight = other.Search.KeywordWeight
	}
	if other.Search.MinScore != 0 {
		c.Search.MinScore = other.Search.MinScore
	}
	if other.Search.TopK != 0 {
		c.Search.TopK = other.Search.TopK
	}

	if other.Embedding.Provider != "" {
		c.Embedding.Provider = other.Embedding.Provider
	}
	if other.Embedding.Dimensions != 0 {
		c.Embedding.Dimensions = other.Embedding.Dimensions
	}
	if other.Embedding.CacheSize != 0 {
		c.Embedding.CacheSize = other.Embedding.CacheSize
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
}

// applyEnvOverrides applies DOCDEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCDEX_SEMANTIC_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 && w <= 1 {
			c.Search.SemanticWeight = w
		}
	}
	if v := os.Getenv("DOCDEX_KEYWORD_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 && w <= 1 {
			c.Search.KeywordWeight = w
		}
	}
	if v := os.Getenv("DOCDEX_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Indexing.MaxConcurrent = n
		}
	}
	if v := os.Getenv("DOCDEX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Indexing.BatchSize = n
		}
	}
	if v := os.Getenv("DOCDEX_STRATEGY"); v != "" {
		c.Chunking.Strategy = v
	}
	if v := os.Getenv("DOCDEX_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("DOCDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DOCDEX_MAX_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Watch.MaxQueueSize = n
		}
	}
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return fmt.Errorf("semantic_weight must be between 0 and 1, got %f", c.Search.SemanticWeight)
	}
	if c.Search.KeywordWeight < 0 || c.Search.KeywordWeight > 1 {
		return fmt.Errorf("keyword_weight must be between 0 and 1, got %f", c.Search.KeywordWeight)
	}
	sum := c.Search.SemanticWeight + c.Search.KeywordWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("semantic_weight + keyword_weight must equal 1.0, got %.2f", sum)
	}
	if c.Search.TopK < 0 {
		return fmt.Errorf("top_k must be non-negative, got %d", c.Search.TopK)
	}

	switch strings.ToLower(c.Chunking.Strategy) {
	case "heading", "fixed", "paragraph":
	default:
		return fmt.Errorf("chunking.strategy must be 'heading', 'fixed', or 'paragraph', got %s", c.Chunking.Strategy)
	}
	if c.Chunking.MaxChunkSize <= 0 {
		return fmt.Errorf("max_chunk_size must be positive, got %d", c.Chunking.MaxChunkSize)
	}
	if c.Chunking.OverlapSize < 0 || c.Chunking.OverlapSize >= c.Chunking.MaxChunkSize {
		return fmt.Errorf("overlap_size must be in [0, max_chunk_size), got %d", c.Chunking.OverlapSize)
	}

	if c.Indexing.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive, got %d", c.Indexing.MaxConcurrent)
	}
	if c.Indexing.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.Indexing.BatchSize)
	}
	if c.Indexing.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must be non-negative, got %d", c.Indexing.RetryAttempts)
	}

	if c.Watch.MaxQueueSize <= 0 {
		return fmt.Errorf("max_queue_size must be positive, got %d", c.Watch.MaxQueueSize)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
