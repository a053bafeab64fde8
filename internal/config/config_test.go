package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "heading", cfg.Chunking.Strategy)
	assert.Equal(t, 1500, cfg.Chunking.MaxChunkSize)
	assert.Equal(t, 200, cfg.Chunking.OverlapSize)
	assert.Equal(t, 5, cfg.Indexing.MaxConcurrent)
	assert.Equal(t, 10, cfg.Indexing.BatchSize)
	assert.Equal(t, 2, cfg.Indexing.RetryAttempts)
	assert.Equal(t, 0.7, cfg.Search.SemanticWeight)
	assert.Equal(t, 0.3, cfg.Search.KeywordWeight)
	assert.Equal(t, 1000, cfg.Watch.MaxQueueSize)
}

func TestNewConfig_DefaultsAreValid(t *testing.T) {
	assert.NoError(t, NewConfig().Validate())
}

func TestLoad_ProjectFileOverridesDefaults(t *testing.T) {
	// Given: a project config with a custom strategy and pool size
	dir := t.TempDir()
	content := []byte("chunking:\n  strategy: paragraph\nindexing:\n  max_concurrent: 3\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docdex.yaml"), content, 0o644))

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: overridden values apply, the rest keeps defaults
	assert.Equal(t, "paragraph", cfg.Chunking.Strategy)
	assert.Equal(t, 3, cfg.Indexing.MaxConcurrent)
	assert.Equal(t, 10, cfg.Indexing.BatchSize)
}

func TestLoad_YmlFallback(t *testing.T) {
	dir := t.TempDir()
	content := []byte("search:\n  top_k: 25\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docdex.yml"), content, 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Search.TopK)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("indexing:\n  max_concurrent: 3\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docdex.yaml"), content, 0o644))
	t.Setenv("DOCDEX_MAX_CONCURRENT", "8")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Indexing.MaxConcurrent)
}

func TestLoad_DotEnvFeedsOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DOCDEX_LOG_LEVEL=debug\n"), 0o644))
	t.Setenv("DOCDEX_LOG_LEVEL", "") // ensure the .env value is what lands

	// godotenv does not override existing env vars, so clear it entirely
	os.Unsetenv("DOCDEX_LOG_LEVEL")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docdex.yaml"), []byte("chunking: ["), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate_WeightSumMustBeOne(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.SemanticWeight = 0.9
	cfg.Search.KeywordWeight = 0.3

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must equal 1.0")
}

func TestValidate_OverlapMustBeBelowChunkSize(t *testing.T) {
	cfg := NewConfig()
	cfg.Chunking.MaxChunkSize = 100
	cfg.Chunking.OverlapSize = 100

	assert.Error(t, cfg.Validate())
}

func TestValidate_UnknownStrategyRejected(t *testing.T) {
	cfg := NewConfig()
	cfg.Chunking.Strategy = "semantic"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy")
}

func TestValidate_QueueSizeMustBePositive(t *testing.T) {
	cfg := NewConfig()
	cfg.Watch.MaxQueueSize = 0

	assert.Error(t, cfg.Validate())
}

func TestMergeWith_ExcludesAppendToDefaults(t *testing.T) {
	cfg := NewConfig()
	base := len(cfg.Policy.Exclude)

	cfg.mergeWith(&Config{Policy: PolicyConfig{Exclude: []string{"**/drafts/**"}}})

	assert.Len(t, cfg.Policy.Exclude, base+1)
	assert.Contains(t, cfg.Policy.Exclude, "**/drafts/**")
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".docdex.yaml")

	cfg := NewConfig()
	cfg.Search.TopK = 42
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Search.TopK)
}
