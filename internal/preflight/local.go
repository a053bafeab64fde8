package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/docdexhq/docdex/internal/config"
	"github.com/docdexhq/docdex/internal/source"
)

// CheckDataDir verifies the data directory exists (creating it if needed)
// and accepts writes.
func (c *Checker) CheckDataDir() Result {
	result := Result{Name: "data_dir", Required: true}

	if err := os.MkdirAll(c.dataDir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", c.dataDir, err)
		return result
	}

	probe := filepath.Join(c.dataDir, ".docdex-preflight")
	f, err := os.Create(probe)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("not writable: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(probe)

	result.Status = StatusPass
	result.Message = c.dataDir
	return result
}

// CheckRegistry verifies the persisted source registry parses. A missing
// file passes; docdex simply has no sources yet.
func (c *Checker) CheckRegistry() Result {
	result := Result{Name: "registry", Required: true}

	path := filepath.Join(c.dataDir, "sources.yaml")
	reg := source.NewRegistry()
	if err := reg.LoadFile(path); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("unreadable: %v", err)
		result.Detail = "Fix or remove " + path + " and re-register sources."
		return result
	}

	result.Status = StatusPass
	switch n := len(reg.List()); n {
	case 0:
		result.Message = "no sources registered"
	case 1:
		result.Message = "1 source"
	default:
		result.Message = fmt.Sprintf("%d sources", n)
	}
	return result
}

// CheckConfig verifies the merged configuration validates.
func (c *Checker) CheckConfig() Result {
	result := Result{Name: "config", Required: true}

	cfg, err := config.Load(c.configDir)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("valid (strategy %s, weights %.1f/%.1f)",
		cfg.Chunking.Strategy, cfg.Search.SemanticWeight, cfg.Search.KeywordWeight)
	return result
}

// CheckProvider probes the embedding provider. An unavailable provider is
// a warning, not a failure; search degrades to keyword-only scoring.
func (c *Checker) CheckProvider(ctx context.Context) Result {
	result := Result{Name: "embedding_provider", Required: false}

	if c.provider == nil {
		result.Status = StatusWarn
		result.Message = "no provider configured"
		return result
	}

	if !c.provider.Available(ctx) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s unavailable", c.provider.ID())
		result.Detail = "Search falls back to keyword-only scoring."
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%s, %d dimensions)",
		c.provider.ID(), c.provider.ModelName(), c.provider.Dimensions())
	return result
}
