package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/docdexhq/docdex/internal/chunk"
	"github.com/docdexhq/docdex/internal/config"
	"github.com/docdexhq/docdex/internal/embed"
	"github.com/docdexhq/docdex/internal/errors"
	"github.com/docdexhq/docdex/internal/fsys"
	"github.com/docdexhq/docdex/internal/index"
	"github.com/docdexhq/docdex/internal/search"
	"github.com/docdexhq/docdex/internal/source"
	"github.com/docdexhq/docdex/internal/store"
)

// engine bundles the indexing pipeline built from configuration: the
// persisted registry plus chunker, embedder, store, and indexer. Chunks
// live in process memory, so commands that search or watch index their
// sources first.
type engine struct {
	cfg      *config.Config
	registry *source.Registry
	dataDir  string
	provider embed.Provider
	store    *store.MemoryStore
	indexer  *index.Indexer
}

// newEngine loads configuration and the registry and wires the pipeline.
// The returned cleanup closes the embedding provider.
func newEngine(opts ...index.Option) (*engine, func(), error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, nil, err
	}

	reg, dir, err := openRegistry()
	if err != nil {
		return nil, nil, err
	}

	provider, err := embed.NewProvider(cfg.Embedding.Provider, cfg.Embedding.Dimensions, cfg.Embedding.CacheSize)
	if err != nil {
		return nil, nil, err
	}

	chunker, err := chunk.NewChunkerWithOptions(chunk.Options{
		Strategy:     chunk.Strategy(cfg.Chunking.Strategy),
		MaxChunkSize: cfg.Chunking.MaxChunkSize,
		OverlapSize:  cfg.Chunking.OverlapSize,
	})
	if err != nil {
		_ = provider.Close()
		return nil, nil, err
	}

	st := store.NewMemoryStore()

	indexOpts := []index.Option{
		index.WithMaxConcurrent(cfg.Indexing.MaxConcurrent),
		index.WithBatchSize(cfg.Indexing.BatchSize),
		index.WithRetryConfig(errors.RetryConfig{
			Attempts: cfg.Indexing.RetryAttempts,
			Delay:    time.Duration(cfg.Indexing.RetryDelayMs) * time.Millisecond,
		}),
	}
	indexOpts = append(indexOpts, opts...)

	idx, err := index.New(index.Dependencies{
		Registry: reg,
		Chunker:  chunker,
		Provider: provider,
		FS:       fsys.NewOSFS(),
		Store:    st,
	}, indexOpts...)
	if err != nil {
		_ = provider.Close()
		return nil, nil, err
	}

	eng := &engine{
		cfg:      cfg,
		registry: reg,
		dataDir:  dir,
		provider: provider,
		store:    st,
		indexer:  idx,
	}
	cleanup := func() { _ = provider.Close() }
	return eng, cleanup, nil
}

// newSearcher builds the hybrid searcher on top of the engine's indexer.
func (e *engine) newSearcher() (*search.Searcher, error) {
	ranker, err := search.NewRanker(e.provider,
		search.WithWeights(e.cfg.Search.SemanticWeight, e.cfg.Search.KeywordWeight))
	if err != nil {
		return nil, err
	}
	return search.NewSearcher(e.registry, e.indexer, ranker)
}

// indexable returns the sources eligible for indexing, in registry order.
func (e *engine) indexable() []source.Source {
	var out []source.Source
	for _, src := range e.registry.List() {
		if src.Status == source.StatusRemoved {
			continue
		}
		out = append(out, src)
	}
	return out
}

// indexSources runs IndexSource for each source, collecting jobs. A
// failed source is reported and does not stop the rest.
func (e *engine) indexSources(ctx context.Context, sources []source.Source) ([]index.Job, []error) {
	var jobs []index.Job
	var errs []error
	for _, src := range sources {
		job, err := e.indexer.IndexSource(ctx, src.ID)
		if err != nil {
			if ctx.Err() != nil {
				errs = append(errs, err)
				return jobs, errs
			}
			slog.Warn("index_source_failed",
				slog.String("source_id", src.ID),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, errs
}

// save persists registry changes made during indexing.
func (e *engine) save() error {
	return saveRegistry(e.registry, e.dataDir)
}
