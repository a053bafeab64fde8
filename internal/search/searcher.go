package search

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/docdexhq/docdex/internal/source"
	"github.com/docdexhq/docdex/internal/store"
)

// chunkFanout bounds concurrent per-source chunk loads.
const chunkFanout = 4

// ChunkSource supplies a source's stored chunks. *index.Indexer
// satisfies it.
type ChunkSource interface {
	ChunksBySource(ctx context.Context, sourceID string) ([]*store.IndexedChunk, error)
}

// Searcher resolves which sources to search, gathers their chunks, and
// ranks them.
type Searcher struct {
	registry *source.Registry
	chunks   ChunkSource
	ranker   *Ranker
	logger   *slog.Logger
}

// SearcherOption customizes a Searcher.
type SearcherOption func(*Searcher)

// WithSearcherLogger sets the logger.
func WithSearcherLogger(l *slog.Logger) SearcherOption {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSearcher creates a Searcher after validating dependencies.
func NewSearcher(registry *source.Registry, chunks ChunkSource, ranker *Ranker, opts ...SearcherOption) (*Searcher, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if chunks == nil {
		return nil, fmt.Errorf("chunk source is required")
	}
	if ranker == nil {
		return nil, fmt.Errorf("ranker is required")
	}

	s := &Searcher{
		registry: registry,
		chunks:   chunks,
		ranker:   ranker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Search ranks the chunks of the selected sources against the query.
// With no explicit source ids, every source in indexed state is
// searched; ids pointing at missing or unindexed sources are skipped
// rather than failing the query.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) ([]*Result, error) {
	ids := s.resolveSources(opts.SourceIDs)
	if len(ids) == 0 {
		return []*Result{}, nil
	}

	perSource := make([][]*store.IndexedChunk, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(chunkFanout)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			chunks, err := s.chunks.ChunksBySource(gctx, id)
			if err != nil {
				return err
			}
			perSource[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, chunks := range perSource {
		total += len(chunks)
	}
	candidates := make([]*store.IndexedChunk, 0, total)
	for _, chunks := range perSource {
		candidates = append(candidates, chunks...)
	}

	results, err := s.ranker.Rank(ctx, query, candidates, opts)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("search_complete",
		slog.Int("sources", len(ids)),
		slog.Int("candidates", len(candidates)),
		slog.Int("results", len(results)))
	return results, nil
}

// resolveSources maps the requested ids to searchable ones. Explicit ids
// are kept only when the source exists in indexed state; without ids,
// all indexed sources are returned.
func (s *Searcher) resolveSources(requested []string) []string {
	if len(requested) == 0 {
		indexed := s.registry.List(source.WithStatus(source.StatusIndexed))
		ids := make([]string, 0, len(indexed))
		for _, src := range indexed {
			ids = append(ids, src.ID)
		}
		return ids
	}

	seen := make(map[string]bool, len(requested))
	ids := make([]string, 0, len(requested))
	for _, id := range requested {
		if seen[id] {
			continue
		}
		seen[id] = true
		src, err := s.registry.Get(id)
		if err != nil || src.Status != source.StatusIndexed {
			s.logger.Debug("source_skipped", slog.String("source_id", id))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
