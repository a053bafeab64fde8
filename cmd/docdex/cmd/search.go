package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docdexhq/docdex/internal/output"
	"github.com/docdexhq/docdex/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit      int
	sources    []string
	pathPrefix string
	minScore   float64
	jsonOutput bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search indexed documentation",
		Long: `Search registered sources with hybrid ranking.

Semantic similarity and keyword frequency are fused into one score
(0.7 semantic, 0.3 keyword by default). When the embedding provider is
unavailable, results fall back to keyword ranking.

Sources are indexed in process before searching, so results always
reflect the files on disk.`,
		Example: `  docdex search "deployment checklist"
  docdex search "tls setup" --limit 5 --source handbook
  docdex search "rollback" --path-prefix runbooks --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			query := strings.Join(args, " ")
			return runSearch(ctx, cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringSliceVarP(&opts.sources, "source", "s", nil, "Restrict to a source id, path, or name (repeatable)")
	cmd.Flags().StringVar(&opts.pathPrefix, "path-prefix", "", "Only results under this path prefix")
	cmd.Flags().Float64Var(&opts.minScore, "min-score", 0, "Drop results scoring below this (default from config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	out := newOutput(cmd)

	eng, cleanup, err := newEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	slog.Info("search_started", slog.String("query", query))

	// Fill the in-memory store before searching.
	targets := eng.indexable()
	if len(targets) == 0 {
		out.Status("", "No sources registered. Run 'docdex register PATH' first.")
		return nil
	}
	if _, errs := eng.indexSources(ctx, targets); len(errs) > 0 {
		if ctx.Err() != nil {
			return errs[len(errs)-1]
		}
		for _, e := range errs {
			out.Warningf("skipping %v", e)
		}
	}
	if err := eng.save(); err != nil {
		return err
	}

	searcher, err := eng.newSearcher()
	if err != nil {
		return err
	}

	searchOpts := search.Options{
		TopK:       eng.cfg.Search.TopK,
		MinScore:   eng.cfg.Search.MinScore,
		PathPrefix: opts.pathPrefix,
	}
	if cmd.Flags().Changed("limit") {
		searchOpts.TopK = opts.limit
	}
	if cmd.Flags().Changed("min-score") {
		searchOpts.MinScore = opts.minScore
	}
	for _, arg := range opts.sources {
		src, err := resolveSourceArg(eng.registry, arg)
		if err != nil {
			return err
		}
		searchOpts.SourceIDs = append(searchOpts.SourceIDs, src.ID)
	}

	results, err := searcher.Search(ctx, query, searchOpts)
	if err != nil {
		return err
	}
	slog.Info("search_complete", slog.Int("results", len(results)))

	hits := make([]output.SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, output.SearchHit{
			Path:        eng.displayPath(r.SourceID, r.SourcePath),
			Heading:     r.Heading,
			Hierarchy:   r.HeadingHierarchy,
			Score:       r.Score,
			Semantic:    r.SemanticScore,
			Keyword:     r.KeywordScore,
			KeywordOnly: r.KeywordOnly,
			Content:     r.Content,
			SourceID:    r.SourceID,
		})
	}

	if opts.jsonOutput {
		return out.JSON(hits)
	}
	out.SearchResults(query, hits)
	return nil
}

// displayPath renders a chunk path as "source-name:relative/path" when
// the source is known, falling back to the absolute path.
func (e *engine) displayPath(sourceID, path string) string {
	src, err := e.registry.Get(sourceID)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(src.RootPath, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return fmt.Sprintf("%s:%s", src.Name, rel)
}
