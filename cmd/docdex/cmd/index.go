package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docdexhq/docdex/internal/index"
	"github.com/docdexhq/docdex/internal/output"
	"github.com/docdexhq/docdex/internal/source"
)

func newIndexCmd() *cobra.Command {
	var (
		all        bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "index [SOURCE...]",
		Short: "Index registered sources",
		Long: `Scan, chunk, and embed the files of registered sources.

Each SOURCE may be a source id, root path, or display name. A source
that fails keeps its previous state and does not stop the others.`,
		Example: `  # Index everything registered
  docdex index --all

  # Index one source by name
  docdex index handbook`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if len(args) == 0 && !all {
				return fmt.Errorf("name sources to index or pass --all")
			}
			return runIndex(ctx, cmd, args, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Index all registered sources")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output job results as JSON")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, args []string, jsonOutput bool) error {
	out := newOutput(cmd)

	// Progress rendering only makes sense on a terminal; observers fire
	// from worker goroutines, so writes are serialized here.
	var observer index.Option
	if output.IsTTY(cmd.OutOrStdout()) && !jsonOutput {
		var mu sync.Mutex
		observer = index.WithObserver(index.ObserverFunc(func(job index.Job) {
			if job.Status != index.JobRunning || job.FilesTotal == 0 {
				return
			}
			mu.Lock()
			out.Progress(job.FilesProcessed, job.FilesTotal, fmt.Sprintf("%d chunks", job.ChunksProcessed))
			mu.Unlock()
		}))
	}

	var engineOpts []index.Option
	if observer != nil {
		engineOpts = append(engineOpts, observer)
	}
	eng, cleanup, err := newEngine(engineOpts...)
	if err != nil {
		return err
	}
	defer cleanup()

	targets, err := resolveIndexTargets(eng, args)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		out.Status("", "Nothing to index. Register a source first.")
		return nil
	}

	var (
		jobs   []output.IndexSummary
		failed int
	)
	for _, src := range targets {
		if !jsonOutput {
			out.Statusf("", "Indexing %s (%s)", src.Name, src.RootPath)
		}

		job, err := eng.indexer.IndexSource(ctx, src.ID)
		if err != nil {
			if ctx.Err() != nil {
				_ = eng.save()
				return err
			}
			failed++
			if !jsonOutput {
				out.Errorf("%s: %v", src.Name, err)
				out.Newline()
			}
			continue
		}

		jobs = append(jobs, summaryFromJob(job))
		if !jsonOutput {
			out.Summary(summaryFromJob(job))
			out.Newline()
		}
	}

	if err := eng.save(); err != nil {
		return err
	}

	if jsonOutput {
		if err := out.JSON(jobs); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(targets))
	}
	return nil
}

// resolveIndexTargets maps args to sources, or all indexable sources
// when no args are given.
func resolveIndexTargets(eng *engine, args []string) ([]source.Source, error) {
	if len(args) == 0 {
		return eng.indexable(), nil
	}

	seen := make(map[string]bool, len(args))
	var targets []source.Source
	for _, arg := range args {
		src, err := resolveSourceArg(eng.registry, arg)
		if err != nil {
			return nil, err
		}
		if seen[src.ID] {
			continue
		}
		seen[src.ID] = true
		targets = append(targets, src)
	}
	return targets, nil
}

func summaryFromJob(job index.Job) output.IndexSummary {
	return output.IndexSummary{
		Files:      job.FilesProcessed,
		Chunks:     job.ChunksProcessed,
		Embeddings: job.EmbeddingsGenerated,
		Duration:   job.CompletedAt.Sub(job.StartedAt),
		Errors:     job.Errors,
		Provider:   job.Provider,
		Model:      job.Model,
		Dimensions: job.Dimensions,
	}
}
