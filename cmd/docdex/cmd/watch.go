package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/docdexhq/docdex/internal/fsys"
	"github.com/docdexhq/docdex/internal/source"
	"github.com/docdexhq/docdex/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch [SOURCE...]",
		Short: "Watch sources and index changes as they happen",
		Long: `Watch source directories for file changes and keep the index
current. Runs until interrupted.

On startup each source is reconciled against its last indexed state:
deleted files are dropped, existing files re-indexed, new files added.
After that, filesystem events drive incremental updates.

Without arguments every source whose policy allows watching is
watched. Sources registered with --no-watch are skipped.`,
		Example: `  # Watch everything watchable
  docdex watch

  # Watch one source, flushing every 5s
  docdex watch handbook --interval 5s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, cmd, args, interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Queue flush interval (default from config)")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, args []string, interval time.Duration) error {
	out := newOutput(cmd)

	eng, cleanup, err := newEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	targets, err := watchTargets(eng, args)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no watchable sources; register one or drop --no-watch")
	}

	if interval <= 0 {
		interval = flushInterval(eng.cfg.Watch.FlushInterval)
	}

	svc, err := watch.NewService(watch.Dependencies{
		Registry:    eng.registry,
		Indexer:     eng.indexer,
		Snapshotter: fsys.NewOSFS(),
	},
		watch.WithMaxQueueSize(eng.cfg.Watch.MaxQueueSize),
		watch.WithFlushInterval(interval),
	)
	if err != nil {
		return err
	}
	notifier, err := watch.NewNotifier(svc)
	if err != nil {
		return err
	}

	for _, src := range targets {
		queued, err := svc.RecoverFromRestart(ctx, src.ID)
		if err != nil {
			return fmt.Errorf("failed to start watching %s: %w", src.Name, err)
		}
		notifier.AddSource(src)
		out.Statusf("", "watching %s (%d changes queued)", src.Name, queued)
	}

	out.Successf("Watching %d sources. Press Ctrl-C to stop.", len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return notifier.Run(gctx) })
	g.Go(func() error { return svc.Run(gctx) })

	err = g.Wait()
	if saveErr := eng.save(); saveErr != nil {
		out.Warningf("failed to persist registry: %v", saveErr)
	}

	if errors.Is(err, context.Canceled) {
		out.Success("Watch stopped.")
		return nil
	}
	return err
}

// watchTargets resolves the sources to watch: named ones, or every
// active source whose policy allows watching.
func watchTargets(eng *engine, args []string) ([]source.Source, error) {
	if len(args) > 0 {
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

	var targets []source.Source
	for _, src := range eng.indexable() {
		if src.Policy.WatchForChanges {
			targets = append(targets, src)
		}
	}
	return targets, nil
}

// flushInterval parses the configured flush interval, falling back to
// the service default on bad input.
func flushInterval(raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return watch.DefaultFlushInterval
	}
	return d
}
