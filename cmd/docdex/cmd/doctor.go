package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/docdexhq/docdex/internal/config"
	"github.com/docdexhq/docdex/internal/embed"
	"github.com/docdexhq/docdex/internal/errors"
	"github.com/docdexhq/docdex/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment docdex runs in",
		Long: `Run preflight checks against the docdex installation.

Checks:
  - Data directory exists and accepts writes
  - Registry file parses
  - Configuration loads and validates
  - Free disk space (100 MB minimum)
  - File descriptor limit (1024 minimum)
  - Embedding provider responds

The command exits non-zero when a required check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runDoctor(cmd *cobra.Command, jsonOutput bool) error {
	out := newOutput(cmd)

	dir, err := resolveDataDir()
	if err != nil {
		return err
	}

	opts := []preflight.Option{}
	if cwd, err := os.Getwd(); err == nil {
		opts = append(opts, preflight.WithConfigDir(cwd))

		// Probe the configured provider when config loads; a broken
		// config is reported by its own check, not here.
		if cfg, err := config.Load(cwd); err == nil {
			if p, err := embed.NewProvider(cfg.Embedding.Provider, cfg.Embedding.Dimensions, 0); err == nil {
				defer func() { _ = p.Close() }()
				opts = append(opts, preflight.WithProvider(p))
			}
		}
	}

	checker := preflight.New(dir, opts...)
	results := checker.Run(cmd.Context())

	if jsonOutput {
		if err := out.JSON(struct {
			Status string             `json:"status"`
			Checks []preflight.Result `json:"checks"`
		}{preflight.SummaryStatus(results), results}); err != nil {
			return err
		}
	} else {
		out.Header("Doctor")
		out.Newline()
		for _, r := range results {
			msg := r.Name + ": " + r.Message
			switch r.Status {
			case preflight.StatusPass:
				out.Success(msg)
			case preflight.StatusWarn:
				out.Warning(msg)
			default:
				out.Error(msg)
			}
			if r.Detail != "" {
				out.Status("", "  "+r.Detail)
			}
		}
		out.Newline()
	}

	if preflight.HasCriticalFailures(results) {
		return errors.New(errors.ErrCodePreflightFailed, "preflight checks failed", nil)
	}
	if !jsonOutput {
		out.Success("System ready.")
	}
	return nil
}
