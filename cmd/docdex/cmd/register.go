package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docdexhq/docdex/internal/config"
	"github.com/docdexhq/docdex/internal/source"
)

// registerOptions holds CLI flags for register.
type registerOptions struct {
	name        string
	include     []string
	exclude     []string
	maxFileSize int64
	maxDepth    int
	noWatch     bool
}

func newRegisterCmd() *cobra.Command {
	var opts registerOptions

	cmd := &cobra.Command{
		Use:   "register PATH",
		Short: "Register a documentation root",
		Long: `Register a directory as a documentation source.

The directory becomes searchable after the next 'docdex index' run.
Include and exclude patterns are globs matched against paths relative
to the root ('**' crosses directory boundaries). Exclusion wins.`,
		Example: `  # Register with defaults
  docdex register ~/docs/handbook

  # Only markdown, skip drafts
  docdex register ~/docs --include '**/*.md' --exclude 'drafts/**'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "Display name (default: directory base name)")
	cmd.Flags().StringSliceVar(&opts.include, "include", nil, "Glob patterns to include (repeatable)")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "Glob patterns to exclude (repeatable)")
	cmd.Flags().Int64Var(&opts.maxFileSize, "max-file-size", 0, "Per-file size cutoff in bytes (0 = config default)")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "Directory depth bound (0 = config default)")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Exclude this source from 'docdex watch'")

	return cmd
}

func runRegister(cmd *cobra.Command, path string, opts registerOptions) error {
	out := newOutput(cmd)

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("cannot register %s: %w", abs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot register %s: not a directory", abs)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return err
	}

	reg, dir, err := openRegistry()
	if err != nil {
		return err
	}

	policy := policyFromConfig(cfg.Policy, opts)

	registerOpts := []source.RegisterOption{source.WithPolicy(policy)}
	if opts.name != "" {
		registerOpts = append(registerOpts, source.WithName(opts.name))
	}

	src, err := reg.Register(abs, registerOpts...)
	if err != nil {
		return err
	}
	if err := saveRegistry(reg, dir); err != nil {
		return err
	}

	out.Successf("Registered %s", src.Name)
	out.Statusf("", "id:   %s", src.ID)
	out.Statusf("", "root: %s", src.RootPath)
	out.Newline()
	out.Statusf("", "Run 'docdex index %s' to make it searchable.", src.Name)
	return nil
}

// policyFromConfig builds the source policy from config defaults with
// flag overrides applied.
func policyFromConfig(pc config.PolicyConfig, opts registerOptions) source.Policy {
	policy := source.Policy{
		IncludePaths:    pc.Include,
		ExcludePaths:    pc.Exclude,
		MaxFileSize:     pc.MaxFileSize,
		MaxDepth:        pc.MaxDepth,
		WatchForChanges: pc.Watch,
	}

	if len(opts.include) > 0 {
		policy.IncludePaths = opts.include
	}
	if len(opts.exclude) > 0 {
		policy.ExcludePaths = append(policy.ExcludePaths, opts.exclude...)
	}
	if opts.maxFileSize > 0 {
		policy.MaxFileSize = opts.maxFileSize
	}
	if opts.maxDepth > 0 {
		policy.MaxDepth = opts.maxDepth
	}
	if opts.noWatch {
		policy.WatchForChanges = false
	}
	return policy
}

func newUnregisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unregister SOURCE",
		Short: "Remove a source from the registry",
		Long: `Mark a source as removed. Its chunks stop appearing in search
results. Registering the same root again revives the source under its
original id.

SOURCE may be a source id, root path, or display name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnregister(cmd, args[0])
		},
	}
}

func runUnregister(cmd *cobra.Command, arg string) error {
	out := newOutput(cmd)

	reg, dir, err := openRegistry()
	if err != nil {
		return err
	}

	src, err := resolveSourceArg(reg, arg)
	if err != nil {
		return err
	}
	if err := reg.Unregister(src.ID); err != nil {
		return err
	}
	if err := saveRegistry(reg, dir); err != nil {
		return err
	}

	out.Successf("Removed %s (%s)", src.Name, src.ID)
	out.Statusf("", "Re-register %s to revive it.", src.RootPath)
	return nil
}
