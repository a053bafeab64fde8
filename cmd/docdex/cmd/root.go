// Package cmd provides the CLI commands for docdex.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docdexhq/docdex/internal/logging"
	"github.com/docdexhq/docdex/internal/output"
	"github.com/docdexhq/docdex/internal/profiling"
	"github.com/docdexhq/docdex/internal/source"
	"github.com/docdexhq/docdex/pkg/version"
)

// Persistent flags shared by all commands.
var (
	dataDirFlag    string
	debugMode      bool
	noColor        bool
	loggingCleanup func()
)

// Profiling flags.
var (
	profileCPU   string
	profileMem   string
	profileTrace string
	profSession  *profiling.Session
)

// NewRootCmd creates the root command for the docdex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docdex",
		Short: "Local document indexing and hybrid search",
		Long: `Docdex indexes local markdown documentation and serves hybrid
(semantic + keyword) search over it. Everything runs locally.

Register a documentation root, index it, then search:

  docdex register ~/docs/handbook
  docdex index --all
  docdex search "deployment checklist"`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("docdex version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory for registry and logs (default ~/.docdex)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write heap profile to file on exit")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newUnregisterCmd())
	cmd.AddCommand(newSourcesCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// startProfilingAndLogging begins any requested profiles and routes slog
// to the data directory log file, keeping stdout clean for command
// output. A failed log setup falls back to the default stderr logger
// rather than blocking the command.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	session, err := profiling.Start(profiling.Options{
		CPUPath:   profileCPU,
		HeapPath:  profileMem,
		TracePath: profileTrace,
	})
	if err != nil {
		return err
	}
	profSession = session

	cfg := logging.DefaultConfig()
	cfg.WriteToStderr = false
	if debugMode {
		cfg.Level = "debug"
	}
	if dir, err := resolveDataDir(); err == nil {
		cfg.FilePath = filepath.Join(dir, "logs", "docdex.log")
	}

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		slog.Debug("log_setup_failed", slog.String("error", err.Error()))
		return nil
	}
	slog.SetDefault(logger)
	loggingCleanup = cleanup
	return nil
}

func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	err := profSession.Stop()
	profSession = nil
	return err
}

// resolveDataDir returns the docdex data directory.
func resolveDataDir() (string, error) {
	if dataDirFlag != "" {
		abs, err := filepath.Abs(dataDirFlag)
		if err != nil {
			return "", fmt.Errorf("failed to resolve data directory: %w", err)
		}
		return abs, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".docdex"), nil
}

// registryPath is the sources file under the data directory.
func registryPath(dir string) string {
	return filepath.Join(dir, "sources.yaml")
}

// openRegistry loads the persisted source registry. A missing file yields
// an empty registry.
func openRegistry() (*source.Registry, string, error) {
	dir, err := resolveDataDir()
	if err != nil {
		return nil, "", err
	}
	reg := source.NewRegistry()
	if err := reg.LoadFile(registryPath(dir)); err != nil {
		return nil, "", err
	}
	return reg, dir, nil
}

// saveRegistry persists the registry back to the data directory.
func saveRegistry(reg *source.Registry, dir string) error {
	return reg.SaveFile(registryPath(dir))
}

// newOutput builds the output writer for a command, honoring --no-color.
func newOutput(cmd *cobra.Command) *output.Writer {
	if noColor {
		return output.New(cmd.OutOrStdout(), output.WithColor(false))
	}
	return output.New(cmd.OutOrStdout())
}

// resolveSourceArg maps a command argument to a registered source. The
// argument may be a source id, a root path, or a display name.
func resolveSourceArg(reg *source.Registry, arg string) (source.Source, error) {
	if src, err := reg.Get(arg); err == nil {
		return src, nil
	}

	if abs, err := filepath.Abs(arg); err == nil {
		if src, err := reg.Get(source.SourceID(abs)); err == nil {
			return src, nil
		}
	}

	var matches []source.Source
	for _, src := range reg.List() {
		if src.Name == arg {
			matches = append(matches, src)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return source.Source{}, fmt.Errorf("no source matches %q, run 'docdex sources' to list ids", arg)
	default:
		return source.Source{}, fmt.Errorf("name %q matches %d sources, use the id instead", arg, len(matches))
	}
}
