package cmd

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docdexhq/docdex/internal/config"
	"github.com/docdexhq/docdex/internal/embed"
	"github.com/docdexhq/docdex/internal/output"
	"github.com/docdexhq/docdex/internal/source"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [SOURCE]",
		Short: "Show source index state",
		Long: `Show the index state of one source, or of every active source
when none is named.

SOURCE may be a source id, root path, or display name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, args, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, args []string, jsonOutput bool) error {
	out := newOutput(cmd)

	reg, _, err := openRegistry()
	if err != nil {
		return err
	}

	var sources []source.Source
	if len(args) == 1 {
		src, err := resolveSourceArg(reg, args[0])
		if err != nil {
			return err
		}
		sources = []source.Source{src}
	} else {
		sources = reg.List()
	}

	if len(sources) == 0 {
		out.Status("", "No sources registered.")
		return nil
	}

	provider, model, dims := providerInfo()

	infos := make([]output.StatusInfo, 0, len(sources))
	for _, src := range sources {
		infos = append(infos, output.StatusInfo{
			Name:         src.Name,
			ID:           src.ID,
			RootPath:     src.RootPath,
			Status:       string(src.Status),
			Files:        src.FileCount,
			Chunks:       checkpointChunks(src.LastCheckpoint),
			LastIndexed:  src.LastIndexedAt,
			Checkpoint:   src.LastCheckpoint,
			Watched:      src.Policy.WatchForChanges,
			ErrorMessage: src.ErrorMessage,
			Provider:     provider,
			Model:        model,
			Dimensions:   dims,
		})
	}

	if jsonOutput {
		return out.JSON(infos)
	}
	for i, info := range infos {
		if i > 0 {
			out.Newline()
		}
		out.SourceStatus(info)
	}
	return nil
}

// providerInfo resolves the configured embedding backend identity.
func providerInfo() (name, model string, dims int) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", "", 0
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return "", "", 0
	}
	p, err := embed.NewProvider(cfg.Embedding.Provider, cfg.Embedding.Dimensions, 0)
	if err != nil {
		return cfg.Embedding.Provider, "", 0
	}
	defer func() { _ = p.Close() }()
	return p.ID(), p.ModelName(), p.Dimensions()
}

// checkpointChunks extracts the processed chunk count from a checkpoint
// token of the form "unixSeconds:chunks".
func checkpointChunks(checkpoint string) int {
	parts := strings.SplitN(checkpoint, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return n
}
