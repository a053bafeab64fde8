package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/docdexhq/docdex/internal/output"
	"github.com/docdexhq/docdex/internal/source"
)

func newSourcesCmd() *cobra.Command {
	var (
		jsonOutput  bool
		showRemoved bool
	)

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List registered sources",
		Long: `List registered documentation sources with their index state.

Removed sources are hidden unless --all is given.`,
		Example: `  # List active sources
  docdex sources

  # Include removed sources, as JSON
  docdex sources --all --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSources(cmd, jsonOutput, showRemoved)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showRemoved, "all", false, "Include removed sources")

	return cmd
}

func runSources(cmd *cobra.Command, jsonOutput, showRemoved bool) error {
	out := newOutput(cmd)

	reg, _, err := openRegistry()
	if err != nil {
		return err
	}

	var listOpts []source.ListOption
	if showRemoved {
		listOpts = append(listOpts, source.WithRemoved())
	}
	sources := reg.List(listOpts...)

	if jsonOutput {
		return out.JSON(sources)
	}

	if len(sources) == 0 {
		out.Status("", "No sources registered.")
		out.Newline()
		out.Status("", "Register one with: docdex register PATH")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tID\tSTATUS\tFILES\tLAST INDEXED\tPATH")
	_, _ = fmt.Fprintln(w, "----\t--\t------\t-----\t------------\t----")

	for _, s := range sources {
		path := s.RootPath
		if len(path) > 40 {
			path = "..." + path[len(path)-37:]
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			s.Name, s.ID, s.Status, s.FileCount,
			output.FormatTimeAgo(s.LastIndexedAt), path)
	}
	return w.Flush()
}
