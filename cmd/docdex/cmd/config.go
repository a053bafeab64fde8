package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/docdexhq/docdex/configs"
	"github.com/docdexhq/docdex/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the docdex configuration file.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/docdex/config.yaml)
  3. Project config (.docdex.yaml in the working directory)
  4. .env file in the working directory
  5. Environment variables (DOCDEX_*)`,
		Example: `  # Create the user config template
  docdex config init

  # Create a project config template in the current directory
  docdex config init --project

  # Show the effective configuration
  docdex config show

  # Print the user config file path
  docdex config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force   bool
		project bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file template",
		Long: `Write a configuration template with every setting commented out next
to its default. By default the template goes to the user config path;
--project writes .docdex.yaml in the current directory instead. Existing
files are left alone unless --force is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force, project)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration")
	cmd.Flags().BoolVar(&project, "project", false, "Write a project config (.docdex.yaml) instead")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging defaults, the user config,
the project config, and environment overrides.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.UserConfigPath())
			return err
		},
	}
}

func runConfigInit(cmd *cobra.Command, force, project bool) error {
	out := newOutput(cmd)

	path := config.UserConfigPath()
	template := configs.UserConfigTemplate
	kind := "User"
	if project {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
		path = filepath.Join(cwd, ".docdex.yaml")
		template = configs.ProjectConfigTemplate
		kind = "Project"
	}

	if _, err := os.Stat(path); err == nil && !force {
		out.Warningf("%s configuration already exists", kind)
		out.Statusf("", "location: %s", path)
		out.Newline()
		out.Status("", "Use --force to overwrite it with the template.")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	out.Successf("Created %s configuration", strings.ToLower(kind))
	out.Statusf("", "location: %s", path)
	out.Newline()
	out.Status("", "Uncomment settings to change them, then run 'docdex config show'.")
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool) error {
	out := newOutput(cmd)

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return err
	}

	if jsonOutput {
		return out.JSON(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	out.Status("", "Effective configuration (defaults + user + project + env):")
	out.Code(string(data))
	return nil
}
