package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/SPTS7/CodeGrapher/internal/config"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a .codegrapher.yaml config file",
		Long: `Init writes a starter .codegrapher.yaml in the current directory,
pre-filled with defaults. Set the API key through the
CODEGRAPHER_SUMMARIES_API_KEY environment variable rather than the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			path := filepath.Join(cwd, config.DefaultConfigFile+"."+config.DefaultConfigType)

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := &config.Config{}
			cfg.Project.Root = "."
			cfg.Project.EntryFile = "main.py"
			cfg.Project.Exclude = []string{"venv", ".venv", "__pycache__", "node_modules", "dist", "build"}
			cfg.Analysis.MaxDepth = 10
			cfg.Analysis.MaxNodes = 500
			cfg.Summaries.Provider = "gemini"
			cfg.Summaries.Model = "gemini-1.5-flash"
			cfg.Summaries.Concurrency = 4
			cfg.Server.Listen = "127.0.0.1:5000"

			if err := config.WriteConfig(cfg, path); err != nil {
				return fmt.Errorf("write config file: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s\n", path)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  1. Point project.root and project.entry_file at your code")
			fmt.Fprintln(out, "  2. Export CODEGRAPHER_SUMMARIES_API_KEY to enable AI summaries")
			fmt.Fprintln(out, "  3. Run: codegrapher analyze")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
