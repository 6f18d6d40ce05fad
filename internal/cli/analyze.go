package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SPTS7/CodeGrapher/internal/analysis"
	"github.com/SPTS7/CodeGrapher/internal/callgraph"
	"github.com/SPTS7/CodeGrapher/internal/config"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		root      string
		entryFile string
		entryFunc string
		maxDepth  int
		maxNodes  int
		asDiagram bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Build the call graph and print it as JSON",
		Long: `Analyze indexes the project, builds the call graph from the entry
point, and prints the result to stdout. Warnings go to stderr.

With --diagram the output is the vis.js payload the frontend renders;
without it, the full graph (nodes with source, edges, warnings).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if root != "" {
				cfg.Project.Root = root
			}
			if entryFile != "" {
				cfg.Project.EntryFile = entryFile
			}
			if entryFunc != "" {
				cfg.Project.EntryFunc = entryFunc
			}
			if maxDepth > 0 {
				cfg.Analysis.MaxDepth = maxDepth
			}
			if maxNodes > 0 {
				cfg.Analysis.MaxNodes = maxNodes
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := func(format string, args ...any) {
				if verbose {
					fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
				}
			}

			graph, err := analysis.NewRunner(cfg, logger).Run(cmd.Context())
			if err != nil {
				return err
			}

			for _, w := range graph.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if asDiagram {
				return enc.Encode(callgraph.Diagram(graph))
			}
			return enc.Encode(graph)
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "project directory (overrides config)")
	cmd.Flags().StringVar(&entryFile, "entry-file", "", "entry file, relative to root")
	cmd.Flags().StringVar(&entryFunc, "entry-func", "", "entry function (default: all top-level)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "traversal depth cap")
	cmd.Flags().IntVar(&maxNodes, "max-nodes", 0, "graph node cap")
	cmd.Flags().BoolVar(&asDiagram, "diagram", false, "emit vis.js diagram data instead of the raw graph")

	return cmd
}
