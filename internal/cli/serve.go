package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SPTS7/CodeGrapher/internal/config"
	"github.com/SPTS7/CodeGrapher/internal/server"
	"github.com/SPTS7/CodeGrapher/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var listen string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose analysis over HTTP for the visualization frontend",
		Long: `Serve starts an HTTP server with a single POST /analyze endpoint.
The frontend posts {projectDir, entryFile, entryFunc, apiKey} and gets
back run logs plus vis.js diagram data. With --watch, changes to .py
files under the configured project root are logged as they happen;
every request still re-analyzes the whole tree.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if cmd.Flags().Changed("watch") {
				cfg.Server.Watch = watch
			}

			logger := func(format string, args ...any) {
				fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
			}

			ctx := cmd.Context()

			if cfg.Server.Watch && cfg.Project.Root != "" {
				w, err := watcher.New(cfg.Project.Root)
				if err != nil {
					return fmt.Errorf("starting watcher: %w", err)
				}
				defer w.Close()
				signals, err := w.Start(ctx)
				if err != nil {
					return fmt.Errorf("starting watcher: %w", err)
				}
				go func() {
					for range signals {
						logger("Project changed, next analysis will re-index")
					}
				}()
			}

			return server.New(cfg, logger).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "host:port to bind (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "log project changes while serving")

	return cmd
}
