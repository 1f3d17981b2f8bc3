package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/usercrud/internal/config"
	"github.com/dusk-indust/usercrud/internal/mcptools"
	"github.com/dusk-indust/usercrud/internal/userapi"
)

func newMCPCommand(rootOpts *rootOptions) *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the user tools over MCP on stdio",
		Long: `Serve list_users, get_user, create_user, update_user and delete_user as
Model Context Protocol tools on stdin/stdout, reading and writing the same
JSON data file as the HTTP API.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(cmd.ErrOrStderr(), rootOpts.Verbose)
			cfg := &config.ServerConfig{DataPath: dataPath}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc := userapi.NewService(openStore(cfg, false, logger))
			return mcptools.RunMCPServerStdio(ctx, svc)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", config.DefaultDataPath, "path to the JSON data file")
	return cmd
}
