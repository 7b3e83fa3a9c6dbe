package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/kbsearch/internal/mcp"
)

func newServeCmd(a *app) *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start a Model Context Protocol server exposing search, list_knowledge_bases
and status to AI clients.

The server speaks JSON-RPC over stdin/stdout; logs go to the log file only.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationServe: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := a.openEngine()
			if err != nil {
				return err
			}
			server, err := mcp.NewServer(e, a.logger)
			if err != nil {
				return err
			}
			err = server.Serve(ctx, transport)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport protocol (stdio)")
	return cmd
}
