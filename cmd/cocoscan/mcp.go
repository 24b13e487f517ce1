package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/mcp"
)

func newMCPCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start Model Context Protocol (MCP) server",
		Long: `Starts a JSON-RPC server implementing the Model Context Protocol (MCP).
This lets AI agents diagnose leaf photographs, plan treatments and read
scan statistics through cocoscan.

Communication happens over standard input/output (stdio), so logs go to
stderr only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			g.quiet = true
			e, err := g.openEngine(true, true)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return mcp.NewServer(version, e).Start(ctx)
		},
	}
}
