package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devricklin/chat-forwarder/internal/mcpserver"
)

func newMCPCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve rule management tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			m, err := openManagement(ctx, a)
			if err != nil {
				return err
			}
			defer m.stop()

			return mcpserver.NewServer(m.uc.Rules, m.uc.Sync, a.log).Run(ctx)
		},
	}
}
