package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Keyword sync with the configuration peer",
	}

	pushCmd := &cobra.Command{
		Use:   "push",
		Short: "Write every sync-enabled rule into the mirror and push it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openManagement(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer m.stop()

			if !m.repos.Socket.IsConnected() {
				fmt.Fprintln(cmd.OutOrStdout(), "peer not connected, updating the local mirror only")
			}
			return m.uc.Sync.PushAll(cmd.Context())
		},
	}

	cmd.AddCommand(pushCmd)
	return cmd
}
