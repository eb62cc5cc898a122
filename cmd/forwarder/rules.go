package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devricklin/chat-forwarder/internal/conf"
)

func newRulesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage forwarding rules",
	}

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Create or overwrite rules from a YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Rules.SeedFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return &conf.ConfigError{Field: "RULES_FILE", Message: "no rules file given"}
			}

			file, err := conf.LoadRulesFile(path)
			if err != nil {
				return err
			}

			m, err := openManagement(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer m.stop()

			for i := range file.Rules {
				in, err := file.Rules[i].ToImport()
				if err != nil {
					return err
				}
				if err := m.uc.Rules.Import(cmd.Context(), in); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported rule %d (%s)\n", in.Rule.ID, in.Rule.Name)
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openManagement(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer m.stop()

			rules, err := m.uc.Rules.ListRules(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range rules {
				state := "on"
				if !r.Enabled {
					state = "off"
				}
				sync := "-"
				if r.CanSync() {
					sync = r.SyncDomain + "/" + string(r.SyncItem)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%d -> %s\t%s\tsync=%s\n",
					r.ID, r.Name, r.SourceChatID, r.TargetChatID, state, sync)
			}
			return nil
		},
	}

	cmd.AddCommand(importCmd, listCmd)
	return cmd
}
