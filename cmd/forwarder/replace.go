package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReplaceCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replace",
		Short: "Manage text replace rules",
	}

	addCmd := &cobra.Command{
		Use:   "add <rule-id> <pattern> [content]",
		Short: "Append a replace rule, an empty content deletes the match",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleID, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			content := ""
			if len(args) == 3 {
				content = args[2]
			}
			m, err := openManagement(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer m.stop()

			if _, err := m.uc.Rules.AddReplaceRule(cmd.Context(), ruleID, args[1], content); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "added")
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list <rule-id>",
		Short: "List replace rules in application order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleID, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			m, err := openManagement(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer m.stop()

			rules, err := m.uc.Rules.ListReplaceRules(cmd.Context(), ruleID)
			if err != nil {
				return err
			}
			for i, rr := range rules {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%q -> %q\n", i+1, rr.Pattern, rr.Content)
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <rule-id> <index>...",
		Short: "Delete replace rules by their list position",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleID, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			indexes, err := parseIndexes(args[1:])
			if err != nil {
				return err
			}
			m, err := openManagement(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer m.stop()

			n, err := m.uc.Rules.DeleteReplaceRules(cmd.Context(), ruleID, indexes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", n)
			return nil
		},
	}

	cmd.AddCommand(addCmd, listCmd, deleteCmd)
	return cmd
}
