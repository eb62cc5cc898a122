package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func parseRuleID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rule id %q", s)
	}
	return id, nil
}

func parseIndexes(args []string) ([]int, error) {
	indexes := make([]int, 0, len(args))
	for _, s := range args {
		i, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid index %q", s)
		}
		indexes = append(indexes, i)
	}
	return indexes, nil
}

func newKeywordsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Manage rule keywords",
	}

	var regex, blacklist bool
	addCmd := &cobra.Command{
		Use:   "add <rule-id> <keyword>...",
		Short: "Add keywords to a rule",
		Args:  cobra.MinimumNArgs(2),
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

			added, dup, err := m.uc.Rules.AddKeywords(cmd.Context(), ruleID, args[1:], regex, blacklist)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d, duplicates %d\n", added, dup)
			return nil
		},
	}
	addCmd.Flags().BoolVar(&regex, "regex", false, "treat keywords as regular expressions")
	addCmd.Flags().BoolVar(&blacklist, "blacklist", false, "add to the blacklist instead of the whitelist")

	listCmd := &cobra.Command{
		Use:   "list <rule-id>",
		Short: "List the keywords of a rule",
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

			keywords, err := m.uc.Rules.ListKeywords(cmd.Context(), ruleID)
			if err != nil {
				return err
			}
			for i, k := range keywords {
				mode := "white"
				if k.IsBlacklist {
					mode = "black"
				}
				kind := "text"
				if k.IsRegex {
					kind = "regex"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", i+1, mode, kind, k.Pattern)
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <rule-id> <index>...",
		Short: "Delete keywords by their list position",
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

			n, err := m.uc.Rules.DeleteKeywords(cmd.Context(), ruleID, indexes)
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
