package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devricklin/chat-forwarder/internal/biz/domain"
)

func newMediaCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Manage media type and extension filters",
	}

	typesCmd := &cobra.Command{
		Use:   "types <rule-id>",
		Short: "Show blocked media types",
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

			s, err := m.uc.Rules.GetMediaTypes(cmd.Context(), ruleID)
			if err != nil {
				return err
			}
			for _, kind := range []domain.MediaKind{domain.MediaPhoto, domain.MediaDocument, domain.MediaVideo, domain.MediaAudio, domain.MediaVoice} {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tblocked=%t\n", kind, s.Blocks(kind))
			}
			return nil
		},
	}

	toggleCmd := &cobra.Command{
		Use:   "toggle <rule-id> <photo|document|video|audio|voice>",
		Short: "Toggle blocking of a media type",
		Args:  cobra.ExactArgs(2),
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

			blocked, err := m.uc.Rules.ToggleMediaType(cmd.Context(), ruleID, domain.MediaKind(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s blocked=%t\n", args[1], blocked)
			return nil
		},
	}

	extAddCmd := &cobra.Command{
		Use:   "ext-add <rule-id> <ext>...",
		Short: "Allow file extensions",
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

			added, dup, err := m.uc.Rules.AddMediaExtensions(cmd.Context(), ruleID, args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d, duplicates %d\n", added, dup)
			return nil
		},
	}

	extListCmd := &cobra.Command{
		Use:   "ext-list <rule-id>",
		Short: "List allowed file extensions",
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

			exts, err := m.uc.Rules.ListMediaExtensions(cmd.Context(), ruleID)
			if err != nil {
				return err
			}
			for i, e := range exts {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i+1, e.Extension)
			}
			return nil
		},
	}

	extDeleteCmd := &cobra.Command{
		Use:   "ext-delete <rule-id> <index>...",
		Short: "Delete allowed extensions by their list position",
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

			n, err := m.uc.Rules.DeleteMediaExtensions(cmd.Context(), ruleID, indexes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", n)
			return nil
		},
	}

	cmd.AddCommand(typesCmd, toggleCmd, extAddCmd, extListCmd, extDeleteCmd)
	return cmd
}
