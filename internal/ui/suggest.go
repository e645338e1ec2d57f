package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/lifeplan/internal/suggest"
)

func (a *App) suggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Review suggestions",
		Long: `Suggestions are short-lived proposals such as an evening reflection.
They never touch the calendar until you accept them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.listSuggestions(cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Evaluate the rules and list active suggestions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.listSuggestions(cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "accept [suggestion-id]",
		Short: "Turn a suggestion into a scheduled task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}
			accepted, err := a.engine.AcceptSuggestion(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("accepting suggestion: %w", err)
			}
			loc := a.engine.Location()
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %s %s\n",
				accepted.Task.Title, FormatSpan(accepted.Event.Start, accepted.Event.End, loc))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "dismiss [suggestion-id]",
		Short: "Discard a suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}
			if err := a.engine.DismissSuggestion(context.Background(), args[0]); err != nil {
				return fmt.Errorf("dismissing suggestion: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dismissed %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired suggestions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}
			n, err := a.engine.PurgeExpiredSuggestions(context.Background())
			if err != nil {
				return fmt.Errorf("purging suggestions: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired suggestions\n", n)
			return nil
		},
	})

	return cmd
}

func (a *App) listSuggestions(cmd *cobra.Command) error {
	if err := a.ensureEngine(); err != nil {
		return err
	}

	ctx := context.Background()
	if _, err := a.engine.EvaluateSuggestions(ctx); err != nil {
		return fmt.Errorf("evaluating suggestions: %w", err)
	}
	list, err := a.engine.ListActiveSuggestions(ctx)
	if err != nil {
		return fmt.Errorf("listing suggestions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No suggestions right now.")
		return nil
	}
	for _, s := range list {
		printSuggestion(cmd, s, a.engine.Location())
	}
	return nil
}

func printSuggestion(cmd *cobra.Command, s *suggest.Suggestion, loc *time.Location) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s\n", formatWarn("*"), formatHeader(s.ID))
	if s.Explanation != "" {
		fmt.Fprintf(out, "   %s\n", s.Explanation)
	}
	if p, ok := s.Payload.(suggest.Proposer); ok {
		prop := p.Proposal()
		fmt.Fprintf(out, "   %s %s\n", prop.Title,
			FormatSpan(prop.Start, prop.Start.Add(prop.Duration), loc))
	}
	line := fmt.Sprintf("action %s, confidence %.0f%%", s.Action, s.Confidence*100)
	if s.ExpiresAt != nil {
		line += ", expires " + s.ExpiresAt.In(loc).Format("15:04")
	}
	fmt.Fprintf(out, "   %s\n", formatMuted(line))
}
