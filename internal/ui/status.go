package ui

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/lifeplan/internal/task"
)

var statusByVerb = map[string]task.Status{
	"done":   task.StatusDone,
	"skip":   task.StatusSkipped,
	"cancel": task.StatusCanceled,
}

// statusCmd builds one of the done, skip or cancel commands.
func (a *App) statusCmd(verb, short string) *cobra.Command {
	status := statusByVerb[verb]

	return &cobra.Command{
		Use:   verb + " [task-id]",
		Short: short,
		Long: fmt.Sprintf(`%s.

The task keeps its calendar event so the day's history stays intact.

Example:
  lifeplan %s 3f1c...`, short, verb),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}

			t, err := a.engine.SetStatus(context.Background(), args[0], status)
			if err != nil {
				return fmt.Errorf("updating task: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", statusSymbol(t.Status), t.Title, t.Status)
			return nil
		},
	}
}
