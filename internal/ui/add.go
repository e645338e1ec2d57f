package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/lifeplan/internal/task"
)

func (a *App) addCmd() *cobra.Command {
	var (
		about    string
		domain   string
		use      string
		priority string
		effort   int
		tags     []string
		due      string
	)

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task to the inbox",
		Long: `Add a new task to the inbox. Inbox tasks are placed on the calendar
by 'lifeplan plan' or by hand with 'lifeplan schedule'.

Domains: time, finance, physical, mental, social, spiritual, admin
Uses:    plan, execute, review, learn, budget, recover, reflect
Priority: now, soon, later`,
		Example: `  lifeplan add "Gym push day" --domain=physical --use=execute --priority=soon --effort=60
  lifeplan add "Pay rent" --domain=finance --use=budget --priority=now --due=2025-02-01`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}

			now := a.engine.Now()
			t, err := task.New(strings.Join(args, " "), domain, use, priority, effort, now)
			if err != nil {
				return err
			}
			t.About = about
			if len(tags) > 0 {
				t.Tags = tags
			}
			if due != "" {
				at, err := parseInstant(due, now)
				if err != nil {
					return fmt.Errorf("invalid due date: %w", err)
				}
				t.DueAt = &at
			}

			if err := a.engine.AddTask(context.Background(), t); err != nil {
				return fmt.Errorf("creating task: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s [%s/%s, %s, %s] %s\n",
				t.Title, t.Domain, t.Use, t.Priority,
				FormatDuration(int(t.Effort(a.config.DefaultEffort()).Minutes())),
				formatMuted(t.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&about, "about", "", "Free-form notes")
	cmd.Flags().StringVar(&domain, "domain", "time", "Life domain")
	cmd.Flags().StringVar(&use, "use", "execute", "Kind of work")
	cmd.Flags().StringVar(&priority, "priority", "later", "Priority: now, soon or later")
	cmd.Flags().IntVar(&effort, "effort", 0, "Estimated minutes (0 uses the configured default)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD or YYYY-MM-DDTHH:MM)")

	return cmd
}
