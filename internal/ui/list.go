package ui

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/lifeplan/internal/task"
)

func (a *App) listCmd() *cobra.Command {
	var (
		status   string
		domain   string
		use      string
		priority string
		tag      string
		query    string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List tasks matching every given filter, oldest first.

Without filters, lists every task.`,
		Example: `  lifeplan list --status=inbox
  lifeplan list --domain=physical --priority=now
  lifeplan list --tag=study -v`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}

			filter, err := buildFilter(status, domain, use, priority)
			if err != nil {
				return err
			}
			filter.Tag = tag
			filter.Query = query

			tasks, err := a.engine.ListTasks(context.Background(), filter)
			if err != nil {
				return fmt.Errorf("listing tasks: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks found.")
				return nil
			}

			opts := PrintOpts{Location: a.engine.Location(), Verbose: verbose, DefaultEffort: a.config.DefaultEffort()}
			width := opts.CalcMaxDescWidth(40)
			for _, t := range tasks {
				PrintTaskRow(out, t, opts, width)
			}
			fmt.Fprintf(out, "\n%s\n", formatMuted(fmt.Sprintf("%d tasks", len(tasks))))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status: inbox, scheduled, done, skipped, canceled")
	cmd.Flags().StringVar(&domain, "domain", "", "Filter by domain")
	cmd.Flags().StringVar(&use, "use", "", "Filter by use")
	cmd.Flags().StringVar(&priority, "priority", "", "Filter by priority")
	cmd.Flags().StringVar(&tag, "tag", "", "Filter by tag")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search titles and notes")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show full titles and task IDs")

	return cmd
}

// buildFilter parses the enum filters. Empty values match everything.
func buildFilter(status, domain, use, priority string) (task.TaskFilter, error) {
	var f task.TaskFilter
	var err error
	if status != "" {
		if f.Status, err = task.ParseStatus(status); err != nil {
			return f, err
		}
	}
	if domain != "" {
		if f.Domain, err = task.ParseDomain(domain); err != nil {
			return f, err
		}
	}
	if use != "" {
		if f.Use, err = task.ParseUse(use); err != nil {
			return f, err
		}
	}
	if priority != "" {
		if f.Priority, err = task.ParsePriority(priority); err != nil {
			return f, err
		}
	}
	return f, nil
}
