package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/lifeplan/internal/dateutil"
	"github.com/javiermolinar/lifeplan/internal/routine"
	"github.com/javiermolinar/lifeplan/internal/task"
)

func (a *App) routineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routine",
		Short: "Manage routine templates",
		Long: `Routines are reusable task templates. Applying a routine creates one
scheduled task per occurrence at the times you choose.`,
	}

	cmd.AddCommand(a.routineAddCmd())
	cmd.AddCommand(a.routineListCmd())
	cmd.AddCommand(a.routineApplyCmd())
	cmd.AddCommand(a.routineImportCmd())
	cmd.AddCommand(a.routineExportCmd())
	return cmd
}

func (a *App) routineAddCmd() *cobra.Command {
	var (
		domain     string
		use        string
		minutes    int
		slots      string
		tags       []string
		checklist  []string
		recurrence string
	)

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a routine",
		Example: `  lifeplan routine add "Morning focus" --domain=time --use=execute --minutes=90 --slots="weekdays 08:00"
  lifeplan routine add "Gym" --domain=physical --checklist=warmup --checklist=lift`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}

			r, err := task.NewRoutine(strings.Join(args, " "), domain, use, minutes, a.engine.Now())
			if err != nil {
				return err
			}
			r.Slots = slots
			r.Recurrence = recurrence
			if len(tags) > 0 {
				r.Tags = tags
			}
			if len(checklist) > 0 {
				r.Checklist = checklist
			}

			if err := a.engine.AddRoutine(context.Background(), r); err != nil {
				return fmt.Errorf("creating routine: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created routine %s (%s) %s\n",
				r.Title, FormatDuration(int(r.Duration().Minutes())), formatMuted(r.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "time", "Life domain")
	cmd.Flags().StringVar(&use, "use", "execute", "Kind of work")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Length of each occurrence (0 = 60)")
	cmd.Flags().StringVar(&slots, "slots", "", "Free-form hint such as \"weekdays 08:00\"")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringSliceVar(&checklist, "checklist", nil, "Checklist item (repeatable)")
	cmd.Flags().StringVar(&recurrence, "recurrence", "", "Recurrence rule copied to generated tasks")
	return cmd
}

func (a *App) routineListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List routines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}

			routines, err := a.engine.ListRoutines(context.Background())
			if err != nil {
				return fmt.Errorf("listing routines: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(routines) == 0 {
				fmt.Fprintln(out, "No routines yet.")
				return nil
			}
			for _, r := range routines {
				state := ""
				if !r.Active {
					state = formatMuted(" (inactive)")
				}
				fmt.Fprintf(out, "  %s  %-30s  %-6s  %s%s\n",
					formatDomain(r.Domain, fmt.Sprintf("[%-9s]", r.Domain)),
					truncate(r.Title, 30),
					FormatDuration(int(r.Duration().Minutes())),
					formatMuted(r.ID),
					state)
				if r.Slots != "" {
					fmt.Fprintf(out, "      %s\n", formatMuted(r.Slots))
				}
			}
			return nil
		},
	}
}

func (a *App) routineApplyCmd() *cobra.Command {
	var (
		date string
		at   string
		days string
	)

	cmd := &cobra.Command{
		Use:   "apply [routine-id]",
		Short: "Create scheduled tasks from a routine",
		Long: `Instantiate a routine as scheduled tasks.

Without --days, one task is created on --date at --at. With --days, one
task is created for each listed weekday in the seven days starting at
--date. The times are taken as given and are not checked for free time.`,
		Example: `  lifeplan routine apply 9a2e... --at=07:30
  lifeplan routine apply 9a2e... --date=next-monday --at=18:00 --days=mon,wed,fri`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}

			now := a.engine.Now()
			start, err := dateutil.ParseRelativeDate(date, now)
			if err != nil {
				return err
			}
			weekdays, err := dateutil.ParseWeekdays(days)
			if err != nil {
				return err
			}

			applied, err := a.engine.ApplyRoutine(context.Background(), args[0], routine.ApplyParams{
				Start: start,
				Days:  weekdays,
				Time:  at,
			})
			if err != nil {
				return fmt.Errorf("applying routine: %w", err)
			}

			out := cmd.OutOrStdout()
			loc := a.engine.Location()
			fmt.Fprintf(out, "Applied %s: %d tasks\n", applied.Routine.Title, len(applied.Tasks))
			for _, t := range applied.Tasks {
				s, e, _ := t.Slot()
				fmt.Fprintf(out, "  %s  %s %s\n", statusSymbol(t.Status),
					s.In(loc).Format("Mon Jan 2"), FormatSpan(s, e, loc))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "First day (default: today)")
	cmd.Flags().StringVar(&at, "at", "", "Clock time HH:MM (required)")
	cmd.Flags().StringVar(&days, "days", "", "Comma-separated weekdays, e.g. mon,wed,fri")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func (a *App) routineImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import routines from a YAML file",
		Long: `Import every routine listed in a YAML file.

Example file:
  routines:
    - title: Morning focus
      domain: time
      use: execute
      duration_minutes: 90
      slots: weekdays 08:00
      checklist: [plan, focus, review]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}

			path, err := resolvePath(args[0])
			if err != nil {
				return err
			}
			count, err := importRoutines(context.Background(), a, path)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d routines from %s\n", count, path)
			return nil
		},
	}
}

func (a *App) routineExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write every routine as YAML to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}
			routines, err := a.engine.ListRoutines(context.Background())
			if err != nil {
				return fmt.Errorf("listing routines: %w", err)
			}
			return routine.WriteRoutineFile(cmd.OutOrStdout(), routines)
		},
	}
}

func importRoutines(ctx context.Context, a *App, path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("routine file does not exist: %s", path)
		}
		return 0, fmt.Errorf("checking routine file: %w", err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("routine file path is a directory: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening routine file: %w", err)
	}
	defer func() { _ = f.Close() }()

	routines, err := a.engine.ImportRoutines(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("importing routines: %w", err)
	}
	return len(routines), nil
}

func resolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("empty path")
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	return absPath, nil
}
