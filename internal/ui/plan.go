package ui

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/lifeplan/internal/planner"
)

func (a *App) planCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Place inbox tasks on today's calendar",
		Long: `Take the most urgent inbox tasks and place each one in the first free
slot of today's remaining working hours.

Only now and soon tasks are considered, now first, then by age. Each
placement is followed by one step of slack. Tasks that do not fit stay in
the inbox and are reported as conflicts.`,
		Example: `  lifeplan plan
  lifeplan plan -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}

			result, err := a.engine.PlanToday(context.Background())
			if err != nil {
				return fmt.Errorf("planning: %w", err)
			}
			a.displayPlanResult(cmd.OutOrStdout(), result, verbose)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show full titles and task IDs")
	return cmd
}

// displayPlanResult shows the planning result to the user.
func (a *App) displayPlanResult(w io.Writer, result *planner.Result, verbose bool) {
	loc := a.engine.Location()
	opts := PrintOpts{Location: loc, Verbose: verbose, DefaultEffort: a.config.DefaultEffort()}
	width := opts.CalcMaxDescWidth(40)

	if result.Total() == 0 {
		fmt.Fprintln(w, "Nothing to plan: the inbox is empty or the working day is over.")
		return
	}

	if len(result.Placed) > 0 {
		fmt.Fprintln(w, formatHeader("Placed"))
		for _, t := range result.Placed {
			PrintTaskRow(w, t, opts, width)
		}
	}

	if len(result.Conflicts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, formatWarn("Could not place"))
		for _, c := range result.Conflicts {
			fmt.Fprintf(w, "  ! %-*s  %s\n", width, truncate(c.Task.Title, width), formatMuted(c.Reason.Error()))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, renderBox(
		fmt.Sprintf("Window  %s", FormatSpan(result.Window.Start, result.Window.End, loc)),
		fmt.Sprintf("Placed  %d of %d", len(result.Placed), result.Total()),
	))
}
