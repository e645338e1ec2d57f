package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/lifeplan/internal/dateutil"
)

func (a *App) agendaCmd() *cobra.Command {
	var (
		date    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Show the calendar for a day",
		Long: `Display the events of a day with busy and free time inside the
working hours and a breakdown per life domain.

--date accepts YYYY-MM-DD, today, tomorrow, a weekday name or next-<weekday>.`,
		Example: `  lifeplan agenda
  lifeplan agenda --date=tomorrow
  lifeplan agenda --date=2025-01-15`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}

			now := a.engine.Now()
			day, err := dateutil.ParseRelativeDate(date, now)
			if errors.Is(err, dateutil.ErrDateInPast) {
				day, err = dateutil.ParseDate(date, a.engine.Location())
			}
			if err != nil {
				return err
			}
			return a.printAgendaOpts(cmd, day, PrintOpts{Verbose: verbose})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day to show (default: today)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show full titles")
	return cmd
}

func (a *App) printAgenda(cmd *cobra.Command, day time.Time) error {
	return a.printAgendaOpts(cmd, day, PrintOpts{})
}

func (a *App) printAgendaOpts(cmd *cobra.Command, day time.Time, opts PrintOpts) error {
	s, err := a.engine.Agenda(context.Background(), day)
	if err != nil {
		return fmt.Errorf("building agenda: %w", err)
	}

	out := cmd.OutOrStdout()
	loc := a.engine.Location()
	opts.Location = loc

	fmt.Fprintf(out, "=== %s ===\n", formatHeader(s.Day.Format("Monday, January 2, 2006")))
	fmt.Fprintf(out, "%s\n\n", formatMuted("Working hours "+FormatSpan(s.Hours.Start, s.Hours.End, loc)))

	if len(s.Events) == 0 {
		fmt.Fprintln(out, "No events scheduled.")
	} else {
		width := opts.CalcMaxDescWidth(40)
		for _, ev := range s.Events {
			PrintEventRow(out, ev, opts, width)
		}
	}

	fmt.Fprintln(out)
	PrintDaySummary(out, s, loc)
	return nil
}
