package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/lifeplan/internal/dateutil"
)

func (a *App) scheduleCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "schedule [task-id]",
		Short: "Place a task at a chosen time",
		Long: `Place a task by hand. Inbox tasks get a new calendar event; scheduled
tasks are moved together with their event.

The slot lasts the task's effort and must not overlap another event.
--at accepts HH:MM (today), YYYY-MM-DDTHH:MM or RFC 3339.`,
		Example: `  lifeplan schedule 3f1c... --at=09:30
  lifeplan schedule 3f1c... --at=2025-01-15T18:00`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}

			start, err := parseInstant(at, a.engine.Now())
			if err != nil {
				return err
			}

			t, _, err := a.engine.ScheduleTask(context.Background(), args[0], start)
			if err != nil {
				return fmt.Errorf("scheduling task: %w", err)
			}

			s, e, _ := t.Slot()
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %s on %s %s\n",
				t.Title,
				s.In(a.engine.Location()).Format("Mon Jan 2"),
				FormatSpan(s, e, a.engine.Location()))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Start time (required)")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

// parseInstant reads an instant relative to now's location.
// Accepts RFC 3339, "YYYY-MM-DDTHH:MM", "YYYY-MM-DD" (midnight) and "HH:MM" (today).
func parseInstant(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	loc := now.Location()
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", s, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	if t, err := dateutil.At(now, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: cannot read %q as a time", dateutil.ErrInvalidDateFormat, s)
}
