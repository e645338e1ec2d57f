// Package scheduler provides the interval model and free-slot search used to place tasks.
package scheduler

import (
	"fmt"
	"time"

	"github.com/javiermolinar/lifeplan/internal/dateutil"
	"github.com/javiermolinar/lifeplan/internal/task"
)

// Default working hours.
const (
	DefaultWorkStart = "07:00"
	DefaultWorkEnd   = "22:00"
)

// WorkingHours is the daily window in which tasks may be placed.
type WorkingHours struct {
	Start    string // "HH:MM"
	End      string // "HH:MM"
	Location *time.Location
}

// DefaultWorkingHours returns 07:00-22:00 in loc.
func DefaultWorkingHours(loc *time.Location) WorkingHours {
	return WorkingHours{Start: DefaultWorkStart, End: DefaultWorkEnd, Location: loc}
}

// Validate checks that both bounds parse and Start is before End.
func (h WorkingHours) Validate() error {
	start, err := dateutil.ParseClock(h.Start)
	if err != nil {
		return fmt.Errorf("work start: %w", err)
	}
	end, err := dateutil.ParseClock(h.End)
	if err != nil {
		return fmt.Errorf("work end: %w", err)
	}
	if start >= end {
		return fmt.Errorf("%w: work start %s must be before work end %s", task.ErrInvalidInterval, h.Start, h.End)
	}
	return nil
}

// Day returns the full working interval for the day containing t.
func (h WorkingHours) Day(t time.Time) (Interval, error) {
	if err := h.Validate(); err != nil {
		return Interval{}, err
	}
	local := t.In(h.location(t))
	start, err := dateutil.At(local, h.Start)
	if err != nil {
		return Interval{}, err
	}
	end, err := dateutil.At(local, h.End)
	if err != nil {
		return Interval{}, err
	}
	return NewInterval(start, end)
}

// Window returns [max(now, day start), day end) for the day of now.
// ok is false when now is already at or past the end of the working day.
func (h WorkingHours) Window(now time.Time) (Interval, bool, error) {
	day, err := h.Day(now)
	if err != nil {
		return Interval{}, false, err
	}
	if !now.Before(day.End) {
		return Interval{Start: day.End, End: day.End}, false, nil
	}
	if now.After(day.Start) {
		day.Start = now
	}
	return day, true, nil
}

func (h WorkingHours) location(t time.Time) *time.Location {
	if h.Location != nil {
		return h.Location
	}
	return t.Location()
}

// RoundUp rounds t up to the next step boundary counted from local midnight.
// Times already on a boundary are returned unchanged.
func RoundUp(t time.Time, step time.Duration) time.Time {
	if step <= 0 {
		step = DefaultStep
	}
	midnight := dateutil.TruncateToDay(t)
	offset := t.Sub(midnight)
	if offset%step == 0 {
		return t
	}
	return midnight.Add((offset/step + 1) * step)
}
