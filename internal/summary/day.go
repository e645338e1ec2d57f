// Package summary provides day summary utilities.
package summary

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/javiermolinar/lifeplan/internal/dateutil"
	"github.com/javiermolinar/lifeplan/internal/scheduler"
	"github.com/javiermolinar/lifeplan/internal/task"
)

// DaySummary holds the events of one day and how the working hours are used.
type DaySummary struct {
	Day           time.Time // local midnight
	Hours         scheduler.Interval
	Events        []*task.CalendarEvent
	BusyMinutes   int // busy time inside working hours, overlaps counted once
	FreeMinutes   int
	DomainMinutes map[task.Domain]int
	Free          []scheduler.Interval // gaps inside working hours
}

// EventLister loads events for a range.
type EventLister interface {
	ListEventsInRange(ctx context.Context, start, end time.Time) ([]*task.CalendarEvent, error)
}

// SummarizeDay builds the summary for the day containing day from the given events.
// Events outside the day are ignored; events crossing midnight count only their part inside it.
func SummarizeDay(day time.Time, events []*task.CalendarEvent, hours scheduler.WorkingHours) (*DaySummary, error) {
	if hours.Location != nil {
		day = day.In(hours.Location)
	}
	work, err := hours.Day(day)
	if err != nil {
		return nil, err
	}
	start := dateutil.TruncateToDay(day)
	full := scheduler.Interval{Start: start, End: start.AddDate(0, 0, 1)}

	s := &DaySummary{
		Day:           start,
		Hours:         work,
		DomainMinutes: make(map[task.Domain]int),
	}

	var inHours []scheduler.Interval
	for _, e := range events {
		iv := scheduler.Interval{Start: e.Start, End: e.End}
		if !iv.Overlaps(full) {
			continue
		}
		s.Events = append(s.Events, e)
		if c, ok := clip(iv, full); ok && e.Domain != "" {
			s.DomainMinutes[e.Domain] += int(c.Duration() / time.Minute)
		}
		if c, ok := clip(iv, work); ok {
			inHours = append(inHours, c)
		}
	}
	sort.SliceStable(s.Events, func(i, j int) bool {
		return s.Events[i].Start.Before(s.Events[j].Start)
	})

	busy := merge(inHours)
	cursor := work.Start
	for _, b := range busy {
		s.BusyMinutes += int(b.Duration() / time.Minute)
		if b.Start.After(cursor) {
			s.Free = append(s.Free, scheduler.Interval{Start: cursor, End: b.Start})
		}
		cursor = b.End
	}
	if cursor.Before(work.End) {
		s.Free = append(s.Free, scheduler.Interval{Start: cursor, End: work.End})
	}
	s.FreeMinutes = int(work.Duration()/time.Minute) - s.BusyMinutes

	return s, nil
}

// BuildDaySummary loads the day's events and summarizes them.
func BuildDaySummary(ctx context.Context, repo EventLister, day time.Time, hours scheduler.WorkingHours) (*DaySummary, error) {
	if hours.Location != nil {
		day = day.In(hours.Location)
	}
	start := dateutil.TruncateToDay(day)
	events, err := repo.ListEventsInRange(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}
	return SummarizeDay(day, events, hours)
}

func clip(iv, bounds scheduler.Interval) (scheduler.Interval, bool) {
	if iv.Start.Before(bounds.Start) {
		iv.Start = bounds.Start
	}
	if iv.End.After(bounds.End) {
		iv.End = bounds.End
	}
	return iv, iv.End.After(iv.Start)
}

// merge returns the union of the intervals as sorted, disjoint intervals.
func merge(ivs []scheduler.Interval) []scheduler.Interval {
	if len(ivs) == 0 {
		return nil
	}
	sorted := scheduler.NewBusySet(ivs...).Intervals()
	out := []scheduler.Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}
