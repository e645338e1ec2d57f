package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/javiermolinar/lifeplan/internal/task"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval returns [start, end). It fails with task.ErrInvalidInterval when end <= start.
func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, fmt.Errorf("%w: %s..%s", task.ErrInvalidInterval,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

// Duration returns the length of the interval.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Contains reports whether other lies entirely inside iv.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Overlaps reports whether the two intervals share any instant.
// Back-to-back intervals do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

// Empty reports whether the interval has no positive length.
func (iv Interval) Empty() bool {
	return !iv.End.After(iv.Start)
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339))
}

// BusySet is the set of occupied intervals for one planning window.
// Membership order never affects any query.
type BusySet struct {
	items []Interval
}

// NewBusySet builds a busy set from a snapshot of intervals.
func NewBusySet(intervals ...Interval) *BusySet {
	items := make([]Interval, len(intervals))
	copy(items, intervals)
	return &BusySet{items: items}
}

// BusyFromEvents builds a busy set from calendar events, skipping malformed ones.
func BusyFromEvents(events []*task.CalendarEvent) *BusySet {
	b := &BusySet{items: make([]Interval, 0, len(events))}
	for _, e := range events {
		if e == nil || !e.End.After(e.Start) {
			continue
		}
		b.items = append(b.items, Interval{Start: e.Start, End: e.End})
	}
	return b
}

// Overlaps reports whether candidate overlaps any member.
func (b *BusySet) Overlaps(candidate Interval) bool {
	for _, iv := range b.items {
		if iv.Overlaps(candidate) {
			return true
		}
	}
	return false
}

// FirstConflict returns the earliest-starting member that overlaps candidate.
func (b *BusySet) FirstConflict(candidate Interval) (Interval, bool) {
	var (
		found Interval
		ok    bool
	)
	for _, iv := range b.items {
		if !iv.Overlaps(candidate) {
			continue
		}
		if !ok || iv.Start.Before(found.Start) || (iv.Start.Equal(found.Start) && iv.End.Before(found.End)) {
			found = iv
			ok = true
		}
	}
	return found, ok
}

// Add records an interval as busy.
func (b *BusySet) Add(iv Interval) {
	b.items = append(b.items, iv)
}

// Len returns the number of busy intervals.
func (b *BusySet) Len() int {
	return len(b.items)
}

// Intervals returns a copy of the members sorted by start, then end.
func (b *BusySet) Intervals() []Interval {
	out := make([]Interval, len(b.items))
	copy(out, b.items)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].End.Before(out[j].End)
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}
