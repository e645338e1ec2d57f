package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/javiermolinar/lifeplan/internal/task"
)

// DefaultStep is the scan granularity used when a query leaves Step unset.
const DefaultStep = 15 * time.Minute

// ErrNoSlot is recorded when no free interval of the requested length fits the window.
// It describes an outcome and is never returned by FindSlot.
var ErrNoSlot = errors.New("no slot available")

// SlotQuery describes a free-slot search.
type SlotQuery struct {
	Window   Interval
	Cursor   time.Time // earliest start considered; clamped to Window.Start
	Duration time.Duration
	Step     time.Duration // 0 means DefaultStep
}

// FindSlot returns the earliest [s, s+Duration) inside the window that overlaps nothing in busy,
// scanning s upward from the cursor in Step increments.
// It returns false without error when the scan runs out of window.
func FindSlot(busy *BusySet, q SlotQuery) (Interval, bool, error) {
	if q.Duration <= 0 {
		return Interval{}, false, fmt.Errorf("%w: duration %s", task.ErrInvalidInterval, q.Duration)
	}
	step := q.Step
	if step == 0 {
		step = DefaultStep
	}
	if step < 0 {
		return Interval{}, false, fmt.Errorf("%w: step %s", task.ErrInvalidInterval, step)
	}
	if busy == nil {
		busy = NewBusySet()
	}

	s := q.Cursor
	if s.Before(q.Window.Start) {
		s = q.Window.Start
	}
	for !s.Add(q.Duration).After(q.Window.End) {
		candidate := Interval{Start: s, End: s.Add(q.Duration)}
		if !busy.Overlaps(candidate) {
			return candidate, true, nil
		}
		s = s.Add(step)
	}
	return Interval{}, false, nil
}
