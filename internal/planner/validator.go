package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/javiermolinar/lifeplan/internal/scheduler"
	"github.com/javiermolinar/lifeplan/internal/task"
)

// ValidationError is a single problem found in a staged plan.
type ValidationError struct {
	TaskID  string
	Field   string // "pair", "window", "busy" or "overlap"
	Message string
}

// String returns a formatted error message.
func (e ValidationError) String() string {
	return fmt.Sprintf("task %s: %s - %s", e.TaskID, e.Field, e.Message)
}

// ValidationResult contains the result of verifying staged placements.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// FormatErrors joins every error on its own line.
func (r ValidationResult) FormatErrors() string {
	if len(r.Errors) == 0 {
		return ""
	}
	lines := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		lines[i] = e.String()
	}
	return strings.Join(lines, "; ")
}

// Verify checks staged placements before they are committed:
// each pair is consistent, every slot lies inside the window,
// no slot overlaps what was busy before the run, and no two slots overlap each other.
func Verify(window scheduler.Interval, busy *scheduler.BusySet, placements []task.Placement) ValidationResult {
	result := ValidationResult{Valid: true}
	if busy == nil {
		busy = scheduler.NewBusySet()
	}

	if err := task.ValidatePlacements(placements); err != nil {
		id := ""
		if len(placements) > 0 && placements[0].Task != nil {
			id = placements[0].Task.ID
		}
		result.Errors = append(result.Errors, ValidationError{TaskID: id, Field: "pair", Message: err.Error()})
		result.Valid = false
		return result
	}

	type staged struct {
		id   string
		slot scheduler.Interval
	}
	slots := make([]staged, 0, len(placements))
	for _, p := range placements {
		slot := scheduler.Interval{Start: p.Event.Start, End: p.Event.End}
		if !window.Contains(slot) {
			result.Errors = append(result.Errors, ValidationError{
				TaskID:  p.Task.ID,
				Field:   "window",
				Message: fmt.Sprintf("%s is outside %s", slot, window),
			})
		}
		if conflict, ok := busy.FirstConflict(slot); ok {
			result.Errors = append(result.Errors, ValidationError{
				TaskID:  p.Task.ID,
				Field:   "busy",
				Message: fmt.Sprintf("%s overlaps busy %s", slot, conflict),
			})
		}
		slots = append(slots, staged{id: p.Task.ID, slot: slot})
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].slot.Start.Before(slots[j].slot.Start) })
	for i := 1; i < len(slots); i++ {
		if slots[i].slot.Overlaps(slots[i-1].slot) {
			result.Errors = append(result.Errors, ValidationError{
				TaskID:  slots[i].id,
				Field:   "overlap",
				Message: fmt.Sprintf("overlaps task %s %s", slots[i-1].id, slots[i-1].slot),
			})
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}
