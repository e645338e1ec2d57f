package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TaskFilter specifies criteria for listing tasks. Zero fields match everything.
type TaskFilter struct {
	Status   Status
	Priority Priority
	Domain   Domain
	Use      Use
	Tag      string
	Query    string // case-insensitive substring of title or notes
}

// Matches reports whether t satisfies every set criterion.
func (f TaskFilter) Matches(t *Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Domain != "" && t.Domain != f.Domain {
		return false
	}
	if f.Use != "" && t.Use != f.Use {
		return false
	}
	if f.Tag != "" && !t.HasTag(f.Tag) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.About), q) {
			return false
		}
	}
	return true
}

// TaskPatch is a partial update. Nil fields are left unchanged.
// Scheduling bounds are not patchable; they only change through a Placer.
type TaskPatch struct {
	Title         *string
	About         *string
	Domain        *Domain
	Use           *Use
	Priority      *Priority
	EffortMinutes *int
	Status        *Status
	DueAt         *time.Time
	Recurrence    *string
	Tags          []string // nil leaves tags unchanged, empty clears them
}

// Apply applies the patch to t and validates the result.
// Leaving scheduled status drops the scheduled bounds so the status invariant holds.
func (p TaskPatch) Apply(t *Task, now time.Time) error {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.About != nil {
		t.About = *p.About
	}
	if p.Domain != nil {
		if !p.Domain.Valid() {
			return ErrInvalidDomain
		}
		t.Domain = *p.Domain
	}
	if p.Use != nil {
		if !p.Use.Valid() {
			return ErrInvalidUse
		}
		t.Use = *p.Use
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return ErrInvalidPriority
		}
		t.Priority = *p.Priority
	}
	if p.EffortMinutes != nil {
		t.EffortMinutes = *p.EffortMinutes
	}
	if p.Status != nil {
		if *p.Status != StatusScheduled {
			t.ScheduledStart = nil
			t.ScheduledEnd = nil
		}
		t.Status = *p.Status
	}
	if p.DueAt != nil {
		v := *p.DueAt
		t.DueAt = &v
	}
	if p.Recurrence != nil {
		t.Recurrence = *p.Recurrence
	}
	if p.Tags != nil {
		t.Tags = append([]string{}, p.Tags...)
	}
	t.UpdatedAt = now
	return t.Validate()
}

// EventPatch is a partial update of a calendar event.
type EventPatch struct {
	Title      *string
	Start      *time.Time
	End        *time.Time
	AllDay     *bool
	Recurrence *string
}

// Apply applies the patch to e and validates the result.
func (p EventPatch) Apply(e *CalendarEvent, now time.Time) error {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		e.End = *p.End
	}
	if p.AllDay != nil {
		e.AllDay = *p.AllDay
	}
	if p.Recurrence != nil {
		e.Recurrence = *p.Recurrence
	}
	e.UpdatedAt = now
	return e.Validate()
}

// PlacementKind describes how a placement changes the store.
type PlacementKind string

const (
	// PlaceCreate inserts a new scheduled task and its event.
	PlaceCreate PlacementKind = "create"
	// PlaceSchedule moves an inbox task to scheduled and inserts its event.
	PlaceSchedule PlacementKind = "schedule"
	// PlaceMove moves a scheduled task and its existing event together.
	PlaceMove PlacementKind = "move"
)

// Placement is one Task/CalendarEvent pair to be committed.
// Task holds the task state after placement; for PlaceMove, Event.ID names the event being moved.
type Placement struct {
	Kind  PlacementKind
	Task  *Task
	Event *CalendarEvent
}

// Validate checks that the pair is consistent before anything is written.
func (p Placement) Validate() error {
	if p.Task == nil || p.Event == nil {
		return fmt.Errorf("placement needs a task and an event: %w", ErrScheduleMismatch)
	}
	switch p.Kind {
	case PlaceCreate, PlaceSchedule, PlaceMove:
	default:
		return fmt.Errorf("unknown placement kind %q", p.Kind)
	}
	if err := p.Task.Validate(); err != nil {
		return fmt.Errorf("task %s: %w", p.Task.ID, err)
	}
	if !p.Task.IsScheduled() {
		return fmt.Errorf("task %s: %w", p.Task.ID, ErrScheduleMismatch)
	}
	if err := p.Event.Validate(); err != nil {
		return fmt.Errorf("event %s: %w", p.Event.ID, err)
	}
	if !p.Event.MatchesTask(p.Task) {
		return fmt.Errorf("event %s does not match task %s: %w", p.Event.ID, p.Task.ID, ErrScheduleMismatch)
	}
	return nil
}

// ValidatePlacements validates every placement and rejects a task placed twice.
func ValidatePlacements(ps []Placement) error {
	seen := make(map[string]bool, len(ps))
	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.Task.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicatePlacement, p.Task.ID)
		}
		seen[p.Task.ID] = true
	}
	return nil
}

// PersistenceError marks a repository failure with ErrPersistence.
// Not-found and already-marked errors keep their kind and only gain the op context.
func PersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrPersistence) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// TaskRepository defines the storage interface for tasks.
type TaskRepository interface {
	// CreateTask adds a new task.
	CreateTask(ctx context.Context, t *Task) error

	// GetTask retrieves a task by ID. Returns ErrNotFound if it does not exist.
	GetTask(ctx context.Context, id string) (*Task, error)

	// UpdateTask applies a partial patch and returns the updated task.
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error)

	// ListTasks returns tasks matching the filter ordered by creation time, then ID.
	ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error)
}

// EventRepository defines the storage interface for calendar events.
type EventRepository interface {
	// CreateEvent adds a new event.
	CreateEvent(ctx context.Context, e *CalendarEvent) error

	// GetEvent retrieves an event by ID. Returns ErrNotFound if it does not exist.
	GetEvent(ctx context.Context, id string) (*CalendarEvent, error)

	// GetEventByTask retrieves the event paired with a task.
	GetEventByTask(ctx context.Context, taskID string) (*CalendarEvent, error)

	// UpdateEvent applies a partial patch and returns the updated event.
	UpdateEvent(ctx context.Context, id string, patch EventPatch) (*CalendarEvent, error)

	// ListEventsInRange returns events intersecting [start, end) ordered by start.
	ListEventsInRange(ctx context.Context, start, end time.Time) ([]*CalendarEvent, error)
}

// RoutineRepository defines the storage interface for routines.
type RoutineRepository interface {
	// CreateRoutine adds a new routine.
	CreateRoutine(ctx context.Context, r *Routine) error

	// GetRoutine retrieves a routine by ID. Returns ErrNotFound if it does not exist.
	GetRoutine(ctx context.Context, id string) (*Routine, error)

	// ListRoutines returns all routines ordered by last update.
	ListRoutines(ctx context.Context) ([]*Routine, error)
}

// Placer commits Task/CalendarEvent pairs.
type Placer interface {
	// Place writes every placement or none of them.
	// A PlaceSchedule whose task has left inbox fails with ErrNotFound.
	Place(ctx context.Context, placements ...Placement) error
}

// Store groups every repository the scheduling core needs.
type Store interface {
	TaskRepository
	EventRepository
	RoutineRepository
	Placer

	// Close releases any resources held by the store.
	Close() error
}
