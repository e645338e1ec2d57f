// Package engine is the entry point to the scheduling core used by the CLI, the HTTP API and the MCP server.
// Every operation that places tasks on the calendar runs under one lock, so two runs never pick the same slot.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/javiermolinar/lifeplan/internal/planner"
	"github.com/javiermolinar/lifeplan/internal/routine"
	"github.com/javiermolinar/lifeplan/internal/scheduler"
	"github.com/javiermolinar/lifeplan/internal/suggest"
	"github.com/javiermolinar/lifeplan/internal/summary"
	"github.com/javiermolinar/lifeplan/internal/task"
)

// Store is the persistence the engine drives.
type Store interface {
	task.Store
	suggest.Repository
}

// Options configures an Engine.
type Options struct {
	Planner          planner.Options
	ReflectionAt     string // "HH:MM"
	ReflectionCutoff string // "HH:MM"
	Logger           *slog.Logger
	Clock            func() time.Time
}

// Engine wires the planner, the routine instantiator and the suggestion service over one store.
type Engine struct {
	mu sync.Mutex

	store       Store
	opts        planner.Options
	planner     *planner.Planner
	routines    *routine.Instantiator
	suggestions *suggest.Service
	logger      *slog.Logger
	clock       func() time.Time
}

// New creates an Engine.
func New(store Store, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	popts := opts.Planner.WithDefaults()
	if err := popts.Validate(); err != nil {
		return nil, fmt.Errorf("planner options: %w", err)
	}

	reflection, err := suggest.NewReflectionRule(opts.ReflectionAt, opts.ReflectionCutoff, popts.Location)
	if err != nil {
		return nil, err
	}

	return &Engine{
		store:       store,
		opts:        popts,
		planner:     planner.New(store, logger.With("component", "planner")),
		routines:    routine.New(store, logger.With("component", "routine"), clock),
		suggestions: suggest.NewService(store, suggest.NewGenerator(reflection), logger.With("component", "suggest")),
		logger:      logger,
		clock:       clock,
	}, nil
}

// Now returns the engine clock's current time in the configured location.
func (e *Engine) Now() time.Time {
	now := e.clock()
	if e.opts.Location != nil {
		now = now.In(e.opts.Location)
	}
	return now
}

// Location returns the configured planning location.
func (e *Engine) Location() *time.Location {
	if e.opts.Location != nil {
		return e.opts.Location
	}
	return time.Local
}

// WorkingHours returns the configured working window.
func (e *Engine) WorkingHours() scheduler.WorkingHours {
	return scheduler.WorkingHours{Start: e.opts.WorkStart, End: e.opts.WorkEnd, Location: e.opts.Location}
}

// PlanToday runs the auto-planner for the current day.
func (e *Engine) PlanToday(ctx context.Context) (*planner.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.planner.PlanToday(ctx, e.Now(), e.opts)
}

// ApplyRoutine instantiates a routine at the given anchor.
func (e *Engine) ApplyRoutine(ctx context.Context, id string, params routine.ApplyParams) (*routine.Applied, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.routines.Apply(ctx, id, params)
}

// AcceptSuggestion materializes a suggestion as a scheduled task.
func (e *Engine) AcceptSuggestion(ctx context.Context, id string) (*suggest.Accepted, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.suggestions.Accept(ctx, id, e.Now())
}

// ScheduleTask places a task by hand at start for its effort.
// Inbox tasks get a new event; scheduled tasks are moved together with their event.
// The slot may not overlap any other event.
func (e *Engine) ScheduleTask(ctx context.Context, id string, start time.Time) (*task.Task, *task.CalendarEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.store.GetTask(ctx, id)
	if err != nil {
		return nil, nil, task.PersistenceError("loading task "+id, err)
	}
	if t.Status.Terminal() {
		return nil, nil, fmt.Errorf("%w: task %s is %s", task.ErrNotSchedulable, id, t.Status)
	}
	if t.EffortMinutes < 0 {
		return nil, nil, fmt.Errorf("%w: effort %d minutes", task.ErrInvalidInterval, t.EffortMinutes)
	}
	slot, err := scheduler.NewInterval(start, start.Add(t.Effort(e.opts.DefaultEffort)))
	if err != nil {
		return nil, nil, err
	}

	var own *task.CalendarEvent
	if t.IsScheduled() {
		own, err = e.store.GetEventByTask(ctx, id)
		if err != nil {
			return nil, nil, task.PersistenceError("loading event for task "+id, err)
		}
	}

	events, err := e.store.ListEventsInRange(ctx, slot.Start, slot.End)
	if err != nil {
		return nil, nil, task.PersistenceError("loading events", err)
	}
	others := make([]*task.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if own != nil && ev.ID == own.ID {
			continue
		}
		others = append(others, ev)
	}
	if conflict, ok := scheduler.BusyFromEvents(others).FirstConflict(slot); ok {
		return nil, nil, fmt.Errorf("%w: %s conflicts with %s", task.ErrTimeBlockOverlap, slot, conflict)
	}

	now := e.Now()
	placed := t.Clone()
	if err := placed.Schedule(slot.Start, slot.End, now); err != nil {
		return nil, nil, err
	}

	var p task.Placement
	if own == nil {
		ev, err := task.EventForTask(placed, task.SourceManual, now)
		if err != nil {
			return nil, nil, err
		}
		p = task.Placement{Kind: task.PlaceSchedule, Task: placed, Event: ev}
	} else {
		moved := *own
		moved.Start, moved.End = slot.Start, slot.End
		moved.Title, moved.Domain, moved.Use = placed.Title, placed.Domain, placed.Use
		moved.UpdatedAt = now
		p = task.Placement{Kind: task.PlaceMove, Task: placed, Event: &moved}
	}

	if err := e.store.Place(ctx, p); err != nil {
		return nil, nil, task.PersistenceError("placing task "+id, err)
	}
	e.logger.Info("task scheduled", "task_id", id, "kind", p.Kind, "start", slot.Start, "end", slot.End)
	return p.Task, p.Event, nil
}

// AddTask creates an inbox task.
func (e *Engine) AddTask(ctx context.Context, t *task.Task) error {
	if err := e.store.CreateTask(ctx, t); err != nil {
		return task.PersistenceError("creating task", err)
	}
	return nil
}

// GetTask returns a task by id.
func (e *Engine) GetTask(ctx context.Context, id string) (*task.Task, error) {
	t, err := e.store.GetTask(ctx, id)
	return t, task.PersistenceError("loading task "+id, err)
}

// ListTasks returns tasks matching the filter.
func (e *Engine) ListTasks(ctx context.Context, filter task.TaskFilter) ([]*task.Task, error) {
	list, err := e.store.ListTasks(ctx, filter)
	return list, task.PersistenceError("listing tasks", err)
}

// SetStatus moves a task to a new status. Done, skipped and canceled tasks keep their event as
// history; a task sent back to the inbox loses it in the same write.
func (e *Engine) SetStatus(ctx context.Context, id string, status task.Status) (*task.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", task.ErrInvalidStatus, status)
	}
	if status == task.StatusScheduled {
		return nil, fmt.Errorf("use schedule to place a task: %w", task.ErrScheduleMismatch)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.store.UpdateTask(ctx, id, task.TaskPatch{Status: &status})
	return t, task.PersistenceError("updating task "+id, err)
}

// ListEvents returns events intersecting [start, end).
func (e *Engine) ListEvents(ctx context.Context, start, end time.Time) ([]*task.CalendarEvent, error) {
	list, err := e.store.ListEventsInRange(ctx, start, end)
	return list, task.PersistenceError("listing events", err)
}

// Agenda summarizes the day containing day.
func (e *Engine) Agenda(ctx context.Context, day time.Time) (*summary.DaySummary, error) {
	s, err := summary.BuildDaySummary(ctx, e.store, day, e.WorkingHours())
	if err != nil {
		return nil, task.PersistenceError("building agenda", err)
	}
	return s, nil
}

// AddRoutine stores a new routine.
func (e *Engine) AddRoutine(ctx context.Context, r *task.Routine) error {
	return task.PersistenceError("creating routine", e.store.CreateRoutine(ctx, r))
}

// ListRoutines returns every routine.
func (e *Engine) ListRoutines(ctx context.Context) ([]*task.Routine, error) {
	list, err := e.store.ListRoutines(ctx)
	return list, task.PersistenceError("listing routines", err)
}

// ImportRoutines reads a YAML routine file and stores every routine in it.
func (e *Engine) ImportRoutines(ctx context.Context, r io.Reader) ([]*task.Routine, error) {
	routines, err := routine.ParseRoutineFile(r, e.Now())
	if err != nil {
		return nil, err
	}
	for _, rt := range routines {
		if err := e.AddRoutine(ctx, rt); err != nil {
			return nil, err
		}
	}
	return routines, nil
}

// EvaluateSuggestions runs every suggestion rule and stores the output.
func (e *Engine) EvaluateSuggestions(ctx context.Context) ([]*suggest.Suggestion, error) {
	return e.suggestions.Evaluate(ctx, e.Now())
}

// ListActiveSuggestions returns suggestions that have not expired.
func (e *Engine) ListActiveSuggestions(ctx context.Context) ([]*suggest.Suggestion, error) {
	return e.suggestions.ListActive(ctx, e.Now())
}

// DismissSuggestion deletes a suggestion.
func (e *Engine) DismissSuggestion(ctx context.Context, id string) error {
	return e.suggestions.Dismiss(ctx, id)
}

// PurgeExpiredSuggestions removes expired suggestions.
func (e *Engine) PurgeExpiredSuggestions(ctx context.Context) (int, error) {
	return e.suggestions.PurgeExpired(ctx, e.Now())
}

// Close releases the store.
func (e *Engine) Close() error {
	return e.store.Close()
}
