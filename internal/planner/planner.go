// Package planner places backlog tasks into today's free time.
// It coordinates the scheduler and the repositories; the CLI, the HTTP API and the MCP server all use it.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/javiermolinar/lifeplan/internal/scheduler"
	"github.com/javiermolinar/lifeplan/internal/task"
)

// Defaults for a planning run.
const (
	DefaultBatchLimit = 5
	DefaultStep       = scheduler.DefaultStep
)

// Options configures one planning run. Nothing is read from global state.
type Options struct {
	WorkStart     string // "HH:MM"
	WorkEnd       string // "HH:MM"
	Location      *time.Location
	Step          time.Duration
	BatchLimit    int
	DefaultEffort time.Duration
	AlignCursor   bool // round the window start up to the step grid; off, the scan starts at now
}

// DefaultOptions returns 07:00-22:00, 15 minute steps, five tasks per run and 30 minute default effort.
func DefaultOptions() Options {
	return Options{
		WorkStart:     scheduler.DefaultWorkStart,
		WorkEnd:       scheduler.DefaultWorkEnd,
		Step:          DefaultStep,
		BatchLimit:    DefaultBatchLimit,
		DefaultEffort: task.DefaultEffort,
	}
}

// WithDefaults fills zero fields. AlignCursor is taken as given.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.WorkStart == "" {
		o.WorkStart = d.WorkStart
	}
	if o.WorkEnd == "" {
		o.WorkEnd = d.WorkEnd
	}
	if o.Step == 0 {
		o.Step = d.Step
	}
	if o.BatchLimit == 0 {
		o.BatchLimit = d.BatchLimit
	}
	if o.DefaultEffort == 0 {
		o.DefaultEffort = d.DefaultEffort
	}
	return o
}

// Validate checks the options after defaults are applied.
func (o Options) Validate() error {
	if err := o.hours().Validate(); err != nil {
		return err
	}
	if o.Step < 0 {
		return fmt.Errorf("%w: step %s", task.ErrInvalidInterval, o.Step)
	}
	if o.BatchLimit < 0 {
		return fmt.Errorf("batch limit must not be negative, got %d", o.BatchLimit)
	}
	if o.DefaultEffort < 0 {
		return fmt.Errorf("%w: default effort %s", task.ErrInvalidInterval, o.DefaultEffort)
	}
	return nil
}

func (o Options) hours() scheduler.WorkingHours {
	return scheduler.WorkingHours{Start: o.WorkStart, End: o.WorkEnd, Location: o.Location}
}

// Store is what the planner needs from persistence.
type Store interface {
	ListTasks(ctx context.Context, filter task.TaskFilter) ([]*task.Task, error)
	ListEventsInRange(ctx context.Context, start, end time.Time) ([]*task.CalendarEvent, error)
	task.Placer
}

// Conflict is an eligible task that could not be placed.
type Conflict struct {
	Task   *task.Task
	Reason error
}

// Result is the outcome of a planning run.
// Every eligible task ends in exactly one of Placed or Conflicts.
type Result struct {
	Window    scheduler.Interval
	Placed    []*task.Task
	Events    []*task.CalendarEvent
	Conflicts []Conflict
}

// Total returns the number of eligible tasks the run considered.
func (r *Result) Total() int {
	return len(r.Placed) + len(r.Conflicts)
}

// Planner runs the greedy auto-planner.
type Planner struct {
	store  Store
	logger *slog.Logger
}

// New creates a Planner. A nil logger discards output.
func New(store Store, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Planner{store: store, logger: logger}
}

// PlanToday places eligible inbox tasks into the free time left today.
// Placements are committed together in one Place call; on failure nothing is written.
func (p *Planner) PlanToday(ctx context.Context, now time.Time, opts Options) (*Result, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	window, open, err := opts.hours().Window(now)
	if err != nil {
		return nil, err
	}
	cursor := window.Start
	if open && opts.AlignCursor {
		cursor = scheduler.RoundUp(window.Start, opts.Step)
		open = cursor.Before(window.End)
	}

	eligible, err := p.eligible(ctx, opts.BatchLimit)
	if err != nil {
		return nil, err
	}

	result := &Result{Window: window}
	if !open {
		for _, t := range eligible {
			result.Conflicts = append(result.Conflicts, Conflict{Task: t, Reason: scheduler.ErrNoSlot})
		}
		p.logRun(result)
		return result, nil
	}

	events, err := p.store.ListEventsInRange(ctx, window.Start, window.End)
	if err != nil {
		return nil, task.PersistenceError("loading events", err)
	}
	busy := scheduler.BusyFromEvents(events)
	initial := scheduler.NewBusySet(busy.Intervals()...)

	var placements []task.Placement
	for _, t := range eligible {
		if t.EffortMinutes < 0 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Task:   t,
				Reason: fmt.Errorf("%w: effort %d minutes", task.ErrInvalidInterval, t.EffortMinutes),
			})
			continue
		}

		slot, ok, err := scheduler.FindSlot(busy, scheduler.SlotQuery{
			Window:   window,
			Cursor:   cursor,
			Duration: t.Effort(opts.DefaultEffort),
			Step:     opts.Step,
		})
		if err != nil {
			result.Conflicts = append(result.Conflicts, Conflict{Task: t, Reason: err})
			continue
		}
		if !ok {
			result.Conflicts = append(result.Conflicts, Conflict{Task: t, Reason: scheduler.ErrNoSlot})
			continue
		}

		placed := t.Clone()
		if err := placed.Schedule(slot.Start, slot.End, now); err != nil {
			result.Conflicts = append(result.Conflicts, Conflict{Task: t, Reason: err})
			continue
		}
		ev, err := task.EventForTask(placed, task.SourceAutoscheduled, now)
		if err != nil {
			result.Conflicts = append(result.Conflicts, Conflict{Task: t, Reason: err})
			continue
		}

		placements = append(placements, task.Placement{Kind: task.PlaceSchedule, Task: placed, Event: ev})
		result.Placed = append(result.Placed, placed)
		result.Events = append(result.Events, ev)
		busy.Add(slot)
		cursor = slot.End.Add(opts.Step)
	}

	if check := Verify(window, initial, placements); !check.Valid {
		return nil, fmt.Errorf("plan failed verification: %s", check.FormatErrors())
	}

	if len(placements) > 0 {
		if err := p.store.Place(ctx, placements...); err != nil {
			return nil, task.PersistenceError(fmt.Sprintf("committing %d placements", len(placements)), err)
		}
	}

	p.logRun(result)
	return result, nil
}

// eligible returns inbox tasks with priority now or soon, ordered by priority rank,
// then creation time, then id, capped at limit.
func (p *Planner) eligible(ctx context.Context, limit int) ([]*task.Task, error) {
	inbox, err := p.store.ListTasks(ctx, task.TaskFilter{Status: task.StatusInbox})
	if err != nil {
		return nil, task.PersistenceError("loading backlog", err)
	}

	out := make([]*task.Task, 0, len(inbox))
	for _, t := range inbox {
		if t.Priority == task.PriorityNow || t.Priority == task.PrioritySoon {
			out = append(out, t)
		}
	}
	SortEligible(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SortEligible orders tasks by priority rank, then creation time, then id.
func SortEligible(tasks []*task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func (p *Planner) logRun(r *Result) {
	for _, c := range r.Conflicts {
		p.logger.Debug("task not placed",
			"task_id", c.Task.ID,
			"title", c.Task.Title,
			"reason", c.Reason,
		)
	}
	p.logger.Info("plan today",
		"placed", len(r.Placed),
		"conflicts", len(r.Conflicts),
		"window_start", r.Window.Start,
		"window_end", r.Window.End,
	)
}

// IsNoSlot reports whether a conflict reason means the window was exhausted.
func IsNoSlot(err error) bool {
	return errors.Is(err, scheduler.ErrNoSlot)
}
