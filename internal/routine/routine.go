// Package routine turns routine templates into scheduled task/event pairs.
package routine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/javiermolinar/lifeplan/internal/dateutil"
	"github.com/javiermolinar/lifeplan/internal/task"
)

// ErrRoutineInactive is returned when applying a routine that has been switched off.
var ErrRoutineInactive = errors.New("routine is inactive")

// Store is what the instantiator needs from persistence.
type Store interface {
	GetRoutine(ctx context.Context, id string) (*task.Routine, error)
	task.Placer
}

// ApplyParams anchors the generated occurrences.
type ApplyParams struct {
	Start time.Time
	Days  []time.Weekday // one occurrence per listed weekday in the week starting at Start
	Time  string         // "HH:MM"; overrides Start's clock time
}

// Applied is the result of applying a routine.
type Applied struct {
	Routine *task.Routine
	Tasks   []*task.Task
	Events  []*task.CalendarEvent
}

// Instantiator creates tasks from routines at caller-chosen times.
// It trusts the anchor and does not look for free time.
type Instantiator struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Instantiator. A nil logger discards output; a nil clock uses time.Now.
func New(store Store, logger *slog.Logger, clock func() time.Time) *Instantiator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if clock == nil {
		clock = time.Now
	}
	return &Instantiator{store: store, logger: logger, now: clock}
}

// Apply creates one scheduled task and its event per occurrence and commits them together.
func (i *Instantiator) Apply(ctx context.Context, routineID string, params ApplyParams) (*Applied, error) {
	r, err := i.store.GetRoutine(ctx, routineID)
	if err != nil {
		return nil, task.PersistenceError("loading routine "+routineID, err)
	}
	if !r.Active {
		return nil, fmt.Errorf("%w: %s", ErrRoutineInactive, routineID)
	}
	if r.DurationMinutes < 0 {
		return nil, fmt.Errorf("%w: routine %s duration %d minutes", task.ErrInvalidInterval, routineID, r.DurationMinutes)
	}

	starts, err := Occurrences(params)
	if err != nil {
		return nil, err
	}

	now := i.now()
	out := &Applied{Routine: r}
	placements := make([]task.Placement, 0, len(starts))
	for _, start := range starts {
		t, ev, err := instantiate(r, start, now)
		if err != nil {
			return nil, err
		}
		placements = append(placements, task.Placement{Kind: task.PlaceCreate, Task: t, Event: ev})
		out.Tasks = append(out.Tasks, t)
		out.Events = append(out.Events, ev)
	}

	if err := i.store.Place(ctx, placements...); err != nil {
		return nil, task.PersistenceError("placing routine "+routineID, err)
	}

	i.logger.Info("routine applied",
		"routine_id", r.ID,
		"title", r.Title,
		"occurrences", len(out.Tasks),
	)
	return out, nil
}

// Occurrences expands the anchor into start times, ordered ascending.
// Without Days there is exactly one occurrence.
func Occurrences(params ApplyParams) ([]time.Time, error) {
	if params.Start.IsZero() {
		return nil, errors.New("start time is required")
	}

	base := params.Start
	if params.Time != "" {
		t, err := dateutil.At(params.Start, params.Time)
		if err != nil {
			return nil, err
		}
		base = t
	}

	if len(params.Days) == 0 {
		return []time.Time{base}, nil
	}

	var out []time.Time
	for d := 0; d < 7; d++ {
		day := base.AddDate(0, 0, d)
		if slices.Contains(params.Days, day.Weekday()) {
			out = append(out, day)
		}
	}
	return out, nil
}

func instantiate(r *task.Routine, start, now time.Time) (*task.Task, *task.CalendarEvent, error) {
	d := r.Duration()
	t := &task.Task{
		ID:            task.NewID(),
		Title:         r.Title,
		About:         r.ChecklistText(),
		Domain:        r.Domain,
		Use:           r.Use,
		Priority:      task.PrioritySoon,
		EffortMinutes: int(d / time.Minute),
		Status:        task.StatusInbox,
		Recurrence:    r.Recurrence,
		Tags:          append([]string{}, r.Tags...),
		Provenance:    task.ProvenanceTemplate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := t.Schedule(start, start.Add(d), now); err != nil {
		return nil, nil, err
	}
	ev, err := task.EventForTask(t, task.SourceManual, now)
	if err != nil {
		return nil, nil, err
	}
	return t, ev, nil
}
