package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javiermolinar/lifeplan/internal/memstore"
	"github.com/javiermolinar/lifeplan/internal/planner"
	"github.com/javiermolinar/lifeplan/internal/routine"
	"github.com/javiermolinar/lifeplan/internal/scheduler"
	"github.com/javiermolinar/lifeplan/internal/task"
)

func at(hh, mm int) time.Time {
	return time.Date(2024, 1, 1, hh, mm, 0, 0, time.UTC)
}

func newEngine(t *testing.T, now time.Time) (*Engine, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	popts := planner.DefaultOptions()
	popts.Location = time.UTC
	e, err := New(store, Options{
		Planner: popts,
		Clock:   func() time.Time { return now },
	})
	require.NoError(t, err)
	return e, store
}

func addTask(t *testing.T, e *Engine, title, priority string, effort int, created time.Time) *task.Task {
	t.Helper()
	tk, err := task.New(title, "time", "execute", priority, effort, created)
	require.NoError(t, err)
	require.NoError(t, e.AddTask(context.Background(), tk))
	return tk
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(memstore.New(), Options{Planner: planner.Options{WorkStart: "18:00", WorkEnd: "08:00"}})
	assert.ErrorIs(t, err, task.ErrInvalidInterval)

	_, err = New(memstore.New(), Options{ReflectionAt: "late"})
	assert.Error(t, err)
}

func TestPlanToday(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, at(6, 45))
	addTask(t, e, "long", "now", 60, at(6, 0))
	addTask(t, e, "short", "now", 30, at(6, 1))

	res, err := e.PlanToday(ctx)
	require.NoError(t, err)
	require.Len(t, res.Placed, 2)
	assert.True(t, res.Placed[0].ScheduledStart.Equal(at(7, 0)))
	assert.True(t, res.Placed[1].ScheduledStart.Equal(at(8, 15)))

	again, err := e.PlanToday(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Total())
}

func TestPlanToday_ConcurrentRunsNeverDoubleBook(t *testing.T) {
	ctx := context.Background()
	e, store := newEngine(t, at(7, 0))
	for i := 0; i < 20; i++ {
		addTask(t, e, "task", "now", 30, at(5, i))
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.PlanToday(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	events, err := store.ListEventsInRange(ctx, at(0, 0), at(23, 59))
	require.NoError(t, err)
	assert.Len(t, events, 20)

	busy := scheduler.NewBusySet()
	for _, ev := range events {
		iv := scheduler.Interval{Start: ev.Start, End: ev.End}
		assert.False(t, busy.Overlaps(iv), "event %s overlaps an earlier placement", iv)
		busy.Add(iv)
	}
}

func TestScheduleTask(t *testing.T) {
	ctx := context.Background()
	e, store := newEngine(t, at(8, 0))
	tk := addTask(t, e, "write", "later", 45, at(6, 0))

	placed, ev, err := e.ScheduleTask(ctx, tk.ID, at(14, 0))
	require.NoError(t, err)
	assert.True(t, placed.ScheduledEnd.Equal(at(14, 45)))
	assert.True(t, ev.MatchesTask(placed))
	assert.Equal(t, task.SourceManual, ev.Source)

	// moving keeps a single event and ignores the task's own slot
	moved, mev, err := e.ScheduleTask(ctx, tk.ID, at(14, 30))
	require.NoError(t, err)
	assert.Equal(t, ev.ID, mev.ID)
	assert.True(t, moved.ScheduledStart.Equal(at(14, 30)))

	events, err := store.ListEventsInRange(ctx, at(0, 0), at(23, 59))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].MatchesTask(moved))
}

func TestScheduleTask_Errors(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, at(8, 0))

	_, _, err := e.ScheduleTask(ctx, "missing", at(9, 0))
	assert.ErrorIs(t, err, task.ErrNotFound)

	a := addTask(t, e, "a", "now", 60, at(6, 0))
	_, _, err = e.ScheduleTask(ctx, a.ID, at(9, 0))
	require.NoError(t, err)

	b := addTask(t, e, "b", "now", 30, at(6, 1))
	_, _, err = e.ScheduleTask(ctx, b.ID, at(9, 30))
	assert.ErrorIs(t, err, task.ErrTimeBlockOverlap)

	_, _, err = e.ScheduleTask(ctx, b.ID, at(10, 0))
	assert.NoError(t, err, "back-to-back placement is allowed")

	c := addTask(t, e, "c", "now", 30, at(6, 2))
	_, err = e.SetStatus(ctx, c.ID, task.StatusCanceled)
	require.NoError(t, err)
	_, _, err = e.ScheduleTask(ctx, c.ID, at(12, 0))
	assert.ErrorIs(t, err, task.ErrNotSchedulable)
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, at(8, 0))
	tk := addTask(t, e, "a", "now", 30, at(6, 0))

	_, err := e.SetStatus(ctx, tk.ID, task.StatusScheduled)
	assert.ErrorIs(t, err, task.ErrScheduleMismatch)

	_, err = e.SetStatus(ctx, tk.ID, task.Status("archived"))
	assert.ErrorIs(t, err, task.ErrInvalidStatus)

	got, err := e.SetStatus(ctx, tk.ID, task.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, got.Status)
}

func TestSetStatus_BackToInboxFreesSlot(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, at(7, 0))
	tk := addTask(t, e, "a", "now", 30, at(6, 0))

	res, err := e.PlanToday(ctx)
	require.NoError(t, err)
	require.Len(t, res.Placed, 1)

	got, err := e.SetStatus(ctx, tk.ID, task.StatusInbox)
	require.NoError(t, err)
	assert.True(t, got.IsInbox())

	events, err := e.ListEvents(ctx, at(0, 0), at(23, 59))
	require.NoError(t, err)
	assert.Empty(t, events)

	res, err = e.PlanToday(ctx)
	require.NoError(t, err)
	require.Len(t, res.Placed, 1)
	assert.True(t, res.Placed[0].ScheduledStart.Equal(at(7, 0)), "the released slot is free again")

	events, err = e.ListEvents(ctx, at(0, 0), at(23, 59))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, tk.ID, events[0].TaskID)

	// moving it afterwards moves the one event it has
	_, ev, err := e.ScheduleTask(ctx, tk.ID, at(10, 0))
	require.NoError(t, err)
	assert.True(t, ev.Start.Equal(at(10, 0)))
	events, err = e.ListEvents(ctx, at(0, 0), at(23, 59))
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestApplyRoutine(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, at(7, 0))
	r, err := task.NewRoutine("Deep block", "time", "execute", 90, at(7, 0))
	require.NoError(t, err)
	require.NoError(t, e.AddRoutine(ctx, r))

	applied, err := e.ApplyRoutine(ctx, r.ID, routine.ApplyParams{Start: at(8, 0)})
	require.NoError(t, err)
	require.Len(t, applied.Tasks, 1)
	assert.True(t, applied.Tasks[0].ScheduledEnd.Equal(at(9, 30)))

	// the routine's block is busy time for the planner
	addTask(t, e, "focus", "now", 90, at(6, 0))
	res, err := e.PlanToday(ctx)
	require.NoError(t, err)
	require.Len(t, res.Placed, 1)
	assert.True(t, res.Placed[0].ScheduledStart.Equal(at(9, 30)))
}

func TestImportRoutines(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, at(7, 0))
	doc := "routines:\n  - title: Stretch\n    domain: physical\n    use: recover\n    duration_minutes: 15\n"

	imported, err := e.ImportRoutines(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, imported, 1)

	list, err := e.ListRoutines(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Stretch", list[0].Title)
}

func TestSuggestionLifecycle(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, at(10, 0))

	generated, err := e.EvaluateSuggestions(ctx)
	require.NoError(t, err)
	require.Len(t, generated, 1)

	active, err := e.ListActiveSuggestions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	acc, err := e.AcceptSuggestion(ctx, active[0].ID)
	require.NoError(t, err)
	assert.Equal(t, task.ProvenanceSuggestion, acc.Task.Provenance)

	agenda, err := e.Agenda(ctx, at(12, 0))
	require.NoError(t, err)
	require.Len(t, agenda.Events, 1)
	assert.Equal(t, "Evening reflection", agenda.Events[0].Title)

	n, err := e.PurgeExpiredSuggestions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
