package routine

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javiermolinar/lifeplan/internal/memstore"
	"github.com/javiermolinar/lifeplan/internal/task"
)

var testNow = time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC) // a Monday

func fixedClock() time.Time { return testNow }

func newRoutine(t *testing.T, s *memstore.Store, minutes int) *task.Routine {
	t.Helper()
	r, err := task.NewRoutine("Morning focus", "time", "execute", minutes, testNow)
	require.NoError(t, err)
	r.Tags = []string{"focus"}
	r.Recurrence = "FREQ=DAILY"
	r.Checklist = []string{"Plan", "Focus", "Review"}
	require.NoError(t, s.CreateRoutine(context.Background(), r))
	return r
}

func TestApply_SingleOccurrence(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	r := newRoutine(t, store, 90)

	anchor := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	applied, err := New(store, nil, fixedClock).Apply(ctx, r.ID, ApplyParams{Start: anchor})
	require.NoError(t, err)
	require.Len(t, applied.Tasks, 1)
	require.Len(t, applied.Events, 1)

	got, err := store.GetTask(ctx, applied.Tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusScheduled, got.Status)
	assert.Equal(t, task.ProvenanceTemplate, got.Provenance)
	assert.Equal(t, task.PrioritySoon, got.Priority)
	assert.Equal(t, 90, got.EffortMinutes)
	assert.Equal(t, []string{"focus"}, got.Tags)
	assert.Equal(t, "FREQ=DAILY", got.Recurrence)
	assert.Equal(t, "- Plan\n- Focus\n- Review", got.About)
	assert.True(t, got.ScheduledStart.Equal(anchor))
	assert.True(t, got.ScheduledEnd.Equal(time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)))

	ev, err := store.GetEventByTask(ctx, got.ID)
	require.NoError(t, err)
	assert.True(t, ev.MatchesTask(got), "event interval must equal the task's")
	assert.Equal(t, task.SourceManual, ev.Source)
	assert.Equal(t, task.DomainTime, ev.Domain)
	assert.Equal(t, task.UseExecute, ev.Use)
}

func TestApply_DefaultDuration(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	r := newRoutine(t, store, 0)

	applied, err := New(store, nil, fixedClock).Apply(ctx, r.ID, ApplyParams{Start: testNow})
	require.NoError(t, err)
	assert.Equal(t, task.DefaultRoutineDuration, applied.Events[0].Duration())
}

func TestApply_TimeOverride(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	r := newRoutine(t, store, 30)

	applied, err := New(store, nil, fixedClock).Apply(ctx, r.ID, ApplyParams{Start: testNow, Time: "18:15"})
	require.NoError(t, err)
	assert.True(t, applied.Events[0].Start.Equal(time.Date(2024, 1, 1, 18, 15, 0, 0, time.UTC)))
}

func TestApply_Days(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	r := newRoutine(t, store, 45)

	// Wednesday anchor: the week runs Wed..Tue, so Monday lands on the 8th.
	start := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	applied, err := New(store, nil, fixedClock).Apply(ctx, r.ID, ApplyParams{
		Start: start,
		Days:  []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		Time:  "06:30",
	})
	require.NoError(t, err)
	require.Len(t, applied.Tasks, 3)

	want := []time.Time{
		time.Date(2024, 1, 3, 6, 30, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 6, 30, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 6, 30, 0, 0, time.UTC),
	}
	for i, w := range want {
		assert.True(t, applied.Tasks[i].ScheduledStart.Equal(w), "occurrence %d: got %v want %v", i, applied.Tasks[i].ScheduledStart, w)
		ev, err := store.GetEventByTask(ctx, applied.Tasks[i].ID)
		require.NoError(t, err)
		assert.True(t, ev.MatchesTask(applied.Tasks[i]))
	}
}

func TestApply_Errors(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	inst := New(store, nil, fixedClock)

	_, err := inst.Apply(ctx, "missing", ApplyParams{Start: testNow})
	assert.ErrorIs(t, err, task.ErrNotFound)
	assert.NotErrorIs(t, err, task.ErrPersistence)

	r := newRoutine(t, store, 30)
	_, err = inst.Apply(ctx, r.ID, ApplyParams{})
	assert.Error(t, err)

	_, err = inst.Apply(ctx, r.ID, ApplyParams{Start: testNow, Time: "25:00"})
	assert.Error(t, err)

	off, err := task.NewRoutine("Off", "time", "plan", 30, testNow)
	require.NoError(t, err)
	off.Active = false
	require.NoError(t, store.CreateRoutine(ctx, off))
	_, err = inst.Apply(ctx, off.ID, ApplyParams{Start: testNow})
	assert.ErrorIs(t, err, ErrRoutineInactive)

	neg, err := task.NewRoutine("Neg", "time", "plan", 30, testNow)
	require.NoError(t, err)
	neg.DurationMinutes = -5
	require.NoError(t, store.CreateRoutine(ctx, neg))
	_, err = inst.Apply(ctx, neg.ID, ApplyParams{Start: testNow})
	assert.ErrorIs(t, err, task.ErrInvalidInterval)

	events, err := store.ListEventsInRange(ctx, testNow.AddDate(0, 0, -1), testNow.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Empty(t, events, "failed applies must not write anything")
}

type failingPlacer struct {
	*memstore.Store
}

func (failingPlacer) Place(context.Context, ...task.Placement) error {
	return errors.New("database is locked")
}

func TestApply_PersistenceFailure(t *testing.T) {
	store := memstore.New()
	r := newRoutine(t, store, 30)

	_, err := New(failingPlacer{store}, nil, fixedClock).Apply(context.Background(), r.ID, ApplyParams{Start: testNow})
	assert.ErrorIs(t, err, task.ErrPersistence)
}

func TestRoutineFile(t *testing.T) {
	const doc = `
routines:
  - title: Morning focus
    domain: time
    use: execute
    duration_minutes: 90
    slots: weekdays 08:00
    tags: [focus, deep]
    checklist:
      - Plan
      - Focus
  - title: Weekly budget
    domain: finance
    use: budget
    active: false
`
	routines, err := ParseRoutineFile(strings.NewReader(doc), testNow)
	require.NoError(t, err)
	require.Len(t, routines, 2)

	assert.Equal(t, "Morning focus", routines[0].Title)
	assert.Equal(t, 90, routines[0].DurationMinutes)
	assert.Equal(t, []string{"focus", "deep"}, routines[0].Tags)
	assert.Equal(t, "weekdays 08:00", routines[0].Slots)
	assert.True(t, routines[0].Active)
	assert.False(t, routines[1].Active)
	assert.Equal(t, task.DefaultRoutineDuration, routines[1].Duration())

	var buf bytes.Buffer
	require.NoError(t, WriteRoutineFile(&buf, routines))
	again, err := ParseRoutineFile(&buf, testNow)
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, routines[0].Checklist, again[0].Checklist)
	assert.False(t, again[1].Active)
}

func TestRoutineFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown field", doc: "routines:\n  - title: x\n    domain: time\n    use: plan\n    colour: red\n"},
		{name: "bad domain", doc: "routines:\n  - title: x\n    domain: work\n    use: plan\n"},
		{name: "missing title", doc: "routines:\n  - domain: time\n    use: plan\n"},
		{name: "not yaml", doc: "routines: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoutineFile(strings.NewReader(tt.doc), testNow)
			assert.Error(t, err)
		})
	}

	empty, err := ParseRoutineFile(strings.NewReader(""), testNow)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
