package integration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/javiermolinar/lifeplan/internal/db"
	"github.com/javiermolinar/lifeplan/internal/engine"
	"github.com/javiermolinar/lifeplan/internal/planner"
	"github.com/javiermolinar/lifeplan/internal/routine"
	"github.com/javiermolinar/lifeplan/internal/suggest"
	"github.com/javiermolinar/lifeplan/internal/task"
)

// openEngine opens an engine over the SQLite file at path with a fixed clock.
func openEngine(t *testing.T, path string, now time.Time, loc *time.Location) *engine.Engine {
	t.Helper()
	repo, err := db.New(path)
	if err != nil {
		t.Fatalf("failed to open repo: %v", err)
	}
	popts := planner.DefaultOptions()
	popts.Location = loc
	eng, err := engine.New(repo, engine.Options{
		Planner: popts,
		Clock:   func() time.Time { return now },
	})
	if err != nil {
		_ = repo.Close()
		t.Fatalf("failed to create engine: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func dbPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// addTask is a helper to create and insert an inbox task.
func addTask(t *testing.T, eng *engine.Engine, title, priority string, effort int) *task.Task {
	t.Helper()
	tsk, err := task.New(title, "time", "execute", priority, effort, eng.Now())
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	if err := eng.AddTask(context.Background(), tsk); err != nil {
		t.Fatalf("failed to insert task: %v", err)
	}
	return tsk
}

func TestFullWorkflow(t *testing.T) {
	ctx := context.Background()
	path := dbPath(t)
	now := time.Date(2024, 1, 1, 8, 5, 0, 0, time.UTC)
	eng := openEngine(t, path, now, time.UTC)

	later := addTask(t, eng, "Read a chapter", "later", 30)
	urgent := addTask(t, eng, "Pay rent", "now", 15)
	soon := addTask(t, eng, "Gym", "soon", 60)

	// Step 1: plan from 08:05; later-priority work stays in the inbox
	result, err := eng.PlanToday(ctx)
	if err != nil {
		t.Fatalf("PlanToday failed: %v", err)
	}
	if len(result.Placed) != 2 || len(result.Conflicts) != 0 {
		t.Fatalf("placed %d, conflicts %d; want 2 and 0", len(result.Placed), len(result.Conflicts))
	}

	want := map[string][2]string{
		urgent.ID: {"08:05", "08:20"},
		soon.ID:   {"08:35", "09:35"},
	}

	// Step 2: the placements survive a reopen
	if err := eng.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	eng = openEngine(t, path, now, time.UTC)

	for id, span := range want {
		tsk, err := eng.GetTask(ctx, id)
		if err != nil {
			t.Fatalf("GetTask(%s) failed: %v", id, err)
		}
		start, end, ok := tsk.Slot()
		if !ok {
			t.Fatalf("task %q is not scheduled", tsk.Title)
		}
		if got := [2]string{start.Format("15:04"), end.Format("15:04")}; got != span {
			t.Errorf("task %q placed %v, want %v", tsk.Title, got, span)
		}
	}

	unplanned, err := eng.GetTask(ctx, later.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if !unplanned.IsInbox() {
		t.Errorf("later task status %q, want inbox", unplanned.Status)
	}

	events, err := eng.ListEvents(ctx, now, now.Add(4*time.Hour))
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, ev := range events {
		if ev.Source != task.SourceAutoscheduled {
			t.Errorf("event %q source %q, want autoscheduled", ev.Title, ev.Source)
		}
	}

	// Step 3: a second run finds nothing to do
	again, err := eng.PlanToday(ctx)
	if err != nil {
		t.Fatalf("second PlanToday failed: %v", err)
	}
	if again.Total() != 0 {
		t.Errorf("second run considered %d tasks, want 0", again.Total())
	}

	// Step 4: complete one and check the agenda still counts its event
	if _, err := eng.SetStatus(ctx, urgent.ID, task.StatusDone); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	day, err := eng.Agenda(ctx, now)
	if err != nil {
		t.Fatalf("Agenda failed: %v", err)
	}
	if day.BusyMinutes != 75 {
		t.Errorf("got %d busy minutes, want 75", day.BusyMinutes)
	}
}

func TestPlan_RespectsExistingEventsAndBatch(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
	eng := openEngine(t, dbPath(t), now, time.UTC)

	blocker := addTask(t, eng, "Standup", "now", 60)
	if _, _, err := eng.ScheduleTask(ctx, blocker.ID, now); err != nil {
		t.Fatalf("ScheduleTask failed: %v", err)
	}

	for i := 0; i < 7; i++ {
		addTask(t, eng, "Chore", "soon", 30)
	}

	result, err := eng.PlanToday(ctx)
	if err != nil {
		t.Fatalf("PlanToday failed: %v", err)
	}
	if len(result.Placed) != planner.DefaultBatchLimit {
		t.Fatalf("placed %d, want batch limit %d", len(result.Placed), planner.DefaultBatchLimit)
	}
	first, _, _ := result.Placed[0].Slot()
	if !first.Equal(now.Add(time.Hour)) {
		t.Errorf("first placement at %v, want right after the existing event", first)
	}

	inbox, err := eng.ListTasks(ctx, task.TaskFilter{Status: task.StatusInbox})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(inbox) != 2 {
		t.Errorf("got %d tasks left in the inbox, want 2", len(inbox))
	}
}

func TestScheduleTask_Overlap(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
	eng := openEngine(t, dbPath(t), now, time.UTC)

	a := addTask(t, eng, "A", "now", 60)
	b := addTask(t, eng, "B", "now", 60)

	if _, _, err := eng.ScheduleTask(ctx, a.ID, now.Add(2*time.Hour)); err != nil {
		t.Fatalf("ScheduleTask(A) failed: %v", err)
	}
	_, _, err := eng.ScheduleTask(ctx, b.ID, now.Add(150*time.Minute))
	if !errors.Is(err, task.ErrTimeBlockOverlap) {
		t.Fatalf("got %v, want ErrTimeBlockOverlap", err)
	}

	// touching intervals do not overlap
	if _, _, err := eng.ScheduleTask(ctx, b.ID, now.Add(3*time.Hour)); err != nil {
		t.Errorf("adjacent slot rejected: %v", err)
	}
}

func TestRoutineAndSuggestion(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	eng := openEngine(t, dbPath(t), now, time.UTC)

	r, err := task.NewRoutine("Evening run", "physical", "execute", 45, now)
	if err != nil {
		t.Fatalf("NewRoutine failed: %v", err)
	}
	if err := eng.AddRoutine(ctx, r); err != nil {
		t.Fatalf("AddRoutine failed: %v", err)
	}

	applied, err := eng.ApplyRoutine(ctx, r.ID, routine.ApplyParams{
		Start: now,
		Days:  []time.Weekday{time.Tuesday, time.Thursday},
		Time:  "18:00",
	})
	if err != nil {
		t.Fatalf("ApplyRoutine failed: %v", err)
	}
	if len(applied.Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(applied.Tasks))
	}
	for _, tsk := range applied.Tasks {
		if tsk.Provenance != task.ProvenanceTemplate {
			t.Errorf("task provenance %q, want template", tsk.Provenance)
		}
	}

	generated, err := eng.EvaluateSuggestions(ctx)
	if err != nil {
		t.Fatalf("EvaluateSuggestions failed: %v", err)
	}
	if len(generated) != 1 {
		t.Fatalf("got %d suggestions, want 1", len(generated))
	}

	accepted, err := eng.AcceptSuggestion(ctx, generated[0].ID)
	if err != nil {
		t.Fatalf("AcceptSuggestion failed: %v", err)
	}
	if accepted.Task.Provenance != task.ProvenanceSuggestion {
		t.Errorf("accepted provenance %q, want suggestion_accepted", accepted.Task.Provenance)
	}
	if accepted.Task.ID != suggest.AcceptedTaskID(generated[0].ID) {
		t.Errorf("accepted task id %s is not derived from the suggestion", accepted.Task.ID)
	}

	active, err := eng.ListActiveSuggestions(ctx)
	if err != nil {
		t.Fatalf("ListActiveSuggestions failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("got %d active suggestions after accept, want 0", len(active))
	}
}

func TestTimezone(t *testing.T) {
	ctx := context.Background()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	path := dbPath(t)
	// 08:00 in New York
	now := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	eng := openEngine(t, path, now, loc)

	tsk := addTask(t, eng, "Morning pages", "now", 30)
	result, err := eng.PlanToday(ctx)
	if err != nil {
		t.Fatalf("PlanToday failed: %v", err)
	}
	if len(result.Placed) != 1 {
		t.Fatalf("placed %d, want 1", len(result.Placed))
	}
	if !result.Window.End.Equal(time.Date(2024, 1, 1, 22, 0, 0, 0, loc)) {
		t.Errorf("window ends %v, want 22:00 New York", result.Window.End)
	}

	if err := eng.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	eng = openEngine(t, path, now, loc)

	got, err := eng.GetTask(ctx, tsk.ID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	start, _, _ := got.Slot()
	if !start.Equal(now) {
		t.Errorf("stored start %v, want %v", start, now)
	}
	if h := start.In(loc).Hour(); h != 8 {
		t.Errorf("local hour %d, want 8", h)
	}
}
