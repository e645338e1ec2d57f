package ui

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/javiermolinar/lifeplan/internal/config"
	"github.com/javiermolinar/lifeplan/internal/engine"
	"github.com/javiermolinar/lifeplan/internal/memstore"
	"github.com/javiermolinar/lifeplan/internal/planner"
	"github.com/javiermolinar/lifeplan/internal/task"
)

// Monday 2024-01-01.
func at(hh, mm int) time.Time {
	return time.Date(2024, 1, 1, hh, mm, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T, now time.Time) *engine.Engine {
	t.Helper()
	popts := planner.DefaultOptions()
	popts.Location = time.UTC
	eng, err := engine.New(memstore.New(), engine.Options{
		Planner: popts,
		Clock:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	return eng
}

// run executes one command line on a fresh App sharing eng.
func run(t *testing.T, eng *engine.Engine, args ...string) (string, error) {
	t.Helper()
	DisableColor()
	cfg := config.Default()
	cfg.Storage.Driver = config.DriverMemory

	app := NewApp(eng, cfg, nil)
	var buf bytes.Buffer
	app.root.SetOut(&buf)
	app.root.SetErr(&buf)
	if args == nil {
		args = []string{}
	}
	app.root.SetArgs(args)
	err := app.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, eng *engine.Engine, args ...string) string {
	t.Helper()
	out, err := run(t, eng, args...)
	if err != nil {
		t.Fatalf("%v failed: %v\n%s", args, err, out)
	}
	return out
}

func taskID(t *testing.T, eng *engine.Engine, title string) string {
	t.Helper()
	tasks, err := eng.ListTasks(context.Background(), task.TaskFilter{Query: title})
	if err != nil || len(tasks) != 1 {
		t.Fatalf("looking up %q: %v (%d matches)", title, err, len(tasks))
	}
	return tasks[0].ID
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestAddAndList(t *testing.T) {
	eng := newTestEngine(t, at(8, 0))

	out := mustRun(t, eng, "add", "Gym", "push", "day", "--domain=physical", "--priority=now", "--effort=60", "--tag=gym")
	assertContains(t, out, "Added Gym push day [physical/execute, now, 1h]")

	mustRun(t, eng, "add", "Pay rent", "--domain=finance", "--use=budget", "--due=2024-01-05")

	out = mustRun(t, eng, "list", "--status=inbox")
	assertContains(t, out, "Gym push day", "Pay rent", "2 tasks")

	out = mustRun(t, eng, "list", "--tag=gym")
	assertContains(t, out, "Gym push day", "1 tasks")

	out = mustRun(t, eng, "list", "--status=done")
	assertContains(t, out, "No tasks found.")

	if _, err := run(t, eng, "list", "--status=someday"); !errors.Is(err, task.ErrInvalidStatus) {
		t.Errorf("got %v, want ErrInvalidStatus", err)
	}
	if _, err := run(t, eng, "add", "x", "--domain=work"); !errors.Is(err, task.ErrInvalidDomain) {
		t.Errorf("got %v, want ErrInvalidDomain", err)
	}
}

func TestPlan(t *testing.T) {
	eng := newTestEngine(t, at(8, 0))

	out := mustRun(t, eng, "plan")
	assertContains(t, out, "Nothing to plan")

	mustRun(t, eng, "add", "Deep work", "--priority=now", "--effort=60")
	mustRun(t, eng, "add", "Read", "--use=learn", "--priority=soon", "--effort=60")
	mustRun(t, eng, "add", "Someday", "--priority=later")

	out = mustRun(t, eng, "plan")
	assertContains(t, out,
		"Placed",
		"08:00-09:00  [time     ]  Deep work",
		"09:15-10:15  [time     ]  Read",
		"Window  08:00-22:00",
		"Placed  2 of 2",
	)
	if strings.Contains(out, "Someday") {
		t.Errorf("later-priority task must not be planned:\n%s", out)
	}

	scheduled, err := eng.ListTasks(context.Background(), task.TaskFilter{Status: task.StatusScheduled})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(scheduled) != 2 {
		t.Errorf("got %d scheduled tasks, want 2", len(scheduled))
	}
}

func TestScheduleAndStatus(t *testing.T) {
	eng := newTestEngine(t, at(8, 0))
	mustRun(t, eng, "add", "Call mom", "--domain=social")
	id := taskID(t, eng, "Call mom")

	out := mustRun(t, eng, "schedule", id, "--at=10:00")
	assertContains(t, out, "Scheduled Call mom on Mon Jan 1 10:00-10:30")

	out = mustRun(t, eng, "schedule", id, "--at=2024-01-01T11:15")
	assertContains(t, out, "11:15-11:45")

	out = mustRun(t, eng, "done", id)
	assertContains(t, out, "✓ Call mom: done")

	if _, err := run(t, eng, "schedule", id, "--at=12:00"); !errors.Is(err, task.ErrNotSchedulable) {
		t.Errorf("got %v, want ErrNotSchedulable", err)
	}
	if _, err := run(t, eng, "skip", "missing"); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestSchedule_Overlap(t *testing.T) {
	eng := newTestEngine(t, at(8, 0))
	mustRun(t, eng, "add", "First", "--effort=60")
	mustRun(t, eng, "add", "Second", "--effort=60")

	mustRun(t, eng, "schedule", taskID(t, eng, "First"), "--at=09:00")
	_, err := run(t, eng, "schedule", taskID(t, eng, "Second"), "--at=09:30")
	if !errors.Is(err, task.ErrTimeBlockOverlap) {
		t.Errorf("got %v, want ErrTimeBlockOverlap", err)
	}
}

func TestAgenda(t *testing.T) {
	eng := newTestEngine(t, at(8, 0))

	out := mustRun(t, eng, "agenda")
	assertContains(t, out, "Monday, January 1, 2024", "Working hours 07:00-22:00", "No events scheduled.", "Busy: 0m")

	mustRun(t, eng, "add", "Meditate", "--domain=spiritual", "--use=recover")
	mustRun(t, eng, "schedule", taskID(t, eng, "Meditate"), "--at=07:00")

	out = mustRun(t, eng)
	assertContains(t, out,
		"07:00-07:30  [spiritual]  Meditate",
		"Busy: 30m | Free: 14h30m | Events: 1",
		"spiritual 30m",
		"Free: 07:30-22:00",
	)

	out = mustRun(t, eng, "agenda", "--date=tomorrow")
	assertContains(t, out, "Tuesday, January 2, 2024", "No events scheduled.")

	if _, err := run(t, eng, "agenda", "--date=someday"); err == nil {
		t.Error("expected an error for an unreadable date")
	}
}

func TestRoutineImportAndApply(t *testing.T) {
	eng := newTestEngine(t, at(8, 0))

	path := filepath.Join(t.TempDir(), "routines.yaml")
	data := `routines:
  - title: Evening run
    domain: physical
    use: execute
    duration_minutes: 45
    slots: mon wed fri 18:00
    checklist: [stretch, run]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("writing routine file: %v", err)
	}

	out := mustRun(t, eng, "routine", "import", path)
	assertContains(t, out, "Imported 1 routines")

	routines, err := eng.ListRoutines(context.Background())
	if err != nil || len(routines) != 1 {
		t.Fatalf("ListRoutines: %v (%d routines)", err, len(routines))
	}
	id := routines[0].ID

	out = mustRun(t, eng, "routine", "list")
	assertContains(t, out, "Evening run", "45m", "mon wed fri 18:00")

	out = mustRun(t, eng, "routine", "apply", id, "--at=18:00", "--days=mon,wed,fri")
	assertContains(t, out,
		"Applied Evening run: 3 tasks",
		"Mon Jan 1 18:00-18:45",
		"Wed Jan 3 18:00-18:45",
		"Fri Jan 5 18:00-18:45",
	)

	out = mustRun(t, eng, "routine", "export")
	assertContains(t, out, "title: Evening run", "duration_minutes: 45")

	if _, err := run(t, eng, "routine", "import", filepath.Join(t.TempDir(), "missing.yaml")); err == nil ||
		!strings.Contains(err.Error(), "does not exist") {
		t.Errorf("got %v, want a missing file error", err)
	}
}

func TestRoutineAdd(t *testing.T) {
	eng := newTestEngine(t, at(8, 0))

	out := mustRun(t, eng, "routine", "add", "Morning", "focus", "--minutes=90", "--checklist=plan", "--checklist=focus")
	assertContains(t, out, "Created routine Morning focus (1h30m)")

	routines, err := eng.ListRoutines(context.Background())
	if err != nil || len(routines) != 1 {
		t.Fatalf("ListRoutines: %v (%d routines)", err, len(routines))
	}
	if got := routines[0].ChecklistText(); got != "- plan\n- focus" {
		t.Errorf("got checklist %q", got)
	}

	out = mustRun(t, eng, "routine", "apply", routines[0].ID, "--at=09:00")
	assertContains(t, out, "Applied Morning focus: 1 tasks", "Mon Jan 1 09:00-10:30")
}

func TestSuggest(t *testing.T) {
	eng := newTestEngine(t, at(18, 0))

	out := mustRun(t, eng, "suggest", "list")
	assertContains(t, out, "reflection-2024-01-01", "Evening reflection 20:30-20:35")

	out = mustRun(t, eng, "suggest", "accept", "reflection-2024-01-01")
	assertContains(t, out, "Scheduled Evening reflection 20:30-20:35")

	// listing evaluates again; the accepted proposal stays gone
	out = mustRun(t, eng, "suggest", "list")
	assertContains(t, out, "No suggestions right now.")

	if _, err := run(t, eng, "suggest", "dismiss", "nope"); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}

	out = mustRun(t, eng, "suggest", "purge")
	assertContains(t, out, "Purged 0 expired suggestions")
}

func TestSuggest_AfterCutoff(t *testing.T) {
	eng := newTestEngine(t, at(21, 30))

	out := mustRun(t, eng, "suggest")
	assertContains(t, out, "No suggestions right now.")
}

func TestVersion(t *testing.T) {
	out := mustRun(t, newTestEngine(t, at(8, 0)), "version")
	assertContains(t, out, "lifeplan dev (commit: none)")
}

func TestConfigInteractive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	var out bytes.Buffer
	if err := runConfigInteractive(strings.NewReader("n\n"), &out, path); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	assertContains(t, out.String(), "Created "+path, "work_start             = 07:00")

	out.Reset()
	if err := runConfigInteractive(strings.NewReader("y\n08:00\n21:00\n\n10\n"), &out, path); err != nil {
		t.Fatalf("edit run failed: %v\n%s", err, out.String())
	}
	assertContains(t, out.String(), "Configuration saved!")

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Schedule.WorkStart != "08:00" || cfg.Schedule.WorkEnd != "21:00" {
		t.Errorf("got hours %s-%s, want 08:00-21:00", cfg.Schedule.WorkStart, cfg.Schedule.WorkEnd)
	}
	if cfg.Schedule.StepMinutes != 10 {
		t.Errorf("got step %d, want 10", cfg.Schedule.StepMinutes)
	}
	if cfg.Schedule.BatchLimit != 5 {
		t.Errorf("got batch limit %d, want default 5", cfg.Schedule.BatchLimit)
	}
}

func TestOpenEngine_Memory(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = config.DriverMemory
	cfg.Schedule.Timezone = "UTC"

	eng, err := OpenEngine(cfg, nil)
	if err != nil {
		t.Fatalf("OpenEngine failed: %v", err)
	}
	defer func() { _ = eng.Close() }()

	if eng.Location() != time.UTC {
		t.Errorf("got location %v, want UTC", eng.Location())
	}
}

func TestOpenEngine_SQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "nested", "lifeplan.db")

	eng, err := OpenEngine(cfg, nil)
	if err != nil {
		t.Fatalf("OpenEngine failed: %v", err)
	}
	defer func() { _ = eng.Close() }()

	if _, err := os.Stat(cfg.Storage.DBPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}
