// Package db provides SQLite storage implementation.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/javiermolinar/lifeplan/internal/suggest"
	"github.com/javiermolinar/lifeplan/internal/task"
)

// DefaultBusyTimeout is how long a writer waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// timeLayout is fixed width so stored instants sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite implements task.Store and suggest.Repository using SQLite.
type SQLite struct {
	db *sql.DB
}

var (
	_ task.Store         = (*SQLite)(nil)
	_ suggest.Repository = (*SQLite)(nil)
)

// New creates a new SQLite repository and runs migrations.
func New(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection keeps the pragmas below in effect for every statement
	// and lets ":memory:" databases survive between calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d;", DefaultBusyTimeout.Milliseconds()),
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting %s: %w", p, err)
		}
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

const taskColumns = `id, title, about, domain, use_kind, priority, effort_minutes, status,
	scheduled_start, scheduled_end, due_at, recurrence, tags, provenance, created_at, updated_at`

// CreateTask adds a new task. Scheduled tasks must go through Place so they get their event.
func (s *SQLite) CreateTask(ctx context.Context, t *task.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.IsScheduled() {
		return fmt.Errorf("creating scheduled task %s without an event: %w", t.ID, task.ErrScheduleMismatch)
	}
	if err := insertTask(ctx, s.db, t); err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *SQLite) GetTask(ctx context.Context, id string) (*task.Task, error) {
	return getTask(ctx, s.db, id)
}

// UpdateTask applies a partial patch.
func (s *SQLite) UpdateTask(ctx context.Context, id string, patch task.TaskPatch) (*task.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	t, err := getTask(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(t, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := updateTask(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}
	if t.IsInbox() {
		if err := deleteEventsByTask(ctx, tx, id); err != nil {
			return nil, fmt.Errorf("releasing events: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return t, nil
}

// ListTasks returns matching tasks ordered by creation time, then ID.
func (s *SQLite) ListTasks(ctx context.Context, filter task.TaskFilter) ([]*task.Task, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, string(filter.Priority))
	}
	if filter.Domain != "" {
		where = append(where, "domain = ?")
		args = append(args, string(filter.Domain))
	}
	if filter.Use != "" {
		where = append(where, "use_kind = ?")
		args = append(args, string(filter.Use))
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		// Tag and text matching run here since tags are stored as JSON.
		if filter.Matches(t) {
			tasks = append(tasks, t)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func insertTask(ctx context.Context, ex execer, t *task.Task) error {
	tags, err := encodeStrings(t.Tags)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.About, string(t.Domain), string(t.Use), string(t.Priority),
		t.EffortMinutes, string(t.Status),
		nullTime(t.ScheduledStart), nullTime(t.ScheduledEnd), nullTime(t.DueAt),
		t.Recurrence, tags, string(t.Provenance),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	return err
}

func updateTask(ctx context.Context, ex execer, t *task.Task) error {
	tags, err := encodeStrings(t.Tags)
	if err != nil {
		return err
	}
	result, err := ex.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, about = ?, domain = ?, use_kind = ?, priority = ?, effort_minutes = ?,
			status = ?, scheduled_start = ?, scheduled_end = ?, due_at = ?, recurrence = ?,
			tags = ?, provenance = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.About, string(t.Domain), string(t.Use), string(t.Priority), t.EffortMinutes,
		string(t.Status), nullTime(t.ScheduledStart), nullTime(t.ScheduledEnd), nullTime(t.DueAt),
		t.Recurrence, tags, string(t.Provenance), formatTime(t.UpdatedAt),
		t.ID,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", t.ID, task.ErrNotFound)
	}
	return nil
}

func getTask(ctx context.Context, ex execer, id string) (*task.Task, error) {
	row := ex.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, task.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying task: %w", err)
	}
	return t, nil
}

func scanTask(sc scanner) (*task.Task, error) {
	var (
		t                    task.Task
		domain, use, prio    string
		status, provenance   string
		start, end, due      sql.NullString
		tags                 string
		createdAt, updatedAt string
	)
	if err := sc.Scan(
		&t.ID, &t.Title, &t.About, &domain, &use, &prio, &t.EffortMinutes, &status,
		&start, &end, &due, &t.Recurrence, &tags, &provenance, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	t.Domain = task.Domain(domain)
	t.Use = task.Use(use)
	t.Priority = task.Priority(prio)
	t.Status = task.Status(status)
	t.Provenance = task.Provenance(provenance)

	var err error
	if t.ScheduledStart, err = parseNullTime(start); err != nil {
		return nil, err
	}
	if t.ScheduledEnd, err = parseNullTime(end); err != nil {
		return nil, err
	}
	if t.DueAt, err = parseNullTime(due); err != nil {
		return nil, err
	}
	if t.Tags, err = decodeStrings(tags); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// parseTime parses a stored instant. Values always come back in UTC.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeStrings(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding list: %w", err)
	}
	return string(b), nil
}

func decodeStrings(s string) ([]string, error) {
	out := []string{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decoding list %q: %w", s, err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
