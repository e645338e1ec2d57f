package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/javiermolinar/lifeplan/internal/task"
)

const eventColumns = `id, task_id, title, domain, use_kind, start_at, end_at, all_day,
	recurrence, source, created_at, updated_at`

// CreateEvent adds a standalone event.
func (s *SQLite) CreateEvent(ctx context.Context, e *task.CalendarEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := insertEvent(ctx, s.db, e); err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// GetEvent retrieves an event by ID.
func (s *SQLite) GetEvent(ctx context.Context, id string) (*task.CalendarEvent, error) {
	return getEvent(ctx, s.db, id)
}

// GetEventByTask retrieves the event paired with a task.
func (s *SQLite) GetEventByTask(ctx context.Context, taskID string) (*task.CalendarEvent, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE task_id = ? ORDER BY id LIMIT 1", taskID)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event for task %s: %w", taskID, task.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying event: %w", err)
	}
	return e, nil
}

// UpdateEvent applies a partial patch.
func (s *SQLite) UpdateEvent(ctx context.Context, id string, patch task.EventPatch) (*task.CalendarEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	e, err := getEvent(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(e, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := updateEvent(ctx, tx, e); err != nil {
		return nil, fmt.Errorf("updating event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return e, nil
}

// ListEventsInRange returns events intersecting [start, end) ordered by start, then ID.
func (s *SQLite) ListEventsInRange(ctx context.Context, start, end time.Time) ([]*task.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE start_at < ? AND end_at > ?
		ORDER BY start_at, id`,
		formatTime(end), formatTime(start),
	)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*task.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

func insertEvent(ctx context.Context, ex execer, e *task.CalendarEvent) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, nullString(e.TaskID), e.Title, string(e.Domain), string(e.Use),
		formatTime(e.Start), formatTime(e.End), boolToInt(e.AllDay),
		e.Recurrence, string(e.Source), formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	return err
}

func updateEvent(ctx context.Context, ex execer, e *task.CalendarEvent) error {
	result, err := ex.ExecContext(ctx, `
		UPDATE events SET
			title = ?, domain = ?, use_kind = ?, start_at = ?, end_at = ?, all_day = ?,
			recurrence = ?, source = ?, updated_at = ?
		WHERE id = ?`,
		e.Title, string(e.Domain), string(e.Use), formatTime(e.Start), formatTime(e.End),
		boolToInt(e.AllDay), e.Recurrence, string(e.Source), formatTime(e.UpdatedAt),
		e.ID,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", e.ID, task.ErrNotFound)
	}
	return nil
}

func deleteEventsByTask(ctx context.Context, ex execer, taskID string) error {
	_, err := ex.ExecContext(ctx, "DELETE FROM events WHERE task_id = ?", taskID)
	return err
}

func countEventsByTask(ctx context.Context, ex execer, taskID string) (int, error) {
	var n int
	err := ex.QueryRowContext(ctx, "SELECT COUNT(*) FROM events WHERE task_id = ?", taskID).Scan(&n)
	return n, err
}

func getEvent(ctx context.Context, ex execer, id string) (*task.CalendarEvent, error) {
	row := ex.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, task.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying event: %w", err)
	}
	return e, nil
}

func scanEvent(sc scanner) (*task.CalendarEvent, error) {
	var (
		e                    task.CalendarEvent
		taskID               sql.NullString
		domain, use, source  string
		start, end           string
		allDay               int
		createdAt, updatedAt string
	)
	if err := sc.Scan(
		&e.ID, &taskID, &e.Title, &domain, &use, &start, &end, &allDay,
		&e.Recurrence, &source, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning event: %w", err)
	}

	e.TaskID = taskID.String
	e.Domain = task.Domain(domain)
	e.Use = task.Use(use)
	e.Source = task.EventSource(source)
	e.AllDay = allDay != 0

	var err error
	if e.Start, err = parseTime(start); err != nil {
		return nil, err
	}
	if e.End, err = parseTime(end); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
