package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/javiermolinar/lifeplan/internal/task"
)

const routineColumns = `id, title, domain, use_kind, duration_minutes, slots, tags,
	recurrence, checklist, active, created_at, updated_at`

// CreateRoutine adds a new routine.
func (s *SQLite) CreateRoutine(ctx context.Context, r *task.Routine) error {
	if r.Title == "" {
		return task.ErrEmptyTitle
	}
	tags, err := encodeStrings(r.Tags)
	if err != nil {
		return err
	}
	checklist, err := encodeStrings(r.Checklist)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO routines (`+routineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, string(r.Domain), string(r.Use), r.DurationMinutes, r.Slots, tags,
		r.Recurrence, checklist, boolToInt(r.Active), formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting routine: %w", err)
	}
	return nil
}

// GetRoutine retrieves a routine by ID.
func (s *SQLite) GetRoutine(ctx context.Context, id string) (*task.Routine, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+routineColumns+" FROM routines WHERE id = ?", id)
	r, err := scanRoutine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("routine %s: %w", id, task.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying routine: %w", err)
	}
	return r, nil
}

// ListRoutines returns routines, most recently updated first.
func (s *SQLite) ListRoutines(ctx context.Context) ([]*task.Routine, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+routineColumns+" FROM routines ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("querying routines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var routines []*task.Routine
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, err
		}
		routines = append(routines, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating routines: %w", err)
	}
	return routines, nil
}

func scanRoutine(sc scanner) (*task.Routine, error) {
	var (
		r                    task.Routine
		domain, use          string
		tags, checklist      string
		active               int
		createdAt, updatedAt string
	)
	if err := sc.Scan(
		&r.ID, &r.Title, &domain, &use, &r.DurationMinutes, &r.Slots, &tags,
		&r.Recurrence, &checklist, &active, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning routine: %w", err)
	}

	r.Domain = task.Domain(domain)
	r.Use = task.Use(use)
	r.Active = active != 0

	var err error
	if r.Tags, err = decodeStrings(tags); err != nil {
		return nil, err
	}
	if r.Checklist, err = decodeStrings(checklist); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}
