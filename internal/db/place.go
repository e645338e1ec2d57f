package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/javiermolinar/lifeplan/internal/task"
)

// Place writes every placement in one transaction.
// Each placement is checked against the stored state before anything is written.
func (s *SQLite) Place(ctx context.Context, placements ...task.Placement) error {
	if err := task.ValidatePlacements(placements); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range placements {
		if err := checkPlacement(ctx, tx, p); err != nil {
			return err
		}
	}

	for _, p := range placements {
		if err := applyPlacement(ctx, tx, p); err != nil {
			return fmt.Errorf("placing task %s: %w", p.Task.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func checkPlacement(ctx context.Context, tx *sql.Tx, p task.Placement) error {
	stored, err := getTask(ctx, tx, p.Task.ID)
	exists := err == nil
	if err != nil && !errors.Is(err, task.ErrNotFound) {
		return err
	}

	switch p.Kind {
	case task.PlaceCreate:
		if exists {
			return fmt.Errorf("task %s already exists", p.Task.ID)
		}
		return requireNoEvent(ctx, tx, p)
	case task.PlaceSchedule:
		if !exists || !stored.IsInbox() {
			return fmt.Errorf("inbox task %s: %w", p.Task.ID, task.ErrNotFound)
		}
		return requireNoEvent(ctx, tx, p)
	case task.PlaceMove:
		if !exists || !stored.IsScheduled() {
			return fmt.Errorf("scheduled task %s: %w", p.Task.ID, task.ErrNotFound)
		}
		ev, err := getEvent(ctx, tx, p.Event.ID)
		if err != nil && !errors.Is(err, task.ErrNotFound) {
			return err
		}
		if err != nil || ev.TaskID != p.Task.ID {
			return fmt.Errorf("event %s for task %s: %w", p.Event.ID, p.Task.ID, task.ErrNotFound)
		}
	}
	return nil
}

// requireNoEvent rejects a placement whose event id is taken or whose task already has an event.
func requireNoEvent(ctx context.Context, tx *sql.Tx, p task.Placement) error {
	_, err := getEvent(ctx, tx, p.Event.ID)
	if err == nil {
		return fmt.Errorf("event %s already exists", p.Event.ID)
	}
	if !errors.Is(err, task.ErrNotFound) {
		return err
	}
	n, err := countEventsByTask(ctx, tx, p.Task.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("task %s already has an event: %w", p.Task.ID, task.ErrScheduleMismatch)
	}
	return nil
}

func applyPlacement(ctx context.Context, tx *sql.Tx, p task.Placement) error {
	switch p.Kind {
	case task.PlaceCreate:
		if err := insertTask(ctx, tx, p.Task); err != nil {
			return err
		}
		return insertEvent(ctx, tx, p.Event)
	case task.PlaceSchedule:
		if err := updateTask(ctx, tx, p.Task); err != nil {
			return err
		}
		return insertEvent(ctx, tx, p.Event)
	case task.PlaceMove:
		if err := updateTask(ctx, tx, p.Task); err != nil {
			return err
		}
		return updateEvent(ctx, tx, p.Event)
	}
	return fmt.Errorf("unknown placement kind %q", p.Kind)
}
