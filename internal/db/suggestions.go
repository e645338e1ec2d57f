package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/javiermolinar/lifeplan/internal/suggest"
	"github.com/javiermolinar/lifeplan/internal/task"
)

const suggestionColumns = `id, type, payload, confidence, explanation, action,
	expires_at, created_at, updated_at`

// UpsertSuggestion inserts or replaces a suggestion, keeping the original creation time.
func (s *SQLite) UpsertSuggestion(ctx context.Context, sg *suggest.Suggestion) error {
	if err := sg.Validate(); err != nil {
		return err
	}
	payload, err := suggest.EncodePayload(sg.Payload)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO suggestions (`+suggestionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			payload = excluded.payload,
			confidence = excluded.confidence,
			explanation = excluded.explanation,
			action = excluded.action,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		sg.ID, string(sg.Type), string(payload), sg.Confidence, sg.Explanation, string(sg.Action),
		nullTime(sg.ExpiresAt), formatTime(sg.CreatedAt), formatTime(sg.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting suggestion: %w", err)
	}
	return nil
}

// GetSuggestion retrieves a suggestion by ID.
func (s *SQLite) GetSuggestion(ctx context.Context, id string) (*suggest.Suggestion, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+suggestionColumns+" FROM suggestions WHERE id = ?", id)
	sg, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("suggestion %s: %w", id, task.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying suggestion: %w", err)
	}
	return sg, nil
}

// ListActiveSuggestions returns suggestions without expiry or expiring at or after now.
func (s *SQLite) ListActiveSuggestions(ctx context.Context, now time.Time) ([]*suggest.Suggestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+suggestionColumns+` FROM suggestions
		WHERE expires_at IS NULL OR expires_at >= ?
		ORDER BY created_at, id`,
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("querying suggestions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*suggest.Suggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating suggestions: %w", err)
	}
	return out, nil
}

// PurgeExpiredSuggestions deletes suggestions that expired before now.
func (s *SQLite) PurgeExpiredSuggestions(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM suggestions WHERE expires_at IS NOT NULL AND expires_at < ?", formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("purging suggestions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return int(n), nil
}

// DeleteSuggestion removes a suggestion.
func (s *SQLite) DeleteSuggestion(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM suggestions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting suggestion: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("suggestion %s: %w", id, task.ErrNotFound)
	}
	return nil
}

func scanSuggestion(sc scanner) (*suggest.Suggestion, error) {
	var (
		sg                   suggest.Suggestion
		typ, payload, action string
		expires              sql.NullString
		createdAt, updatedAt string
	)
	if err := sc.Scan(
		&sg.ID, &typ, &payload, &sg.Confidence, &sg.Explanation, &action,
		&expires, &createdAt, &updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning suggestion: %w", err)
	}

	sg.Type = suggest.Type(typ)
	sg.Action = suggest.Action(action)

	var err error
	if sg.Payload, err = suggest.DecodePayload(sg.Type, []byte(payload)); err != nil {
		return nil, fmt.Errorf("suggestion %s: %w", sg.ID, err)
	}
	if sg.ExpiresAt, err = parseNullTime(expires); err != nil {
		return nil, err
	}
	if sg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sg.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &sg, nil
}
