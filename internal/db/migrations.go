package db

import "fmt"

// migrate runs database migrations.
func (s *SQLite) migrate() error {
	query := `
		CREATE TABLE IF NOT EXISTS tasks (
			id              TEXT PRIMARY KEY,
			title           TEXT NOT NULL,
			about           TEXT NOT NULL DEFAULT '',
			domain          TEXT NOT NULL DEFAULT '',
			use_kind        TEXT NOT NULL DEFAULT '',
			priority        TEXT NOT NULL DEFAULT 'later',
			effort_minutes  INTEGER NOT NULL DEFAULT 0,
			status          TEXT NOT NULL DEFAULT 'inbox' CHECK(status IN ('inbox', 'scheduled', 'done', 'skipped', 'canceled')),
			scheduled_start TEXT,
			scheduled_end   TEXT,
			due_at          TEXT,
			recurrence      TEXT NOT NULL DEFAULT '',
			tags            TEXT NOT NULL DEFAULT '[]',
			provenance      TEXT NOT NULL DEFAULT 'manual',
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
		CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at, id);

		CREATE TABLE IF NOT EXISTS events (
			id          TEXT PRIMARY KEY,
			task_id     TEXT REFERENCES tasks(id),
			title       TEXT NOT NULL,
			domain      TEXT NOT NULL DEFAULT '',
			use_kind    TEXT NOT NULL DEFAULT '',
			start_at    TEXT NOT NULL,
			end_at      TEXT NOT NULL,
			all_day     INTEGER NOT NULL DEFAULT 0,
			recurrence  TEXT NOT NULL DEFAULT '',
			source      TEXT NOT NULL DEFAULT 'manual',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_range ON events(start_at, end_at);
		CREATE INDEX IF NOT EXISTS idx_events_task ON events(task_id);

		CREATE TABLE IF NOT EXISTS routines (
			id               TEXT PRIMARY KEY,
			title            TEXT NOT NULL,
			domain           TEXT NOT NULL DEFAULT '',
			use_kind         TEXT NOT NULL DEFAULT '',
			duration_minutes INTEGER NOT NULL DEFAULT 0,
			slots            TEXT NOT NULL DEFAULT '',
			tags             TEXT NOT NULL DEFAULT '[]',
			recurrence       TEXT NOT NULL DEFAULT '',
			checklist        TEXT NOT NULL DEFAULT '[]',
			active           INTEGER NOT NULL DEFAULT 1,
			created_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS suggestions (
			id          TEXT PRIMARY KEY,
			type        TEXT NOT NULL,
			payload     TEXT NOT NULL,
			confidence  REAL NOT NULL,
			explanation TEXT NOT NULL DEFAULT '',
			action      TEXT NOT NULL DEFAULT '',
			expires_at  TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_suggestions_expiry ON suggestions(expires_at);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	return nil
}
