package store

import (
	"context"
	"fmt"
)

// statements run in order; each is idempotent so startup can re-run them.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS teachers (
		id      TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id        TEXT PRIMARY KEY,
		user_id   TEXT NOT NULL UNIQUE REFERENCES users(id),
		course_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id    TEXT PRIMARY KEY,
		name  TEXT NOT NULL,
		level TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS subjects (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		course_id  TEXT NOT NULL REFERENCES courses(id),
		teacher_id TEXT REFERENCES teachers(id)
	)`,
	`CREATE TABLE IF NOT EXISTS class_sessions (
		id          TEXT PRIMARY KEY,
		subject_id  TEXT NOT NULL REFERENCES subjects(id),
		teacher_id  TEXT NOT NULL REFERENCES teachers(id),
		class_date  DATE NOT NULL,
		start_min   INT NOT NULL,
		end_min     INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS enrollments (
		id           TEXT PRIMARY KEY,
		student_id   TEXT NOT NULL,
		subject_id   TEXT NOT NULL,
		status       TEXT NOT NULL,
		enrolled_at  TIMESTAMPTZ NOT NULL,
		withdrawn_at TIMESTAMPTZ,
		withdrawn_by TEXT
	)`,
	// the enroll race resolves here: one active row per (student, subject)
	`CREATE UNIQUE INDEX IF NOT EXISTS enrollments_active_pair
		ON enrollments (student_id, subject_id) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id               TEXT PRIMARY KEY,
		student_id       TEXT NOT NULL,
		class_session_id TEXT NOT NULL,
		subject_id       TEXT NOT NULL,
		method           TEXT NOT NULL,
		recorded_at      TIMESTAMPTZ NOT NULL,
		UNIQUE (student_id, class_session_id)
	)`,
}

// Migrate bootstraps the schema.
func (d *DB) Migrate(ctx context.Context) error {
	for i, stmt := range statements {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
