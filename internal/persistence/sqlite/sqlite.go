// Package sqlite implements the persistence collaborators on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/example/workforce-scheduler/internal/scheduler"
)

// Store holds the database handle and the file-sourced rotation table that
// snapshots are assembled around.
type Store struct {
	db            *sql.DB
	baseRotations scheduler.RotationTable
}

// Open connects to the database, applies the schema, and returns a store.
// The rotation table from configuration is overlaid with date overrides
// found in storage when snapshots are loaded.
func Open(dsn string, baseRotations scheduler.RotationTable) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// modernc's driver serializes writes; one writer connection avoids
	// SQLITE_BUSY under concurrent audits.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, baseRotations: baseRotations}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB exposes the underlying handle for tests and fixtures.
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTransaction runs fn inside a transaction, rolling back on error.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlite: rollback after %v: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS employees (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	role             TEXT NOT NULL,
	active           INTEGER NOT NULL DEFAULT 1,
	termination_date TEXT,
	hire_date        TEXT NOT NULL,
	rotations        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS events (
	id              TEXT PRIMARY KEY,
	type            TEXT NOT NULL,
	due_date        TEXT NOT NULL,
	earliest_date   TEXT,
	correlation_key TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS weekly_patterns (
	employee_id TEXT NOT NULL REFERENCES employees(id),
	weekday     INTEGER NOT NULL CHECK (weekday BETWEEN 0 AND 6),
	available   INTEGER NOT NULL,
	PRIMARY KEY (employee_id, weekday)
);

CREATE TABLE IF NOT EXISTS time_off (
	employee_id TEXT NOT NULL REFERENCES employees(id),
	from_date   TEXT NOT NULL,
	to_date     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS availability_overrides (
	employee_id TEXT NOT NULL REFERENCES employees(id),
	date        TEXT NOT NULL,
	available   INTEGER NOT NULL,
	PRIMARY KEY (employee_id, date)
);

CREATE TABLE IF NOT EXISTS holidays (
	date TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS locked_days (
	date TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS assignments (
	event_id        TEXT PRIMARY KEY,
	event_type      TEXT NOT NULL,
	employee_id     TEXT NOT NULL REFERENCES employees(id),
	date            TEXT NOT NULL,
	slot            INTEGER NOT NULL,
	correlation_key TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS rotation_overrides (
	rotation_type TEXT NOT NULL,
	date          TEXT NOT NULL,
	primary_id    TEXT NOT NULL,
	backup_id     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (rotation_type, date)
);

CREATE TABLE IF NOT EXISTS run_records (
	id           TEXT PRIMARY KEY,
	window_from  TEXT NOT NULL,
	window_to    TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	completed_at TEXT NOT NULL,
	status       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_proposals (
	id              TEXT PRIMARY KEY,
	run_id          TEXT NOT NULL REFERENCES run_records(id),
	seq             INTEGER NOT NULL,
	event_id        TEXT NOT NULL,
	event_type      TEXT NOT NULL,
	employee_id     TEXT NOT NULL,
	date            TEXT NOT NULL,
	slot            INTEGER NOT NULL,
	wave            INTEGER NOT NULL,
	status          TEXT NOT NULL,
	correlation_key TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS run_unscheduled (
	run_id   TEXT NOT NULL REFERENCES run_records(id),
	seq      INTEGER NOT NULL,
	event_id TEXT NOT NULL,
	reason   TEXT NOT NULL,
	PRIMARY KEY (run_id, event_id)
);

CREATE TABLE IF NOT EXISTS run_relocations (
	run_id      TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	event_id    TEXT NOT NULL,
	employee_id TEXT NOT NULL,
	from_date   TEXT NOT NULL,
	from_slot   INTEGER NOT NULL,
	to_date     TEXT NOT NULL,
	to_slot     INTEGER NOT NULL,
	PRIMARY KEY (run_id, event_id)
);

CREATE INDEX IF NOT EXISTS idx_assignments_date ON assignments(date);
CREATE INDEX IF NOT EXISTS idx_assignments_employee ON assignments(employee_id, date);
`

func (s *Store) applySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return nil
}
