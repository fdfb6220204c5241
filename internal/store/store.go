// Package store is the orchestrator's relational persistence layer (spec
// §4.5): the single source of truth for Pipelines, Jobs, Runners, and Logs,
// with every state transition serialized through compare-and-set UPDATE
// statements rather than an application-level lock (spec §5).
//
// It wraps database/sql over modernc.org/sqlite, a pure-Go, cgo-free driver
// (grounded on ashita-ai-akashi's and bureau-foundation-bureau's shared
// dependency on modernc.org/sqlite), well suited to a single-binary
// orchestrator that should not require a cgo toolchain to build.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a *sql.DB with Rivet's schema and query helpers.
type Store struct {
	db *sql.DB
}

// schema is applied once at Open. SQLite's single-writer model plus the
// busy_timeout pragma below give the orchestrator serialized transitions
// without an explicit application-level lock.
const schema = `
CREATE TABLE IF NOT EXISTS pipelines (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
	id              TEXT PRIMARY KEY,
	pipeline_id     TEXT NOT NULL,
	pipeline_source TEXT NOT NULL,
	parameters_json TEXT NOT NULL,
	runner_tags_json TEXT NOT NULL,
	status          TEXT NOT NULL,
	claimed_by      TEXT NOT NULL DEFAULT '',
	claim_deadline  TEXT,
	result_outcome  TEXT,
	result_message  TEXT,
	result_outputs_json TEXT,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON jobs(status, created_at);
CREATE INDEX IF NOT EXISTS idx_jobs_pipeline ON jobs(pipeline_id);

CREATE TABLE IF NOT EXISTS runners (
	id             TEXT PRIMARY KEY,
	tags_json      TEXT NOT NULL,
	last_heartbeat TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS logs (
	job_id    TEXT NOT NULL,
	sequence  INTEGER NOT NULL,
	level     TEXT NOT NULL,
	message   TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	batch_id  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (job_id, sequence)
);
CREATE INDEX IF NOT EXISTS idx_logs_batch ON logs(job_id, batch_id);
`

// Open opens (and creates if absent) the SQLite database at path and
// applies the schema. The pool holds a single connection, so the reaper and
// the API handlers take turns on it; reads and writes are not concurrent.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// SQLite only really tolerates one writer; a single pooled connection
	// avoids SQLITE_BUSY errors from the driver opening a second one under
	// concurrent handlers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
