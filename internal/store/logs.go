package store

import (
	"context"
	"fmt"

	"github.com/SolracHQ/rivet/internal/model"
)

// AppendLogs ingests a batch of log entries for one job, assigning
// monotonic per-job sequence numbers (spec §4.5 Log ingest, §8: "sequence
// values form a strictly increasing integer sequence with no duplicates
// and no gaps within a single batch"). The whole batch is atomic: either
// every entry is appended or none are (a single transaction). Entries
// whose BatchID collides with one already stored for this job are dropped
// silently, making re-submission of an already-ingested batch a no-op
// (spec §3 invariant, §9 "whether log ingest should dedupe by batch id").
func (s *Store) AppendLogs(ctx context.Context, jobID string, entries []model.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: append logs: begin: %w", err)
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM logs WHERE job_id = ?`, jobID,
	).Scan(&next); err != nil {
		return fmt.Errorf("store: append logs: next sequence: %w", err)
	}

	// Check batch-id existence once per distinct batch id, before any
	// insert in this call, so a multi-entry batch sharing one batch_id is
	// judged entirely against rows committed by a PRIOR call — never
	// against entries this same call is in the middle of inserting.
	alreadyIngested := make(map[string]bool)
	checked := make(map[string]bool)
	for _, e := range entries {
		if e.BatchID == "" || checked[e.BatchID] {
			continue
		}
		checked[e.BatchID] = true
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM logs WHERE job_id = ? AND batch_id = ? LIMIT 1`, jobID, e.BatchID,
		).Scan(&exists)
		if err == nil {
			alreadyIngested[e.BatchID] = true
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO logs (job_id, sequence, level, message, timestamp, batch_id) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: append logs: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.BatchID != "" && alreadyIngested[e.BatchID] {
			continue // already ingested by a prior call, idempotent no-op
		}
		if _, err := stmt.ExecContext(ctx, jobID, next, e.Level, e.Message, formatTime(e.Timestamp), e.BatchID); err != nil {
			return fmt.Errorf("store: append logs: insert: %w", err)
		}
		next++
	}

	return tx.Commit()
}

// ListLogs returns every log entry for a job in sequence order, optionally
// filtered to entries whose sequence is strictly greater than sinceSequence
// (spec §4.5 Log read, "supports since_sequence incremental reads").
func (s *Store) ListLogs(ctx context.Context, jobID string, sinceSequence int64) ([]model.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, sequence, level, message, timestamp, batch_id FROM logs
		 WHERE job_id = ? AND sequence > ? ORDER BY sequence ASC`, jobID, sinceSequence,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list logs: %w", err)
	}
	defer rows.Close()

	var out []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		var ts string
		if err := rows.Scan(&e.JobID, &e.Sequence, &e.Level, &e.Message, &ts, &e.BatchID); err != nil {
			return nil, fmt.Errorf("store: scan log entry: %w", err)
		}
		e.Timestamp, err = parseTime(ts)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
