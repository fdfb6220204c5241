package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/SolracHQ/rivet/internal/model"
	"github.com/SolracHQ/rivet/internal/rierr"
)

// CreateJob launches a job in Pending state (spec §4.5 Launch job). The
// caller has already type-validated parameters against the pipeline's
// declared inputs (model.ValidateParameters) before calling this.
func (s *Store) CreateJob(ctx context.Context, pipelineID, pipelineSource string, parameters map[string]string, runnerTags model.TagSet) (*model.Job, error) {
	now := time.Now().UTC()
	j := &model.Job{
		ID:             uuid.NewString(),
		PipelineID:     pipelineID,
		PipelineSource: pipelineSource,
		Parameters:     parameters,
		RunnerTags:     runnerTags,
		Status:         model.JobPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, pipeline_id, pipeline_source, parameters_json, runner_tags_json, status, claimed_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, '', ?, ?)`,
		j.ID, j.PipelineID, j.PipelineSource, marshalJSON(j.Parameters), marshalJSON(j.RunnerTags), j.Status,
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("store: create job: %w", err)
	}
	return j, nil
}

// GetJob fetches a job by ID.
func (s *Store) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, jobSelectColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &rierr.NotFound{Kind: "job", ID: id}
	}
	return j, err
}

// ListJobsByPipeline returns every job launched against pipelineID, oldest
// first.
func (s *Store) ListJobsByPipeline(ctx context.Context, pipelineID string) ([]*model.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		jobSelectColumns+` FROM jobs WHERE pipeline_id = ? ORDER BY created_at ASC`, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("store: list jobs by pipeline: %w", err)
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// scheduledPageSize bounds the scheduled-jobs query (spec §4.5: "Returns a
// bounded page").
const scheduledPageSize = 100

// ScheduledJobsForRunner lists Pending jobs whose runner_tags are a subset
// of the given runner's tags, FIFO by created_at (spec §4.5). Filtering on
// the tag subset relation happens in Go, since tags are stored as an opaque
// JSON blob rather than normalized into a join table.
func (s *Store) ScheduledJobsForRunner(ctx context.Context, runnerTags model.TagSet) ([]*model.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		jobSelectColumns+` FROM jobs WHERE status = ? ORDER BY created_at ASC LIMIT ?`,
		model.JobPending, scheduledPageSize*4, // overselect before filtering by tag subset
	)
	if err != nil {
		return nil, fmt.Errorf("store: scheduled jobs: %w", err)
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		if j.RunnerTags.Subset(runnerTags) {
			out = append(out, j)
			if len(out) >= scheduledPageSize {
				break
			}
		}
	}
	return out, rows.Err()
}

// ClaimJob is the compare-and-set Pending -> Claimed transition (spec §4.5
// Claim). It returns rierr.Conflict if the job is not currently Pending, so
// that of N concurrent claimers exactly one succeeds (spec §8).
func (s *Store) ClaimJob(ctx context.Context, jobID, runnerID string, claimTTL time.Duration) (*model.Job, error) {
	now := time.Now().UTC()
	deadline := now.Add(claimTTL)

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, claimed_by = ?, claim_deadline = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		model.JobClaimed, runnerID, formatTime(deadline), formatTime(now),
		jobID, model.JobPending,
	)
	if err != nil {
		return nil, fmt.Errorf("store: claim job: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		if _, err := s.GetJob(ctx, jobID); err != nil {
			return nil, err
		}
		return nil, &rierr.Conflict{Reason: "job is not Pending"}
	}
	return s.GetJob(ctx, jobID)
}

// UpdateJobStatus performs one of the non-terminal transitions spec §4.5
// allows on the status endpoint: Claimed -> Running, or {Claimed, Running}
// -> Cancelled. Any other requested transition is rejected before touching
// the store.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, to model.JobStatus) error {
	current, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !(to == model.JobRunning || to == model.JobCancelled) || !model.CanTransition(current.Status, to) {
		return &rierr.Conflict{Reason: fmt.Sprintf("cannot transition %s -> %s", current.Status, to)}
	}

	clearClaim := to == model.JobCancelled
	var res sql.Result
	if clearClaim {
		res, err = s.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, claimed_by = '', claim_deadline = NULL, updated_at = ? WHERE id = ? AND status = ?`,
			to, formatTime(time.Now().UTC()), jobID, current.Status,
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			to, formatTime(time.Now().UTC()), jobID, current.Status,
		)
	}
	if err != nil {
		return fmt.Errorf("store: update job status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &rierr.Conflict{Reason: "job status changed concurrently"}
	}
	return nil
}

// CompleteJob is the terminal transition from {Claimed, Running} to
// Succeeded or Failed (spec §4.5 Complete). It is idempotent on an exact
// repeat of the same outcome and yields Conflict on a conflicting complete,
// with the first write winning (spec §8).
func (s *Store) CompleteJob(ctx context.Context, jobID string, result model.JobResult) error {
	current, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	to := model.JobFailed
	if result.Outcome == model.OutcomeOK {
		to = model.JobSucceeded
	}

	if current.Status.Terminal() {
		if current.Status == to && current.Result != nil && sameResult(*current.Result, result) {
			return nil // idempotent repeat
		}
		return &rierr.Conflict{Reason: "job already completed with a different result"}
	}

	if !model.CanTransition(current.Status, to) {
		return &rierr.Conflict{Reason: fmt.Sprintf("cannot complete from %s", current.Status)}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, claimed_by = '', claim_deadline = NULL,
		 result_outcome = ?, result_message = ?, result_outputs_json = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		to, result.Outcome, result.Message, marshalJSON(result.Outputs),
		formatTime(time.Now().UTC()), jobID, current.Status,
	)
	if err != nil {
		return fmt.Errorf("store: complete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Lost a race with another complete/cancel; resolve the same way a
		// concurrent caller would see it.
		return s.CompleteJob(ctx, jobID, result)
	}
	return nil
}

func sameResult(a, b model.JobResult) bool {
	if a.Outcome != b.Outcome || a.Message != b.Message {
		return false
	}
	return reflect.DeepEqual(a.Outputs, b.Outputs)
}

// ReapStaleClaims scans jobs in Claimed or Running whose claim_deadline has
// passed and whose owning runner is Dead, and returns them to Pending for
// re-dispatch (spec §4.5 Stale claim reaper, §9 "Stale claim recovery").
// Jobs whose runner is Alive are left alone regardless of deadline.
func (s *Store) ReapStaleClaims(ctx context.Context, heartbeatTTL time.Duration) (int, error) {
	now := time.Now().UTC()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, claimed_by FROM jobs WHERE status IN (?, ?) AND claim_deadline IS NOT NULL AND claim_deadline < ?`,
		model.JobClaimed, model.JobRunning, formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("store: reap query: %w", err)
	}
	type candidate struct{ id, claimedBy string }
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.claimedBy); err != nil {
			rows.Close()
			return 0, fmt.Errorf("store: reap scan: %w", err)
		}
		candidates = append(candidates, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	reaped := 0
	for _, c := range candidates {
		runner, err := s.GetRunner(ctx, c.claimedBy)
		if err != nil && !errors.As(err, new(*rierr.NotFound)) {
			return reaped, err
		}
		alive := err == nil && runner.State(now, heartbeatTTL) == model.RunnerAlive
		if alive {
			continue
		}

		res, err := s.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, claimed_by = '', claim_deadline = NULL, updated_at = ?
			 WHERE id = ? AND status IN (?, ?) AND claim_deadline < ?`,
			model.JobPending, formatTime(now), c.id, model.JobClaimed, model.JobRunning, formatTime(now),
		)
		if err != nil {
			return reaped, fmt.Errorf("store: reap update: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			reaped++
		}
	}
	return reaped, nil
}

const jobSelectColumns = `SELECT id, pipeline_id, pipeline_source, parameters_json, runner_tags_json, status,
	claimed_by, claim_deadline, result_outcome, result_message, result_outputs_json, created_at, updated_at`

func scanJob(row rowScanner) (*model.Job, error) {
	var j model.Job
	var parametersJSON, runnerTagsJSON string
	var claimDeadline, resultOutcome, resultMessage, resultOutputsJSON sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.PipelineID, &j.PipelineSource, &parametersJSON, &runnerTagsJSON, &j.Status,
		&j.ClaimedBy, &claimDeadline, &resultOutcome, &resultMessage, &resultOutputsJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan job: %w", err)
	}

	j.Parameters, err = unmarshalJSON[map[string]string](parametersJSON)
	if err != nil {
		return nil, err
	}
	j.RunnerTags, err = unmarshalJSON[model.TagSet](runnerTagsJSON)
	if err != nil {
		return nil, err
	}
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if j.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if claimDeadline.Valid {
		t, err := parseTime(claimDeadline.String)
		if err != nil {
			return nil, err
		}
		j.ClaimDeadline = &t
	}
	if resultOutcome.Valid {
		outputs, err := unmarshalJSON[map[string]string](resultOutputsJSON.String)
		if err != nil {
			return nil, err
		}
		j.Result = &model.JobResult{
			Outcome: model.JobOutcome(resultOutcome.String),
			Message: resultMessage.String,
			Outputs: outputs,
		}
	}
	return &j, nil
}
