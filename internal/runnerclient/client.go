// Package runnerclient is the runner's HTTP client for every orchestrator
// endpoint in spec §6 (register, heartbeat, scheduled-jobs, claim, status,
// complete, log ingest). It is built on resty.dev/v3 (promoted from the
// teacher's indirect dependency on resty to a direct one — see
// SPEC_FULL.md §4.4), which already provides the retry-with-backoff
// primitives the heartbeat and log-pump policies of spec §4.4 need.
package runnerclient

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"

	"github.com/SolracHQ/rivet/internal/model"
	"github.com/SolracHQ/rivet/internal/rierr"
)

// Client wraps a resty.Client pointed at one orchestrator base URL.
type Client struct {
	http *resty.Client
}

// New builds a Client with bounded exponential retry for transient network
// failures, matching spec §4.4's heartbeat/log-pump retry policy.
func New(baseURL string, maxBackoff time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetRetryCount(5).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(maxBackoff).
		SetTimeout(30 * time.Second)
	return &Client{http: c}
}

// Close releases the underlying HTTP transport's idle connections.
func (c *Client) Close() error { return c.http.Close() }

// apiError translates a non-2xx orchestrator response into Rivet's error
// taxonomy (spec §7), so runner code can type-switch the same way it would
// against an in-process store error.
func apiError(resp *resty.Response) error {
	switch resp.StatusCode() {
	case 404:
		return &rierr.NotFound{Kind: "resource", ID: resp.Request.URL}
	case 409:
		return &rierr.Conflict{Reason: string(resp.Bytes())}
	case 422:
		return &rierr.ValidationError{Path: "", Reason: string(resp.Bytes())}
	case 503:
		return &rierr.TransientExternal{Cause: fmt.Errorf("orchestrator unavailable: %s", resp.Status())}
	default:
		return fmt.Errorf("orchestrator request failed: %s: %s", resp.Status(), string(resp.Bytes()))
	}
}

type tagDTO struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func tagsToDTO(tags model.TagSet) []tagDTO {
	out := make([]tagDTO, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagDTO{Key: t.Key, Value: t.Value})
	}
	return out
}

// Register implements POST /api/runners/register (spec §6).
func (c *Client) Register(ctx context.Context, runnerID string, tags model.TagSet) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"runner_id": runnerID, "capabilities": tagsToDTO(tags)}).
		Post("/api/runners/register")
	if err != nil {
		return &rierr.TransientExternal{Cause: err}
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

// Heartbeat implements POST /api/runners/{runner_id}/heartbeat (spec §6).
func (c *Client) Heartbeat(ctx context.Context, runnerID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("runner_id", runnerID).
		Post("/api/runners/{runner_id}/heartbeat")
	if err != nil {
		return &rierr.TransientExternal{Cause: err}
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

// JobStatus implements GET /api/jobs/{job_id}, returning only the status
// field — enough for the runner to observe externally requested
// cancellation at a stage boundary (spec §5 Cancellation).
func (c *Client) JobStatus(ctx context.Context, jobID string) (model.JobStatus, error) {
	var result struct {
		Status model.JobStatus `json:"status"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("job_id", jobID).
		SetResult(&result).
		Get("/api/jobs/{job_id}")
	if err != nil {
		return "", &rierr.TransientExternal{Cause: err}
	}
	if resp.IsError() {
		return "", apiError(resp)
	}
	return result.Status, nil
}

// scheduledJobDTO is the subset of GET /api/jobs/scheduled's response the
// runner needs to pick a job to claim.
type scheduledJobDTO struct {
	ID string `json:"id"`
}

// ScheduledJobs implements GET /api/jobs/scheduled?runner_id=... (spec §6),
// returning job IDs in the FIFO order the orchestrator already applied.
func (c *Client) ScheduledJobs(ctx context.Context, runnerID string) ([]string, error) {
	var result []scheduledJobDTO
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("runner_id", runnerID).
		SetResult(&result).
		Get("/api/jobs/scheduled")
	if err != nil {
		return nil, &rierr.TransientExternal{Cause: err}
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	ids := make([]string, 0, len(result))
	for _, j := range result {
		ids = append(ids, j.ID)
	}
	return ids, nil
}

// ClaimedJob is the payload POST /api/jobs/{job_id}/claim returns on
// success: exactly what's needed to execute (spec §6).
type ClaimedJob struct {
	JobID          string            `json:"job_id"`
	PipelineID     string            `json:"pipeline_id"`
	PipelineSource string            `json:"pipeline_source"`
	Parameters     map[string]string `json:"parameters"`
}

// Claim implements POST /api/jobs/{job_id}/claim (spec §6). A 409 response
// means another runner won the race; the caller should move on and poll
// again (spec §8 scenario 6).
func (c *Client) Claim(ctx context.Context, jobID, runnerID string) (*ClaimedJob, error) {
	var claimed ClaimedJob
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("job_id", jobID).
		SetBody(map[string]string{"runner_id": runnerID}).
		SetResult(&claimed).
		Post("/api/jobs/{job_id}/claim")
	if err != nil {
		return nil, &rierr.TransientExternal{Cause: err}
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &claimed, nil
}

// UpdateStatus implements PUT /api/jobs/{job_id}/status (spec §6).
func (c *Client) UpdateStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("job_id", jobID).
		SetBody(map[string]string{"status": string(status)}).
		Put("/api/jobs/{job_id}/status")
	if err != nil {
		return &rierr.TransientExternal{Cause: err}
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

// Complete implements POST /api/jobs/{job_id}/complete (spec §6).
func (c *Client) Complete(ctx context.Context, jobID string, result model.JobResult) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("job_id", jobID).
		SetBody(map[string]any{"result": map[string]any{
			"outcome": result.Outcome,
			"message": result.Message,
			"outputs": result.Outputs,
		}}).
		Post("/api/jobs/{job_id}/complete")
	if err != nil {
		return &rierr.TransientExternal{Cause: err}
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

type logEntryDTO struct {
	Level     model.LogLevel `json:"level"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	BatchID   string         `json:"batch_id,omitempty"`
}

// AppendLogs implements POST /api/jobs/{job_id}/logs (spec §6): one batch,
// ingested atomically by the orchestrator.
func (c *Client) AppendLogs(ctx context.Context, jobID string, entries []model.LogEntry) error {
	dtos := make([]logEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, logEntryDTO{Level: e.Level, Message: e.Message, Timestamp: e.Timestamp, BatchID: e.BatchID})
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("job_id", jobID).
		SetBody(map[string]any{"entries": dtos}).
		Post("/api/jobs/{job_id}/logs")
	if err != nil {
		return &rierr.TransientExternal{Cause: err}
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}
