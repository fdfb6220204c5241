package orchestrator

import (
	"net/http"
	"strconv"

	"github.com/SolracHQ/rivet/internal/model"
	"github.com/SolracHQ/rivet/internal/rierr"
)

// handleGetJob implements GET /api/jobs/{job_id}.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.GetJob(r.Context(), r.PathValue("job_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobToDTO(job))
}

// handleListJobsByPipeline implements GET /api/jobs/pipeline/{pipeline_id},
// returning the summary `[JobDto]` shape spec §6 distinguishes from the
// full `Job` GET /api/jobs/{job_id} returns.
func (s *Server) handleListJobsByPipeline(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobsByPipeline(r.Context(), r.PathValue("pipeline_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]jobDTO, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobToSummaryDTO(j))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleScheduledJobs implements GET /api/jobs/scheduled?runner_id=...
// (spec §4.5 Scheduled jobs query): only Pending jobs whose runner_tags are
// a subset of the querying runner's own tags.
func (s *Server) handleScheduledJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runnerID := r.URL.Query().Get("runner_id")
	if runnerID == "" {
		writeError(w, &rierr.ValidationError{Path: "runner_id", Reason: "required"})
		return
	}

	runner, err := s.store.GetRunner(ctx, runnerID)
	if err != nil {
		writeError(w, err)
		return
	}

	jobs, err := s.store.ScheduledJobsForRunner(ctx, runner.Tags)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]jobDTO, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobToDTO(j))
	}
	writeJSON(w, http.StatusOK, out)
}

type claimJobRequest struct {
	RunnerID string `json:"runner_id"`
}

// claimJobResponse is exactly the payload a runner needs to execute (spec
// §6): pipeline source and parameters, not the full Job shape.
type claimJobResponse struct {
	JobID          string            `json:"job_id"`
	PipelineID     string            `json:"pipeline_id"`
	PipelineSource string            `json:"pipeline_source"`
	Parameters     map[string]string `json:"parameters"`
}

// handleClaimJob implements POST /api/jobs/{job_id}/claim (spec §4.5
// Claim): a compare-and-set Pending -> Claimed transition. Of N concurrent
// claimers exactly one succeeds; the rest see 409 Conflict (spec §8).
func (s *Server) handleClaimJob(w http.ResponseWriter, r *http.Request) {
	var req claimJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RunnerID == "" {
		writeError(w, &rierr.ValidationError{Path: "runner_id", Reason: "required"})
		return
	}

	job, err := s.store.ClaimJob(r.Context(), r.PathValue("job_id"), req.RunnerID, s.claimTTL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimJobResponse{
		JobID:          job.ID,
		PipelineID:     job.PipelineID,
		PipelineSource: job.PipelineSource,
		Parameters:     job.Parameters,
	})
}

type updateStatusRequest struct {
	Status model.JobStatus `json:"status"`
}

// handleUpdateJobStatus implements PUT /api/jobs/{job_id}/status (spec
// §4.5 Status update): Claimed -> Running and {Claimed, Running} ->
// Cancelled are the only legal transitions here; anything else is
// Conflict.
func (s *Server) handleUpdateJobStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.UpdateJobStatus(r.Context(), r.PathValue("job_id"), req.Status); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type completeJobRequest struct {
	Result jobResultDTO `json:"result"`
}

// handleCompleteJob implements POST /api/jobs/{job_id}/complete (spec §4.5
// Complete): terminal transition to Succeeded or Failed. Idempotent on an
// exact repeat; a conflicting outcome yields Conflict with the first write
// winning.
func (s *Server) handleCompleteJob(w http.ResponseWriter, r *http.Request) {
	var req completeJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result := model.JobResult{Outcome: req.Result.Outcome, Message: req.Result.Message, Outputs: req.Result.Outputs}
	if err := s.store.CompleteJob(r.Context(), r.PathValue("job_id"), result); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type appendLogsRequest struct {
	Entries []logEntryDTO `json:"entries"`
}

// handleAppendLogs implements POST /api/jobs/{job_id}/logs (spec §4.5 Log
// ingest): the batch is appended atomically, with monotonic per-job
// sequence assignment.
func (s *Server) handleAppendLogs(w http.ResponseWriter, r *http.Request) {
	var req appendLogsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	jobID := r.PathValue("job_id")

	entries := make([]model.LogEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, logEntryFromDTO(jobID, e))
	}
	if err := s.store.AppendLogs(r.Context(), jobID, entries); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// handleListLogs implements GET /api/jobs/{job_id}/logs (spec §4.5 Log
// read), with an optional ?since_sequence= for incremental reads.
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	since := int64(0)
	if v := r.URL.Query().Get("since_sequence"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, &rierr.ValidationError{Path: "since_sequence", Reason: "must be an integer"})
			return
		}
		since = n
	}

	entries, err := s.store.ListLogs(r.Context(), jobID, since)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]logEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, logEntryToDTO(e))
	}
	writeJSON(w, http.StatusOK, out)
}
