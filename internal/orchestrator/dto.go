// Package orchestrator implements the HTTP contract of spec §4.5/§6: the
// stateless service that sits in front of internal/store and exposes the
// CLI-facing pipeline API and the runner-facing job API. Routing follows
// the teacher's health-check server idiom (internal/app/healthcheck_webserver.go
// in burstgridgo), generalized from one route to Go 1.22's pattern-based
// http.ServeMux across the full surface of spec §6.
package orchestrator

import (
	"time"

	"github.com/SolracHQ/rivet/internal/model"
)

// Wire DTOs are kept separate from internal/model so the JSON contract of
// spec §6 can evolve independently of the Go-native model types (the same
// split the teacher draws between its format-agnostic config.Model and the
// HCL/JSON it is decoded from).

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

func tagsFromDTO(dto []tagDTO) model.TagSet {
	out := make(model.TagSet, 0, len(dto))
	for _, t := range dto {
		out = append(out, model.Tag{Key: t.Key, Value: t.Value})
	}
	return out
}

type pipelineDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

func pipelineToDTO(p *model.Pipeline) pipelineDTO {
	return pipelineDTO{ID: p.ID, Name: p.Name, Description: p.Description, Source: p.Source, CreatedAt: p.CreatedAt}
}

// pipelineSummaryDTO backs GET /api/pipeline/list: the source is omitted to
// keep listings light, matching the distinction spec §6 draws between
// `[PipelineDto]` and the full `Pipeline` returned by GET /api/pipeline/{id}.
type pipelineSummaryDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func pipelineSummaryToDTO(p *model.Pipeline) pipelineSummaryDTO {
	return pipelineSummaryDTO{ID: p.ID, Name: p.Name, Description: p.Description, CreatedAt: p.CreatedAt}
}

type jobResultDTO struct {
	Outcome model.JobOutcome  `json:"outcome"`
	Message string            `json:"message,omitempty"`
	Outputs map[string]string `json:"outputs"`
}

func jobResultToDTO(r *model.JobResult) *jobResultDTO {
	if r == nil {
		return nil
	}
	return &jobResultDTO{Outcome: r.Outcome, Message: r.Message, Outputs: r.Outputs}
}

type jobDTO struct {
	ID             string        `json:"id"`
	PipelineID     string        `json:"pipeline_id"`
	PipelineSource string        `json:"pipeline_source,omitempty"`
	Parameters     map[string]string `json:"parameters"`
	RunnerTags     []tagDTO      `json:"runner_tags"`
	Status         model.JobStatus `json:"status"`
	ClaimedBy      string        `json:"claimed_by,omitempty"`
	ClaimDeadline  *time.Time    `json:"claim_deadline,omitempty"`
	Result         *jobResultDTO `json:"result,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// jobToDTO renders the full Job, including pipeline_source. Runner-facing
// endpoints (GET /api/jobs/{job_id}) use this; the pipeline-scoped listing
// uses jobToSummaryDTO instead (spec §6 distinguishes `Job` from `JobDto`).
func jobToDTO(j *model.Job) jobDTO {
	return jobDTO{
		ID:             j.ID,
		PipelineID:     j.PipelineID,
		PipelineSource: j.PipelineSource,
		Parameters:     j.Parameters,
		RunnerTags:     tagsToDTO(j.RunnerTags),
		Status:         j.Status,
		ClaimedBy:      j.ClaimedBy,
		ClaimDeadline:  j.ClaimDeadline,
		Result:         jobResultToDTO(j.Result),
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}
}

func jobToSummaryDTO(j *model.Job) jobDTO {
	dto := jobToDTO(j)
	dto.PipelineSource = ""
	return dto
}

type logEntryDTO struct {
	JobID     string          `json:"job_id"`
	Level     model.LogLevel  `json:"level"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Sequence  int64           `json:"sequence"`
	BatchID   string          `json:"batch_id,omitempty"`
}

func logEntryToDTO(e model.LogEntry) logEntryDTO {
	return logEntryDTO{JobID: e.JobID, Level: e.Level, Message: e.Message, Timestamp: e.Timestamp, Sequence: e.Sequence, BatchID: e.BatchID}
}

func logEntryFromDTO(jobID string, d logEntryDTO) model.LogEntry {
	return model.LogEntry{JobID: jobID, Level: d.Level, Message: d.Message, Timestamp: d.Timestamp, BatchID: d.BatchID}
}
