package model

import "time"

// JobStatus is the job state machine of spec §3: Pending -> Claimed ->
// Running -> {Succeeded, Failed, Cancelled}, with Cancelled also reachable
// from Pending or Claimed.
type JobStatus string

const (
	JobPending   JobStatus = "Pending"
	JobClaimed   JobStatus = "Claimed"
	JobRunning   JobStatus = "Running"
	JobSucceeded JobStatus = "Succeeded"
	JobFailed    JobStatus = "Failed"
	JobCancelled JobStatus = "Cancelled"
)

// Terminal reports whether a status has no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// legalTransitions enumerates every allowed status transition, per spec
// §3/§4.5.
var legalTransitions = map[JobStatus][]JobStatus{
	JobPending: {JobClaimed, JobCancelled},
	JobClaimed: {JobRunning, JobCancelled, JobFailed, JobSucceeded},
	JobRunning: {JobCancelled, JobFailed, JobSucceeded},
}

// CanTransition reports whether moving from "from" to "to" is legal.
func CanTransition(from, to JobStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// JobOutcome is the terminal outcome recorded in a JobResult.
type JobOutcome string

const (
	OutcomeOK    JobOutcome = "ok"
	OutcomeError JobOutcome = "error"
)

// JobResult is the terminal payload a runner reports via /complete.
type JobResult struct {
	Outcome JobOutcome
	Message string
	Outputs map[string]string
}

// Job is one execution attempt of a pipeline with concrete parameters.
type Job struct {
	ID              string
	PipelineID      string
	PipelineSource  string
	Parameters      map[string]string
	RunnerTags      TagSet
	Status          JobStatus
	ClaimedBy       string // runner ID, empty if not claimed
	ClaimDeadline   *time.Time
	Result          *JobResult
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
