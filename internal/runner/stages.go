package runner

import (
	"context"
	"log/slog"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/SolracHQ/rivet/internal/containerstack"
	"github.com/SolracHQ/rivet/internal/model"
	"github.com/SolracHQ/rivet/internal/rierr"
	"github.com/SolracHQ/rivet/internal/scriptlang"
)

// cancelledError is the sentinel runStages returns when it observes the
// job has been cancelled externally at a stage boundary (spec §5
// Cancellation). It is never reported to the orchestrator as a StageError
// — the job is already terminal by the time this surfaces.
type cancelledError struct{}

func (*cancelledError) Error() string { return "job cancelled" }

// runStages iterates the declared stages in order (spec §4.4 steps 1-4):
// evaluate each stage's condition, push its declared container only when
// the condition is true, invoke the body, and check for external
// cancellation at every stage boundary.
func (r *Runner) runStages(ctx context.Context, logger *slog.Logger, L *lua.LState, stack *containerstack.Stack, pump *logPump, jobID string, stages []model.StageDecl) error {
	for _, stage := range stages {
		if r.observeCancellation(ctx, logger, jobID) {
			return &cancelledError{}
		}

		run, err := scriptlang.InvokeCondition(L, stage.ConditionHandle)
		if err != nil {
			return &rierr.StageError{StageName: stage.Name, Message: messageOf(err)}
		}
		if !run {
			pump.Sink().Write(model.LogDebug, "stage \""+stage.Name+"\" skipped: condition evaluated false", time.Now())
			pump.nudgeFlush()
			continue
		}

		if err := r.runOneStage(ctx, L, stack, stage); err != nil {
			return err
		}
		pump.nudgeFlush()
	}
	return nil
}

// runOneStage invokes one stage's body, pushing its declared container
// (if any) for the duration of the call — equivalent to wrapping the body
// in container.with(image, body) (spec §4.4 step 2).
func (r *Runner) runOneStage(ctx context.Context, L *lua.LState, stack *containerstack.Stack, stage model.StageDecl) error {
	invoke := func(context.Context) error {
		return scriptlang.InvokeBody(L, stage.BodyHandle)
	}

	var err error
	if stage.Container != "" {
		err = stack.WithContainer(ctx, stage.Container, invoke)
	} else {
		err = invoke(ctx)
	}
	if err != nil {
		return &rierr.StageError{StageName: stage.Name, Message: messageOf(err)}
	}
	return nil
}

// observeCancellation polls the orchestrator for the job's current status
// at a stage boundary (spec §5: "the runner observes this at the next
// stage boundary ... and aborts the remaining stages"). A transient
// network error here is logged and treated as "not cancelled" — the
// runner keeps making progress rather than abandoning a live job over one
// failed status check.
func (r *Runner) observeCancellation(ctx context.Context, logger *slog.Logger, jobID string) bool {
	status, err := r.client.JobStatus(ctx, jobID)
	if err != nil {
		logger.Warn("failed to check job status at stage boundary", "error", err)
		return false
	}
	return status == model.JobCancelled
}

// messageOf renders an error in the form suitable for StageError.Message
// or JobResult.Message (spec §4.1: "a short backtrace, if available, is
// captured as the error message"), preferring a script-level message over
// the wrapping Go error text.
func messageOf(err error) string {
	if m, ok := err.(interface{ Message() string }); ok {
		return m.Message()
	}
	if se, ok := err.(*rierr.StageError); ok {
		return se.Message
	}
	return err.Error()
}
