package runner

import (
	"context"

	"github.com/SolracHQ/rivet/internal/bridge"
	"github.com/SolracHQ/rivet/internal/bridge/kvstore"
	"github.com/SolracHQ/rivet/internal/containerstack"
	"github.com/SolracHQ/rivet/internal/ctxlog"
	"github.com/SolracHQ/rivet/internal/model"
	"github.com/SolracHQ/rivet/internal/runnerclient"
	"github.com/SolracHQ/rivet/internal/scriptlang"
)

// executeJob is the execution task of spec §4.4: allocate a workspace,
// start the default container context, evaluate the pipeline in the
// execution sandbox, drive stages in order, and report the terminal
// result. It always destroys every remaining container context and cleans
// the workspace, even on error (spec §4.4, §5 Cancellation).
func (r *Runner) executeJob(ctx context.Context, claimed *runnerclient.ClaimedJob) {
	logger := ctxlog.FromContext(ctx).With("job_id", claimed.JobID)

	workspaceDir, err := newWorkspace(r.cfg.WorkspaceRoot, claimed.JobID)
	if err != nil {
		logger.Error("failed to allocate workspace", "error", err)
		r.reportFailure(ctx, claimed.JobID, err)
		return
	}
	defer func() {
		if err := removeWorkspace(workspaceDir); err != nil {
			logger.Warn("failed to clean up workspace", "dir", workspaceDir, "error", err)
		}
	}()

	stack, err := containerstack.New(ctx, r.engine, claimed.JobID, workspaceDir, workspaceMount, r.cfg.DefaultContainerImage)
	if err != nil {
		logger.Error("failed to start default container context", "error", err)
		r.reportFailure(ctx, claimed.JobID, err)
		return
	}
	defer stack.DestroyAll(context.Background())

	pump := newLogPump(r.client, claimed.JobID, r.cfg.LogSendInterval, r.cfg.LogBatchMax)
	pumpCtx, stopPump := context.WithCancel(context.Background())
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		pump.run(pumpCtx)
	}()
	defer func() {
		stopPump()
		<-pumpDone
	}()

	outputStore := kvstore.NewReadWrite()
	modules := []scriptlang.Module{
		&bridge.LogModule{Sink: pump.Sink()},
		&bridge.InputModule{Store: kvstore.NewReadOnly(claimed.Parameters)},
		&bridge.OutputModule{Store: outputStore},
		&bridge.EnvModule{Store: kvstore.NewReadOnly(r.envFor(claimed))},
		&bridge.ProcessModule{Stack: stack, Sink: pump.Sink()},
		&bridge.ContainerModule{Stack: stack},
	}

	compiled, err := scriptlang.CompileSource("pipeline", claimed.PipelineSource)
	if err != nil {
		r.reportFailure(ctx, claimed.JobID, err)
		return
	}
	declared, L, err := scriptlang.ExtractForExecution(compiled, modules...)
	if err != nil {
		r.reportFailure(ctx, claimed.JobID, err)
		return
	}
	defer L.Close()

	if err := r.client.UpdateStatus(ctx, claimed.JobID, model.JobRunning); err != nil {
		logger.Warn("failed to report Running status", "error", err)
	}

	err = r.runStages(ctx, logger, L, stack, pump, claimed.JobID, declared.Stages)
	pump.nudgeFlush()
	if err != nil {
		if _, cancelled := err.(*cancelledError); cancelled {
			logger.Info("job cancelled, skipping remaining stages")
			return
		}
		r.reportFailure(ctx, claimed.JobID, err)
		return
	}

	result := model.JobResult{Outcome: model.OutcomeOK, Outputs: outputStore.All()}
	if err := r.client.Complete(ctx, claimed.JobID, result); err != nil {
		logger.Error("failed to report job completion", "error", err)
	}
}

// reportFailure reports a terminal error=outcome JobResult, rendering err
// in the form JobResult.Message should carry (spec §4.1 StageError, §7).
func (r *Runner) reportFailure(ctx context.Context, jobID string, err error) {
	result := model.JobResult{Outcome: model.OutcomeError, Message: messageOf(err), Outputs: map[string]string{}}
	if completeErr := r.client.Complete(ctx, jobID, result); completeErr != nil {
		ctxlog.FromContext(ctx).Error("failed to report job failure", "job_id", jobID, "error", completeErr)
	}
}

// envFor builds the runner-supplied subset of environment exposed to a job
// under the "env" bridge module (spec §4.3: "NOT process-level env; the
// set is supplied by the runner from the job parameters and runner
// configuration"). It layers the job's own parameters under a couple of
// runner-identity fields a pipeline might reasonably want to read.
func (r *Runner) envFor(claimed *runnerclient.ClaimedJob) map[string]string {
	env := make(map[string]string, len(claimed.Parameters)+2)
	for k, v := range claimed.Parameters {
		env[k] = v
	}
	env["RIVET_RUNNER_ID"] = r.id
	env["RIVET_JOB_ID"] = claimed.JobID
	return env
}
