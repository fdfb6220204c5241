// Package runner implements the Runner Worker Loop of spec §4.4: a
// stateless worker that registers with the orchestrator, heartbeats,
// polls for scheduled jobs, claims and executes them with bounded
// parallelism, and reports results and buffered logs back.
//
// The poll/claim/execute shape follows the teacher's dag.Executor.Run /
// worker pair (internal/dag/executor.go in burstgridgo): a loop feeds
// ready work into goroutines bounded by a fixed concurrency limit, here a
// counting semaphore (golang.org/x/sync/semaphore) instead of a fixed
// worker-goroutine count, since spec §5 calls for "a permit acquired
// before polling and released only after the execution task ... has fully
// exited" rather than a fixed pool size.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/SolracHQ/rivet/internal/containerstack/containerdriver"
	"github.com/SolracHQ/rivet/internal/ctxlog"
	"github.com/SolracHQ/rivet/internal/model"
	"github.com/SolracHQ/rivet/internal/rierr"
	"github.com/SolracHQ/rivet/internal/rivetconfig"
	"github.com/SolracHQ/rivet/internal/runnerclient"
)

// pollBackoff is how long the poll loop waits after a tick that found no
// claimable job, or lost a claim race, before trying again.
const pollBackoff = 1 * time.Second

// Runner is one worker process (spec §4.4). It holds no durable state of
// its own: everything about a job lives on the orchestrator, so a
// restarted Runner simply re-registers and starts polling again (spec §9
// "Stateless runner").
type Runner struct {
	id     string
	tags   model.TagSet
	cfg    rivetconfig.RunnerConfig
	client *runnerclient.Client
	engine containerdriver.Engine
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
}

// New builds a Runner with the given identity, advertised capability
// tags, configuration, orchestrator client, and container engine.
func New(id string, tags model.TagSet, cfg rivetconfig.RunnerConfig, client *runnerclient.Client, engine containerdriver.Engine) *Runner {
	return &Runner{
		id:     id,
		tags:   tags,
		cfg:    cfg,
		client: client,
		engine: engine,
		sem:    semaphore.NewWeighted(int64(cfg.MaxParallelJobs)),
	}
}

// Run registers the runner, starts the heartbeat loop, and drives the
// poll/claim/execute loop until ctx is cancelled. It returns once every
// in-flight execution task has exited, so the caller can shut down the
// process cleanly behind it.
func (r *Runner) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if err := r.client.Register(ctx, r.id, r.tags); err != nil {
		return fmt.Errorf("runner: register: %w", err)
	}
	logger.Info("runner registered", "runner_id", r.id, "tags", r.tags)

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		r.heartbeatLoop(ctx)
	}()

	r.pollLoop(ctx)

	r.wg.Wait()
	<-heartbeatDone
	return ctx.Err()
}

// pollLoop is the main poll loop of spec §4.4: acquire a permit, query
// scheduled jobs, attempt to claim the first; on failure release the
// permit and back off, on success spawn an execution task holding the
// permit. The parallelism semaphore bounds concurrent jobs at
// MAX_PARALLEL_JOBS "for any interleaving of polls, claims, and task
// exits" (spec §8), since a permit is never released until the execution
// task (and its log pump) have fully exited.
func (r *Runner) pollLoop(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	for {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return // ctx cancelled while waiting for a free slot
		}

		claimed, ok := r.pollAndClaim(ctx, logger)
		if !ok {
			r.sem.Release(1)
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollBackoff):
			}
			continue
		}

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer r.sem.Release(1)
			r.executeJob(ctx, claimed)
		}()
	}
}

// pollAndClaim queries the scheduled-jobs list (already tag-filtered by
// the orchestrator, spec §4.5) and attempts to claim the first entry. A
// 409 Conflict — another runner won the race (spec §8 scenario 6) — is
// not logged as a failure; the caller simply moves on and polls again.
func (r *Runner) pollAndClaim(ctx context.Context, logger interface {
	Warn(string, ...any)
}) (*runnerclient.ClaimedJob, bool) {
	ids, err := r.client.ScheduledJobs(ctx, r.id)
	if err != nil {
		logger.Warn("failed to poll scheduled jobs", "error", err)
		return nil, false
	}
	if len(ids) == 0 {
		return nil, false
	}

	claimed, err := r.client.Claim(ctx, ids[0], r.id)
	if err != nil {
		var conflict *rierr.Conflict
		if !errors.As(err, &conflict) {
			logger.Warn("claim attempt failed", "job_id", ids[0], "error", err)
		}
		return nil, false
	}
	return claimed, true
}

// heartbeatLoop posts a heartbeat every HEARTBEAT_INTERVAL. On transient
// network error it retries with exponential backoff up to
// HEARTBEAT_MAX_BACKOFF; the poll loop keeps running regardless — the
// orchestrator may mark this runner Dead, but will still honor explicit
// claims until the claim deadline expires (spec §4.4).
func (r *Runner) heartbeatLoop(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	ticker := time.NewTicker(r.cfg.HeartbeatInterval)
	defer ticker.Stop()

	backoff := r.cfg.HeartbeatInterval
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.client.Heartbeat(ctx, r.id); err != nil {
				logger.Warn("heartbeat failed, backing off", "error", err, "backoff", backoff)
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > r.cfg.HeartbeatMaxBackoff {
					backoff = r.cfg.HeartbeatMaxBackoff
				}
				continue
			}
			backoff = r.cfg.HeartbeatInterval
		}
	}
}
