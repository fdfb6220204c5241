package store

import (
	"context"
	"time"

	"github.com/SolracHQ/rivet/internal/ctxlog"
)

// RunStaleClaimReaper is the periodic control loop of spec §4.5 "Stale
// claim reaper": every tick it re-dispatches jobs whose claim has expired
// and whose owning runner is Dead. It blocks until ctx is cancelled,
// mirroring the teacher's fire-and-forget background-task pattern
// (app.startHealthcheckServer), except the orchestrator's Serve method
// awaits this one so it can shut down cleanly.
func (s *Store) RunStaleClaimReaper(ctx context.Context, interval, heartbeatTTL time.Duration) {
	logger := ctxlog.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("stale claim reaper stopping")
			return
		case <-ticker.C:
			n, err := s.ReapStaleClaims(ctx, heartbeatTTL)
			if err != nil {
				logger.Error("stale claim reaper failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("reaped stale job claims", "count", n)
			}
		}
	}
}
