package runner

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/SolracHQ/rivet/internal/bridge/logsink"
	"github.com/SolracHQ/rivet/internal/ctxlog"
	"github.com/SolracHQ/rivet/internal/model"
	"github.com/SolracHQ/rivet/internal/runnerclient"
)

// logPump is the dedicated task of spec §4.4 "Log pump": it owns the
// execution task's log buffer, flushing to the orchestrator every
// LOG_SEND_INTERVAL or when the buffer reaches LOG_BATCH_MAX. On network
// failure the batch is retained and retried while the job runs; the final
// flush at exit makes three attempts and, if all fail, logs an error with
// the number of entries it discards. The pump is always stopped when
// the execution task exits (defer close(done) + wait).
type logPump struct {
	client   *runnerclient.Client
	jobID    string
	interval time.Duration
	batchMax int

	entries chan model.LogEntry
	nudge   chan struct{}
}

func newLogPump(client *runnerclient.Client, jobID string, interval time.Duration, batchMax int) *logPump {
	return &logPump{
		client:   client,
		jobID:    jobID,
		interval: interval,
		batchMax: batchMax,
		entries:  make(chan model.LogEntry, 4*batchMax),
		nudge:    make(chan struct{}, 1),
	}
}

// Sink returns a logsink.Sink that feeds this pump; it is installed as the
// backing capability for the "log" bridge module (spec §4.3).
func (p *logPump) Sink() logsink.Sink {
	return logsink.Func(func(level model.LogLevel, msg string, ts time.Time) {
		p.entries <- model.LogEntry{JobID: p.jobID, Level: level, Message: msg, Timestamp: ts}
	})
}

// nudgeFlush requests an opportunistic flush at a stage boundary (spec
// §4.4 step 4: "Drain any pending log batch opportunistically at stage
// boundaries"), without blocking if the pump is already busy.
func (p *logPump) nudgeFlush() {
	select {
	case p.nudge <- struct{}{}:
	default:
	}
}

// run drains entries until ctx is cancelled, then performs one final
// synchronous flush (spec §4.4: "drain the log buffer synchronously (final
// flush)") before returning.
func (p *logPump) run(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var buf []model.LogEntry
	flush := func() {
		if len(buf) == 0 {
			return
		}
		assignBatchID(buf)
		if err := p.client.AppendLogs(ctx, p.jobID, buf); err != nil {
			logger.Warn("log batch send failed, retaining for retry", "job_id", p.jobID, "error", err, "count", len(buf))
			return
		}
		buf = buf[:0]
	}

	for {
		select {
		case e := <-p.entries:
			buf = append(buf, e)
			if len(buf) >= p.batchMax {
				flush()
			}
		case <-p.nudge:
			flush()
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			p.drainFinal(&buf)
			p.finalFlush(buf)
			return
		}
	}
}

// assignBatchID gives every entry in buf still missing a BatchID the same
// freshly generated id, leaving entries that already carry one (because a
// prior send attempt for them failed) untouched. Retrying a flush therefore
// resends the same id for the same content — the idempotent-retry contract
// spec §4.5's log ingest dedup relies on — while new entries appended to
// buf in the meantime get their own id on the next flush.
func assignBatchID(buf []model.LogEntry) {
	var id string
	for i := range buf {
		if buf[i].BatchID != "" {
			continue
		}
		if id == "" {
			id = uuid.NewString()
		}
		buf[i].BatchID = id
	}
}

// drainFinal collects any entries still sitting in the channel after
// cancellation, so a burst of final-stage logs isn't lost to a race
// between the last Write and context cancellation.
func (p *logPump) drainFinal(buf *[]model.LogEntry) {
	for {
		select {
		case e := <-p.entries:
			*buf = append(*buf, e)
		default:
			return
		}
	}
}

// finalFlush retries the final batch against a background context (ctx is
// already cancelled) with bounded attempts, since a job's last logs
// matter most and there is no next tick to retry on.
func (p *logPump) finalFlush(buf []model.LogEntry) {
	if len(buf) == 0 {
		return
	}
	assignBatchID(buf)
	bg := context.Background()
	for attempt := 0; attempt < 3; attempt++ {
		if err := p.client.AppendLogs(bg, p.jobID, buf); err == nil {
			return
		}
		time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
	}
	ctxlog.FromContext(bg).Error("final log batch not delivered after 3 attempts; entries discarded", "job_id", p.jobID, "count", len(buf))
}
