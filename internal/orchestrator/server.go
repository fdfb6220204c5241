package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SolracHQ/rivet/internal/ctxlog"
	"github.com/SolracHQ/rivet/internal/rierr"
	"github.com/SolracHQ/rivet/internal/store"
)

// Server is the stateless HTTP service of spec §4.5/§6. It holds no state
// of its own beyond the store handle and a few TTLs; every transition is
// serialized by the store.
type Server struct {
	store        *store.Store
	heartbeatTTL time.Duration
	claimTTL     time.Duration
	mux          *http.ServeMux
}

// New builds a Server and wires every route in spec §6 onto a Go 1.22+
// pattern-based http.ServeMux, the same idiom the teacher uses for its
// single-route health-check server (internal/app/healthcheck_webserver.go),
// generalized to the full API surface here.
func New(st *store.Store, heartbeatTTL, claimTTL time.Duration) *Server {
	s := &Server{store: st, heartbeatTTL: heartbeatTTL, claimTTL: claimTTL, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("POST /api/runners/register", s.handleRegisterRunner)
	s.mux.HandleFunc("POST /api/runners/{runner_id}/heartbeat", s.handleHeartbeat)

	s.mux.HandleFunc("GET /api/jobs/scheduled", s.handleScheduledJobs)
	s.mux.HandleFunc("POST /api/jobs/{job_id}/claim", s.handleClaimJob)
	s.mux.HandleFunc("PUT /api/jobs/{job_id}/status", s.handleUpdateJobStatus)
	s.mux.HandleFunc("POST /api/jobs/{job_id}/complete", s.handleCompleteJob)
	s.mux.HandleFunc("POST /api/jobs/{job_id}/logs", s.handleAppendLogs)
	// GET /api/jobs/{job_id}/logs and GET /api/jobs/pipeline/{pipeline_id}
	// both match /api/jobs/pipeline/logs, which ServeMux rejects as
	// ambiguous, so one pattern serves both routes.
	s.mux.HandleFunc("GET /api/jobs/{first}/{second}", func(w http.ResponseWriter, r *http.Request) {
		first, second := r.PathValue("first"), r.PathValue("second")
		switch {
		case first == "pipeline":
			r.SetPathValue("pipeline_id", second)
			s.handleListJobsByPipeline(w, r)
		case second == "logs":
			r.SetPathValue("job_id", first)
			s.handleListLogs(w, r)
		default:
			http.NotFound(w, r)
		}
	})
	s.mux.HandleFunc("GET /api/jobs/{job_id}", s.handleGetJob)

	s.mux.HandleFunc("POST /api/pipeline/create", s.handleCreatePipeline)
	s.mux.HandleFunc("POST /api/pipeline/launch", s.handleLaunchJob)
	s.mux.HandleFunc("GET /api/pipeline/list", s.handleListPipelines)
	s.mux.HandleFunc("GET /api/pipeline/{id}", s.handleGetPipeline)
	s.mux.HandleFunc("DELETE /api/pipeline/{id}", s.handleDeletePipeline)

	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// Serve runs the HTTP server and the stale-claim reaper together, returning
// when either ctx is cancelled or the server fails to start. Both are
// stopped before Serve returns.
func (s *Server) Serve(ctx context.Context, addr string, reaperInterval time.Duration) error {
	logger := ctxlog.FromContext(ctx)

	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	reaperDone := make(chan struct{})
	go func() {
		defer close(reaperDone)
		s.store.RunStaleClaimReaper(reaperCtx, reaperInterval, s.heartbeatTTL)
	}()

	httpServer := &http.Server{Addr: addr, Handler: s}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("orchestrator listening", "addr", addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		stopReaper()
		<-reaperDone
		return ctx.Err()
	case err := <-serveErr:
		stopReaper()
		<-reaperDone
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps an abstract rierr taxonomy error (spec §7) onto the HTTP
// status codes spec §7 implies, via the single rierr.StatusCode(err) switch.
func writeError(w http.ResponseWriter, err error) {
	status := rierr.StatusCode(err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeJSON reads and decodes the request body, returning a ValidationError
// on malformed JSON so handlers have a single error-reporting path.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &rierr.ValidationError{Path: "body", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}
