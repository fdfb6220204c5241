package orchestrator

import (
	"net/http"

	"github.com/SolracHQ/rivet/internal/rierr"
)

type registerRunnerRequest struct {
	RunnerID     string   `json:"runner_id"`
	Capabilities []tagDTO `json:"capabilities"`
}

// handleRegisterRunner implements POST /api/runners/register (spec §4.5,
// §6).
func (s *Server) handleRegisterRunner(w http.ResponseWriter, r *http.Request) {
	var req registerRunnerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RunnerID == "" {
		writeError(w, &rierr.ValidationError{Path: "runner_id", Reason: "required"})
		return
	}

	if _, err := s.store.RegisterRunner(r.Context(), req.RunnerID, tagsFromDTO(req.Capabilities)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleHeartbeat implements POST /api/runners/{runner_id}/heartbeat (spec
// §4.5, §6).
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Heartbeat(r.Context(), r.PathValue("runner_id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
