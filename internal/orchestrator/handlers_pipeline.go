package orchestrator

import (
	"errors"
	"net/http"

	"github.com/SolracHQ/rivet/internal/model"
	"github.com/SolracHQ/rivet/internal/rierr"
	"github.com/SolracHQ/rivet/internal/scriptlang"
)

// extractDeclared compiles and runs source through the metadata sandbox
// (spec §4.1), the validation step shared by pipeline creation and launch
// (a pipeline's declared shape is never persisted as opaque handles, so it
// is recomputed from the denormalized source whenever needed). A script
// error raised while evaluating the source is reported as a ValidationError
// on "source".
func extractDeclared(source string) (*model.DeclaredPipeline, error) {
	compiled, err := scriptlang.CompileSource("pipeline", source)
	if err != nil {
		return nil, &rierr.ValidationError{Path: "source", Reason: err.Error()}
	}
	declared, err := scriptlang.ExtractDeclaredPipeline(compiled)
	if err != nil {
		var verr *rierr.ValidationError
		if errors.As(err, &verr) {
			return nil, err
		}
		return nil, &rierr.ValidationError{Path: "source", Reason: err.Error()}
	}
	return declared, nil
}

type createPipelineRequest struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// handleCreatePipeline implements POST /api/pipeline/create (spec §4.5
// Create pipeline): run C1 in metadata mode, and on success store the
// pipeline. Name collisions fail with Conflict.
func (s *Server) handleCreatePipeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createPipelineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, &rierr.ValidationError{Path: "name", Reason: "required"})
		return
	}

	declared, err := extractDeclared(req.Source)
	if err != nil {
		writeError(w, err)
		return
	}

	p, err := s.store.CreatePipeline(ctx, req.Name, declared.Description, req.Source)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pipelineToDTO(p))
}

// handleListPipelines implements GET /api/pipeline/list.
func (s *Server) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	pipelines, err := s.store.ListPipelines(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]pipelineSummaryDTO, 0, len(pipelines))
	for _, p := range pipelines {
		out = append(out, pipelineSummaryToDTO(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetPipeline implements GET /api/pipeline/{id}.
func (s *Server) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetPipeline(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pipelineToDTO(p))
}

// handleDeletePipeline implements DELETE /api/pipeline/{id}.
func (s *Server) handleDeletePipeline(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePipeline(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type launchJobRequest struct {
	PipelineID string            `json:"pipeline_id"`
	Name       string            `json:"name"`
	Parameters map[string]string `json:"parameters"`
}

// handleLaunchJob implements POST /api/pipeline/launch (spec §4.5 Launch
// job): resolve the pipeline by id or name, type-validate parameters
// against its declared inputs, and create the job in Pending state with
// the pipeline source denormalized.
func (s *Server) handleLaunchJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req launchJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var (
		pipeline *model.Pipeline
		err      error
	)
	if req.PipelineID != "" {
		pipeline, err = s.store.GetPipeline(ctx, req.PipelineID)
	} else if req.Name != "" {
		pipeline, err = s.store.GetPipelineByName(ctx, req.Name)
	} else {
		err = &rierr.ValidationError{Path: "pipeline_id", Reason: "pipeline_id or name is required"}
	}
	if err != nil {
		writeError(w, err)
		return
	}

	declared, err := extractDeclared(pipeline.Source)
	if err != nil {
		writeError(w, err)
		return
	}

	resolved, err := model.ValidateParameters(*declared, req.Parameters)
	if err != nil {
		writeError(w, err)
		return
	}

	job, err := s.store.CreateJob(ctx, pipeline.ID, pipeline.Source, resolved, declared.RunnerTags)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobToDTO(job))
}
