package server

import (
	"net/http"
	"strings"

	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/pipeline"
)

func (s *Server) registerJobRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /jobs", s.handleCreateJob)
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.HandleFunc("PATCH /jobs/{id}/status", s.handleUpdateJobStatus)
	mux.HandleFunc("GET /jobs/{id}/stages", s.handleListStages)
	mux.HandleFunc("POST /jobs/{id}/stages", s.handleInsertStage)
	mux.HandleFunc("PUT /stages/{id}/position", s.handleReorderStage)
	mux.HandleFunc("DELETE /stages/{id}", s.handleDeleteStage)
}

// ---------------------------------------------------------------------
// Job Handlers
// ---------------------------------------------------------------------

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	var req pipeline.CreateJobRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	job, err := s.pipeline.CreateJob(r.Context(), actor, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := db.JobFilter{
		Status:     db.JobStatus(strings.ToLower(q.Get("status"))),
		Department: q.Get("department"),
		Location:   q.Get("location"),
	}

	jobs, err := s.pipeline.ListJobs(r.Context(), actor, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []db.Job{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	jobID, ok := s.pathID(w, r, "id", "job")
	if !ok {
		return
	}

	job, err := s.pipeline.GetJob(r.Context(), actor, jobID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

type updateJobStatusRequest struct {
	Status db.JobStatus `json:"status"`
}

func (s *Server) handleUpdateJobStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	jobID, ok := s.pathID(w, r, "id", "job")
	if !ok {
		return
	}
	var req updateJobStatusRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	job, err := s.pipeline.UpdateJobStatus(r.Context(), actor, jobID, req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// ---------------------------------------------------------------------
// Stage Handlers
// ---------------------------------------------------------------------

func (s *Server) handleListStages(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	jobID, ok := s.pathID(w, r, "id", "job")
	if !ok {
		return
	}

	stages, err := s.pipeline.ListStages(r.Context(), actor, jobID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.stagesResponse(w, http.StatusOK, stages)
}

func (s *Server) handleInsertStage(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	jobID, ok := s.pathID(w, r, "id", "job")
	if !ok {
		return
	}
	var req pipeline.InsertStageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	stage, err := s.pipeline.InsertStage(r.Context(), actor, jobID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, stage)
}

type reorderStageRequest struct {
	Position *int `json:"position"`
}

func (s *Server) handleReorderStage(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	stageID, ok := s.pathID(w, r, "id", "stage")
	if !ok {
		return
	}
	var req reorderStageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Position == nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "is required", "field": "position"})
		return
	}

	stages, err := s.pipeline.ReorderStage(r.Context(), actor, stageID, *req.Position)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.stagesResponse(w, http.StatusOK, stages)
}

func (s *Server) handleDeleteStage(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	stageID, ok := s.pathID(w, r, "id", "stage")
	if !ok {
		return
	}

	stages, err := s.pipeline.DeleteStage(r.Context(), actor, stageID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.stagesResponse(w, http.StatusOK, stages)
}

func (s *Server) stagesResponse(w http.ResponseWriter, status int, stages []db.PipelineStage) {
	if stages == nil {
		stages = []db.PipelineStage{}
	}
	s.jsonResponse(w, status, map[string]any{
		"stages": stages,
		"count":  len(stages),
	})
}
