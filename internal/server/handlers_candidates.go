package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/talent-pipeline/internal/candidates"
	"github.com/jonathan/talent-pipeline/internal/db"
)

func (s *Server) registerCandidateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /candidates", s.handleCreateCandidate)
	mux.HandleFunc("GET /candidates/{id}", s.handleGetCandidate)
	mux.HandleFunc("PUT /candidates/{id}/score", s.handleUpdateScore)
	mux.HandleFunc("GET /candidates/{id}/activities", s.handleListActivities)
	mux.HandleFunc("POST /jobs/{id}/candidates", s.handleAddToJob)
	mux.HandleFunc("POST /job-candidates/bulk-move", s.handleBulkMove)
	mux.HandleFunc("POST /job-candidates/{id}/move", s.handleMoveCandidate)
	mux.HandleFunc("GET /job-candidates/{id}/history", s.handleStageHistory)
	mux.HandleFunc("POST /job-candidates/{id}/interviews", s.handleScheduleInterview)
	mux.HandleFunc("POST /interviews/{id}/feedback", s.handleSubmitFeedback)
}

// ---------------------------------------------------------------------
// Candidate Handlers
// ---------------------------------------------------------------------

func (s *Server) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	var req candidates.CreateCandidateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cand, err := s.candidates.CreateCandidate(r.Context(), actor, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, cand)
}

func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	candidateID, ok := s.pathID(w, r, "id", "candidate")
	if !ok {
		return
	}

	cand, err := s.candidates.GetCandidate(r.Context(), actor, candidateID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, cand)
}

func (s *Server) handleUpdateScore(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	candidateID, ok := s.pathID(w, r, "id", "candidate")
	if !ok {
		return
	}
	var req candidates.ScoreUpdate
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cand, err := s.candidates.UpdateScore(r.Context(), actor, candidateID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, cand)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	candidateID, ok := s.pathID(w, r, "id", "candidate")
	if !ok {
		return
	}

	activities, err := s.candidates.Activities(r.Context(), actor, candidateID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if activities == nil {
		activities = []db.CandidateActivity{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"activities": activities,
		"count":      len(activities),
	})
}

// ---------------------------------------------------------------------
// Application Handlers
// ---------------------------------------------------------------------

type addToJobRequest struct {
	CandidateID uuid.UUID `json:"candidate_id"`
}

func (s *Server) handleAddToJob(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	jobID, ok := s.pathID(w, r, "id", "job")
	if !ok {
		return
	}
	var req addToJobRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.CandidateID == uuid.Nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]string{"error": "is required", "field": "candidate_id"})
		return
	}

	jc, err := s.candidates.AddToJob(r.Context(), actor, jobID, req.CandidateID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, jc)
}

func (s *Server) handleMoveCandidate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	jcID, ok := s.pathID(w, r, "id", "job candidate")
	if !ok {
		return
	}
	var req candidates.MoveRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	result, err := s.candidates.MoveCandidate(r.Context(), actor, jcID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleBulkMove(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	var req candidates.BulkMoveRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	result, err := s.candidates.BulkMove(r.Context(), actor, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleStageHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	jcID, ok := s.pathID(w, r, "id", "job candidate")
	if !ok {
		return
	}

	history, err := s.candidates.History(r.Context(), actor, jcID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if history == nil {
		history = []db.StageHistory{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"history": history,
		"count":   len(history),
	})
}

// ---------------------------------------------------------------------
// Interview Handlers
// ---------------------------------------------------------------------

func (s *Server) handleScheduleInterview(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	jcID, ok := s.pathID(w, r, "id", "job candidate")
	if !ok {
		return
	}
	var req candidates.ScheduleInterviewRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	iv, err := s.candidates.ScheduleInterview(r.Context(), actor, jcID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, iv)
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	interviewID, ok := s.pathID(w, r, "id", "interview")
	if !ok {
		return
	}
	var req candidates.FeedbackRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	fb, err := s.candidates.SubmitFeedback(r.Context(), actor, interviewID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, fb)
}
