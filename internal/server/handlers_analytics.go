package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/talent-pipeline/internal/analytics"
	"github.com/jonathan/talent-pipeline/internal/apperr"
	"github.com/jonathan/talent-pipeline/internal/db"
)

func (s *Server) registerAnalyticsRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /analytics/funnel", analyticsHandler(s, s.analytics.Funnel))
	mux.HandleFunc("GET /analytics/time-in-stage", analyticsHandler(s, s.analytics.TimeInStage))
	mux.HandleFunc("GET /analytics/rejection-reasons", analyticsHandler(s, s.analytics.RejectionReasons))
	mux.HandleFunc("GET /analytics/sla", analyticsHandler(s, s.analytics.SLAStatus))
	mux.HandleFunc("GET /analytics/productivity", analyticsHandler(s, s.analytics.Productivity))
	mux.HandleFunc("GET /analytics/kpis", analyticsHandler(s, s.analytics.KPIs))
	mux.HandleFunc("GET /analytics/dashboard", analyticsHandler(s, s.analytics.Dashboard))
	mux.HandleFunc("GET /sla-configs", s.handleListSLAConfigs)
	mux.HandleFunc("PUT /sla-configs", s.handleSetSLAConfig)
}

// analyticsHandler adapts a report method into a handler that reads the
// shared filter query parameters.
func analyticsHandler[T any](s *Server, report func(context.Context, analytics.Query) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := s.principal(w, r)
		if !ok {
			return
		}
		filters, err := parseFilters(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		out, err := report(r.Context(), analytics.NewQuery(actor, filters))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.jsonResponse(w, http.StatusOK, out)
	}
}

// parseFilters reads from, to, department, location and job_id. Dates are
// RFC 3339 timestamps or plain days; a plain "to" day covers the whole day.
func parseFilters(r *http.Request) (analytics.Filters, error) {
	q := r.URL.Query()
	f := analytics.Filters{
		Department: strings.TrimSpace(q.Get("department")),
		Location:   strings.TrimSpace(q.Get("location")),
	}

	if v := q.Get("from"); v != "" {
		t, _, err := parseDate(v)
		if err != nil {
			return f, apperr.Validation("from", "must be an RFC 3339 timestamp or YYYY-MM-DD")
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, dayOnly, err := parseDate(v)
		if err != nil {
			return f, apperr.Validation("to", "must be an RFC 3339 timestamp or YYYY-MM-DD")
		}
		if dayOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = &t
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, apperr.Validation("to", "must not be before from")
	}
	if v := q.Get("job_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, apperr.Validation("job_id", "must be a UUID")
		}
		f.JobID = &id
	}
	return f, nil
}

func parseDate(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// ---------------------------------------------------------------------
// SLA Config Handlers
// ---------------------------------------------------------------------

func (s *Server) handleListSLAConfigs(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}

	configs, err := s.analytics.ListSLAConfigs(r.Context(), actor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if configs == nil {
		configs = []db.SLAConfig{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"sla_configs": configs,
		"count":       len(configs),
	})
}

func (s *Server) handleSetSLAConfig(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.principal(w, r)
	if !ok {
		return
	}
	var req analytics.SLAConfigRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cfg, err := s.analytics.SetSLAConfig(r.Context(), actor, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, cfg)
}
