package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/talent-pipeline/internal/analytics"
	"github.com/jonathan/talent-pipeline/internal/candidates"
	"github.com/jonathan/talent-pipeline/internal/config"
	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/db/dbtest"
	"github.com/jonathan/talent-pipeline/internal/pipeline"
	"github.com/jonathan/talent-pipeline/internal/rbac"
	"github.com/jonathan/talent-pipeline/internal/server/ratelimit"
)

type testAPI struct {
	t         *testing.T
	handler   http.Handler
	store     *dbtest.Store
	jwt       *JWTService
	admin     rbac.Principal
	manager   rbac.Principal
	recruiter rbac.Principal
}

func newTestAPI(t *testing.T, limiter *ratelimit.Limiter) *testAPI {
	t.Helper()
	ctx := context.Background()
	store := dbtest.New()
	companyID := uuid.New()

	mkUser := func(name string, role rbac.Role) rbac.Principal {
		u, err := store.CreateUser(ctx, &db.UserCreateInput{
			CompanyID: companyID, Name: name, Email: name + "@example.com", Role: role,
		})
		require.NoError(t, err)
		return rbac.Principal{UserID: u.ID, CompanyID: companyID, Role: role}
	}

	stats := analytics.NewService(store, analytics.Options{})
	jwtService := setupTestJWTService(t, 1)
	s := New(Config{Addr: ":0"}, Deps{
		Pipeline:   pipeline.NewService(store, config.DefaultPipeline(), stats, nil),
		Candidates: candidates.NewService(store, nil, stats, nil),
		Analytics:  stats,
		JWT:        jwtService,
		Limiter:    limiter,
	})
	if limiter != nil {
		t.Cleanup(limiter.Stop)
	}

	return &testAPI{
		t:         t,
		handler:   s.Handler(),
		store:     store,
		jwt:       jwtService,
		admin:     mkUser("alice", rbac.RoleAdmin),
		manager:   mkUser("bob", rbac.RoleHiringManager),
		recruiter: mkUser("rita", rbac.RoleRecruiter),
	}
}

func (a *testAPI) do(method, path string, p *rbac.Principal, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if p != nil {
		token, err := a.jwt.GenerateToken(*p)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *testAPI) createJob(p rbac.Principal, title string) pipeline.JobWithStages {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/jobs", &p, map[string]any{
		"title":                 title,
		"department":            "Engineering",
		"assigned_recruiter_id": a.recruiter.UserID,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[pipeline.JobWithStages](a.t, rec)
}

func stageByName(t *testing.T, stages []db.PipelineStage, name string) db.PipelineStage {
	t.Helper()
	for _, st := range stages {
		if st.Name == name {
			return st
		}
	}
	t.Fatalf("stage %q not found", name)
	return db.PipelineStage{}
}

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])

	rec = api.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ats_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t, nil)
	rec := api.do(http.MethodOptions, "/jobs", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestAPIRequiresToken(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(http.MethodGet, "/jobs", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJobAndStageRoutes(t *testing.T) {
	api := newTestAPI(t, nil)
	job := api.createJob(api.admin, "Backend Engineer")
	require.Len(t, job.Stages, len(config.DefaultPipeline().Stages))

	t.Run("get", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/jobs/"+job.ID.String(), &api.recruiter, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[pipeline.JobWithStages](t, rec)
		assert.Equal(t, "Backend Engineer", got.Title)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/jobs/nope", &api.admin, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown job", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/jobs/"+uuid.NewString(), &api.admin, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("recruiter cannot create jobs", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/jobs", &api.recruiter, map[string]any{"title": "Designer"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing title", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/jobs", &api.admin, map[string]any{"department": "Sales"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "title", decode[map[string]string](t, rec)["field"])
	})

	t.Run("list", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/jobs?department=Engineering", &api.manager, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, decode[map[string]any](t, rec)["count"])
	})

	t.Run("status", func(t *testing.T) {
		rec := api.do(http.MethodPatch, "/jobs/"+job.ID.String()+"/status", &api.manager, map[string]string{"status": "paused"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, db.JobStatusPaused, decode[db.Job](t, rec).Status)

		rec = api.do(http.MethodPatch, "/jobs/"+job.ID.String()+"/status", &api.manager, map[string]string{"status": "archived"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("insert reorder delete", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/jobs/"+job.ID.String()+"/stages", &api.manager, map[string]any{
			"name": "Tech Screen", "position": 2,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		stage := decode[db.PipelineStage](t, rec)
		assert.Equal(t, 2, stage.Position)

		rec = api.do(http.MethodPost, "/jobs/"+job.ID.String()+"/stages", &api.manager, map[string]any{
			"name": "tech screen", "position": 0,
		})
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = api.do(http.MethodPut, "/stages/"+stage.ID.String()+"/position", &api.manager, map[string]int{"position": 1})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		stages := decode[struct {
			Stages []db.PipelineStage `json:"stages"`
		}](t, rec).Stages
		assert.Equal(t, 1, stageByName(t, stages, "Tech Screen").Position)
		assert.Equal(t, 2, stageByName(t, stages, "Screening").Position)

		rec = api.do(http.MethodPut, "/stages/"+stage.ID.String()+"/position", &api.manager, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = api.do(http.MethodDelete, "/stages/"+stage.ID.String(), &api.manager, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = api.do(http.MethodGet, "/jobs/"+job.ID.String()+"/stages", &api.recruiter, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, len(config.DefaultPipeline().Stages), decode[map[string]any](t, rec)["count"])
	})

	t.Run("mandatory stage", func(t *testing.T) {
		applied := stageByName(t, job.Stages, "Applied")
		rec := api.do(http.MethodDelete, "/stages/"+applied.ID.String(), &api.admin, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCandidateFlow(t *testing.T) {
	api := newTestAPI(t, nil)
	job := api.createJob(api.admin, "Data Engineer")
	screening := stageByName(t, job.Stages, "Screening")
	rejected := stageByName(t, job.Stages, "Rejected")

	rec := api.do(http.MethodPost, "/candidates", &api.recruiter, map[string]any{
		"first_name": "Jane", "last_name": "Doe", "email": "Jane@Example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cand := decode[db.Candidate](t, rec)
	assert.Equal(t, "jane@example.com", cand.Email)

	rec = api.do(http.MethodPost, "/candidates", &api.recruiter, map[string]any{
		"first_name": "Janet", "email": "jane@example.com",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/jobs/"+job.ID.String()+"/candidates", &api.recruiter, map[string]any{"candidate_id": cand.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	jc := decode[db.JobCandidate](t, rec)
	assert.Equal(t, stageByName(t, job.Stages, "Applied").ID, jc.CurrentStageID)

	movePath := "/job-candidates/" + jc.ID.String() + "/move"
	rec = api.do(http.MethodPost, movePath, &api.recruiter, map[string]any{"stage_id": screening.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[candidates.MoveResult](t, rec).Moved)

	t.Run("rejection needs a reason", func(t *testing.T) {
		rec := api.do(http.MethodPost, movePath, &api.recruiter, map[string]any{"stage_id": rejected.ID})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "reason", decode[map[string]string](t, rec)["field"])
	})

	t.Run("history", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/job-candidates/"+jc.ID.String()+"/history", &api.manager, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		history := decode[struct {
			History []db.StageHistory `json:"history"`
		}](t, rec).History
		require.Len(t, history, 2)
		assert.NotNil(t, history[0].ExitedAt)
		assert.Nil(t, history[1].ExitedAt)
	})

	t.Run("score", func(t *testing.T) {
		rec := api.do(http.MethodPut, "/candidates/"+cand.ID.String()+"/score", &api.manager, map[string]any{
			"domain": 80, "industry": 60,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[db.Candidate](t, rec)
		require.NotNil(t, got.OverallScore)
		assert.InDelta(t, 70, *got.OverallScore, 0.001)

		rec = api.do(http.MethodPut, "/candidates/"+cand.ID.String()+"/score", &api.manager, map[string]any{"domain": 120})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("activities", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/candidates/"+cand.ID.String()+"/activities", &api.recruiter, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 3, decode[map[string]any](t, rec)["count"])
	})

	t.Run("bulk move", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/job-candidates/bulk-move", &api.recruiter, map[string]any{
			"job_candidate_ids": []uuid.UUID{jc.ID, uuid.New()},
			"stage_id":          rejected.ID,
			"reason":            "Not a fit",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decode[candidates.BulkMoveResult](t, rec)
		assert.Equal(t, 1, res.MovedCount)
		assert.Equal(t, 1, res.FailedCount)
	})

	t.Run("interview and feedback", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/job-candidates/"+jc.ID.String()+"/interviews", &api.recruiter, map[string]any{
			"title":            "Onsite",
			"scheduled_at":     time.Now().Add(48 * time.Hour).UTC(),
			"panel_member_ids": []uuid.UUID{api.manager.UserID},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		iv := decode[db.Interview](t, rec)
		assert.Equal(t, 60, iv.DurationMinutes)

		rec = api.do(http.MethodPost, "/interviews/"+iv.ID.String()+"/feedback", &api.manager, map[string]any{
			"recommendation": "yes",
			"ratings":        map[string]int{"coding": 4},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = api.do(http.MethodPost, "/interviews/"+iv.ID.String()+"/feedback", &api.recruiter, map[string]any{
			"recommendation": "no",
		})
		assert.NotEqual(t, http.StatusCreated, rec.Code)
	})
}

func TestAnalyticsRoutes(t *testing.T) {
	api := newTestAPI(t, nil)
	job := api.createJob(api.admin, "Platform Engineer")

	rec := api.do(http.MethodPost, "/candidates", &api.recruiter, map[string]any{"first_name": "Sam", "email": "sam@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	cand := decode[db.Candidate](t, rec)
	rec = api.do(http.MethodPost, "/jobs/"+job.ID.String()+"/candidates", &api.recruiter, map[string]any{"candidate_id": cand.ID})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("funnel", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/analytics/funnel", &api.manager, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		funnel := decode[analytics.Funnel](t, rec)
		assert.Equal(t, 1, funnel.TotalApplicants)
		require.NotEmpty(t, funnel.Stages)
		assert.Equal(t, "Applied", funnel.Stages[0].StageName)
	})

	t.Run("filters", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/analytics/funnel?from=2000-01-01&to=2000-12-31", &api.manager, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 0, decode[analytics.Funnel](t, rec).TotalApplicants)

		rec = api.do(http.MethodGet, "/analytics/kpis?job_id="+job.ID.String(), &api.manager, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, decode[analytics.KPIs](t, rec).TotalApplicants)
	})

	t.Run("bad filters", func(t *testing.T) {
		for _, q := range []string{"from=yesterday", "to=2026-13-01", "job_id=abc", "from=2026-02-01&to=2026-01-01"} {
			rec := api.do(http.MethodGet, "/analytics/funnel?"+q, &api.manager, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		}
	})

	t.Run("reports", func(t *testing.T) {
		for _, path := range []string{
			"/analytics/time-in-stage", "/analytics/rejection-reasons", "/analytics/sla",
			"/analytics/productivity", "/analytics/kpis", "/analytics/dashboard",
		} {
			rec := api.do(http.MethodGet, path, &api.recruiter, nil)
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}
	})

	t.Run("sla configs", func(t *testing.T) {
		rec := api.do(http.MethodPut, "/sla-configs", &api.manager, map[string]any{"stage_name": "Screening", "threshold_days": 3})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = api.do(http.MethodPut, "/sla-configs", &api.admin, map[string]any{"stage_name": "Screening", "threshold_days": 0})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = api.do(http.MethodPut, "/sla-configs", &api.admin, map[string]any{"stage_name": "Screening", "threshold_days": 3})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = api.do(http.MethodGet, "/sla-configs", &api.recruiter, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 1, decode[map[string]any](t, rec)["count"])
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled: true,
		RPS:     100,
		Burst:   100,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/analytics/dashboard", Method: http.MethodGet, RPS: 0.001, Burst: 1},
		},
	}, 0)
	api := newTestAPI(t, limiter)

	rec := api.do(http.MethodGet, "/analytics/dashboard", &api.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = api.do(http.MethodGet, "/analytics/dashboard", &api.admin, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "rate_limit_exceeded", body["error"])

	rec = api.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
