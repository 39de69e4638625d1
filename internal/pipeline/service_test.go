package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/talent-pipeline/internal/apperr"
	"github.com/jonathan/talent-pipeline/internal/config"
	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/db/dbtest"
	"github.com/jonathan/talent-pipeline/internal/rbac"
)

type countingCache struct {
	mu    sync.Mutex
	calls map[uuid.UUID]int
	err   error
}

func (c *countingCache) Invalidate(_ context.Context, companyID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[uuid.UUID]int{}
	}
	c.calls[companyID]++
	return c.err
}

type testEnv struct {
	svc       *Service
	store     *dbtest.Store
	cache     *countingCache
	admin     rbac.Principal
	recruiter rbac.Principal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := dbtest.New()
	cache := &countingCache{}
	companyID := uuid.New()

	rec, err := store.CreateUser(context.Background(), &db.UserCreateInput{
		CompanyID: companyID, Name: "Rita", Email: "rita@example.com", Role: rbac.RoleRecruiter,
	})
	require.NoError(t, err)

	return &testEnv{
		svc:       NewService(store, config.DefaultPipeline(), cache, nil),
		store:     store,
		cache:     cache,
		admin:     rbac.Principal{UserID: uuid.New(), CompanyID: companyID, Role: rbac.RoleAdmin},
		recruiter: rbac.Principal{UserID: rec.ID, CompanyID: companyID, Role: rbac.RoleRecruiter},
	}
}

func (e *testEnv) createJob(t *testing.T) *JobWithStages {
	t.Helper()
	job, err := e.svc.CreateJob(context.Background(), e.admin, CreateJobRequest{
		Title: "Backend Engineer", Department: "Engineering", AssignedRecruiterID: &e.recruiter.UserID,
	})
	require.NoError(t, err)
	return job
}

func TestCreateJob_DefaultStages(t *testing.T) {
	env := newTestEnv(t)
	job := env.createJob(t)

	assert.Equal(t, db.JobStatusActive, job.Status)
	require.Len(t, job.Stages, 6)
	assert.Equal(t, []string{"Applied", "Screening", "Interview", "Offer", "Hired", "Rejected"}, names(job.Stages))
	for i, s := range job.Stages {
		assert.Equal(t, i, s.Position)
		assert.True(t, s.IsDefault)
	}
	assert.True(t, job.Stages[0].IsMandatory)
	assert.False(t, job.Stages[1].IsMandatory)

	stored, err := env.store.ListStages(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Stages, stored)
	assert.Equal(t, 1, env.cache.calls[env.admin.CompanyID])
}

func TestCreateJob_CustomDefaults(t *testing.T) {
	env := newTestEnv(t)
	env.svc = NewService(env.store, config.PipelineDefaults{Stages: []config.StageTemplate{
		{Name: "New"}, {Name: "Call"}, {Name: "Done"},
	}}, nil, nil)

	job, err := env.svc.CreateJob(context.Background(), env.admin, CreateJobRequest{Title: "Designer"})
	require.NoError(t, err)
	assert.Equal(t, []string{"New", "Call", "Done"}, names(job.Stages))
}

func TestCreateJob_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("recruiters cannot create jobs", func(t *testing.T) {
		_, err := env.svc.CreateJob(ctx, env.recruiter, CreateJobRequest{Title: "X"})
		assert.True(t, apperr.IsAuthorization(err))
	})

	t.Run("title is required", func(t *testing.T) {
		_, err := env.svc.CreateJob(ctx, env.admin, CreateJobRequest{Title: "   "})
		var ve *apperr.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "title", ve.Field)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := env.svc.CreateJob(ctx, env.admin, CreateJobRequest{Title: "X", Status: "archived"})
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("recruiter from another company", func(t *testing.T) {
		other := uuid.New()
		_, err := env.svc.CreateJob(ctx, env.admin, CreateJobRequest{Title: "X", AssignedRecruiterID: &other})
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("stage failure rolls back the job", func(t *testing.T) {
		env.store.FailOn("CreateStage", errors.New("insert failed"))
		defer env.store.FailOn("CreateStage", nil)

		_, err := env.svc.CreateJob(ctx, env.admin, CreateJobRequest{Title: "Rolled back"})
		require.Error(t, err)

		jobs, err := env.store.ListJobs(ctx, db.JobFilter{CompanyID: env.admin.CompanyID})
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})
}

func TestGetAndListJobs_Scoping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	assigned := env.createJob(t)
	_, err := env.svc.CreateJob(ctx, env.admin, CreateJobRequest{Title: "Unassigned"})
	require.NoError(t, err)

	all, err := env.svc.ListJobs(ctx, env.admin, db.JobFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := env.svc.ListJobs(ctx, env.recruiter, db.JobFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, assigned.ID, mine[0].ID)

	got, err := env.svc.GetJob(ctx, env.recruiter, assigned.ID)
	require.NoError(t, err)
	assert.Len(t, got.Stages, 6)

	foreign := rbac.Principal{UserID: uuid.New(), CompanyID: uuid.New(), Role: rbac.RoleAdmin}
	_, err = env.svc.GetJob(ctx, foreign, assigned.ID)
	assert.True(t, apperr.IsAuthorization(err))

	_, err = env.svc.GetJob(ctx, env.admin, uuid.New())
	assert.True(t, apperr.IsNotFound(err))

	_, err = env.svc.ListJobs(ctx, env.admin, db.JobFilter{Status: "bogus"})
	assert.True(t, apperr.IsValidation(err))
}

func TestListJobs_DepartmentMatchesExactly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createJob(t)

	jobs, err := env.svc.ListJobs(ctx, env.admin, db.JobFilter{Department: "ENGINEERING"})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	for _, pattern := range []string{"%", "Eng_neering", "Eng%"} {
		jobs, err := env.svc.ListJobs(ctx, env.admin, db.JobFilter{Department: pattern})
		require.NoError(t, err)
		assert.Empty(t, jobs, "department %q", pattern)
	}
}

func TestUpdateJobStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.createJob(t)

	updated, err := env.svc.UpdateJobStatus(ctx, env.admin, job.ID, db.JobStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, db.JobStatusClosed, updated.Status)

	stored, err := env.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, stored, "closed jobs are retained")
	assert.Equal(t, db.JobStatusClosed, stored.Status)

	_, err = env.svc.UpdateJobStatus(ctx, env.admin, job.ID, "deleted")
	assert.True(t, apperr.IsValidation(err))

	_, err = env.svc.UpdateJobStatus(ctx, env.recruiter, job.ID, db.JobStatusPaused)
	assert.True(t, apperr.IsAuthorization(err))
}

func TestInsertStage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.createJob(t)

	stage, err := env.svc.InsertStage(ctx, env.admin, job.ID, InsertStageRequest{Name: "Tech Test", Position: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, stage.Position)
	assert.False(t, stage.IsDefault)

	stages, err := env.svc.ListStages(ctx, env.admin, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Applied", "Screening", "Tech Test", "Interview", "Offer", "Hired", "Rejected"}, names(stages))
	assertContiguous(t, stages)

	before := map[uuid.UUID]int{}
	for _, s := range job.Stages {
		before[s.ID] = s.Position
	}
	for _, s := range stages {
		old, ok := before[s.ID]
		if !ok {
			continue
		}
		if old >= 2 {
			assert.Equal(t, old+1, s.Position, s.Name)
		} else {
			assert.Equal(t, old, s.Position, s.Name)
		}
	}
}

func TestInsertStage_AtEndAndWithParent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.createJob(t)
	interview := job.Stages[2]

	stage, err := env.svc.InsertStage(ctx, env.admin, job.ID, InsertStageRequest{
		Name: "Onsite", Position: 6, ParentStageID: &interview.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, stage.Position)
	require.NotNil(t, stage.ParentStageID)
	assert.Equal(t, interview.ID, *stage.ParentStageID)
}

func TestInsertStage_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.createJob(t)
	other := env.createJob(t)

	tests := []struct {
		name  string
		actor rbac.Principal
		req   InsertStageRequest
		check func(error) bool
	}{
		{"position past end", env.admin, InsertStageRequest{Name: "X", Position: 7}, apperr.IsValidation},
		{"negative position", env.admin, InsertStageRequest{Name: "X", Position: -1}, apperr.IsValidation},
		{"blank name", env.admin, InsertStageRequest{Name: " ", Position: 0}, apperr.IsValidation},
		{"duplicate name", env.admin, InsertStageRequest{Name: "screening", Position: 0}, apperr.IsConflict},
		{"foreign parent", env.admin, InsertStageRequest{Name: "X", Position: 0, ParentStageID: &other.Stages[0].ID}, apperr.IsValidation},
		{"recruiter lacks pipeline:update", env.recruiter, InsertStageRequest{Name: "X", Position: 0}, apperr.IsAuthorization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.InsertStage(ctx, tt.actor, job.ID, tt.req)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}

	stages, err := env.store.ListStages(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Stages, stages, "failed inserts leave the pipeline untouched")
}

func TestReorderStage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.createJob(t)

	got, err := env.svc.ReorderStage(ctx, env.admin, job.Stages[3].ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Applied", "Offer", "Screening", "Interview", "Hired", "Rejected"}, names(got))
	assertContiguous(t, got)

	stored, err := env.store.ListStages(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestReorderStage_SamePositionIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.createJob(t)
	calls := env.cache.calls[env.admin.CompanyID]

	got, err := env.svc.ReorderStage(ctx, env.admin, job.Stages[2].ID, 2)
	require.NoError(t, err)
	assert.Equal(t, job.Stages, got)
	assert.Equal(t, calls, env.cache.calls[env.admin.CompanyID])
}

func TestReorderStage_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.createJob(t)

	_, err := env.svc.ReorderStage(ctx, env.admin, job.Stages[0].ID, 6)
	assert.True(t, apperr.IsValidation(err))

	_, err = env.svc.ReorderStage(ctx, env.admin, uuid.New(), 0)
	assert.True(t, apperr.IsNotFound(err))

	env.store.FailOn("UpdateStagePosition", errors.New("lost connection"))
	_, err = env.svc.ReorderStage(ctx, env.admin, job.Stages[0].ID, 3)
	require.Error(t, err)
	env.store.FailOn("UpdateStagePosition", nil)

	stored, err := env.store.ListStages(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Stages, stored, "no partial renumbering is visible")
}

func TestDeleteStage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.createJob(t)

	got, err := env.svc.DeleteStage(ctx, env.admin, job.Stages[1].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Applied", "Interview", "Offer", "Hired", "Rejected"}, names(got))
	assertContiguous(t, got)

	_, err = env.svc.DeleteStage(ctx, env.admin, job.Stages[0].ID)
	assert.True(t, apperr.IsValidation(err), "mandatory stage")

	cand, err := env.store.CreateCandidate(ctx, &db.CandidateCreateInput{
		CompanyID: env.admin.CompanyID, FirstName: "Jane", LastName: "Doe", Email: "jane@example.com",
	})
	require.NoError(t, err)
	_, err = env.store.CreateJobCandidate(ctx, &db.JobCandidateCreateInput{
		JobID: job.ID, CandidateID: cand.ID, CurrentStageID: job.Stages[2].ID,
	})
	require.NoError(t, err)

	_, err = env.svc.DeleteStage(ctx, env.admin, job.Stages[2].ID)
	assert.True(t, apperr.IsConflict(err), "occupied stage")

	_, err = env.svc.DeleteStage(ctx, env.admin, uuid.New())
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteStage_VisitedStageKeepsLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	job := env.createJob(t)
	screening, interview := job.Stages[1], job.Stages[2]

	cand, err := env.store.CreateCandidate(ctx, &db.CandidateCreateInput{
		CompanyID: env.admin.CompanyID, FirstName: "Sam", LastName: "Lee", Email: "sam@example.com",
	})
	require.NoError(t, err)
	jc, err := env.store.CreateJobCandidate(ctx, &db.JobCandidateCreateInput{
		JobID: job.ID, CandidateID: cand.ID, CurrentStageID: interview.ID,
	})
	require.NoError(t, err)
	visit, err := env.store.CreateStageHistory(ctx, &db.StageHistoryCreateInput{
		JobCandidateID: jc.ID, StageID: screening.ID, EnteredAt: jc.AppliedAt,
	})
	require.NoError(t, err)
	require.NoError(t, env.store.CloseStageHistory(ctx, visit.ID, jc.AppliedAt, 0))

	_, err = env.svc.DeleteStage(ctx, env.admin, screening.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err), "got %v", err)

	stages, err := env.svc.ListStages(ctx, env.admin, job.ID)
	require.NoError(t, err)
	assert.Len(t, stages, len(job.Stages))

	history, err := env.store.ListStageHistory(ctx, []uuid.UUID{jc.ID})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, screening.ID, history[0].StageID)
}
