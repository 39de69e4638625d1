package candidates

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/db/dbtest"
	"github.com/jonathan/talent-pipeline/internal/notify"
	"github.com/jonathan/talent-pipeline/internal/rbac"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMessage struct {
	jobID uuid.UUID
	actor uuid.UUID
	msg   notify.Message
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *recordingNotifier) NotifyJob(_ context.Context, job *db.Job, actor uuid.UUID, msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{jobID: job.ID, actor: actor, msg: msg})
}

type countingCache struct {
	mu    sync.Mutex
	count int
}

func (c *countingCache) Invalidate(context.Context, uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return nil
}

type testEnv struct {
	svc       *Service
	store     *dbtest.Store
	clock     *fakeClock
	notifier  *recordingNotifier
	cache     *countingCache
	companyID uuid.UUID
	admin     rbac.Principal
	recruiter rbac.Principal
	outsider  rbac.Principal // recruiter not assigned to the job
	job       *db.Job
	stages    map[string]db.PipelineStage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	clock := &fakeClock{t: baseTime}
	store := dbtest.New()
	store.SetNow(clock.Now)
	notifier := &recordingNotifier{}
	cache := &countingCache{}
	companyID := uuid.New()

	mkUser := func(name string, role rbac.Role) rbac.Principal {
		u, err := store.CreateUser(ctx, &db.UserCreateInput{
			CompanyID: companyID, Name: name, Email: name + "@example.com", Role: role,
		})
		require.NoError(t, err)
		return rbac.Principal{UserID: u.ID, CompanyID: companyID, Role: role}
	}

	env := &testEnv{
		store:     store,
		clock:     clock,
		notifier:  notifier,
		cache:     cache,
		companyID: companyID,
		admin:     mkUser("admin", rbac.RoleAdmin),
		recruiter: mkUser("rita", rbac.RoleRecruiter),
		outsider:  mkUser("oscar", rbac.RoleRecruiter),
	}
	env.svc = NewService(store, notifier, cache, nil).WithClock(clock.Now)
	env.job, env.stages = env.seedJob(t, "Backend Engineer", &env.recruiter.UserID,
		"Applied", "Screening", "Interview", "Offer", "Hired", "Rejected")
	return env
}

func (e *testEnv) seedJob(t *testing.T, title string, recruiter *uuid.UUID, names ...string) (*db.Job, map[string]db.PipelineStage) {
	t.Helper()
	ctx := context.Background()
	job, err := e.store.CreateJob(ctx, &db.JobCreateInput{
		CompanyID: e.companyID, Title: title, AssignedRecruiterID: recruiter,
	})
	require.NoError(t, err)
	stages := map[string]db.PipelineStage{}
	for i, n := range names {
		st, err := e.store.CreateStage(ctx, &db.StageCreateInput{JobID: job.ID, Name: n, Position: i, IsDefault: true})
		require.NoError(t, err)
		stages[n] = *st
	}
	return job, stages
}

func (e *testEnv) createCandidate(t *testing.T, email string) *db.Candidate {
	t.Helper()
	c, err := e.svc.CreateCandidate(context.Background(), e.recruiter, CreateCandidateRequest{
		FirstName: "Jane", LastName: "Doe", Email: email,
	})
	require.NoError(t, err)
	return c
}

func (e *testEnv) apply(t *testing.T, email string) *db.JobCandidate {
	t.Helper()
	c := e.createCandidate(t, email)
	jc, err := e.svc.AddToJob(context.Background(), e.recruiter, e.job.ID, c.ID)
	require.NoError(t, err)
	return jc
}

func (e *testEnv) history(t *testing.T, jcID uuid.UUID) []db.StageHistory {
	t.Helper()
	h, err := e.store.ListStageHistory(context.Background(), []uuid.UUID{jcID})
	require.NoError(t, err)
	return h
}

func (e *testEnv) activities(t *testing.T, candidateID uuid.UUID) []db.CandidateActivity {
	t.Helper()
	a, err := e.store.ListActivities(context.Background(), candidateID)
	require.NoError(t, err)
	return a
}

func openEntries(h []db.StageHistory) int {
	n := 0
	for _, e := range h {
		if e.IsOpen() {
			n++
		}
	}
	return n
}

func ptr(v float64) *float64 { return &v }
