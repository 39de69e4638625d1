package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/db/dbtest"
	"github.com/jonathan/talent-pipeline/internal/rbac"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func days(n float64) time.Duration {
	return time.Duration(n * 24 * float64(time.Hour))
}

type fixture struct {
	store     *dbtest.Store
	svc       *Service
	companyID uuid.UUID
	admin     rbac.Principal
	manager   rbac.Principal
	recruiter rbac.Principal
	other     rbac.Principal // second recruiter
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	store := dbtest.New()
	store.SetNow(func() time.Time { return baseTime })
	f := &fixture{store: store, companyID: uuid.New()}
	f.admin = f.user(t, "Alice", rbac.RoleAdmin)
	f.manager = f.user(t, "Bob", rbac.RoleHiringManager)
	f.recruiter = f.user(t, "Rita", rbac.RoleRecruiter)
	f.other = f.user(t, "Omar", rbac.RoleRecruiter)
	f.svc = NewService(store, opts).WithClock(func() time.Time { return baseTime })
	return f
}

func (f *fixture) user(t *testing.T, name string, role rbac.Role) rbac.Principal {
	t.Helper()
	u, err := f.store.CreateUser(context.Background(), &db.UserCreateInput{
		CompanyID: f.companyID, Name: name, Email: name + "@example.com", Role: role,
	})
	require.NoError(t, err)
	return rbac.Principal{UserID: u.ID, CompanyID: f.companyID, Role: role}
}

func (f *fixture) query(p rbac.Principal) Query {
	return NewQuery(p, Filters{})
}

// job creates an active job with stages at positions 0..N-1.
func (f *fixture) job(t *testing.T, title string, recruiter *rbac.Principal, names ...string) (*db.Job, map[string]db.PipelineStage) {
	t.Helper()
	ctx := context.Background()
	input := &db.JobCreateInput{CompanyID: f.companyID, Title: title, Department: "Engineering"}
	if recruiter != nil {
		id := recruiter.UserID
		input.AssignedRecruiterID = &id
	}
	job, err := f.store.CreateJob(ctx, input)
	require.NoError(t, err)

	stages := map[string]db.PipelineStage{}
	for i, n := range names {
		st, err := f.store.CreateStage(ctx, &db.StageCreateInput{JobID: job.ID, Name: n, Position: i, IsDefault: true})
		require.NoError(t, err)
		stages[n] = *st
	}
	return job, stages
}

type visit struct {
	stage   db.PipelineStage
	at      time.Time
	comment string
}

// journey applies a new candidate at appliedAt and walks them through the
// visits. Every entry but the last is closed when the next one opens.
func (f *fixture) journey(t *testing.T, job *db.Job, appliedAt time.Time, visits ...visit) *db.JobCandidate {
	t.Helper()
	require.NotEmpty(t, visits)
	ctx := context.Background()

	cand, err := f.store.CreateCandidate(ctx, &db.CandidateCreateInput{
		CompanyID: f.companyID, FirstName: "Cand", Email: uuid.NewString() + "@example.com",
	})
	require.NoError(t, err)
	jc, err := f.store.CreateJobCandidate(ctx, &db.JobCandidateCreateInput{
		JobID:          job.ID,
		CandidateID:    cand.ID,
		CurrentStageID: visits[len(visits)-1].stage.ID,
		AppliedAt:      appliedAt,
	})
	require.NoError(t, err)

	for i, v := range visits {
		in := &db.StageHistoryCreateInput{JobCandidateID: jc.ID, StageID: v.stage.ID, EnteredAt: v.at}
		if v.comment != "" {
			c := v.comment
			in.Comment = &c
		}
		h, err := f.store.CreateStageHistory(ctx, in)
		require.NoError(t, err)
		if i+1 < len(visits) {
			next := visits[i+1].at
			require.NoError(t, f.store.CloseStageHistory(ctx, h.ID, next, next.Sub(v.at).Hours()))
		}
	}
	return jc
}

func (f *fixture) interview(t *testing.T, jc *db.JobCandidate, at time.Time, panel ...uuid.UUID) *db.Interview {
	t.Helper()
	iv, err := f.store.CreateInterview(context.Background(), &db.InterviewCreateInput{
		JobCandidateID: jc.ID, Title: "Onsite", ScheduledAt: at, DurationMinutes: 60, PanelMemberIDs: panel,
	})
	require.NoError(t, err)
	return iv
}

func (f *fixture) feedback(t *testing.T, iv *db.Interview, reviewer uuid.UUID, at time.Time) {
	t.Helper()
	_, err := f.store.CreateFeedback(context.Background(), &db.FeedbackCreateInput{
		InterviewID: iv.ID, ReviewerID: reviewer, Recommendation: db.RecommendYes, SubmittedAt: at,
	})
	require.NoError(t, err)
}

// memoryCache is an in-process Cache that round-trips values through JSON
// like RedisCache does.
type memoryCache struct {
	mu         sync.Mutex
	data       map[string][]byte
	versions   map[uuid.UUID]int64
	versionErr error
	sets       int
	lastTTL    time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}, versions: map[uuid.UUID]int64{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = data
	c.sets++
	c.lastTTL = ttl
	return nil
}

func (c *memoryCache) Version(_ context.Context, companyID uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versionErr != nil {
		return 0, c.versionErr
	}
	return c.versions[companyID], nil
}

func (c *memoryCache) Invalidate(_ context.Context, companyID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[companyID]++
	return nil
}
