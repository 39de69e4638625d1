// Package dbtest provides an in-memory db.Store for service and handler tests.
package dbtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/talent-pipeline/internal/apperr"
	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/rbac"
)

type state struct {
	users         []db.User
	jobs          []db.Job
	stages        []db.PipelineStage
	candidates    []db.Candidate
	jobCandidates []db.JobCandidate
	history       []db.StageHistory
	activities    []db.CandidateActivity
	interviews    []db.Interview
	feedback      []db.InterviewFeedback
	slaConfigs    []db.SLAConfig
	notifications []db.Notification
}

func (s *state) clone() *state {
	return &state{
		users:         append([]db.User(nil), s.users...),
		jobs:          append([]db.Job(nil), s.jobs...),
		stages:        append([]db.PipelineStage(nil), s.stages...),
		candidates:    append([]db.Candidate(nil), s.candidates...),
		jobCandidates: append([]db.JobCandidate(nil), s.jobCandidates...),
		history:       append([]db.StageHistory(nil), s.history...),
		activities:    append([]db.CandidateActivity(nil), s.activities...),
		interviews:    append([]db.Interview(nil), s.interviews...),
		feedback:      append([]db.InterviewFeedback(nil), s.feedback...),
		slaConfigs:    append([]db.SLAConfig(nil), s.slaConfigs...),
		notifications: append([]db.Notification(nil), s.notifications...),
	}
}

// checkDeferred enforces the constraints PostgreSQL checks at commit.
func (s *state) checkDeferred() error {
	seen := map[string]uuid.UUID{}
	for _, st := range s.stages {
		key := fmt.Sprintf("%s/%d", st.JobID, st.Position)
		if other, ok := seen[key]; ok {
			return fmt.Errorf("duplicate stage position %d in job %s (stages %s, %s)", st.Position, st.JobID, other, st.ID)
		}
		seen[key] = st.ID
	}
	return nil
}

// Store is an in-memory, concurrency-safe db.Store. InTx works on a copy of
// the data and swaps it in only when the callback succeeds.
type Store struct {
	*queries

	mu  sync.Mutex
	st  *state
	now func() time.Time

	failMu sync.Mutex
	fail   map[string]error
}

var _ db.Store = (*Store)(nil)

// New creates an empty store whose clock is time.Now.
func New() *Store {
	s := &Store{st: &state{}, now: time.Now, fail: map[string]error{}}
	s.queries = &queries{s: s}
	return s
}

// SetNow replaces the clock used for generated timestamps.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailOn makes every later call of method return err. A nil err clears it.
func (s *Store) FailOn(method string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err == nil {
		delete(s.fail, method)
		return
	}
	s.fail[method] = err
}

func (s *Store) failure(method string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.fail[method]
}

// InTx runs fn against a snapshot and commits it when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(q db.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&queries{s: s, tx: snapshot}); err != nil {
		return err
	}
	if err := snapshot.checkDeferred(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.st = snapshot
	return nil
}

// queries implements db.Querier either on the live state (tx == nil) or on a
// transaction snapshot. The store lock is already held inside a transaction.
type queries struct {
	s  *Store
	tx *state
}

func (q *queries) begin(method string) (*state, func(), error) {
	if err := q.s.failure(method); err != nil {
		return nil, nil, err
	}
	if q.tx != nil {
		return q.tx, func() {}, nil
	}
	q.s.mu.Lock()
	return q.s.st, q.s.mu.Unlock, nil
}

func (q *queries) clock() time.Time {
	return q.s.now()
}

// -----------------------------------------------------------------------------
// Jobs and stages
// -----------------------------------------------------------------------------

func (q *queries) CreateJob(_ context.Context, input *db.JobCreateInput) (*db.Job, error) {
	st, done, err := q.begin("CreateJob")
	if err != nil {
		return nil, err
	}
	defer done()

	status := input.Status
	if status == "" {
		status = db.JobStatusActive
	}
	now := q.clock()
	j := db.Job{
		ID:                  uuid.New(),
		CompanyID:           input.CompanyID,
		Title:               input.Title,
		Department:          input.Department,
		Location:            input.Location,
		Status:              status,
		AssignedRecruiterID: input.AssignedRecruiterID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	st.jobs = append(st.jobs, j)
	return &j, nil
}

func (q *queries) GetJob(_ context.Context, id uuid.UUID) (*db.Job, error) {
	st, done, err := q.begin("GetJob")
	if err != nil {
		return nil, err
	}
	defer done()

	for _, j := range st.jobs {
		if j.ID == id {
			return &j, nil
		}
	}
	return nil, nil
}

func (q *queries) ListJobs(_ context.Context, filter db.JobFilter) ([]db.Job, error) {
	st, done, err := q.begin("ListJobs")
	if err != nil {
		return nil, err
	}
	defer done()

	out := []db.Job{}
	for _, j := range st.jobs {
		if j.CompanyID != filter.CompanyID {
			continue
		}
		if filter.AssignedRecruiterID != nil && (j.AssignedRecruiterID == nil || *j.AssignedRecruiterID != *filter.AssignedRecruiterID) {
			continue
		}
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.Department != "" && !strings.EqualFold(j.Department, filter.Department) {
			continue
		}
		if filter.Location != "" && !strings.EqualFold(j.Location, filter.Location) {
			continue
		}
		if filter.JobID != nil && j.ID != *filter.JobID {
			continue
		}
		out = append(out, j)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (q *queries) UpdateJobStatus(_ context.Context, id uuid.UUID, status db.JobStatus) error {
	st, done, err := q.begin("UpdateJobStatus")
	if err != nil {
		return err
	}
	defer done()

	for i := range st.jobs {
		if st.jobs[i].ID == id {
			st.jobs[i].Status = status
			st.jobs[i].UpdatedAt = q.clock()
			return nil
		}
	}
	return fmt.Errorf("job not found: %s", id)
}

func (q *queries) CreateStage(_ context.Context, input *db.StageCreateInput) (*db.PipelineStage, error) {
	st, done, err := q.begin("CreateStage")
	if err != nil {
		return nil, err
	}
	defer done()

	s := db.PipelineStage{
		ID:            uuid.New(),
		JobID:         input.JobID,
		Name:          input.Name,
		Position:      input.Position,
		IsDefault:     input.IsDefault,
		IsMandatory:   input.IsMandatory,
		ParentStageID: input.ParentStageID,
		CreatedAt:     q.clock(),
	}
	st.stages = append(st.stages, s)
	if q.tx == nil {
		if err := st.checkDeferred(); err != nil {
			st.stages = st.stages[:len(st.stages)-1]
			return nil, err
		}
	}
	return &s, nil
}

func (q *queries) GetStage(_ context.Context, id uuid.UUID) (*db.PipelineStage, error) {
	st, done, err := q.begin("GetStage")
	if err != nil {
		return nil, err
	}
	defer done()

	for _, s := range st.stages {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, nil
}

func (q *queries) ListStages(_ context.Context, jobID uuid.UUID) ([]db.PipelineStage, error) {
	st, done, err := q.begin("ListStages")
	if err != nil {
		return nil, err
	}
	defer done()

	out := []db.PipelineStage{}
	for _, s := range st.stages {
		if s.JobID == jobID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Position < out[b].Position })
	return out, nil
}

func (q *queries) ListStagesForJobs(_ context.Context, jobIDs []uuid.UUID) ([]db.PipelineStage, error) {
	st, done, err := q.begin("ListStagesForJobs")
	if err != nil {
		return nil, err
	}
	defer done()

	want := idSet(jobIDs)
	out := []db.PipelineStage{}
	for _, s := range st.stages {
		if _, ok := want[s.JobID]; ok {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].JobID != out[b].JobID {
			return out[a].JobID.String() < out[b].JobID.String()
		}
		return out[a].Position < out[b].Position
	})
	return out, nil
}

func (q *queries) UpdateStagePosition(_ context.Context, id uuid.UUID, position int) error {
	st, done, err := q.begin("UpdateStagePosition")
	if err != nil {
		return err
	}
	defer done()

	for i := range st.stages {
		if st.stages[i].ID == id {
			st.stages[i].Position = position
			return nil
		}
	}
	return fmt.Errorf("stage not found: %s", id)
}

func (q *queries) DeleteStage(_ context.Context, id uuid.UUID) error {
	st, done, err := q.begin("DeleteStage")
	if err != nil {
		return err
	}
	defer done()

	for i := range st.stages {
		if st.stages[i].ID == id {
			st.stages = append(st.stages[:i:i], st.stages[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("stage not found: %s", id)
}

// -----------------------------------------------------------------------------
// Candidates and job candidates
// -----------------------------------------------------------------------------

func (q *queries) CreateCandidate(_ context.Context, input *db.CandidateCreateInput) (*db.Candidate, error) {
	st, done, err := q.begin("CreateCandidate")
	if err != nil {
		return nil, err
	}
	defer done()

	for _, c := range st.candidates {
		if c.CompanyID == input.CompanyID && c.Email == input.Email {
			return nil, &apperr.ConflictError{Entity: "candidate", Message: "email already registered: " + input.Email}
		}
	}
	skills := append([]string{}, input.Skills...)
	now := q.clock()
	c := db.Candidate{
		ID:              uuid.New(),
		CompanyID:       input.CompanyID,
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Email:           input.Email,
		Phone:           input.Phone,
		Location:        input.Location,
		ExperienceYears: input.ExperienceYears,
		Skills:          skills,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	st.candidates = append(st.candidates, c)
	return &c, nil
}

func (q *queries) GetCandidate(_ context.Context, id uuid.UUID) (*db.Candidate, error) {
	st, done, err := q.begin("GetCandidate")
	if err != nil {
		return nil, err
	}
	defer done()

	for _, c := range st.candidates {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

func (q *queries) UpdateCandidateScores(_ context.Context, id uuid.UUID, scores db.CandidateScores) error {
	st, done, err := q.begin("UpdateCandidateScores")
	if err != nil {
		return err
	}
	defer done()

	for i := range st.candidates {
		if st.candidates[i].ID == id {
			c := &st.candidates[i]
			c.DomainScore = scores.Domain
			c.IndustryScore = scores.Industry
			c.KeyResponsibilitiesScore = scores.KeyResponsibilities
			c.OverallScore = scores.Overall
			c.UpdatedAt = q.clock()
			return nil
		}
	}
	return fmt.Errorf("candidate not found: %s", id)
}

func (q *queries) CreateJobCandidate(_ context.Context, input *db.JobCandidateCreateInput) (*db.JobCandidate, error) {
	st, done, err := q.begin("CreateJobCandidate")
	if err != nil {
		return nil, err
	}
	defer done()

	for _, jc := range st.jobCandidates {
		if jc.JobID == input.JobID && jc.CandidateID == input.CandidateID {
			return nil, &apperr.ConflictError{Entity: "job candidate", Message: "candidate already applied to this job"}
		}
	}
	appliedAt := input.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = q.clock()
	}
	jc := db.JobCandidate{
		ID:             uuid.New(),
		JobID:          input.JobID,
		CandidateID:    input.CandidateID,
		CurrentStageID: input.CurrentStageID,
		AddedByID:      input.AddedByID,
		AppliedAt:      appliedAt,
		UpdatedAt:      appliedAt,
	}
	st.jobCandidates = append(st.jobCandidates, jc)
	return &jc, nil
}

func (q *queries) GetJobCandidate(_ context.Context, id uuid.UUID) (*db.JobCandidate, error) {
	st, done, err := q.begin("GetJobCandidate")
	if err != nil {
		return nil, err
	}
	defer done()

	for _, jc := range st.jobCandidates {
		if jc.ID == id {
			return &jc, nil
		}
	}
	return nil, nil
}

func (q *queries) ListJobCandidates(_ context.Context, jobIDs []uuid.UUID) ([]db.JobCandidate, error) {
	st, done, err := q.begin("ListJobCandidates")
	if err != nil {
		return nil, err
	}
	defer done()

	want := idSet(jobIDs)
	out := []db.JobCandidate{}
	for _, jc := range st.jobCandidates {
		if _, ok := want[jc.JobID]; ok {
			out = append(out, jc)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].AppliedAt.Before(out[b].AppliedAt) })
	return out, nil
}

func (q *queries) CountStageHistory(_ context.Context, stageID uuid.UUID) (int, error) {
	st, done, err := q.begin("CountStageHistory")
	if err != nil {
		return 0, err
	}
	defer done()

	n := 0
	for _, h := range st.history {
		if h.StageID == stageID {
			n++
		}
	}
	return n, nil
}

func (q *queries) CountJobCandidatesInStage(_ context.Context, stageID uuid.UUID) (int, error) {
	st, done, err := q.begin("CountJobCandidatesInStage")
	if err != nil {
		return 0, err
	}
	defer done()

	n := 0
	for _, jc := range st.jobCandidates {
		if jc.CurrentStageID == stageID {
			n++
		}
	}
	return n, nil
}

func (q *queries) UpdateJobCandidateStage(_ context.Context, id, stageID uuid.UUID) error {
	st, done, err := q.begin("UpdateJobCandidateStage")
	if err != nil {
		return err
	}
	defer done()

	for i := range st.jobCandidates {
		if st.jobCandidates[i].ID == id {
			st.jobCandidates[i].CurrentStageID = stageID
			st.jobCandidates[i].UpdatedAt = q.clock()
			return nil
		}
	}
	return fmt.Errorf("job candidate not found: %s", id)
}

// -----------------------------------------------------------------------------
// Stage history and activities
// -----------------------------------------------------------------------------

func (q *queries) CreateStageHistory(_ context.Context, input *db.StageHistoryCreateInput) (*db.StageHistory, error) {
	st, done, err := q.begin("CreateStageHistory")
	if err != nil {
		return nil, err
	}
	defer done()

	h := db.StageHistory{
		ID:             uuid.New(),
		JobCandidateID: input.JobCandidateID,
		StageID:        input.StageID,
		EnteredAt:      input.EnteredAt,
		Comment:        input.Comment,
		MovedByID:      input.MovedByID,
	}
	st.history = append(st.history, h)
	return &h, nil
}

func (q *queries) GetOpenStageHistory(_ context.Context, jobCandidateID uuid.UUID) (*db.StageHistory, error) {
	st, done, err := q.begin("GetOpenStageHistory")
	if err != nil {
		return nil, err
	}
	defer done()

	var open *db.StageHistory
	for i := range st.history {
		h := st.history[i]
		if h.JobCandidateID == jobCandidateID && h.ExitedAt == nil {
			if open == nil || h.EnteredAt.After(open.EnteredAt) {
				open = &h
			}
		}
	}
	return open, nil
}

func (q *queries) CloseStageHistory(_ context.Context, id uuid.UUID, exitedAt time.Time, durationHours float64) error {
	st, done, err := q.begin("CloseStageHistory")
	if err != nil {
		return err
	}
	defer done()

	for i := range st.history {
		if st.history[i].ID == id && st.history[i].ExitedAt == nil {
			exited := exitedAt
			duration := durationHours
			st.history[i].ExitedAt = &exited
			st.history[i].DurationHours = &duration
			return nil
		}
	}
	return fmt.Errorf("open stage history not found: %s", id)
}

func (q *queries) ListStageHistory(_ context.Context, jobCandidateIDs []uuid.UUID) ([]db.StageHistory, error) {
	st, done, err := q.begin("ListStageHistory")
	if err != nil {
		return nil, err
	}
	defer done()

	want := idSet(jobCandidateIDs)
	out := []db.StageHistory{}
	for _, h := range st.history {
		if _, ok := want[h.JobCandidateID]; ok {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].EnteredAt.Before(out[b].EnteredAt) })
	return out, nil
}

func (q *queries) CreateActivity(_ context.Context, input *db.ActivityCreateInput) (*db.CandidateActivity, error) {
	st, done, err := q.begin("CreateActivity")
	if err != nil {
		return nil, err
	}
	defer done()

	var metadata json.RawMessage
	if input.Metadata != nil {
		b, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal activity metadata: %w", err)
		}
		metadata = b
	}
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = q.clock()
	}
	a := db.CandidateActivity{
		ID:             uuid.New(),
		CandidateID:    input.CandidateID,
		JobCandidateID: input.JobCandidateID,
		ActorID:        input.ActorID,
		ActivityType:   input.ActivityType,
		Description:    input.Description,
		Metadata:       metadata,
		CreatedAt:      createdAt,
	}
	st.activities = append(st.activities, a)
	return &a, nil
}

func (q *queries) ListActivities(_ context.Context, candidateID uuid.UUID) ([]db.CandidateActivity, error) {
	st, done, err := q.begin("ListActivities")
	if err != nil {
		return nil, err
	}
	defer done()

	out := []db.CandidateActivity{}
	for _, a := range st.activities {
		if a.CandidateID == candidateID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// -----------------------------------------------------------------------------
// Interviews and feedback
// -----------------------------------------------------------------------------

func (q *queries) CreateInterview(_ context.Context, input *db.InterviewCreateInput) (*db.Interview, error) {
	st, done, err := q.begin("CreateInterview")
	if err != nil {
		return nil, err
	}
	defer done()

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = q.clock()
	}
	panel := []uuid.UUID{}
	seen := map[uuid.UUID]struct{}{}
	for _, id := range input.PanelMemberIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		panel = append(panel, id)
	}
	iv := db.Interview{
		ID:              uuid.New(),
		JobCandidateID:  input.JobCandidateID,
		Title:           input.Title,
		ScheduledAt:     input.ScheduledAt,
		DurationMinutes: input.DurationMinutes,
		MeetingURL:      input.MeetingURL,
		Status:          db.InterviewScheduled,
		ScheduledByID:   input.ScheduledByID,
		PanelMemberIDs:  panel,
		CreatedAt:       createdAt,
	}
	st.interviews = append(st.interviews, iv)
	return &iv, nil
}

func (q *queries) GetInterview(_ context.Context, id uuid.UUID) (*db.Interview, error) {
	st, done, err := q.begin("GetInterview")
	if err != nil {
		return nil, err
	}
	defer done()

	for _, iv := range st.interviews {
		if iv.ID == id {
			return &iv, nil
		}
	}
	return nil, nil
}

func (q *queries) ListInterviews(_ context.Context, jobCandidateIDs []uuid.UUID) ([]db.Interview, error) {
	st, done, err := q.begin("ListInterviews")
	if err != nil {
		return nil, err
	}
	defer done()

	want := idSet(jobCandidateIDs)
	out := []db.Interview{}
	for _, iv := range st.interviews {
		if _, ok := want[iv.JobCandidateID]; ok {
			out = append(out, iv)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].ScheduledAt.Before(out[b].ScheduledAt) })
	return out, nil
}

func (q *queries) UpdateInterviewStatus(_ context.Context, id uuid.UUID, status db.InterviewStatus) error {
	st, done, err := q.begin("UpdateInterviewStatus")
	if err != nil {
		return err
	}
	defer done()

	for i := range st.interviews {
		if st.interviews[i].ID == id {
			st.interviews[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("interview not found: %s", id)
}

func (q *queries) CreateFeedback(_ context.Context, input *db.FeedbackCreateInput) (*db.InterviewFeedback, error) {
	st, done, err := q.begin("CreateFeedback")
	if err != nil {
		return nil, err
	}
	defer done()

	for _, f := range st.feedback {
		if f.InterviewID == input.InterviewID && f.ReviewerID == input.ReviewerID {
			return nil, &apperr.ConflictError{Entity: "interview feedback", Message: "feedback already submitted by this reviewer"}
		}
	}
	ratings := map[string]int{}
	for k, v := range input.Ratings {
		ratings[k] = v
	}
	submittedAt := input.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = q.clock()
	}
	f := db.InterviewFeedback{
		ID:             uuid.New(),
		InterviewID:    input.InterviewID,
		ReviewerID:     input.ReviewerID,
		Recommendation: input.Recommendation,
		Ratings:        ratings,
		Notes:          input.Notes,
		SubmittedAt:    submittedAt,
	}
	st.feedback = append(st.feedback, f)
	return &f, nil
}

func (q *queries) ListFeedback(_ context.Context, interviewIDs []uuid.UUID) ([]db.InterviewFeedback, error) {
	st, done, err := q.begin("ListFeedback")
	if err != nil {
		return nil, err
	}
	defer done()

	want := idSet(interviewIDs)
	out := []db.InterviewFeedback{}
	for _, f := range st.feedback {
		if _, ok := want[f.InterviewID]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// SLA, users and notifications
// -----------------------------------------------------------------------------

func (q *queries) UpsertSLAConfig(_ context.Context, input *db.SLAConfigInput) (*db.SLAConfig, error) {
	st, done, err := q.begin("UpsertSLAConfig")
	if err != nil {
		return nil, err
	}
	defer done()

	now := q.clock()
	for i := range st.slaConfigs {
		c := &st.slaConfigs[i]
		if c.CompanyID == input.CompanyID && strings.EqualFold(c.StageName, input.StageName) {
			c.StageName = input.StageName
			c.ThresholdDays = input.ThresholdDays
			c.UpdatedAt = now
			out := *c
			return &out, nil
		}
	}
	c := db.SLAConfig{
		ID:            uuid.New(),
		CompanyID:     input.CompanyID,
		StageName:     input.StageName,
		ThresholdDays: input.ThresholdDays,
		UpdatedAt:     now,
	}
	st.slaConfigs = append(st.slaConfigs, c)
	return &c, nil
}

func (q *queries) ListSLAConfigs(_ context.Context, companyID uuid.UUID) ([]db.SLAConfig, error) {
	st, done, err := q.begin("ListSLAConfigs")
	if err != nil {
		return nil, err
	}
	defer done()

	out := []db.SLAConfig{}
	for _, c := range st.slaConfigs {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (q *queries) CreateUser(_ context.Context, input *db.UserCreateInput) (*db.User, error) {
	st, done, err := q.begin("CreateUser")
	if err != nil {
		return nil, err
	}
	defer done()

	for _, u := range st.users {
		if u.Email == input.Email {
			return nil, &apperr.ConflictError{Entity: "user", Message: "email already registered: " + input.Email}
		}
	}
	u := db.User{
		ID:        uuid.New(),
		CompanyID: input.CompanyID,
		Name:      input.Name,
		Email:     input.Email,
		Role:      input.Role,
		CreatedAt: q.clock(),
	}
	st.users = append(st.users, u)
	return &u, nil
}

func (q *queries) GetUser(_ context.Context, id uuid.UUID) (*db.User, error) {
	st, done, err := q.begin("GetUser")
	if err != nil {
		return nil, err
	}
	defer done()

	for _, u := range st.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, nil
}

func (q *queries) ListUsers(_ context.Context, companyID uuid.UUID, roles ...rbac.Role) ([]db.User, error) {
	st, done, err := q.begin("ListUsers")
	if err != nil {
		return nil, err
	}
	defer done()

	out := []db.User{}
	for _, u := range st.users {
		if u.CompanyID != companyID {
			continue
		}
		if len(roles) > 0 && !containsRole(roles, u.Role) {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

func (q *queries) CreateNotification(_ context.Context, input *db.NotificationCreateInput) (*db.Notification, error) {
	st, done, err := q.begin("CreateNotification")
	if err != nil {
		return nil, err
	}
	defer done()

	n := db.Notification{
		ID:         uuid.New(),
		UserID:     input.UserID,
		Type:       input.Type,
		Title:      input.Title,
		Message:    input.Message,
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		CreatedAt:  q.clock(),
	}
	st.notifications = append(st.notifications, n)
	return &n, nil
}

func (q *queries) ListNotifications(_ context.Context, userID uuid.UUID) ([]db.Notification, error) {
	st, done, err := q.begin("ListNotifications")
	if err != nil {
		return nil, err
	}
	defer done()

	out := []db.Notification{}
	for i := len(st.notifications) - 1; i >= 0; i-- {
		if st.notifications[i].UserID == userID {
			out = append(out, st.notifications[i])
		}
	}
	return out, nil
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func containsRole(roles []rbac.Role, r rbac.Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}
