// Package candidates implements candidate records, job applications, stage
// transitions, scoring and interviews.
package candidates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/apperr"
	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/notify"
	"github.com/jonathan/talent-pipeline/internal/rbac"
)

// Invalidator drops cached analytics for a company.
type Invalidator interface {
	Invalidate(ctx context.Context, companyID uuid.UUID) error
}

// Service implements candidate operations
type Service struct {
	store    db.Store
	notifier notify.Notifier
	cache    Invalidator
	logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates a candidate service. notifier and cache may be nil.
func NewService(store db.Store, notifier notify.Notifier, cache Invalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{
		store:    store,
		notifier: notifier,
		cache:    cache,
		logger:   logger,
		validate: apperr.NewValidator(),
		now:      time.Now,
	}
}

// WithClock replaces the service clock and returns s.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateCandidateRequest is the body of a candidate creation
type CreateCandidateRequest struct {
	FirstName       string   `json:"first_name" validate:"required,max=100"`
	LastName        string   `json:"last_name" validate:"max=100"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           string   `json:"phone" validate:"max=50"`
	Location        string   `json:"location" validate:"max=100"`
	ExperienceYears *float64 `json:"experience_years" validate:"omitnil,gte=0,lte=80"`
	Skills          []string `json:"skills" validate:"max=100,dive,required,max=100"`
}

// ---- Candidate Methods ----

// CreateCandidate stores a new candidate. Emails are unique per company.
func (s *Service) CreateCandidate(ctx context.Context, actor rbac.Principal, req CreateCandidateRequest) (*db.Candidate, error) {
	if err := rbac.Authorize(actor, rbac.CandidatesCreate); err != nil {
		return nil, err
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.FromValidator(err)
	}

	cand, err := s.store.CreateCandidate(ctx, &db.CandidateCreateInput{
		CompanyID:       actor.CompanyID,
		FirstName:       req.FirstName,
		LastName:        strings.TrimSpace(req.LastName),
		Email:           req.Email,
		Phone:           strings.TrimSpace(req.Phone),
		Location:        strings.TrimSpace(req.Location),
		ExperienceYears: req.ExperienceYears,
		Skills:          normalizeSkills(req.Skills),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("candidate created", zap.Stringer("candidate_id", cand.ID))
	return cand, nil
}

// GetCandidate returns a candidate of the actor's company.
func (s *Service) GetCandidate(ctx context.Context, actor rbac.Principal, candidateID uuid.UUID) (*db.Candidate, error) {
	if err := rbac.Authorize(actor, rbac.CandidatesRead); err != nil {
		return nil, err
	}
	return s.loadCandidate(ctx, s.store, actor, candidateID)
}

// Activities returns the candidate's timeline, oldest first.
func (s *Service) Activities(ctx context.Context, actor rbac.Principal, candidateID uuid.UUID) ([]db.CandidateActivity, error) {
	if err := rbac.Authorize(actor, rbac.CandidatesRead); err != nil {
		return nil, err
	}
	if _, err := s.loadCandidate(ctx, s.store, actor, candidateID); err != nil {
		return nil, err
	}
	return s.store.ListActivities(ctx, candidateID)
}

// ---- Application Methods ----

// AddToJob applies a candidate to a job. The candidate starts in the first
// stage of the pipeline with an open ledger entry.
func (s *Service) AddToJob(ctx context.Context, actor rbac.Principal, jobID, candidateID uuid.UUID) (*db.JobCandidate, error) {
	var jc *db.JobCandidate
	var job *db.Job
	now := s.now()

	err := s.store.InTx(ctx, func(q db.Querier) error {
		var err error
		job, err = s.loadJob(ctx, q, actor, rbac.CandidatesCreate, jobID)
		if err != nil {
			return err
		}
		if job.Status == db.JobStatusClosed {
			return apperr.Validation("job", "job %s is closed", job.ID)
		}
		cand, err := s.loadCandidate(ctx, q, actor, candidateID)
		if err != nil {
			return err
		}
		stages, err := q.ListStages(ctx, jobID)
		if err != nil {
			return err
		}
		if len(stages) == 0 {
			return apperr.Validation("job", "job has no pipeline stages")
		}
		first := stages[0]

		jc, err = q.CreateJobCandidate(ctx, &db.JobCandidateCreateInput{
			JobID:          jobID,
			CandidateID:    candidateID,
			CurrentStageID: first.ID,
			AddedByID:      &actor.UserID,
			AppliedAt:      now,
		})
		if err != nil {
			return err
		}
		if _, err := q.CreateStageHistory(ctx, &db.StageHistoryCreateInput{
			JobCandidateID: jc.ID,
			StageID:        first.ID,
			EnteredAt:      now,
			MovedByID:      &actor.UserID,
		}); err != nil {
			return err
		}
		_, err = q.CreateActivity(ctx, &db.ActivityCreateInput{
			CandidateID:    cand.ID,
			JobCandidateID: &jc.ID,
			ActorID:        &actor.UserID,
			ActivityType:   db.ActivityApplicationCreated,
			Description:    fmt.Sprintf("Added to %s in %s", job.Title, first.Name),
			Metadata:       db.ApplicationMetadata{JobID: jobID, StageID: first.ID, StageName: first.Name},
			CreatedAt:      now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("candidate added to job",
		zap.Stringer("job_candidate_id", jc.ID),
		zap.Stringer("job_id", jobID))
	s.invalidate(ctx, job.CompanyID)
	return jc, nil
}

// History returns the stage ledger of one application, oldest first.
func (s *Service) History(ctx context.Context, actor rbac.Principal, jobCandidateID uuid.UUID) ([]db.StageHistory, error) {
	if _, _, err := s.loadJobCandidate(ctx, s.store, actor, rbac.CandidatesRead, jobCandidateID); err != nil {
		return nil, err
	}
	return s.store.ListStageHistory(ctx, []uuid.UUID{jobCandidateID})
}

// ---- Helpers ----

func (s *Service) loadCandidate(ctx context.Context, q db.Querier, actor rbac.Principal, id uuid.UUID) (*db.Candidate, error) {
	cand, err := q.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	if cand == nil || cand.CompanyID != actor.CompanyID {
		return nil, apperr.NotFound("candidate", id)
	}
	return cand, nil
}

func (s *Service) loadJob(ctx context.Context, q db.Querier, actor rbac.Principal, perm rbac.Permission, id uuid.UUID) (*db.Job, error) {
	if err := rbac.Authorize(actor, perm); err != nil {
		return nil, err
	}
	job, err := q.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apperr.NotFound("job", id)
	}
	if err := rbac.AuthorizeJob(actor, perm, job.CompanyID, job.AssignedRecruiterID); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Service) loadJobCandidate(ctx context.Context, q db.Querier, actor rbac.Principal, perm rbac.Permission, id uuid.UUID) (*db.JobCandidate, *db.Job, error) {
	if err := rbac.Authorize(actor, perm); err != nil {
		return nil, nil, err
	}
	jc, err := q.GetJobCandidate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if jc == nil {
		return nil, nil, apperr.NotFound("job candidate", id)
	}
	job, err := s.loadJob(ctx, q, actor, perm, jc.JobID)
	if err != nil {
		return nil, nil, err
	}
	return jc, job, nil
}

func (s *Service) invalidate(ctx context.Context, companyID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, companyID); err != nil {
		s.logger.Warn("failed to invalidate analytics cache",
			zap.Stringer("company_id", companyID),
			zap.Error(err))
	}
}

// normalizeSkills trims, drops blanks and removes case-insensitive duplicates.
func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]bool, len(skills))
	for _, sk := range skills {
		sk = strings.TrimSpace(sk)
		key := strings.ToLower(sk)
		if sk == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sk)
	}
	return out
}
