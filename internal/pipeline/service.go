// Package pipeline manages jobs and the ordered stages of their hiring
// funnels.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/apperr"
	"github.com/jonathan/talent-pipeline/internal/config"
	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/rbac"
)

// Invalidator drops cached analytics for a company.
type Invalidator interface {
	Invalidate(ctx context.Context, companyID uuid.UUID) error
}

// Service implements job and stage operations
type Service struct {
	store    db.Store
	defaults config.PipelineDefaults
	cache    Invalidator
	logger   *zap.Logger
	validate *validator.Validate
}

// NewService creates a pipeline service. cache may be nil.
func NewService(store db.Store, defaults config.PipelineDefaults, cache Invalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		defaults: defaults,
		cache:    cache,
		logger:   logger,
		validate: apperr.NewValidator(),
	}
}

// CreateJobRequest is the body of a job creation
type CreateJobRequest struct {
	Title               string     `json:"title" validate:"required,max=200"`
	Department          string     `json:"department" validate:"max=100"`
	Location            string     `json:"location" validate:"max=100"`
	Status              string     `json:"status" validate:"omitempty,oneof=active paused closed"`
	AssignedRecruiterID *uuid.UUID `json:"assigned_recruiter_id"`
}

// InsertStageRequest is the body of a stage insertion
type InsertStageRequest struct {
	Name          string     `json:"name" validate:"required,max=100"`
	Position      int        `json:"position" validate:"gte=0"`
	IsMandatory   bool       `json:"is_mandatory"`
	ParentStageID *uuid.UUID `json:"parent_stage_id"`
}

// JobWithStages is a job and its ordered stages
type JobWithStages struct {
	db.Job
	Stages []db.PipelineStage `json:"stages"`
}

// ---- Job Methods ----

// CreateJob creates a job together with its default stages, positioned
// 0..N-1 in template order and flagged IsDefault.
func (s *Service) CreateJob(ctx context.Context, actor rbac.Principal, req CreateJobRequest) (*JobWithStages, error) {
	if err := rbac.Authorize(actor, rbac.JobsCreate); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.FromValidator(err)
	}
	if req.AssignedRecruiterID != nil {
		if err := s.checkRecruiter(ctx, actor.CompanyID, *req.AssignedRecruiterID); err != nil {
			return nil, err
		}
	}

	var out JobWithStages
	err := s.store.InTx(ctx, func(q db.Querier) error {
		job, err := q.CreateJob(ctx, &db.JobCreateInput{
			CompanyID:           actor.CompanyID,
			Title:               req.Title,
			Department:          strings.TrimSpace(req.Department),
			Location:            strings.TrimSpace(req.Location),
			Status:              db.JobStatus(req.Status),
			AssignedRecruiterID: req.AssignedRecruiterID,
		})
		if err != nil {
			return err
		}
		out.Job = *job

		for i, tmpl := range s.defaults.Stages {
			stage, err := q.CreateStage(ctx, &db.StageCreateInput{
				JobID:       job.ID,
				Name:        strings.TrimSpace(tmpl.Name),
				Position:    i,
				IsDefault:   true,
				IsMandatory: tmpl.Mandatory,
			})
			if err != nil {
				return fmt.Errorf("failed to create default stage %q: %w", tmpl.Name, err)
			}
			out.Stages = append(out.Stages, *stage)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("job created",
		zap.Stringer("job_id", out.ID),
		zap.Stringer("company_id", out.CompanyID),
		zap.Int("stages", len(out.Stages)))
	s.invalidate(ctx, out.CompanyID)
	return &out, nil
}

// GetJob returns a job the actor may read, with its stages.
func (s *Service) GetJob(ctx context.Context, actor rbac.Principal, jobID uuid.UUID) (*JobWithStages, error) {
	job, err := s.loadJob(ctx, s.store, actor, rbac.JobsRead, jobID)
	if err != nil {
		return nil, err
	}
	stages, err := s.store.ListStages(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	return &JobWithStages{Job: *job, Stages: stages}, nil
}

// ListJobs returns the company's jobs matching filter. Recruiters only see
// jobs assigned to them.
func (s *Service) ListJobs(ctx context.Context, actor rbac.Principal, filter db.JobFilter) ([]db.Job, error) {
	if err := rbac.Authorize(actor, rbac.JobsRead); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Validation("status", "unknown job status %q", filter.Status)
	}
	filter.CompanyID = actor.CompanyID
	if actor.IsRecruiter() {
		filter.AssignedRecruiterID = &actor.UserID
	}
	return s.store.ListJobs(ctx, filter)
}

// UpdateJobStatus sets a job's status. Closed jobs are kept.
func (s *Service) UpdateJobStatus(ctx context.Context, actor rbac.Principal, jobID uuid.UUID, status db.JobStatus) (*db.Job, error) {
	if !status.Valid() {
		return nil, apperr.Validation("status", "must be one of active, paused, closed")
	}
	job, err := s.loadJob(ctx, s.store, actor, rbac.JobsUpdate, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == status {
		return job, nil
	}
	if err := s.store.UpdateJobStatus(ctx, jobID, status); err != nil {
		return nil, err
	}
	s.logger.Info("job status changed",
		zap.Stringer("job_id", jobID),
		zap.String("from", string(job.Status)),
		zap.String("to", string(status)))
	s.invalidate(ctx, job.CompanyID)

	job.Status = status
	return job, nil
}

// ---- Stage Methods ----

// ListStages returns the job's stages ordered by position.
func (s *Service) ListStages(ctx context.Context, actor rbac.Principal, jobID uuid.UUID) ([]db.PipelineStage, error) {
	if _, err := s.loadJob(ctx, s.store, actor, rbac.PipelineRead, jobID); err != nil {
		return nil, err
	}
	return s.store.ListStages(ctx, jobID)
}

// InsertStage adds a stage at req.Position, shifting every stage at or after
// that position up by one. The new stage is never a default stage.
func (s *Service) InsertStage(ctx context.Context, actor rbac.Principal, jobID uuid.UUID, req InsertStageRequest) (*db.PipelineStage, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.FromValidator(err)
	}

	var created *db.PipelineStage
	var companyID uuid.UUID
	err := s.store.InTx(ctx, func(q db.Querier) error {
		job, err := s.loadJob(ctx, q, actor, rbac.PipelineUpdate, jobID)
		if err != nil {
			return err
		}
		companyID = job.CompanyID

		stages, err := q.ListStages(ctx, jobID)
		if err != nil {
			return err
		}
		for _, st := range stages {
			if strings.EqualFold(st.Name, req.Name) {
				return &apperr.ConflictError{Entity: "stage", Message: fmt.Sprintf("stage %q already exists in this job", st.Name)}
			}
		}
		if req.ParentStageID != nil && !containsStage(stages, *req.ParentStageID) {
			return apperr.Validation("parent_stage_id", "parent stage does not belong to this job")
		}

		// The new stage's id is not known yet; InsertAt is given a
		// placeholder and its own placement is skipped.
		placeholder := uuid.New()
		plan, err := InsertAt(stages, placeholder, req.Position)
		if err != nil {
			return err
		}
		for _, p := range plan {
			if p.StageID == placeholder {
				continue
			}
			if err := q.UpdateStagePosition(ctx, p.StageID, p.Position); err != nil {
				return err
			}
		}

		created, err = q.CreateStage(ctx, &db.StageCreateInput{
			JobID:         jobID,
			Name:          req.Name,
			Position:      req.Position,
			IsDefault:     false,
			IsMandatory:   req.IsMandatory,
			ParentStageID: req.ParentStageID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stage inserted",
		zap.Stringer("job_id", jobID),
		zap.Stringer("stage_id", created.ID),
		zap.Int("position", created.Position))
	s.invalidate(ctx, companyID)
	return created, nil
}

// ReorderStage moves a stage to newPosition and returns the job's stages in
// their new order. Stages between the old and new positions shift by one.
// Moving a stage to its current position changes nothing.
func (s *Service) ReorderStage(ctx context.Context, actor rbac.Principal, stageID uuid.UUID, newPosition int) ([]db.PipelineStage, error) {
	var result []db.PipelineStage
	var companyID uuid.UUID
	changed := false

	err := s.store.InTx(ctx, func(q db.Querier) error {
		stage, err := q.GetStage(ctx, stageID)
		if err != nil {
			return err
		}
		if stage == nil {
			return apperr.NotFound("stage", stageID)
		}
		job, err := s.loadJob(ctx, q, actor, rbac.PipelineUpdate, stage.JobID)
		if err != nil {
			return err
		}
		companyID = job.CompanyID

		stages, err := q.ListStages(ctx, stage.JobID)
		if err != nil {
			return err
		}
		plan, err := Move(stages, stageID, newPosition)
		if err != nil {
			return err
		}
		for _, p := range plan {
			if err := q.UpdateStagePosition(ctx, p.StageID, p.Position); err != nil {
				return err
			}
		}
		changed = len(plan) > 0
		result = Apply(stages, plan)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("stage reordered",
			zap.Stringer("stage_id", stageID),
			zap.Int("position", newPosition))
		s.invalidate(ctx, companyID)
	}
	return result, nil
}

// DeleteStage removes a stage and closes the gap in positions. Mandatory
// stages, the last remaining stage and stages holding candidates cannot be
// deleted.
func (s *Service) DeleteStage(ctx context.Context, actor rbac.Principal, stageID uuid.UUID) ([]db.PipelineStage, error) {
	var result []db.PipelineStage
	var companyID uuid.UUID

	err := s.store.InTx(ctx, func(q db.Querier) error {
		stage, err := q.GetStage(ctx, stageID)
		if err != nil {
			return err
		}
		if stage == nil {
			return apperr.NotFound("stage", stageID)
		}
		job, err := s.loadJob(ctx, q, actor, rbac.PipelineUpdate, stage.JobID)
		if err != nil {
			return err
		}
		companyID = job.CompanyID

		if stage.IsMandatory {
			return apperr.Validation("stage", "mandatory stage %q cannot be deleted", stage.Name)
		}
		stages, err := q.ListStages(ctx, stage.JobID)
		if err != nil {
			return err
		}
		if len(stages) <= 1 {
			return apperr.Validation("stage", "a job must keep at least one stage")
		}
		n, err := q.CountJobCandidatesInStage(ctx, stageID)
		if err != nil {
			return err
		}
		if n > 0 {
			return &apperr.ConflictError{Entity: "stage", Message: fmt.Sprintf("%d candidate(s) are currently in %q", n, stage.Name)}
		}
		visits, err := q.CountStageHistory(ctx, stageID)
		if err != nil {
			return err
		}
		if visits > 0 {
			return &apperr.ConflictError{Entity: "stage", Message: fmt.Sprintf("stage %q has %d history entries", stage.Name, visits)}
		}
		for _, st := range stages {
			if st.ParentStageID != nil && *st.ParentStageID == stageID {
				return &apperr.ConflictError{Entity: "stage", Message: fmt.Sprintf("stage %q has sub-stages", stage.Name)}
			}
		}

		plan, err := Remove(stages, stageID)
		if err != nil {
			return err
		}
		if err := q.DeleteStage(ctx, stageID); err != nil {
			return err
		}
		for _, p := range plan {
			if err := q.UpdateStagePosition(ctx, p.StageID, p.Position); err != nil {
				return err
			}
		}
		remaining := make([]db.PipelineStage, 0, len(stages)-1)
		for _, st := range stages {
			if st.ID != stageID {
				remaining = append(remaining, st)
			}
		}
		result = Apply(remaining, plan)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stage deleted", zap.Stringer("stage_id", stageID))
	s.invalidate(ctx, companyID)
	return result, nil
}

// ---- Helpers ----

func (s *Service) loadJob(ctx context.Context, q db.Querier, actor rbac.Principal, perm rbac.Permission, jobID uuid.UUID) (*db.Job, error) {
	if err := rbac.Authorize(actor, perm); err != nil {
		return nil, err
	}
	job, err := q.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apperr.NotFound("job", jobID)
	}
	if err := rbac.AuthorizeJob(actor, perm, job.CompanyID, job.AssignedRecruiterID); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Service) checkRecruiter(ctx context.Context, companyID, userID uuid.UUID) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.CompanyID != companyID {
		return apperr.Validation("assigned_recruiter_id", "user %s is not a member of this company", userID)
	}
	return nil
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

func containsStage(stages []db.PipelineStage, id uuid.UUID) bool {
	for _, st := range stages {
		if st.ID == id {
			return true
		}
	}
	return false
}
