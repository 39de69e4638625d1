package candidates

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/apperr"
	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/notify"
	"github.com/jonathan/talent-pipeline/internal/observability"
	"github.com/jonathan/talent-pipeline/internal/pipeline"
	"github.com/jonathan/talent-pipeline/internal/rbac"
)

// MoveRequest asks for a job candidate to enter a stage
type MoveRequest struct {
	StageID uuid.UUID `json:"stage_id" validate:"required"`
	Reason  string    `json:"reason" validate:"max=1000"`
	Comment string    `json:"comment" validate:"max=2000"`
}

// MoveResult describes a completed transition. Moved is false when the job
// candidate already sat in the target stage.
type MoveResult struct {
	JobCandidate db.JobCandidate   `json:"job_candidate"`
	FromStage    *db.PipelineStage `json:"from_stage,omitempty"`
	ToStage      db.PipelineStage  `json:"to_stage"`
	Entry        *db.StageHistory  `json:"entry,omitempty"`
	Moved        bool              `json:"moved"`
}

// BulkMoveRequest moves many job candidates to one stage
type BulkMoveRequest struct {
	JobCandidateIDs []uuid.UUID `json:"job_candidate_ids" validate:"required,min=1,max=500"`
	StageID         uuid.UUID   `json:"stage_id" validate:"required"`
	Reason          string      `json:"reason" validate:"max=1000"`
	Comment         string      `json:"comment" validate:"max=2000"`
}

// BulkFailure is one job candidate that could not be moved
type BulkFailure struct {
	JobCandidateID uuid.UUID `json:"job_candidate_id"`
	Error          string    `json:"error"`
}

// BulkMoveResult reports the outcome of a bulk move. Ids already at the
// target count as skipped, neither moved nor failed.
type BulkMoveResult struct {
	MovedCount   int           `json:"moved_count"`
	SkippedCount int           `json:"skipped_count"`
	FailedCount  int           `json:"failed_count"`
	Failures     []BulkFailure `json:"failures"`
}

// transition is what a committed move needs for its side effects.
type transition struct {
	result    MoveResult
	job       db.Job
	candidate db.Candidate
}

// MoveCandidate moves a job candidate to req.StageID. The open ledger entry
// is closed, a new one opened, the current stage pointer updated and a
// stage_change activity appended, all in one transaction. Entering a
// rejection stage requires a reason or a comment.
func (s *Service) MoveCandidate(ctx context.Context, actor rbac.Principal, jobCandidateID uuid.UUID, req MoveRequest) (*MoveResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.FromValidator(err)
	}
	result, err := s.move(ctx, actor, jobCandidateID, req, "single")
	if err != nil {
		observability.StageTransitions.WithLabelValues("single", "failed").Inc()
		return nil, err
	}
	return result, nil
}

// BulkMove applies MoveCandidate to every id independently. Per-id failures
// are collected in the result; committed moves are kept. When ctx ends
// mid-batch the ids not yet attempted are reported as failures and the
// partial result is returned together with the context error.
func (s *Service) BulkMove(ctx context.Context, actor rbac.Principal, req BulkMoveRequest) (*BulkMoveResult, error) {
	if err := rbac.Authorize(actor, rbac.CandidatesMove); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.FromValidator(err)
	}
	observability.BulkMoveSize.Observe(float64(len(req.JobCandidateIDs)))

	out := &BulkMoveResult{Failures: []BulkFailure{}}
	move := MoveRequest{StageID: req.StageID, Reason: req.Reason, Comment: req.Comment}
	for i, id := range req.JobCandidateIDs {
		if err := ctx.Err(); err != nil {
			for _, rest := range req.JobCandidateIDs[i:] {
				out.FailedCount++
				out.Failures = append(out.Failures, BulkFailure{JobCandidateID: rest, Error: err.Error()})
			}
			s.logger.Warn("bulk move interrupted",
				zap.Int("moved", out.MovedCount),
				zap.Int("remaining", len(req.JobCandidateIDs)-i),
				zap.Error(err))
			return out, err
		}
		result, err := s.move(ctx, actor, id, move, "bulk")
		switch {
		case err != nil:
			observability.StageTransitions.WithLabelValues("bulk", "failed").Inc()
			out.FailedCount++
			out.Failures = append(out.Failures, BulkFailure{JobCandidateID: id, Error: err.Error()})
		case result.Moved:
			out.MovedCount++
		default:
			out.SkippedCount++
		}
	}

	s.logger.Info("bulk move finished",
		zap.Stringer("stage_id", req.StageID),
		zap.Int("moved", out.MovedCount),
		zap.Int("skipped", out.SkippedCount),
		zap.Int("failed", out.FailedCount))
	return out, nil
}

func (s *Service) move(ctx context.Context, actor rbac.Principal, jobCandidateID uuid.UUID, req MoveRequest, kind string) (*MoveResult, error) {
	var t transition
	now := s.now()

	err := s.store.InTx(ctx, func(q db.Querier) error {
		jc, job, err := s.loadJobCandidate(ctx, q, actor, rbac.CandidatesMove, jobCandidateID)
		if err != nil {
			return err
		}
		stages, err := q.ListStages(ctx, job.ID)
		if err != nil {
			return err
		}

		var from, to *db.PipelineStage
		for i := range stages {
			if stages[i].ID == jc.CurrentStageID {
				from = &stages[i]
			}
			if stages[i].ID == req.StageID {
				to = &stages[i]
			}
		}
		if to == nil {
			return apperr.Validation("stage_id", "stage %s is not part of this job's pipeline", req.StageID)
		}

		t.job = *job
		t.result = MoveResult{JobCandidate: *jc, FromStage: from, ToStage: *to}
		if jc.CurrentStageID == to.ID {
			return nil
		}

		reason := strings.TrimSpace(req.Reason)
		comment := strings.TrimSpace(req.Comment)
		rejection := pipeline.IsRejectionStage(to.Name)
		if rejection && reason == "" && comment == "" {
			return apperr.Validation("reason", "a reason or comment is required to move into %q", to.Name)
		}

		cand, err := q.GetCandidate(ctx, jc.CandidateID)
		if err != nil {
			return err
		}
		if cand == nil {
			return apperr.NotFound("candidate", jc.CandidateID)
		}
		t.candidate = *cand

		open, err := q.GetOpenStageHistory(ctx, jc.ID)
		if err != nil {
			return err
		}
		if open != nil {
			hours := now.Sub(open.EnteredAt).Hours()
			if hours < 0 {
				hours = 0
			}
			if err := q.CloseStageHistory(ctx, open.ID, now, hours); err != nil {
				return err
			}
		}

		entry, err := q.CreateStageHistory(ctx, &db.StageHistoryCreateInput{
			JobCandidateID: jc.ID,
			StageID:        to.ID,
			EnteredAt:      now,
			Comment:        ledgerComment(reason, comment),
			MovedByID:      &actor.UserID,
		})
		if err != nil {
			return err
		}
		if err := q.UpdateJobCandidateStage(ctx, jc.ID, to.ID); err != nil {
			return err
		}

		meta := db.StageChangeMetadata{
			ToStageID:   to.ID,
			ToStageName: to.Name,
			Reason:      reason,
			Comment:     comment,
			JobID:       job.ID,
		}
		fromName := "unknown stage"
		if from != nil {
			meta.FromStageID = &from.ID
			meta.FromStageName = from.Name
			fromName = from.Name
		}
		description := fmt.Sprintf("Moved from %s to %s", fromName, to.Name)
		if rejection && reason != "" {
			description += ": " + reason
		}
		if _, err := q.CreateActivity(ctx, &db.ActivityCreateInput{
			CandidateID:    jc.CandidateID,
			JobCandidateID: &jc.ID,
			ActorID:        &actor.UserID,
			ActivityType:   db.ActivityStageChange,
			Description:    description,
			Metadata:       meta,
			CreatedAt:      now,
		}); err != nil {
			return err
		}

		t.result.JobCandidate.CurrentStageID = to.ID
		t.result.JobCandidate.UpdatedAt = now
		t.result.Entry = entry
		t.result.Moved = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !t.result.Moved {
		observability.StageTransitions.WithLabelValues(kind, "skipped").Inc()
		return &t.result, nil
	}
	observability.StageTransitions.WithLabelValues(kind, "moved").Inc()
	s.logger.Info("candidate moved",
		zap.Stringer("job_candidate_id", jobCandidateID),
		zap.Stringer("to_stage_id", t.result.ToStage.ID),
		zap.String("kind", kind))

	s.notifier.NotifyJob(ctx, &t.job, actor.UserID, notify.Message{
		Type:       db.NotificationStageChange,
		Title:      "Candidate moved to " + t.result.ToStage.Name,
		Body:       fmt.Sprintf("%s moved to %s for %s", t.candidate.FullName(), t.result.ToStage.Name, t.job.Title),
		EntityType: "job_candidate",
		EntityID:   &t.result.JobCandidate.ID,
	})
	s.invalidate(ctx, t.job.CompanyID)
	return &t.result, nil
}

// ledgerComment is the comment stored on a new ledger entry: the reason when
// given, otherwise the comment.
func ledgerComment(reason, comment string) *string {
	switch {
	case reason != "":
		return &reason
	case comment != "":
		return &comment
	}
	return nil
}
