package candidates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/apperr"
	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/notify"
	"github.com/jonathan/talent-pipeline/internal/rbac"
)

const defaultInterviewMinutes = 60

// ScheduleInterviewRequest is the body of an interview scheduling. The
// meeting link is generated elsewhere and passed in as-is.
type ScheduleInterviewRequest struct {
	Title           string      `json:"title" validate:"required,max=200"`
	ScheduledAt     time.Time   `json:"scheduled_at" validate:"required"`
	DurationMinutes int         `json:"duration_minutes" validate:"omitempty,gte=5,lte=600"`
	MeetingURL      string      `json:"meeting_url" validate:"omitempty,url"`
	PanelMemberIDs  []uuid.UUID `json:"panel_member_ids" validate:"required,min=1,max=20"`
}

// FeedbackRequest is one panel member's evaluation
type FeedbackRequest struct {
	Recommendation db.Recommendation `json:"recommendation" validate:"required,oneof=strong_yes yes neutral no strong_no"`
	Ratings        map[string]int    `json:"ratings" validate:"max=20,dive,keys,required,max=100,endkeys,gte=1,lte=5"`
	Notes          string            `json:"notes" validate:"max=5000"`
}

// ScheduleInterview books an interview for a job candidate with a panel of
// company users.
func (s *Service) ScheduleInterview(ctx context.Context, actor rbac.Principal, jobCandidateID uuid.UUID, req ScheduleInterviewRequest) (*db.Interview, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.FromValidator(err)
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = defaultInterviewMinutes
	}

	var iv *db.Interview
	var job *db.Job
	now := s.now()
	err := s.store.InTx(ctx, func(q db.Querier) error {
		jc, j, err := s.loadJobCandidate(ctx, q, actor, rbac.InterviewsCreate, jobCandidateID)
		if err != nil {
			return err
		}
		job = j

		for _, id := range req.PanelMemberIDs {
			u, err := q.GetUser(ctx, id)
			if err != nil {
				return err
			}
			if u == nil || u.CompanyID != job.CompanyID {
				return apperr.Validation("panel_member_ids", "user %s is not a member of this company", id)
			}
		}

		iv, err = q.CreateInterview(ctx, &db.InterviewCreateInput{
			JobCandidateID:  jc.ID,
			Title:           req.Title,
			ScheduledAt:     req.ScheduledAt,
			DurationMinutes: req.DurationMinutes,
			MeetingURL:      req.MeetingURL,
			ScheduledByID:   &actor.UserID,
			PanelMemberIDs:  req.PanelMemberIDs,
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}
		_, err = q.CreateActivity(ctx, &db.ActivityCreateInput{
			CandidateID:    jc.CandidateID,
			JobCandidateID: &jc.ID,
			ActorID:        &actor.UserID,
			ActivityType:   db.ActivityInterviewScheduled,
			Description:    fmt.Sprintf("Interview %q scheduled for %s", iv.Title, iv.ScheduledAt.UTC().Format(time.RFC3339)),
			Metadata:       db.InterviewMetadata{InterviewID: iv.ID, ScheduledAt: iv.ScheduledAt},
			CreatedAt:      now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("interview scheduled",
		zap.Stringer("interview_id", iv.ID),
		zap.Stringer("job_candidate_id", jobCandidateID),
		zap.Int("panel", len(iv.PanelMemberIDs)))
	s.notifier.NotifyJob(ctx, job, actor.UserID, notify.Message{
		Type:       db.NotificationInterviewScheduled,
		Title:      "Interview scheduled",
		Body:       fmt.Sprintf("%s for %s on %s", iv.Title, job.Title, iv.ScheduledAt.UTC().Format(time.RFC1123)),
		EntityType: "interview",
		EntityID:   &iv.ID,
	})
	s.invalidate(ctx, job.CompanyID)
	return iv, nil
}

// SubmitFeedback records the acting panel member's feedback. The interview
// is marked completed once every panel member has submitted.
func (s *Service) SubmitFeedback(ctx context.Context, actor rbac.Principal, interviewID uuid.UUID, req FeedbackRequest) (*db.InterviewFeedback, error) {
	if err := rbac.Authorize(actor, rbac.FeedbackCreate); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.FromValidator(err)
	}

	var fb *db.InterviewFeedback
	var companyID uuid.UUID
	now := s.now()
	err := s.store.InTx(ctx, func(q db.Querier) error {
		iv, err := q.GetInterview(ctx, interviewID)
		if err != nil {
			return err
		}
		if iv == nil {
			return apperr.NotFound("interview", interviewID)
		}
		if iv.Status == db.InterviewCancelled {
			return apperr.Validation("interview", "interview %s was cancelled", iv.ID)
		}
		jc, err := q.GetJobCandidate(ctx, iv.JobCandidateID)
		if err != nil {
			return err
		}
		if jc == nil {
			return apperr.NotFound("job candidate", iv.JobCandidateID)
		}
		job, err := q.GetJob(ctx, jc.JobID)
		if err != nil {
			return err
		}
		if job == nil || job.CompanyID != actor.CompanyID {
			return apperr.NotFound("interview", interviewID)
		}
		companyID = job.CompanyID
		if !containsID(iv.PanelMemberIDs, actor.UserID) {
			return &apperr.AuthorizationError{Action: string(rbac.FeedbackCreate), Message: "only panel members can submit feedback"}
		}

		fb, err = q.CreateFeedback(ctx, &db.FeedbackCreateInput{
			InterviewID:    iv.ID,
			ReviewerID:     actor.UserID,
			Recommendation: req.Recommendation,
			Ratings:        req.Ratings,
			Notes:          strings.TrimSpace(req.Notes),
			SubmittedAt:    now,
		})
		if err != nil {
			return err
		}

		all, err := q.ListFeedback(ctx, []uuid.UUID{iv.ID})
		if err != nil {
			return err
		}
		if len(all) >= len(iv.PanelMemberIDs) && iv.Status == db.InterviewScheduled {
			if err := q.UpdateInterviewStatus(ctx, iv.ID, db.InterviewCompleted); err != nil {
				return err
			}
		}

		_, err = q.CreateActivity(ctx, &db.ActivityCreateInput{
			CandidateID:    jc.CandidateID,
			JobCandidateID: &jc.ID,
			ActorID:        &actor.UserID,
			ActivityType:   db.ActivityFeedbackSubmitted,
			Description:    fmt.Sprintf("Feedback submitted for %q: %s", iv.Title, req.Recommendation),
			Metadata:       db.InterviewMetadata{InterviewID: iv.ID, ScheduledAt: iv.ScheduledAt, Recommendation: string(req.Recommendation)},
			CreatedAt:      now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("interview feedback submitted",
		zap.Stringer("interview_id", interviewID),
		zap.String("recommendation", string(req.Recommendation)))
	s.invalidate(ctx, companyID)
	return fb, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
