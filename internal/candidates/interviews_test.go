package candidates

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/talent-pipeline/internal/apperr"
	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/rbac"
)

func TestScheduleInterviewAndFeedback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	jc := env.apply(t, "jane@example.com")
	at := baseTime.Add(72 * time.Hour)

	iv, err := env.svc.ScheduleInterview(ctx, env.recruiter, jc.ID, ScheduleInterviewRequest{
		Title:          "Technical interview",
		ScheduledAt:    at,
		MeetingURL:     "https://meet.example.com/abc",
		PanelMemberIDs: []uuid.UUID{env.admin.UserID, env.outsider.UserID},
	})
	require.NoError(t, err)
	assert.Equal(t, db.InterviewScheduled, iv.Status)
	assert.Equal(t, defaultInterviewMinutes, iv.DurationMinutes)
	assert.ElementsMatch(t, []uuid.UUID{env.admin.UserID, env.outsider.UserID}, iv.PanelMemberIDs)

	require.Len(t, env.notifier.sent, 1)
	assert.Equal(t, db.NotificationInterviewScheduled, env.notifier.sent[0].msg.Type)

	// A panel member who is not the assigned recruiter can still give feedback.
	env.clock.Advance(80 * time.Hour)
	fb, err := env.svc.SubmitFeedback(ctx, env.outsider, iv.ID, FeedbackRequest{
		Recommendation: db.RecommendYes,
		Ratings:        map[string]int{"coding": 4, "communication": 5},
	})
	require.NoError(t, err)
	assert.Equal(t, env.clock.Now(), fb.SubmittedAt)

	stored, err := env.store.GetInterview(ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, db.InterviewScheduled, stored.Status, "one of two panel members submitted")

	_, err = env.svc.SubmitFeedback(ctx, env.outsider, iv.ID, FeedbackRequest{Recommendation: db.RecommendNo})
	assert.True(t, apperr.IsConflict(err))

	_, err = env.svc.SubmitFeedback(ctx, env.admin, iv.ID, FeedbackRequest{Recommendation: db.RecommendStrongYes})
	require.NoError(t, err)

	stored, err = env.store.GetInterview(ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, db.InterviewCompleted, stored.Status)

	acts := env.activities(t, jc.CandidateID)
	types := make([]db.ActivityType, len(acts))
	for i, a := range acts {
		types[i] = a.ActivityType
	}
	assert.Equal(t, []db.ActivityType{
		db.ActivityApplicationCreated,
		db.ActivityInterviewScheduled,
		db.ActivityFeedbackSubmitted,
		db.ActivityFeedbackSubmitted,
	}, types)
}

func TestScheduleInterview_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	jc := env.apply(t, "jane@example.com")
	valid := ScheduleInterviewRequest{
		Title: "Call", ScheduledAt: baseTime, PanelMemberIDs: []uuid.UUID{env.admin.UserID},
	}

	t.Run("empty panel", func(t *testing.T) {
		req := valid
		req.PanelMemberIDs = nil
		_, err := env.svc.ScheduleInterview(ctx, env.recruiter, jc.ID, req)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("missing time", func(t *testing.T) {
		req := valid
		req.ScheduledAt = time.Time{}
		_, err := env.svc.ScheduleInterview(ctx, env.recruiter, jc.ID, req)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("bad meeting url", func(t *testing.T) {
		req := valid
		req.MeetingURL = "not a url"
		_, err := env.svc.ScheduleInterview(ctx, env.recruiter, jc.ID, req)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("panel member outside company", func(t *testing.T) {
		req := valid
		req.PanelMemberIDs = []uuid.UUID{uuid.New()}
		_, err := env.svc.ScheduleInterview(ctx, env.recruiter, jc.ID, req)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("unassigned recruiter", func(t *testing.T) {
		_, err := env.svc.ScheduleInterview(ctx, env.outsider, jc.ID, valid)
		assert.True(t, apperr.IsAuthorization(err))
	})
}

func TestSubmitFeedback_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	jc := env.apply(t, "jane@example.com")
	iv, err := env.svc.ScheduleInterview(ctx, env.recruiter, jc.ID, ScheduleInterviewRequest{
		Title: "Call", ScheduledAt: baseTime, PanelMemberIDs: []uuid.UUID{env.admin.UserID},
	})
	require.NoError(t, err)

	_, err = env.svc.SubmitFeedback(ctx, env.recruiter, iv.ID, FeedbackRequest{Recommendation: db.RecommendYes})
	assert.True(t, apperr.IsAuthorization(err), "not on the panel")

	_, err = env.svc.SubmitFeedback(ctx, env.admin, iv.ID, FeedbackRequest{Recommendation: "maybe"})
	assert.True(t, apperr.IsValidation(err))

	_, err = env.svc.SubmitFeedback(ctx, env.admin, iv.ID, FeedbackRequest{
		Recommendation: db.RecommendYes, Ratings: map[string]int{"coding": 7},
	})
	assert.True(t, apperr.IsValidation(err), "ratings are 1-5")

	_, err = env.svc.SubmitFeedback(ctx, env.admin, uuid.New(), FeedbackRequest{Recommendation: db.RecommendYes})
	assert.True(t, apperr.IsNotFound(err))

	foreign := rbac.Principal{UserID: env.admin.UserID, CompanyID: uuid.New(), Role: rbac.RoleAdmin}
	_, err = env.svc.SubmitFeedback(ctx, foreign, iv.ID, FeedbackRequest{Recommendation: db.RecommendYes})
	assert.True(t, apperr.IsNotFound(err))
}
