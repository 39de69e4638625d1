package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Interview Methods
// -----------------------------------------------------------------------------

const interviewColumns = `i.id, i.job_candidate_id, i.title, i.scheduled_at, i.duration_minutes,
	COALESCE(i.meeting_url, ''), i.status, i.scheduled_by_id, i.created_at,
	COALESCE(ARRAY(SELECT p.user_id FROM interview_panels p WHERE p.interview_id = i.id ORDER BY p.user_id), '{}')`

func scanInterview(row pgx.Row, iv *Interview) error {
	return row.Scan(&iv.ID, &iv.JobCandidateID, &iv.Title, &iv.ScheduledAt, &iv.DurationMinutes,
		&iv.MeetingURL, &iv.Status, &iv.ScheduledByID, &iv.CreatedAt, &iv.PanelMemberIDs)
}

// CreateInterview inserts an interview and its panel
func (q *queries) CreateInterview(ctx context.Context, input *InterviewCreateInput) (*Interview, error) {
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id uuid.UUID
	err := q.conn.QueryRow(ctx,
		`INSERT INTO interviews (job_candidate_id, title, scheduled_at, duration_minutes, meeting_url,
		                         scheduled_by_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		input.JobCandidateID, input.Title, input.ScheduledAt, input.DurationMinutes,
		nullIfEmpty(input.MeetingURL), input.ScheduledByID, createdAt,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create interview: %w", err)
	}

	for _, userID := range input.PanelMemberIDs {
		_, err := q.conn.Exec(ctx,
			`INSERT INTO interview_panels (interview_id, user_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, id, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to add panel member: %w", err)
		}
	}

	iv, err := q.GetInterview(ctx, id)
	if err != nil {
		return nil, err
	}
	if iv == nil {
		return nil, fmt.Errorf("created interview not found: %s", id)
	}
	return iv, nil
}

// GetInterview retrieves an interview with its panel
func (q *queries) GetInterview(ctx context.Context, id uuid.UUID) (*Interview, error) {
	var iv Interview
	err := scanInterview(q.conn.QueryRow(ctx,
		`SELECT `+interviewColumns+` FROM interviews i WHERE i.id = $1`, id), &iv)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	return &iv, nil
}

// ListInterviews retrieves the interviews of several job candidates
func (q *queries) ListInterviews(ctx context.Context, jobCandidateIDs []uuid.UUID) ([]Interview, error) {
	out := []Interview{}
	if len(jobCandidateIDs) == 0 {
		return out, nil
	}

	rows, err := q.conn.Query(ctx,
		`SELECT `+interviewColumns+` FROM interviews i
		 WHERE i.job_candidate_id = ANY($1) ORDER BY i.scheduled_at`, jobCandidateIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var iv Interview
		if err := scanInterview(rows, &iv); err != nil {
			return nil, fmt.Errorf("failed to scan interview: %w", err)
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// UpdateInterviewStatus sets an interview's status
func (q *queries) UpdateInterviewStatus(ctx context.Context, id uuid.UUID, status InterviewStatus) error {
	result, err := q.conn.Exec(ctx, `UPDATE interviews SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update interview status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("interview not found: %s", id)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Interview Feedback Methods
// -----------------------------------------------------------------------------

// CreateFeedback stores a reviewer's feedback. One submission per reviewer
// per interview; a second yields *apperr.ConflictError.
func (q *queries) CreateFeedback(ctx context.Context, input *FeedbackCreateInput) (*InterviewFeedback, error) {
	ratings := input.Ratings
	if ratings == nil {
		ratings = map[string]int{}
	}
	ratingsJSON, err := json.Marshal(ratings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ratings: %w", err)
	}
	submittedAt := input.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now()
	}

	var f InterviewFeedback
	var notes *string
	err = q.conn.QueryRow(ctx,
		`INSERT INTO interview_feedback (interview_id, reviewer_id, recommendation, ratings, notes, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, interview_id, reviewer_id, recommendation, ratings, notes, submitted_at`,
		input.InterviewID, input.ReviewerID, input.Recommendation, ratingsJSON, nullIfEmpty(input.Notes), submittedAt,
	).Scan(&f.ID, &f.InterviewID, &f.ReviewerID, &f.Recommendation, &ratingsJSON, &notes, &f.SubmittedAt)
	if err != nil {
		return nil, conflictOr(err, "interview feedback", "feedback already submitted by this reviewer", "failed to create feedback")
	}
	f.Notes = derefString(notes)
	if err := json.Unmarshal(ratingsJSON, &f.Ratings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ratings: %w", err)
	}
	return &f, nil
}

// ListFeedback retrieves feedback for several interviews
func (q *queries) ListFeedback(ctx context.Context, interviewIDs []uuid.UUID) ([]InterviewFeedback, error) {
	out := []InterviewFeedback{}
	if len(interviewIDs) == 0 {
		return out, nil
	}

	rows, err := q.conn.Query(ctx,
		`SELECT id, interview_id, reviewer_id, recommendation, ratings, notes, submitted_at
		 FROM interview_feedback WHERE interview_id = ANY($1) ORDER BY submitted_at`, interviewIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f InterviewFeedback
		var ratingsJSON []byte
		var notes *string
		if err := rows.Scan(&f.ID, &f.InterviewID, &f.ReviewerID, &f.Recommendation, &ratingsJSON,
			&notes, &f.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		f.Notes = derefString(notes)
		if len(ratingsJSON) > 0 {
			if err := json.Unmarshal(ratingsJSON, &f.Ratings); err != nil {
				return nil, fmt.Errorf("failed to unmarshal ratings: %w", err)
			}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
