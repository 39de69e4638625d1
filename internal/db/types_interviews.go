package db

import (
	"time"

	"github.com/google/uuid"
)

// InterviewStatus is the lifecycle state of an interview
type InterviewStatus string

// Interview status constants
const (
	InterviewScheduled InterviewStatus = "scheduled"
	InterviewCompleted InterviewStatus = "completed"
	InterviewCancelled InterviewStatus = "cancelled"
)

// Recommendation is a reviewer's hiring recommendation
type Recommendation string

// Recommendation values
const (
	RecommendStrongYes Recommendation = "strong_yes"
	RecommendYes       Recommendation = "yes"
	RecommendNeutral   Recommendation = "neutral"
	RecommendNo        Recommendation = "no"
	RecommendStrongNo  Recommendation = "strong_no"
)

// Positive reports whether the recommendation leans towards hiring.
func (r Recommendation) Positive() bool {
	return r == RecommendStrongYes || r == RecommendYes
}

// Interview is a scheduled conversation with a job candidate
type Interview struct {
	ID              uuid.UUID       `json:"id"`
	JobCandidateID  uuid.UUID       `json:"job_candidate_id"`
	Title           string          `json:"title"`
	ScheduledAt     time.Time       `json:"scheduled_at"`
	DurationMinutes int             `json:"duration_minutes"`
	MeetingURL      string          `json:"meeting_url,omitempty"`
	Status          InterviewStatus `json:"status"`
	ScheduledByID   *uuid.UUID      `json:"scheduled_by_id,omitempty"`
	PanelMemberIDs  []uuid.UUID     `json:"panel_member_ids"`
	CreatedAt       time.Time       `json:"created_at"`
}

// InterviewCreateInput contains the fields for scheduling an interview
type InterviewCreateInput struct {
	JobCandidateID  uuid.UUID
	Title           string
	ScheduledAt     time.Time
	DurationMinutes int
	MeetingURL      string
	ScheduledByID   *uuid.UUID
	PanelMemberIDs  []uuid.UUID
	CreatedAt       time.Time
}

// InterviewFeedback is one reviewer's evaluation of an interview
type InterviewFeedback struct {
	ID             uuid.UUID      `json:"id"`
	InterviewID    uuid.UUID      `json:"interview_id"`
	ReviewerID     uuid.UUID      `json:"reviewer_id"`
	Recommendation Recommendation `json:"recommendation"`
	Ratings        map[string]int `json:"ratings"`
	Notes          string         `json:"notes,omitempty"`
	SubmittedAt    time.Time      `json:"submitted_at"`
}

// FeedbackCreateInput contains the fields for submitting feedback
type FeedbackCreateInput struct {
	InterviewID    uuid.UUID
	ReviewerID     uuid.UUID
	Recommendation Recommendation
	Ratings        map[string]int
	Notes          string
	SubmittedAt    time.Time
}
