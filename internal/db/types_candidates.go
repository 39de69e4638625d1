package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Candidate is a person record scoped to a company
type Candidate struct {
	ID                       uuid.UUID `json:"id"`
	CompanyID                uuid.UUID `json:"company_id"`
	FirstName                string    `json:"first_name"`
	LastName                 string    `json:"last_name"`
	Email                    string    `json:"email"`
	Phone                    string    `json:"phone,omitempty"`
	Location                 string    `json:"location,omitempty"`
	ExperienceYears          *float64  `json:"experience_years,omitempty"`
	Skills                   []string  `json:"skills"`
	DomainScore              *float64  `json:"domain_score,omitempty"`
	IndustryScore            *float64  `json:"industry_score,omitempty"`
	KeyResponsibilitiesScore *float64  `json:"key_responsibilities_score,omitempty"`
	OverallScore             *float64  `json:"overall_score,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (c *Candidate) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// CandidateCreateInput contains the fields for creating a candidate
type CandidateCreateInput struct {
	CompanyID       uuid.UUID
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Location        string
	ExperienceYears *float64
	Skills          []string
}

// CandidateScores is the full set of persisted score columns
type CandidateScores struct {
	Domain              *float64 `json:"domain"`
	Industry            *float64 `json:"industry"`
	KeyResponsibilities *float64 `json:"key_responsibilities"`
	Overall             *float64 `json:"overall"`
}

// JobCandidate associates a candidate with a job and points at their current stage
type JobCandidate struct {
	ID             uuid.UUID  `json:"id"`
	JobID          uuid.UUID  `json:"job_id"`
	CandidateID    uuid.UUID  `json:"candidate_id"`
	CurrentStageID uuid.UUID  `json:"current_stage_id"`
	AddedByID      *uuid.UUID `json:"added_by_id,omitempty"`
	AppliedAt      time.Time  `json:"applied_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// JobCandidateCreateInput contains the fields for creating a job candidate
type JobCandidateCreateInput struct {
	JobID          uuid.UUID
	CandidateID    uuid.UUID
	CurrentStageID uuid.UUID
	AddedByID      *uuid.UUID
	AppliedAt      time.Time
}

// StageHistory is one ledger entry: a job candidate's visit to a stage
type StageHistory struct {
	ID             uuid.UUID  `json:"id"`
	JobCandidateID uuid.UUID  `json:"job_candidate_id"`
	StageID        uuid.UUID  `json:"stage_id"`
	EnteredAt      time.Time  `json:"entered_at"`
	ExitedAt       *time.Time `json:"exited_at,omitempty"`
	DurationHours  *float64   `json:"duration_hours,omitempty"`
	Comment        *string    `json:"comment,omitempty"`
	MovedByID      *uuid.UUID `json:"moved_by_id,omitempty"`
}

// IsOpen reports whether the entry is the job candidate's current one.
func (h *StageHistory) IsOpen() bool {
	return h.ExitedAt == nil
}

// StageHistoryCreateInput contains the fields for opening a ledger entry
type StageHistoryCreateInput struct {
	JobCandidateID uuid.UUID
	StageID        uuid.UUID
	EnteredAt      time.Time
	Comment        *string
	MovedByID      *uuid.UUID
}

// ActivityType classifies candidate timeline entries
type ActivityType string

// Activity types
const (
	ActivityStageChange        ActivityType = "stage_change"
	ActivityScoreUpdated       ActivityType = "score_updated"
	ActivityApplicationCreated ActivityType = "application_created"
	ActivityInterviewScheduled ActivityType = "interview_scheduled"
	ActivityFeedbackSubmitted  ActivityType = "feedback_submitted"
)

// CandidateActivity is an append-only audit entry on a candidate's timeline
type CandidateActivity struct {
	ID             uuid.UUID       `json:"id"`
	CandidateID    uuid.UUID       `json:"candidate_id"`
	JobCandidateID *uuid.UUID      `json:"job_candidate_id,omitempty"`
	ActorID        *uuid.UUID      `json:"actor_id,omitempty"`
	ActivityType   ActivityType    `json:"activity_type"`
	Description    string          `json:"description"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// DecodeMetadata unmarshals the metadata payload into dst.
func (a *CandidateActivity) DecodeMetadata(dst any) error {
	if len(a.Metadata) == 0 {
		return nil
	}
	return json.Unmarshal(a.Metadata, dst)
}

// ActivityCreateInput contains the fields for appending an activity.
// Metadata is one of the *Metadata structs below.
type ActivityCreateInput struct {
	CandidateID    uuid.UUID
	JobCandidateID *uuid.UUID
	ActorID        *uuid.UUID
	ActivityType   ActivityType
	Description    string
	Metadata       any
	CreatedAt      time.Time
}

// StageChangeMetadata is the payload of a stage_change activity
type StageChangeMetadata struct {
	FromStageID   *uuid.UUID `json:"fromStageId,omitempty"`
	ToStageID     uuid.UUID  `json:"toStageId"`
	FromStageName string     `json:"fromStageName,omitempty"`
	ToStageName   string     `json:"toStageName"`
	Reason        string     `json:"reason,omitempty"`
	Comment       string     `json:"comment,omitempty"`
	JobID         uuid.UUID  `json:"jobId"`
}

// ScoreUpdateMetadata is the payload of a score_updated activity
type ScoreUpdateMetadata struct {
	OldScore *float64        `json:"oldScore"`
	NewScore *float64        `json:"newScore"`
	Old      CandidateScores `json:"old"`
	New      CandidateScores `json:"new"`
}

// ApplicationMetadata is the payload of an application_created activity
type ApplicationMetadata struct {
	JobID     uuid.UUID `json:"jobId"`
	StageID   uuid.UUID `json:"stageId"`
	StageName string    `json:"stageName"`
}

// InterviewMetadata is the payload of interview activities
type InterviewMetadata struct {
	InterviewID    uuid.UUID `json:"interviewId"`
	ScheduledAt    time.Time `json:"scheduledAt"`
	Recommendation string    `json:"recommendation,omitempty"`
}
