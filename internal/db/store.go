package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/talent-pipeline/internal/rbac"
)

// Querier is the data access surface shared by the connection pool and a
// transaction. Single-row getters return (nil, nil) when the row is absent.
type Querier interface {
	CreateJob(ctx context.Context, input *JobCreateInput) (*Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status JobStatus) error

	CreateStage(ctx context.Context, input *StageCreateInput) (*PipelineStage, error)
	GetStage(ctx context.Context, id uuid.UUID) (*PipelineStage, error)
	ListStages(ctx context.Context, jobID uuid.UUID) ([]PipelineStage, error)
	ListStagesForJobs(ctx context.Context, jobIDs []uuid.UUID) ([]PipelineStage, error)
	UpdateStagePosition(ctx context.Context, id uuid.UUID, position int) error
	DeleteStage(ctx context.Context, id uuid.UUID) error

	CreateCandidate(ctx context.Context, input *CandidateCreateInput) (*Candidate, error)
	GetCandidate(ctx context.Context, id uuid.UUID) (*Candidate, error)
	UpdateCandidateScores(ctx context.Context, id uuid.UUID, scores CandidateScores) error

	CreateJobCandidate(ctx context.Context, input *JobCandidateCreateInput) (*JobCandidate, error)
	GetJobCandidate(ctx context.Context, id uuid.UUID) (*JobCandidate, error)
	ListJobCandidates(ctx context.Context, jobIDs []uuid.UUID) ([]JobCandidate, error)
	CountJobCandidatesInStage(ctx context.Context, stageID uuid.UUID) (int, error)
	UpdateJobCandidateStage(ctx context.Context, id, stageID uuid.UUID) error

	CreateStageHistory(ctx context.Context, input *StageHistoryCreateInput) (*StageHistory, error)
	GetOpenStageHistory(ctx context.Context, jobCandidateID uuid.UUID) (*StageHistory, error)
	CloseStageHistory(ctx context.Context, id uuid.UUID, exitedAt time.Time, durationHours float64) error
	ListStageHistory(ctx context.Context, jobCandidateIDs []uuid.UUID) ([]StageHistory, error)
	CountStageHistory(ctx context.Context, stageID uuid.UUID) (int, error)

	CreateActivity(ctx context.Context, input *ActivityCreateInput) (*CandidateActivity, error)
	ListActivities(ctx context.Context, candidateID uuid.UUID) ([]CandidateActivity, error)

	CreateInterview(ctx context.Context, input *InterviewCreateInput) (*Interview, error)
	GetInterview(ctx context.Context, id uuid.UUID) (*Interview, error)
	ListInterviews(ctx context.Context, jobCandidateIDs []uuid.UUID) ([]Interview, error)
	UpdateInterviewStatus(ctx context.Context, id uuid.UUID, status InterviewStatus) error
	CreateFeedback(ctx context.Context, input *FeedbackCreateInput) (*InterviewFeedback, error)
	ListFeedback(ctx context.Context, interviewIDs []uuid.UUID) ([]InterviewFeedback, error)

	UpsertSLAConfig(ctx context.Context, input *SLAConfigInput) (*SLAConfig, error)
	ListSLAConfigs(ctx context.Context, companyID uuid.UUID) ([]SLAConfig, error)

	CreateUser(ctx context.Context, input *UserCreateInput) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	ListUsers(ctx context.Context, companyID uuid.UUID, roles ...rbac.Role) ([]User, error)

	CreateNotification(ctx context.Context, input *NotificationCreateInput) (*Notification, error)
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]Notification, error)
}

// Store is a Querier that can also run a unit of work. Every write made
// through the Querier passed to fn commits together, or not at all when fn
// returns an error.
type Store interface {
	Querier
	InTx(ctx context.Context, fn func(q Querier) error) error
}
