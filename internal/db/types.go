package db

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is a requisition's lifecycle state
type JobStatus string

// Job status constants
const (
	JobStatusActive JobStatus = "active"
	JobStatusPaused JobStatus = "paused"
	JobStatusClosed JobStatus = "closed"
)

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusActive, JobStatusPaused, JobStatusClosed:
		return true
	}
	return false
}

// Job represents a requisition owned by a company
type Job struct {
	ID                  uuid.UUID  `json:"id"`
	CompanyID           uuid.UUID  `json:"company_id"`
	Title               string     `json:"title"`
	Department          string     `json:"department,omitempty"`
	Location            string     `json:"location,omitempty"`
	Status              JobStatus  `json:"status"`
	AssignedRecruiterID *uuid.UUID `json:"assigned_recruiter_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// JobCreateInput contains the fields for creating a job
type JobCreateInput struct {
	CompanyID           uuid.UUID
	Title               string
	Department          string
	Location            string
	Status              JobStatus
	AssignedRecruiterID *uuid.UUID
}

// JobFilter narrows ListJobs. Zero values mean "any".
type JobFilter struct {
	CompanyID           uuid.UUID
	AssignedRecruiterID *uuid.UUID
	Status              JobStatus
	Department          string
	Location            string
	JobID               *uuid.UUID
}

// PipelineStage is one named step in a job's hiring funnel
type PipelineStage struct {
	ID            uuid.UUID  `json:"id"`
	JobID         uuid.UUID  `json:"job_id"`
	Name          string     `json:"name"`
	Position      int        `json:"position"`
	IsDefault     bool       `json:"is_default"`
	IsMandatory   bool       `json:"is_mandatory"`
	ParentStageID *uuid.UUID `json:"parent_stage_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// StageCreateInput contains the fields for creating a pipeline stage
type StageCreateInput struct {
	JobID         uuid.UUID
	Name          string
	Position      int
	IsDefault     bool
	IsMandatory   bool
	ParentStageID *uuid.UUID
}
