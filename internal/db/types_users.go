package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/talent-pipeline/internal/rbac"
)

// User is a member of a company
type User struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserCreateInput contains the fields for creating a user
type UserCreateInput struct {
	CompanyID uuid.UUID
	Name      string
	Email     string
	Role      rbac.Role
}

// SLAConfig is a per-company threshold for how long candidates may sit in a stage
type SLAConfig struct {
	ID            uuid.UUID `json:"id"`
	CompanyID     uuid.UUID `json:"company_id"`
	StageName     string    `json:"stage_name"`
	ThresholdDays float64   `json:"threshold_days"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SLAConfigInput contains the fields for upserting an SLA threshold
type SLAConfigInput struct {
	CompanyID     uuid.UUID
	StageName     string
	ThresholdDays float64
}

// Notification types
const (
	NotificationStageChange        = "stage_change"
	NotificationInterviewScheduled = "interview_scheduled"
)

// Notification is an in-app message for a user
type Notification struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	EntityType string     `json:"entity_type,omitempty"`
	EntityID   *uuid.UUID `json:"entity_id,omitempty"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NotificationCreateInput contains the fields for creating a notification
type NotificationCreateInput struct {
	UserID     uuid.UUID
	Type       string
	Title      string
	Message    string
	EntityType string
	EntityID   *uuid.UUID
}
