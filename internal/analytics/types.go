package analytics

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/talent-pipeline/internal/rbac"
)

// Filters narrow an aggregate. Zero values mean "any".
type Filters struct {
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	Department string     `json:"department,omitempty"`
	Location   string     `json:"location,omitempty"`
	JobID      *uuid.UUID `json:"job_id,omitempty"`
}

// contains reports whether t falls inside the date range. Both ends are
// inclusive.
func (f Filters) contains(t time.Time) bool {
	if f.From != nil && t.Before(*f.From) {
		return false
	}
	if f.To != nil && t.After(*f.To) {
		return false
	}
	return true
}

// Query identifies who is asking and what they want aggregated
type Query struct {
	CompanyID uuid.UUID
	ActorID   uuid.UUID
	Role      rbac.Role
	Filters   Filters
}

// NewQuery builds a query for the acting principal.
func NewQuery(actor rbac.Principal, filters Filters) Query {
	return Query{CompanyID: actor.CompanyID, ActorID: actor.UserID, Role: actor.Role, Filters: filters}
}

// Principal returns the acting user of the query.
func (q Query) Principal() rbac.Principal {
	return rbac.Principal{UserID: q.ActorID, CompanyID: q.CompanyID, Role: q.Role}
}

// ---- Report Types ----

// FunnelStage is one row of the funnel, grouping same-named stages across jobs
type FunnelStage struct {
	StageName        string  `json:"stage_name"`
	Count            int     `json:"count"`
	Percentage       float64 `json:"percentage"`
	ConversionToNext float64 `json:"conversion_to_next"`
}

// Funnel counts candidates that reached each stage
type Funnel struct {
	Stages                []FunnelStage `json:"stages"`
	TotalApplicants       int           `json:"total_applicants"`
	TotalHired            int           `json:"total_hired"`
	OverallConversionRate float64       `json:"overall_conversion_rate"`
}

// StageDuration is the mean time spent in one stage
type StageDuration struct {
	StageName    string  `json:"stage_name"`
	AverageDays  float64 `json:"average_days"`
	Entries      int     `json:"entries"`
	IsBottleneck bool    `json:"is_bottleneck"`
}

// TimeInStage reports stage durations and names the bottleneck
type TimeInStage struct {
	Stages     []StageDuration `json:"stages"`
	Suggestion string          `json:"suggestion,omitempty"`
}

// RejectionReason is one normalized reason with its share of rejections
type RejectionReason struct {
	Reason     string  `json:"reason"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// RejectionReasons breaks rejections down by reason
type RejectionReasons struct {
	Reasons         []RejectionReason `json:"reasons"`
	TotalRejections int               `json:"total_rejections"`
}

// SLA classifications
const (
	SLAOnTrack  = "on_track"
	SLAAtRisk   = "at_risk"
	SLABreached = "breached"
)

// JobSLA is the SLA standing of one active job, measured on its
// longest-resident active candidate
type JobSLA struct {
	JobID          uuid.UUID  `json:"job_id"`
	JobTitle       string     `json:"job_title"`
	JobCandidateID *uuid.UUID `json:"job_candidate_id,omitempty"`
	StageName      string     `json:"stage_name,omitempty"`
	DaysInStage    float64    `json:"days_in_stage"`
	ThresholdDays  float64    `json:"threshold_days"`
	Status         string     `json:"status"`
}

// SLAStatus lists the SLA standing of every active job in scope
type SLAStatus struct {
	Jobs     []JobSLA `json:"jobs"`
	OnTrack  int      `json:"on_track"`
	AtRisk   int      `json:"at_risk"`
	Breached int      `json:"breached"`
}

// RecruiterStats is the activity of one recruiter over the window
type RecruiterStats struct {
	UserID              uuid.UUID `json:"user_id"`
	Name                string    `json:"name"`
	JobsAssigned        int       `json:"jobs_assigned"`
	CandidatesAdded     int       `json:"candidates_added"`
	InterviewsScheduled int       `json:"interviews_scheduled"`
	OffersMade          int       `json:"offers_made"`
	Hires               int       `json:"hires"`
}

// PanelStats is the interviewing load of one panel member over the window
type PanelStats struct {
	UserID             uuid.UUID `json:"user_id"`
	Name               string    `json:"name"`
	InterviewsAssigned int       `json:"interviews_assigned"`
	FeedbackSubmitted  int       `json:"feedback_submitted"`
	FeedbackPending    int       `json:"feedback_pending"`
	AvgTurnaroundHours float64   `json:"avg_turnaround_hours"`
}

// Productivity reports per-recruiter and per-panel-member activity
type Productivity struct {
	Recruiters []RecruiterStats `json:"recruiters"`
	Panel      []PanelStats     `json:"panel"`
}

// KPIs are the headline numbers of the dashboard
type KPIs struct {
	ActiveJobs          int     `json:"active_jobs"`
	TotalApplicants     int     `json:"total_applicants"`
	InterviewsScheduled int     `json:"interviews_scheduled"`
	OffersMade          int     `json:"offers_made"`
	Hires               int     `json:"hires"`
	AvgTimeToHireDays   float64 `json:"avg_time_to_hire_days"`
}

// Dashboard bundles every report
type Dashboard struct {
	KPIs             KPIs             `json:"kpis"`
	Funnel           Funnel           `json:"funnel"`
	TimeInStage      TimeInStage      `json:"time_in_stage"`
	RejectionReasons RejectionReasons `json:"rejection_reasons"`
	SLA              SLAStatus        `json:"sla"`
	Productivity     Productivity     `json:"productivity"`
}
