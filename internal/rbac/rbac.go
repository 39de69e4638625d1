// Package rbac holds the static role permission table and job ownership checks.
package rbac

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/talent-pipeline/internal/apperr"
)

// Role is a company member's role
type Role string

// Known roles
const (
	RoleAdmin         Role = "admin"
	RoleHiringManager Role = "hiring_manager"
	RoleRecruiter     Role = "recruiter"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := permissionTable[r]
	return ok
}

// ParseRole converts a string into a Role, failing on unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

// Permission is a "resource:action" tag
type Permission string

// Permissions
const (
	JobsCreate Permission = "jobs:create"
	JobsRead   Permission = "jobs:read"
	JobsUpdate Permission = "jobs:update"
	JobsDelete Permission = "jobs:delete"

	PipelineRead   Permission = "pipeline:read"
	PipelineUpdate Permission = "pipeline:update"

	CandidatesCreate Permission = "candidates:create"
	CandidatesRead   Permission = "candidates:read"
	CandidatesUpdate Permission = "candidates:update"
	CandidatesMove   Permission = "candidates:move"
	CandidatesScore  Permission = "candidates:score"

	InterviewsCreate Permission = "interviews:create"
	InterviewsRead   Permission = "interviews:read"
	InterviewsUpdate Permission = "interviews:update"

	FeedbackCreate Permission = "feedback:create"
	FeedbackRead   Permission = "feedback:read"

	AnalyticsRead Permission = "analytics:read"

	SLARead   Permission = "sla:read"
	SLAUpdate Permission = "sla:update"

	UsersManage Permission = "users:manage"
)

type permissionSet map[Permission]struct{}

func newSet(perms ...Permission) permissionSet {
	set := make(permissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// permissionTable is never mutated after init.
var permissionTable = map[Role]permissionSet{
	RoleAdmin: newSet(
		JobsCreate, JobsRead, JobsUpdate, JobsDelete,
		PipelineRead, PipelineUpdate,
		CandidatesCreate, CandidatesRead, CandidatesUpdate, CandidatesMove, CandidatesScore,
		InterviewsCreate, InterviewsRead, InterviewsUpdate,
		FeedbackCreate, FeedbackRead,
		AnalyticsRead,
		SLARead, SLAUpdate,
		UsersManage,
	),
	RoleHiringManager: newSet(
		JobsCreate, JobsRead, JobsUpdate,
		PipelineRead, PipelineUpdate,
		CandidatesRead, CandidatesUpdate, CandidatesMove, CandidatesScore,
		InterviewsCreate, InterviewsRead, InterviewsUpdate,
		FeedbackCreate, FeedbackRead,
		AnalyticsRead,
		SLARead,
	),
	RoleRecruiter: newSet(
		JobsRead,
		PipelineRead,
		CandidatesCreate, CandidatesRead, CandidatesUpdate, CandidatesMove, CandidatesScore,
		InterviewsCreate, InterviewsRead, InterviewsUpdate,
		FeedbackCreate, FeedbackRead,
		AnalyticsRead,
		SLARead,
	),
}

// HasPermission reports whether role holds perm.
func HasPermission(role Role, perm Permission) bool {
	_, ok := permissionTable[role][perm]
	return ok
}

// HasAllPermissions reports whether role holds every one of perms.
func HasAllPermissions(role Role, perms ...Permission) bool {
	for _, p := range perms {
		if !HasPermission(role, p) {
			return false
		}
	}
	return true
}

// HasAnyPermission reports whether role holds at least one of perms.
func HasAnyPermission(role Role, perms ...Permission) bool {
	for _, p := range perms {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// Permissions returns the permissions granted to role, in no particular order.
func Permissions(role Role) []Permission {
	set := permissionTable[role]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// Principal is the acting user of a request
type Principal struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	Role      Role
}

// IsRecruiter reports whether the principal's view is limited to assigned jobs.
func (p Principal) IsRecruiter() bool {
	return p.Role == RoleRecruiter
}

// Authorize returns an AuthorizationError unless the principal holds perm.
func Authorize(p Principal, perm Permission) error {
	if !HasPermission(p.Role, perm) {
		return &apperr.AuthorizationError{Action: string(perm), Message: fmt.Sprintf("role %q lacks permission", p.Role)}
	}
	return nil
}

// CanAccessJob reports whether the principal may act on a job owned by
// companyID. Cross-company access is always denied; recruiters must also be
// the job's assigned recruiter.
func CanAccessJob(p Principal, companyID uuid.UUID, assignedRecruiterID *uuid.UUID) bool {
	if p.CompanyID != companyID {
		return false
	}
	if p.Role == RoleRecruiter {
		return assignedRecruiterID != nil && *assignedRecruiterID == p.UserID
	}
	return p.Role.Valid()
}

// AuthorizeJob combines Authorize with CanAccessJob.
func AuthorizeJob(p Principal, perm Permission, companyID uuid.UUID, assignedRecruiterID *uuid.UUID) error {
	if err := Authorize(p, perm); err != nil {
		return err
	}
	if !CanAccessJob(p, companyID, assignedRecruiterID) {
		return &apperr.AuthorizationError{Action: string(perm), Message: "no access to this job"}
	}
	return nil
}
