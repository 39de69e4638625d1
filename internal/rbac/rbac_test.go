package rbac

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/talent-pipeline/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleAdmin, UsersManage, true},
		{RoleAdmin, SLAUpdate, true},
		{RoleHiringManager, JobsCreate, true},
		{RoleHiringManager, JobsDelete, false},
		{RoleHiringManager, SLAUpdate, false},
		{RoleRecruiter, CandidatesMove, true},
		{RoleRecruiter, JobsCreate, false},
		{RoleRecruiter, PipelineUpdate, false},
		{Role("intern"), JobsRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.perm), func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(tt.role, tt.perm))
		})
	}
}

func TestHasAllAndAny(t *testing.T) {
	assert.True(t, HasAllPermissions(RoleRecruiter, CandidatesRead, CandidatesMove))
	assert.False(t, HasAllPermissions(RoleRecruiter, CandidatesRead, JobsCreate))
	assert.True(t, HasAllPermissions(RoleRecruiter))

	assert.True(t, HasAnyPermission(RoleRecruiter, JobsCreate, JobsRead))
	assert.False(t, HasAnyPermission(RoleRecruiter, JobsCreate, UsersManage))
	assert.False(t, HasAnyPermission(RoleAdmin))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("hiring_manager")
	require.NoError(t, err)
	assert.Equal(t, RoleHiringManager, r)

	_, err = ParseRole("owner")
	assert.Error(t, err)
}

func TestPermissionsCopy(t *testing.T) {
	perms := Permissions(RoleRecruiter)
	assert.Contains(t, perms, CandidatesScore)
	perms[0] = "tampered:perm"
	assert.False(t, HasPermission(RoleRecruiter, "tampered:perm"))
}

func TestCanAccessJob(t *testing.T) {
	company := uuid.New()
	other := uuid.New()
	recruiter := uuid.New()
	someoneElse := uuid.New()

	t.Run("cross company is always denied", func(t *testing.T) {
		for _, role := range []Role{RoleAdmin, RoleHiringManager, RoleRecruiter} {
			p := Principal{UserID: recruiter, CompanyID: other, Role: role}
			assert.False(t, CanAccessJob(p, company, &recruiter), role)
		}
	})

	t.Run("recruiter needs assignment", func(t *testing.T) {
		p := Principal{UserID: recruiter, CompanyID: company, Role: RoleRecruiter}
		assert.True(t, CanAccessJob(p, company, &recruiter))
		assert.False(t, CanAccessJob(p, company, &someoneElse))
		assert.False(t, CanAccessJob(p, company, nil))
	})

	t.Run("admin and hiring manager see the company", func(t *testing.T) {
		assert.True(t, CanAccessJob(Principal{UserID: someoneElse, CompanyID: company, Role: RoleAdmin}, company, nil))
		assert.True(t, CanAccessJob(Principal{UserID: someoneElse, CompanyID: company, Role: RoleHiringManager}, company, &recruiter))
	})
}

func TestAuthorizeJob(t *testing.T) {
	company := uuid.New()
	user := uuid.New()

	err := AuthorizeJob(Principal{UserID: user, CompanyID: company, Role: RoleRecruiter}, PipelineUpdate, company, &user)
	require.Error(t, err)
	assert.True(t, apperr.IsAuthorization(err))

	err = AuthorizeJob(Principal{UserID: user, CompanyID: company, Role: RoleRecruiter}, CandidatesMove, company, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no access to this job")

	assert.NoError(t, AuthorizeJob(Principal{UserID: user, CompanyID: company, Role: RoleAdmin}, PipelineUpdate, company, nil))
}
