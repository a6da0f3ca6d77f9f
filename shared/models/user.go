package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRole is the platform role hierarchy, ordered from least to most
// privileged. Super admins sit outside any single organization.
type UserRole string

const (
	RoleEmployee   UserRole = "EMPLOYEE"
	RoleManager    UserRole = "MANAGER"
	RoleHRAdmin    UserRole = "HR_ADMIN"
	RoleOrgAdmin   UserRole = "ORG_ADMIN"
	RoleOrgOwner   UserRole = "ORG_OWNER"
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
)

var roleRank = map[UserRole]int{
	RoleEmployee:   0,
	RoleManager:    1,
	RoleHRAdmin:    2,
	RoleOrgAdmin:   3,
	RoleOrgOwner:   4,
	RoleSuperAdmin: 5,
}

// AtLeast reports whether the role grants the privileges of the given
// role. Unknown roles rank below every known one.
func (r UserRole) AtLeast(other UserRole) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	return rank >= roleRank[other]
}

// EmploymentStatus tracks an employee's lifecycle inside their
// organization. Terminated members are excluded from recipient lists.
type EmploymentStatus string

const (
	EmploymentActive     EmploymentStatus = "ACTIVE"
	EmploymentProbation  EmploymentStatus = "PROBATION"
	EmploymentInactive   EmploymentStatus = "INACTIVE"
	EmploymentSabbatical EmploymentStatus = "SABBATICAL"
	EmploymentTerminated EmploymentStatus = "TERMINATED"
)

// User represents a platform account scoped to one organization.
// Profile and employment fields live inline; nothing queries them
// separately from the account.
type User struct {
	ID             uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrganizationID *uuid.UUID       `json:"organization_id,omitempty" gorm:"type:uuid;index"`
	Email          string           `json:"email" gorm:"uniqueIndex;not null"`
	Phone          *string          `json:"phone,omitempty"`
	PasswordHash   string           `json:"-" gorm:"not null"`
	Role           UserRole         `json:"role" gorm:"type:varchar(32);default:EMPLOYEE"`
	Status         EmploymentStatus `json:"status" gorm:"type:varchar(32);default:ACTIVE"`

	FirstName     *string `json:"first_name,omitempty"`
	LastName      *string `json:"last_name,omitempty"`
	PreferredName *string `json:"preferred_name,omitempty"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
	Designation   *string `json:"designation,omitempty"`
	EmployeeCode  *string `json:"employee_code,omitempty"`

	InvitedAt   *time.Time `json:"invited_at,omitempty"`
	InvitedByID *uuid.UUID `json:"invited_by_id,omitempty" gorm:"type:uuid"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Organization *Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// DisplayName resolves the human-facing name: preferred name first,
// then first+last, then the email as a fallback.
func (u *User) DisplayName() string {
	if u.PreferredName != nil {
		if name := strings.TrimSpace(*u.PreferredName); name != "" {
			return name
		}
	}
	parts := make([]string, 0, 2)
	for _, piece := range []*string{u.FirstName, u.LastName} {
		if piece != nil && strings.TrimSpace(*piece) != "" {
			parts = append(parts, strings.TrimSpace(*piece))
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return u.Email
}

// Caller is the explicit caller context handed to service operations
// instead of ambient session state, so the read paths stay unit
// testable without HTTP plumbing.
type Caller struct {
	UserID         uuid.UUID  `json:"user_id"`
	Email          string     `json:"email"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Role           UserRole   `json:"role"`
}

// IsSuperAdmin reports whether the caller is a platform super admin.
func (c Caller) IsSuperAdmin() bool {
	return c.Role == RoleSuperAdmin
}

// CanManageOrganization reports whether the caller may administer the
// given organization.
func (c Caller) CanManageOrganization(orgID uuid.UUID) bool {
	if c.IsSuperAdmin() {
		return true
	}
	return c.Role.AtLeast(RoleOrgAdmin) && c.OrganizationID != nil && *c.OrganizationID == orgID
}

// SessionProfile is the caller snapshot stored in Redis per token.
type SessionProfile struct {
	UserID         uuid.UUID  `json:"user_id"`
	Email          string     `json:"email"`
	Role           UserRole   `json:"role"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	SubDomain      string     `json:"sub_domain,omitempty"`
}

// TokenSession represents a login session stored in Redis.
type TokenSession struct {
	Profile    SessionProfile `json:"profile"`
	CreatedAt  time.Time      `json:"created_at"`
	LastUsedAt time.Time      `json:"last_used_at"`
	ExpiresAt  time.Time      `json:"expires_at"`
	SessionID  string         `json:"session_id"`
}

// IsExpired reports whether the session is past its expiry.
func (ts *TokenSession) IsExpired() bool {
	return time.Now().After(ts.ExpiresAt)
}

// UpdateLastUsed stamps the session with the current time.
func (ts *TokenSession) UpdateLastUsed() {
	ts.LastUsedAt = time.Now()
}
