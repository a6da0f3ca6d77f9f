package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization represents one customer organization (tenant). The
// SubDomain is the canonical slug embedded in tenant routing paths.
type Organization struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string         `json:"name" gorm:"not null"`
	SubDomain string         `json:"sub_domain" gorm:"uniqueIndex;not null"`
	Domain    *string        `json:"domain,omitempty" gorm:"uniqueIndex"`
	Timezone  *string        `json:"timezone,omitempty"`
	Locale    *string        `json:"locale,omitempty"`
	LogoURL   *string        `json:"logo_url,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Relationships
	Users []User `json:"users,omitempty" gorm:"foreignKey:OrganizationID"`
}

// TableName returns the table name for the Organization model
func (Organization) TableName() string {
	return "organizations"
}

// OrganizationStatus is derived at read time, never persisted.
type OrganizationStatus string

const (
	OrgStatusOnboarding OrganizationStatus = "ONBOARDING"
	OrgStatusActive     OrganizationStatus = "ACTIVE"
	OrgStatusSuspended  OrganizationStatus = "SUSPENDED"
)

// subDomainPattern matches lowercase letters, digits and hyphens with
// no leading or trailing hyphen.
var subDomainPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)

// ValidSubDomain reports whether a canonicalized sub-domain is usable
// as a tenant slug: 3-63 characters from the allowed set.
func ValidSubDomain(subDomain string) bool {
	if len(subDomain) < 3 || len(subDomain) > 63 {
		return false
	}
	return subDomainPattern.MatchString(subDomain)
}
