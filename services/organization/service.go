package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nandak93/go-people-ops-system/shared/models"
	"github.com/nandak93/go-people-ops-system/shared/tenantpath"
)

var (
	// ErrNotSuperAdmin guards the system-owner console operations.
	ErrNotSuperAdmin = errors.New("super admin access required")
	// ErrNotOrgManager guards organization self-management.
	ErrNotOrgManager = errors.New("organization management access denied")
	// ErrOrganizationNotFound is returned for unknown organization ids.
	ErrOrganizationNotFound = errors.New("organization not found")
	// ErrNameRequired means the organization name was empty.
	ErrNameRequired = errors.New("organization name is required")
	// ErrSubDomainInvalid means the slug failed format validation.
	ErrSubDomainInvalid = errors.New("sub-domain must be 3-63 characters of lowercase letters, numbers and hyphens, with no leading or trailing hyphen")
	// ErrSubDomainTaken means another organization owns the slug.
	ErrSubDomainTaken = errors.New("that sub-domain is already in use")
	// ErrEmailTaken means the owner email already has an account.
	ErrEmailTaken = errors.New("an account already exists for that email")
	// ErrPasswordIncorrect is returned when delete confirmation fails.
	ErrPasswordIncorrect = errors.New("incorrect password")
)

func requireSuperAdmin(caller models.Caller) error {
	if !caller.IsSuperAdmin() {
		return ErrNotSuperAdmin
	}
	return nil
}

// normalizeSubDomain canonicalizes a requested slug and validates its
// format. Canonicalization matches the routing layer exactly, so a
// provisioned slug always round-trips through tenant paths.
func normalizeSubDomain(raw string) (string, error) {
	subDomain := tenantpath.CanonicalizeSlug(raw)
	if !models.ValidSubDomain(subDomain) {
		return "", ErrSubDomainInvalid
	}
	return subDomain, nil
}

// splitFullName breaks an owner's display name into first/last parts.
func splitFullName(full string) (first, last string) {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return "", ""
	}
	first = fields[0]
	if len(fields) > 1 {
		last = strings.Join(fields[1:], " ")
	}
	return first, last
}

// generateOwnerEmployeeCode derives the founding owner's employee
// code from the organization name.
func generateOwnerEmployeeCode(organizationName string) string {
	var normalized strings.Builder
	for _, r := range organizationName {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			normalized.WriteRune(r)
		}
	}
	prefix := strings.ToUpper(normalized.String())
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	if prefix == "" {
		prefix = "ORG"
	}
	return prefix + "-OWNER-1"
}

// sanitizeOptional trims an optional field, returning nil when empty.
func sanitizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// OrganizationSummary is the console row for one organization.
type OrganizationSummary struct {
	ID                 uuid.UUID                 `json:"id"`
	Name               string                    `json:"name"`
	SubDomain          string                    `json:"sub_domain"`
	Domain             *string                   `json:"domain,omitempty"`
	Timezone           *string                   `json:"timezone,omitempty"`
	Locale             *string                   `json:"locale,omitempty"`
	LogoURL            *string                   `json:"logo_url,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
	TotalEmployees     int64                     `json:"total_employees"`
	Status             models.OrganizationStatus `json:"status"`
	MonthlyActiveUsers int64                     `json:"monthly_active_users"`
}

// summarizeOrganization derives the console row. An organization with
// no members is still onboarding; members but zero active employees
// reads as suspended.
func summarizeOrganization(org *models.Organization, totalUsers, activeUsers, monthlyActive int64) OrganizationSummary {
	status := models.OrgStatusActive
	switch {
	case totalUsers == 0:
		status = models.OrgStatusOnboarding
	case activeUsers == 0:
		status = models.OrgStatusSuspended
	}
	return OrganizationSummary{
		ID:                 org.ID,
		Name:               org.Name,
		SubDomain:          org.SubDomain,
		Domain:             org.Domain,
		Timezone:           org.Timezone,
		Locale:             org.Locale,
		LogoURL:            org.LogoURL,
		CreatedAt:          org.CreatedAt,
		UpdatedAt:          org.UpdatedAt,
		TotalEmployees:     totalUsers,
		Status:             status,
		MonthlyActiveUsers: monthlyActive,
	}
}

// orgCountRow carries one row of a per-organization aggregate query.
type orgCountRow struct {
	OrganizationID uuid.UUID
	Count          int64
}

// countUsersByOrganization runs one grouped count over the users
// table with the given extra condition.
func countUsersByOrganization(db *gorm.DB, condition string, args ...interface{}) (map[uuid.UUID]int64, error) {
	var rows []orgCountRow
	query := db.Model(&models.User{}).
		Select("organization_id, COUNT(*) AS count").
		Where("organization_id IS NOT NULL")
	if condition != "" {
		query = query.Where(condition, args...)
	}
	if err := query.Group("organization_id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.OrganizationID] = row.Count
	}
	return counts, nil
}

// ListOrganizations returns every organization with derived status
// and activity counts for the system-owner console.
func ListOrganizations(db *gorm.DB, caller models.Caller) ([]OrganizationSummary, error) {
	if err := requireSuperAdmin(caller); err != nil {
		return nil, err
	}

	var organizations []models.Organization
	if err := db.Order("created_at ASC").Find(&organizations).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch organizations: %w", err)
	}

	totals, err := countUsersByOrganization(db, "")
	if err != nil {
		return nil, err
	}
	active, err := countUsersByOrganization(db, "status = ?", models.EmploymentActive)
	if err != nil {
		return nil, err
	}
	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	monthlyActive, err := countUsersByOrganization(db, "last_login_at >= ?", thirtyDaysAgo)
	if err != nil {
		return nil, err
	}

	summaries := make([]OrganizationSummary, 0, len(organizations))
	for i := range organizations {
		org := &organizations[i]
		summaries = append(summaries, summarizeOrganization(org,
			totals[org.ID], active[org.ID], monthlyActive[org.ID]))
	}
	return summaries, nil
}

// BrandResult is the public branding payload for a tenant login page.
type BrandResult struct {
	Name    string  `json:"name"`
	LogoURL *string `json:"logo_url,omitempty"`
}

// BrandCache abstracts the Redis brand cache so GetBrand and the
// cascade delete stay testable without a live Redis.
type BrandCache interface {
	Get(slug string) (*BrandResult, error)
	Set(slug string, name string, logoURL *string) error
	Invalidate(slug string) error
}

// BrandSource loads the persisted branding for a canonical slug.
// Unknown slugs return nil, nil.
type BrandSource interface {
	BrandBySlug(slug string) (*BrandResult, error)
}

// gormBrandSource reads branding from the organizations table.
type gormBrandSource struct {
	db *gorm.DB
}

func (s gormBrandSource) BrandBySlug(slug string) (*BrandResult, error) {
	var org models.Organization
	err := s.db.Select("name, logo_url").Where("sub_domain = ?", slug).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch organization brand: %w", err)
	}
	return &BrandResult{Name: org.Name, LogoURL: org.LogoURL}, nil
}

// GetBrand resolves the public branding for a tenant slug, serving
// from the cache when warm and populating it on a miss. Unknown slugs
// return nil, nil.
func GetBrand(source BrandSource, rawSlug string, cache BrandCache) (*BrandResult, error) {
	slug := tenantpath.CanonicalizeSlug(rawSlug)
	if slug == "" {
		return nil, nil
	}

	if cache != nil {
		if brand, err := cache.Get(slug); err == nil {
			return brand, nil
		}
	}

	brand, err := source.BrandBySlug(slug)
	if err != nil || brand == nil {
		return brand, err
	}

	if cache != nil {
		_ = cache.Set(slug, brand.Name, brand.LogoURL)
	}
	return brand, nil
}
