package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nandak93/go-people-ops-system/shared/models"
)

func superAdminCaller() models.Caller {
	return models.Caller{
		UserID: uuid.New(),
		Email:  "root@console.test",
		Role:   models.RoleSuperAdmin,
	}
}

func TestNormalizeSubDomain(t *testing.T) {
	slug, err := normalizeSubDomain("  Acme-Corp  ")
	require.NoError(t, err)
	assert.Equal(t, "acme-corp", slug)

	// Canonicalization is idempotent.
	again, err := normalizeSubDomain(slug)
	require.NoError(t, err)
	assert.Equal(t, slug, again)
}

func TestNormalizeSubDomainRejectsBadSlugs(t *testing.T) {
	for _, raw := range []string{
		"",
		"ab",                       // too short
		"acme corp",                // space
		"acme_corp",                // underscore
		"-acme",                    // leading hyphen
		"acme-",                    // trailing hyphen
		strings.Repeat("a", 64),    // too long
		"tenant.example.com/extra", // not a bare label
	} {
		_, err := normalizeSubDomain(raw)
		assert.ErrorIs(t, err, ErrSubDomainInvalid, "slug %q must be rejected", raw)
	}
}

func TestSplitFullName(t *testing.T) {
	first, last := splitFullName("Priya Narayanan Iyer")
	assert.Equal(t, "Priya", first)
	assert.Equal(t, "Narayanan Iyer", last)

	first, last = splitFullName("Cher")
	assert.Equal(t, "Cher", first)
	assert.Empty(t, last)

	first, last = splitFullName("   ")
	assert.Empty(t, first)
	assert.Empty(t, last)
}

func TestGenerateOwnerEmployeeCode(t *testing.T) {
	assert.Equal(t, "ACME-OWNER-1", generateOwnerEmployeeCode("Acme Corp"))
	assert.Equal(t, "42ND-OWNER-1", generateOwnerEmployeeCode("42nd Street Media"))
	// Names with no usable characters fall back to a generic prefix.
	assert.Equal(t, "ORG-OWNER-1", generateOwnerEmployeeCode("株式会社"))
}

func TestSanitizeOptional(t *testing.T) {
	assert.Nil(t, sanitizeOptional(nil))

	empty := "   "
	assert.Nil(t, sanitizeOptional(&empty))

	padded := "  Asia/Kolkata "
	got := sanitizeOptional(&padded)
	require.NotNil(t, got)
	assert.Equal(t, "Asia/Kolkata", *got)
}

func TestSummarizeOrganizationStatus(t *testing.T) {
	org := &models.Organization{
		ID:        uuid.New(),
		Name:      "Acme",
		SubDomain: "acme",
		CreatedAt: time.Now(),
	}

	assert.Equal(t, models.OrgStatusOnboarding, summarizeOrganization(org, 0, 0, 0).Status)
	assert.Equal(t, models.OrgStatusSuspended, summarizeOrganization(org, 5, 0, 2).Status)

	summary := summarizeOrganization(org, 5, 3, 2)
	assert.Equal(t, models.OrgStatusActive, summary.Status)
	assert.Equal(t, int64(5), summary.TotalEmployees)
	assert.Equal(t, int64(2), summary.MonthlyActiveUsers)
}

func TestListOrganizationsRequiresSuperAdmin(t *testing.T) {
	caller := superAdminCaller()
	caller.Role = models.RoleOrgOwner

	_, err := ListOrganizations(nil, caller)
	assert.ErrorIs(t, err, ErrNotSuperAdmin)
}

func TestBuildInviteLinkUsesTenantAuthNamespace(t *testing.T) {
	link := buildInviteLink("acme", "tok123", "owner@acme.test")
	assert.Contains(t, link, "/org/acme/auth/invite?")
	assert.Contains(t, link, "token=tok123")
	assert.Contains(t, link, "email=owner%40acme.test")
}

func TestClampPageSize(t *testing.T) {
	assert.Equal(t, 1, clampPageSize(0))
	assert.Equal(t, 1, clampPageSize(-5))
	assert.Equal(t, 25, clampPageSize(25))
	assert.Equal(t, 50, clampPageSize(120))
}

// fakeBrandCache is an in-memory BrandCache recording every mutation.
type fakeBrandCache struct {
	entries     map[string]*BrandResult
	stored      []string
	invalidated []string
}

func newFakeBrandCache() *fakeBrandCache {
	return &fakeBrandCache{entries: map[string]*BrandResult{}}
}

func (c *fakeBrandCache) Get(slug string) (*BrandResult, error) {
	if brand, ok := c.entries[slug]; ok {
		return brand, nil
	}
	return nil, errors.New("cache miss")
}

func (c *fakeBrandCache) Set(slug string, name string, logoURL *string) error {
	c.entries[slug] = &BrandResult{Name: name, LogoURL: logoURL}
	c.stored = append(c.stored, slug)
	return nil
}

func (c *fakeBrandCache) Invalidate(slug string) error {
	delete(c.entries, slug)
	c.invalidated = append(c.invalidated, slug)
	return nil
}

// fakeBrandSource serves branding from an in-memory map.
type fakeBrandSource struct {
	brands map[string]*BrandResult
}

func (s fakeBrandSource) BrandBySlug(slug string) (*BrandResult, error) {
	return s.brands[slug], nil
}

func TestGetBrandServesFromCache(t *testing.T) {
	cache := newFakeBrandCache()
	cache.entries["acme"] = &BrandResult{Name: "Acme Corp"}
	// An empty source proves a warm cache never reaches storage.
	source := fakeBrandSource{}

	brand, err := GetBrand(source, "  ACME ", cache)
	require.NoError(t, err)
	require.NotNil(t, brand)
	assert.Equal(t, "Acme Corp", brand.Name)
	assert.Empty(t, cache.stored)
}

func TestGetBrandPopulatesCacheOnMiss(t *testing.T) {
	cache := newFakeBrandCache()
	source := fakeBrandSource{brands: map[string]*BrandResult{
		"acme": {Name: "Acme Corp"},
	}}

	brand, err := GetBrand(source, "acme", cache)
	require.NoError(t, err)
	require.NotNil(t, brand)
	assert.Equal(t, "Acme Corp", brand.Name)
	assert.Equal(t, []string{"acme"}, cache.stored)
}

func TestGetBrandUnknownSlugIsNil(t *testing.T) {
	cache := newFakeBrandCache()
	source := fakeBrandSource{}

	brand, err := GetBrand(source, "ghost", cache)
	require.NoError(t, err)
	assert.Nil(t, brand)
	assert.Empty(t, cache.stored, "unknown slugs must not be cached")

	brand, err = GetBrand(source, "   ", cache)
	require.NoError(t, err)
	assert.Nil(t, brand)
}

// fakeDeletionStore backs the cascade flow with fixed fixtures.
type fakeDeletionStore struct {
	org          *models.Organization
	passwordHash string
	deleted      []uuid.UUID
}

func (s *fakeDeletionStore) PasswordHash(uuid.UUID) (string, error) {
	return s.passwordHash, nil
}

func (s *fakeDeletionStore) OrganizationByID(id uuid.UUID) (*models.Organization, error) {
	if s.org != nil && s.org.ID == id {
		return s.org, nil
	}
	return nil, nil
}

func (s *fakeDeletionStore) CascadeDelete(organizationID uuid.UUID) error {
	s.deleted = append(s.deleted, organizationID)
	return nil
}

func hashedPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestDeleteOrganizationInvalidatesBrandCache(t *testing.T) {
	caller := superAdminCaller()
	org := &models.Organization{ID: uuid.New(), SubDomain: "acme"}
	store := &fakeDeletionStore{org: org, passwordHash: hashedPassword(t, "hunter22")}
	cache := newFakeBrandCache()
	cache.entries["acme"] = &BrandResult{Name: "Acme Corp"}

	err := deleteOrganization(store, cache, caller, org.ID, DeleteOrganizationInput{Password: "hunter22"})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{org.ID}, store.deleted)
	assert.Equal(t, []string{"acme"}, cache.invalidated,
		"a deleted tenant's branding must leave the cache")
	_, err = cache.Get("acme")
	assert.Error(t, err)
}

func TestDeleteOrganizationRejectsWrongPassword(t *testing.T) {
	caller := superAdminCaller()
	org := &models.Organization{ID: uuid.New(), SubDomain: "acme"}
	store := &fakeDeletionStore{org: org, passwordHash: hashedPassword(t, "hunter22")}
	cache := newFakeBrandCache()

	err := deleteOrganization(store, cache, caller, org.ID, DeleteOrganizationInput{Password: "wrong"})
	assert.ErrorIs(t, err, ErrPasswordIncorrect)
	assert.Empty(t, store.deleted)
	assert.Empty(t, cache.invalidated)
}

func TestDeleteOrganizationUnknownOrganization(t *testing.T) {
	caller := superAdminCaller()
	store := &fakeDeletionStore{passwordHash: hashedPassword(t, "hunter22")}

	err := deleteOrganization(store, newFakeBrandCache(), caller, uuid.New(), DeleteOrganizationInput{Password: "hunter22"})
	assert.ErrorIs(t, err, ErrOrganizationNotFound)
	assert.Empty(t, store.deleted)
}

func TestDeleteOrganizationRequiresSuperAdmin(t *testing.T) {
	caller := superAdminCaller()
	caller.Role = models.RoleOrgOwner
	store := &fakeDeletionStore{passwordHash: hashedPassword(t, "hunter22")}

	err := deleteOrganization(store, newFakeBrandCache(), caller, uuid.New(), DeleteOrganizationInput{Password: "hunter22"})
	assert.ErrorIs(t, err, ErrNotSuperAdmin)
	assert.Empty(t, store.deleted)
}

func TestCreateOrganizationRequiresSuperAdmin(t *testing.T) {
	caller := superAdminCaller()
	caller.Role = models.RoleHRAdmin

	_, err := CreateOrganization(nil, nil, caller, CreateOrganizationInput{
		Name:       "Acme",
		SubDomain:  "acme",
		OwnerName:  "Priya Iyer",
		OwnerEmail: "priya@acme.test",
	})
	assert.ErrorIs(t, err, ErrNotSuperAdmin)
}

func TestCreateOrganizationValidatesInput(t *testing.T) {
	caller := superAdminCaller()

	_, err := CreateOrganization(nil, nil, caller, CreateOrganizationInput{
		Name:       "   ",
		SubDomain:  "acme",
		OwnerName:  "Priya Iyer",
		OwnerEmail: "priya@acme.test",
	})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = CreateOrganization(nil, nil, caller, CreateOrganizationInput{
		Name:       "Acme",
		SubDomain:  "Acme Corp",
		OwnerName:  "Priya Iyer",
		OwnerEmail: "priya@acme.test",
	})
	assert.ErrorIs(t, err, ErrSubDomainInvalid)
}
