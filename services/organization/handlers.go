package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nandak93/go-people-ops-system/shared/middleware"
	"github.com/nandak93/go-people-ops-system/shared/models"
	"github.com/nandak93/go-people-ops-system/shared/utils"
)

// respondServiceError maps organization service errors onto HTTP
// responses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotSuperAdmin), errors.Is(err, ErrNotOrgManager):
		utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, ErrPasswordIncorrect):
		utils.UnauthorizedResponse(c, err.Error())
	case errors.Is(err, ErrOrganizationNotFound):
		utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, ErrSubDomainTaken), errors.Is(err, ErrEmailTaken):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrSubDomainInvalid):
		utils.BadRequestResponse(c, err.Error())
	default:
		utils.InternalServerErrorResponse(c, "Organization operation failed")
	}
}

func callerOrAbort(c *gin.Context) (models.Caller, bool) {
	caller, err := middleware.CallerFromContext(c)
	if err != nil {
		utils.UnauthorizedResponse(c, "Invalid session")
		return models.Caller{}, false
	}
	return caller, true
}

// handleCreateOrganization provisions a tenant (super admin only).
func handleCreateOrganization(db *gorm.DB, mailer *utils.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerOrAbort(c)
		if !ok {
			return
		}

		var input CreateOrganizationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		result, err := CreateOrganization(db, mailer, caller, input)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		utils.CreatedResponse(c, "Organization created successfully", result)
	}
}

// handleGetOrganizations lists all tenants for the console.
func handleGetOrganizations(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerOrAbort(c)
		if !ok {
			return
		}

		summaries, err := ListOrganizations(db, caller)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		utils.OKResponse(c, "Organizations retrieved successfully", gin.H{
			"organizations": summaries,
		})
	}
}

// organizationDetails aggregates the stats shown on one console page.
type organizationDetails struct {
	Organization OrganizationSummary `json:"organization"`
	StatusCounts map[string]int64    `json:"status_counts"`
	RoleCounts   map[string]int64    `json:"role_counts"`
}

// handleGetOrganization returns one organization with member stats.
func handleGetOrganization(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid organization id")
			return
		}

		var org models.Organization
		if err := db.Where("id = ?", orgID).First(&org).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Organization not found")
			} else {
				utils.InternalServerErrorResponse(c, "Failed to fetch organization")
			}
			return
		}

		statusCounts, roleCounts := map[string]int64{}, map[string]int64{}
		var total, active, monthlyActive int64

		type bucketRow struct {
			Bucket string
			Count  int64
		}
		var rows []bucketRow
		if err := db.Model(&models.User{}).
			Select("status AS bucket, COUNT(*) AS count").
			Where("organization_id = ?", orgID).
			Group("status").Scan(&rows).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch member stats")
			return
		}
		for _, row := range rows {
			statusCounts[row.Bucket] = row.Count
			total += row.Count
			if row.Bucket == string(models.EmploymentActive) {
				active = row.Count
			}
		}

		rows = rows[:0]
		if err := db.Model(&models.User{}).
			Select("role AS bucket, COUNT(*) AS count").
			Where("organization_id = ?", orgID).
			Group("role").Scan(&rows).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch role stats")
			return
		}
		for _, row := range rows {
			roleCounts[row.Bucket] = row.Count
		}

		thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
		if err := db.Model(&models.User{}).
			Where("organization_id = ? AND last_login_at >= ?", orgID, thirtyDaysAgo).
			Count(&monthlyActive).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch activity stats")
			return
		}

		utils.OKResponse(c, "Organization retrieved successfully", organizationDetails{
			Organization: summarizeOrganization(&org, total, active, monthlyActive),
			StatusCounts: statusCounts,
			RoleCounts:   roleCounts,
		})
	}
}

// memberRow is one entry in the paginated member listing.
type memberRow struct {
	ID           uuid.UUID               `json:"id"`
	Name         string                  `json:"name"`
	Email        string                  `json:"email"`
	Role         models.UserRole         `json:"role"`
	Status       models.EmploymentStatus `json:"status"`
	Designation  *string                 `json:"designation"`
	EmployeeCode *string                 `json:"employee_code"`
	AvatarURL    *string                 `json:"avatar_url"`
	JoinedAt     time.Time               `json:"joined_at"`
}

// handleGetOrganizationMembers lists members newest-first with cursor
// pagination. The cursor is the id of the last row of the previous
// page; the page size is clamped to 1-50 and overfetched by one row
// to detect whether another page exists.
func handleGetOrganizationMembers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid organization id")
			return
		}

		limit := 10
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				utils.BadRequestResponse(c, "Invalid limit")
				return
			}
			limit = parsed
		}
		limit = clampPageSize(limit)

		var total int64
		if err := db.Model(&models.User{}).Where("organization_id = ?", orgID).Count(&total).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to count members")
			return
		}

		query := db.Where("organization_id = ?", orgID).
			Order("created_at DESC, id DESC").
			Limit(limit + 1)

		if rawCursor := c.Query("cursor"); rawCursor != "" {
			cursorID, err := uuid.Parse(rawCursor)
			if err != nil {
				utils.BadRequestResponse(c, "Invalid cursor")
				return
			}
			var cursorUser models.User
			if err := db.Select("id, created_at").Where("id = ? AND organization_id = ?", cursorID, orgID).
				First(&cursorUser).Error; err != nil {
				utils.BadRequestResponse(c, "Unknown cursor")
				return
			}
			query = query.Where(
				"(created_at < ?) OR (created_at = ? AND id < ?)",
				cursorUser.CreatedAt, cursorUser.CreatedAt, cursorUser.ID,
			)
		}

		var users []models.User
		if err := query.Find(&users).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch members")
			return
		}

		var nextCursor *uuid.UUID
		if len(users) > limit {
			users = users[:limit]
			last := users[len(users)-1].ID
			nextCursor = &last
		}

		members := make([]memberRow, 0, len(users))
		for i := range users {
			user := &users[i]
			members = append(members, memberRow{
				ID:           user.ID,
				Name:         user.DisplayName(),
				Email:        user.Email,
				Role:         user.Role,
				Status:       user.Status,
				Designation:  user.Designation,
				EmployeeCode: user.EmployeeCode,
				AvatarURL:    user.AvatarURL,
				JoinedAt:     user.CreatedAt,
			})
		}

		utils.OKResponse(c, "Members retrieved successfully", gin.H{
			"organization_id": orgID,
			"total":           total,
			"next_cursor":     nextCursor,
			"members":         members,
		})
	}
}

// clampPageSize bounds a requested page size to 1-50.
func clampPageSize(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 50 {
		return 50
	}
	return limit
}

// UpdateOrganizationRequest carries the editable organization fields.
// A present sub_domain is validated and checked for uniqueness.
type UpdateOrganizationRequest struct {
	Name      string  `json:"name" binding:"required"`
	Domain    *string `json:"domain"`
	Timezone  *string `json:"timezone"`
	Locale    *string `json:"locale"`
	LogoURL   *string `json:"logo_url"`
	SubDomain *string `json:"sub_domain"`
}

// handleUpdateOrganization edits organization details.
func handleUpdateOrganization(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid organization id")
			return
		}

		var req UpdateOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var org models.Organization
		if err := db.Where("id = ?", orgID).First(&org).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Organization not found")
			} else {
				utils.InternalServerErrorResponse(c, "Failed to fetch organization")
			}
			return
		}

		name := req.Name
		if name == "" {
			respondServiceError(c, ErrNameRequired)
			return
		}

		previousSlug := org.SubDomain
		if req.SubDomain != nil {
			subDomain, err := normalizeSubDomain(*req.SubDomain)
			if err != nil {
				respondServiceError(c, err)
				return
			}
			if subDomain != org.SubDomain {
				var count int64
				if err := db.Model(&models.Organization{}).
					Where("sub_domain = ? AND id <> ?", subDomain, orgID).
					Count(&count).Error; err != nil {
					utils.InternalServerErrorResponse(c, "Failed to check sub-domain")
					return
				}
				if count > 0 {
					respondServiceError(c, ErrSubDomainTaken)
					return
				}
				org.SubDomain = subDomain
			}
		}

		org.Name = name
		org.Domain = sanitizeOptional(req.Domain)
		org.Timezone = sanitizeOptional(req.Timezone)
		org.Locale = sanitizeOptional(req.Locale)
		org.LogoURL = sanitizeOptional(req.LogoURL)

		if err := db.Save(&org).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update organization")
			return
		}

		utils.InvalidateBrand(previousSlug)
		utils.InvalidateBrand(org.SubDomain)

		utils.OKResponse(c, "Organization updated successfully", org)
	}
}

// handleDeleteOrganization cascade-deletes a tenant (super admin,
// password confirmed).
func handleDeleteOrganization(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerOrAbort(c)
		if !ok {
			return
		}

		orgID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid organization id")
			return
		}

		var input DeleteOrganizationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if err := DeleteOrganization(db, caller, orgID, input); err != nil {
			respondServiceError(c, err)
			return
		}

		utils.OKResponse(c, "Organization deleted", gin.H{
			"organization_id": orgID,
		})
	}
}

// redisBrandCache adapts the shared Redis helpers to the BrandCache
// interface used by GetBrand.
type redisBrandCache struct{}

func (redisBrandCache) Get(slug string) (*BrandResult, error) {
	brand, err := utils.GetCachedBrand(slug)
	if err != nil {
		return nil, err
	}
	return &BrandResult{Name: brand.Name, LogoURL: brand.LogoURL}, nil
}

func (redisBrandCache) Set(slug string, name string, logoURL *string) error {
	return utils.CacheBrand(slug, utils.OrganizationBrand{Name: name, LogoURL: logoURL})
}

func (redisBrandCache) Invalidate(slug string) error {
	utils.InvalidateBrand(slug)
	return nil
}

// handleGetBrand is the public tenant-branding lookup used by login
// pages. Unknown slugs 404 without leaking anything else.
func handleGetBrand(db *gorm.DB) gin.HandlerFunc {
	cache := redisBrandCache{}
	source := gormBrandSource{db: db}
	return func(c *gin.Context) {
		brand, err := GetBrand(source, c.Param("slug"), cache)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch brand")
			return
		}
		if brand == nil {
			utils.NotFoundResponse(c, "Organization not found")
			return
		}
		utils.OKResponse(c, "Brand retrieved successfully", brand)
	}
}
