package main

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nandak93/go-people-ops-system/shared/middleware"
	"github.com/nandak93/go-people-ops-system/shared/models"
	"github.com/nandak93/go-people-ops-system/shared/tenantpath"
	"github.com/nandak93/go-people-ops-system/shared/utils"
)

// respondServiceError maps auth service errors onto HTTP responses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAccountDisabled):
		utils.UnauthorizedResponse(c, err.Error())
	case errors.Is(err, ErrWrongTenant):
		utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, ErrInviteInvalid), errors.Is(err, ErrInviteExpired), errors.Is(err, ErrWeakPassword):
		utils.BadRequestResponse(c, err.Error())
	default:
		utils.InternalServerErrorResponse(c, "Authentication operation failed")
	}
}

// handleLogin signs a user in with email and password.
func handleLogin(db *gorm.DB, authMiddleware *middleware.AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		result, err := Login(db, authMiddleware, input)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		utils.OKResponse(c, "Login successful", result)
	}
}

// handleLogout revokes the current session.
func handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if err := utils.RevokeTokenSession(token); err != nil {
			utils.InternalServerErrorResponse(c, "Failed to revoke session")
			return
		}
		utils.OKResponse(c, "Logged out", nil)
	}
}

// handleSession returns the live session behind the current token.
func handleSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		session, err := utils.GetTokenSession(token)
		if err != nil {
			utils.UnauthorizedResponse(c, "Session expired or revoked")
			return
		}
		_ = utils.TouchTokenSession(token)
		utils.OKResponse(c, "Session retrieved successfully", session)
	}
}

// handleAcceptInvite redeems an invitation and activates the account.
func handleAcceptInvite(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input AcceptInviteInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if err := AcceptInvite(db, input); err != nil {
			respondServiceError(c, err)
			return
		}

		utils.OKResponse(c, "Invitation accepted, you can now sign in", nil)
	}
}

// handleChangePassword updates the signed-in user's password.
func handleChangePassword(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := middleware.CallerFromContext(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid session")
			return
		}

		var input ChangePasswordInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if err := ChangePassword(db, caller, input); err != nil {
			respondServiceError(c, err)
			return
		}

		utils.OKResponse(c, "Password updated, please sign in again", nil)
	}
}

// handleLoginPage resolves a tenant slug to its login metadata, used
// by clients to render a branded sign-in page.
func handleLoginPage(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := tenantpath.CanonicalizeSlug(c.Param("slug"))
		if slug == "" {
			utils.BadRequestResponse(c, "Tenant slug required")
			return
		}

		var org models.Organization
		err := db.Select("name, sub_domain, logo_url").Where("sub_domain = ?", slug).First(&org).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFoundResponse(c, "Organization not found")
			return
		}
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to resolve tenant")
			return
		}

		utils.OKResponse(c, "Tenant login page resolved", gin.H{
			"name":       org.Name,
			"sub_domain": org.SubDomain,
			"logo_url":   org.LogoURL,
			"login_path": tenantpath.AuthPath(org.SubDomain, ""),
		})
	}
}
