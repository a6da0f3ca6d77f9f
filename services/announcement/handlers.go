package main

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nandak93/go-people-ops-system/shared/middleware"
	"github.com/nandak93/go-people-ops-system/shared/utils"
)

// respondServiceError maps announcement service errors onto HTTP
// responses. Forbidden covers both the role check and the missing
// organization precondition.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNoOrganization):
		utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, ErrMissingContent), errors.Is(err, ErrNoRecipients), errors.Is(err, ErrUnknownRecipient):
		utils.BadRequestResponse(c, err.Error())
	default:
		utils.InternalServerErrorResponse(c, "Announcement operation failed")
	}
}

// handleListAnnouncements returns the grouped announcement history
// for the caller's organization.
func handleListAnnouncements(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := middleware.CallerFromContext(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid session")
			return
		}

		feed, err := ListAnnouncements(db, caller)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		utils.OKResponse(c, "Announcements retrieved successfully", feed)
	}
}

// handleListRecipients returns the teammates available as targets.
func handleListRecipients(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := middleware.CallerFromContext(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid session")
			return
		}

		recipients, err := ListRecipients(db, caller)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		utils.OKResponse(c, "Recipients retrieved successfully", gin.H{
			"employees": recipients,
		})
	}
}

// handleSendAnnouncement creates a broadcast batch.
func handleSendAnnouncement(db *gorm.DB, producer *EventProducer) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := middleware.CallerFromContext(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid session")
			return
		}

		var input SendAnnouncementInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		result, err := SendAnnouncement(db, producer, caller, input)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		utils.CreatedResponse(c, "Announcement sent successfully", result)
	}
}
