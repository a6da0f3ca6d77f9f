package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nandak93/go-people-ops-system/shared/tenantpath"
	"github.com/nandak93/go-people-ops-system/shared/utils"
)

// TenantRewrite resolves tenant-prefixed URLs at the edge. A request
// for /org/<slug>/announcements is re-dispatched as /announcements
// with the slug carried on the request, so every downstream route is
// registered once and serves all tenants.
func TenantRewrite(router *gin.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		match, ok := tenantpath.MatchPath(c.Request.URL.Path)
		if !ok {
			// HandleContext resets the context keys, so the slug rides
			// on the request header and is promoted here on the
			// re-dispatched pass.
			if slug := c.GetHeader("X-Org-Slug"); slug != "" {
				c.Set("tenant_slug", tenantpath.CanonicalizeSlug(slug))
			}
			c.Next()
			return
		}

		c.Request.Header.Set("X-Org-Slug", match.Slug)
		c.Request.URL.Path = match.Path

		router.HandleContext(c)
		c.Abort()
	}
}

// RequireTenantLogin front-runs the auth check on tenant-scoped
// routes: anonymous requests get the tenant's login path back instead
// of a bare 401, so clients know where to send the user.
func RequireTenantLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(c.GetHeader("Authorization")) != "" {
			c.Next()
			return
		}

		slug := c.GetString("tenant_slug")
		if slug == "" {
			slug = c.GetHeader("X-Org-Slug")
		}
		if slug == "" {
			c.Next()
			return
		}

		c.JSON(http.StatusUnauthorized, utils.APIResponse{
			Success: false,
			Error:   "Authentication required",
			Data: gin.H{
				"login_path": tenantpath.AuthPath(slug, ""),
			},
		})
		c.Abort()
	}
}
