package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TenantRewrite(router))
	return router
}

func TestTenantRewriteDispatchesInnerPath(t *testing.T) {
	router := newTestRouter()

	var gotSlug, gotHeader string
	router.GET("/dashboard", func(c *gin.Context) {
		gotSlug = c.GetString("tenant_slug")
		gotHeader = c.GetHeader("X-Org-Slug")
		c.Status(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/org/acme/dashboard", nil)
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "acme", gotSlug)
	assert.Equal(t, "acme", gotHeader)
}

func TestTenantRewriteKeepsQueryString(t *testing.T) {
	router := newTestRouter()

	var gotTab string
	router.GET("/people", func(c *gin.Context) {
		gotTab = c.Query("tab")
		c.Status(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/org/acme/people?tab=active", nil)
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "active", gotTab)
}

func TestTenantRewriteIgnoresPlainPaths(t *testing.T) {
	router := newTestRouter()

	router.GET("/support", func(c *gin.Context) {
		assert.Empty(t, c.GetString("tenant_slug"))
		c.Status(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/support", nil)
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRequireTenantLoginPointsAnonymousUsersAtLogin(t *testing.T) {
	router := newTestRouter()

	router.GET("/people", RequireTenantLogin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/org/acme/people", nil)
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	var payload struct {
		Success bool `json:"success"`
		Data    struct {
			LoginPath string `json:"login_path"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	assert.False(t, payload.Success)
	assert.Equal(t, "/org/acme/auth/login", payload.Data.LoginPath)
}

func TestRequireTenantLoginPassesNonTenantRequests(t *testing.T) {
	router := newTestRouter()

	router.GET("/people", RequireTenantLogin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/people", nil)
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
}
