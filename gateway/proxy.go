package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandak93/go-people-ops-system/shared/utils"
)

// ServiceClient proxies requests to one upstream service behind a
// circuit breaker.
type ServiceClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
	breaker    *utils.CircuitBreaker
}

// ServiceClients holds the gateway's upstream clients.
type ServiceClients struct {
	AuthService         *ServiceClient
	OrganizationService *ServiceClient
	AnnouncementService *ServiceClient
}

// NewServiceClient creates a client for one upstream. The breaker
// opens after five consecutive failures and probes again after thirty
// seconds.
func NewServiceClient(name, baseURL string) *ServiceClient {
	return &ServiceClient{
		name:    name,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: utils.NewCircuitBreaker(name, 5, 30*time.Second),
	}
}

// ProxyRequest forwards the request to the upstream service, carrying
// the caller context as headers.
func (sc *ServiceClient) ProxyRequest(c *gin.Context) {
	targetURL := sc.baseURL + c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		targetURL += "?" + c.Request.URL.RawQuery
	}

	var body io.Reader
	if c.Request.Body != nil {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to read request body")
			return
		}
		body = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, body)
	if err != nil {
		utils.InternalServerErrorResponse(c, "Failed to create request")
		return
	}

	// Copy headers
	for key, values := range c.Request.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	// Caller context resolved by the gateway's auth middleware
	if userID, exists := c.Get("user_id"); exists {
		req.Header.Set("X-User-ID", userID.(string))
	}
	if email, exists := c.Get("email"); exists {
		req.Header.Set("X-User-Email", email.(string))
	}
	if role, exists := c.Get("role"); exists {
		req.Header.Set("X-User-Role", role.(string))
	}
	if orgID, exists := c.Get("org_id"); exists {
		req.Header.Set("X-Org-ID", orgID.(string))
	}
	if slug, exists := c.Get("tenant_slug"); exists {
		req.Header.Set("X-Org-Slug", slug.(string))
	}

	var resp *http.Response
	err = sc.breaker.Call(func() error {
		var callErr error
		resp, callErr = sc.httpClient.Do(req)
		if callErr != nil {
			return callErr
		}
		// 5xx responses count against the breaker.
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%s returned status %d", sc.name, resp.StatusCode)
		}
		return nil
	})

	if errors.Is(err, utils.ErrCircuitOpen) || errors.Is(err, utils.ErrTooManyRequests) {
		utils.ServiceUnavailableResponse(c, fmt.Sprintf("%s is temporarily unavailable", sc.name))
		return
	}
	if err != nil && resp == nil {
		utils.ServiceUnavailableResponse(c, "Failed to communicate with service")
		return
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		utils.InternalServerErrorResponse(c, "Failed to read response")
		return
	}

	for key, values := range resp.Header {
		for _, value := range values {
			c.Header(key, value)
		}
	}

	c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), responseBody)
}

// HealthCheck checks if a service is healthy
func (sc *ServiceClient) HealthCheck() error {
	req, err := http.NewRequest(http.MethodGet, sc.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	return nil
}

// GetServiceStatus reports the health and breaker state of every
// upstream service.
func (scs *ServiceClients) GetServiceStatus() map[string]interface{} {
	status := make(map[string]interface{})
	for _, sc := range []*ServiceClient{scs.AuthService, scs.OrganizationService, scs.AnnouncementService} {
		entry := map[string]interface{}{
			"healthy": true,
			"breaker": string(sc.breaker.GetState()),
		}
		if err := sc.HealthCheck(); err != nil {
			entry["healthy"] = false
			entry["error"] = err.Error()
		}
		status[sc.name] = entry
	}
	return status
}
