package middleware

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nandak93/go-people-ops-system/shared/models"
	"github.com/nandak93/go-people-ops-system/shared/utils"
)

// AuthMiddleware validates the HMAC-signed session tokens issued by
// the auth service and exposes the caller context to handlers.
type AuthMiddleware struct {
	secret   []byte
	tokenTTL time.Duration
}

// SessionClaims are the JWT claims carried by a login token. Subject
// holds the user id.
type SessionClaims struct {
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"org_id,omitempty"`
	SubDomain      string `json:"org_slug,omitempty"`
	jwt.RegisteredClaims
}

// NewAuthMiddleware creates the middleware from the JWT_SECRET
// environment variable.
func NewAuthMiddleware() (*AuthMiddleware, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	ttl := 12 * time.Hour
	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
		ttl = parsed
	}

	return &AuthMiddleware{secret: []byte(secret), tokenTTL: ttl}, nil
}

// TokenTTL returns how long issued tokens stay valid.
func (am *AuthMiddleware) TokenTTL() time.Duration {
	return am.tokenTTL
}

// IssueToken signs a session token for the user. The auth service
// pairs every issued token with a Redis session for revocation.
func (am *AuthMiddleware) IssueToken(user *models.User, subDomain string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Email:     user.Email,
		Role:      string(user.Role),
		SubDomain: subDomain,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(am.tokenTTL)),
		},
	}
	if user.OrganizationID != nil {
		claims.OrganizationID = user.OrganizationID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(am.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// parseToken verifies the token signature and expiry.
func (am *AuthMiddleware) parseToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return am.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// RequireAuth validates the bearer token and the backing Redis
// session, then stores the caller context on the request.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			utils.UnauthorizedResponse(c, "Authorization token required")
			c.Abort()
			return
		}

		claims, err := am.parseToken(tokenString)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid token")
			c.Abort()
			return
		}

		// A token without a live session has been revoked.
		if _, err := utils.GetTokenSession(tokenString); err != nil {
			utils.UnauthorizedResponse(c, "Session expired or revoked")
			c.Abort()
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)
		c.Set("org_id", claims.OrganizationID)
		c.Set("org_slug", claims.SubDomain)

		c.Next()
	}
}

// RequireRole allows callers whose role ranks at or above the given
// role. Super admins always pass.
func (am *AuthMiddleware) RequireRole(minimum models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.UserRole(c.GetString("role"))
		if !role.AtLeast(minimum) {
			utils.ForbiddenResponse(c, "Insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireHRAdmin shorthand for announcement and people operations.
func (am *AuthMiddleware) RequireHRAdmin() gin.HandlerFunc {
	return am.RequireRole(models.RoleHRAdmin)
}

// RequireOrgAccess restricts :id routes to the caller's own
// organization; super admins may reach any organization.
func (am *AuthMiddleware) RequireOrgAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.UserRole(c.GetString("role"))
		if role == models.RoleSuperAdmin {
			c.Next()
			return
		}

		requestedID := c.Param("id")
		if requestedID != "" && requestedID != c.GetString("org_id") {
			utils.ForbiddenResponse(c, "Access denied to this organization")
			c.Abort()
			return
		}
		c.Next()
	}
}

// extractToken extracts the JWT token from the Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return authHeader
}

// CallerFromContext builds the explicit caller context from the
// values RequireAuth stored on the request.
func CallerFromContext(c *gin.Context) (models.Caller, error) {
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		return models.Caller{}, fmt.Errorf("invalid user_id in context: %w", err)
	}

	caller := models.Caller{
		UserID: userID,
		Email:  c.GetString("email"),
		Role:   models.UserRole(c.GetString("role")),
	}

	if orgIDStr := c.GetString("org_id"); orgIDStr != "" {
		orgID, err := uuid.Parse(orgIDStr)
		if err != nil {
			return models.Caller{}, fmt.Errorf("invalid org_id in context: %w", err)
		}
		caller.OrganizationID = &orgID
	}

	return caller, nil
}
