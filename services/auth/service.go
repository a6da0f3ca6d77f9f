package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nandak93/go-people-ops-system/shared/models"
	"github.com/nandak93/go-people-ops-system/shared/tenantpath"
	"github.com/nandak93/go-people-ops-system/shared/utils"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords
	// alike, so login failures don't reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDisabled is returned for terminated accounts.
	ErrAccountDisabled = errors.New("account is no longer active")
	// ErrWrongTenant means the account does not belong to the tenant
	// whose login page was used.
	ErrWrongTenant = errors.New("account does not belong to this organization")
	// ErrInviteInvalid covers unknown and already-redeemed invites.
	ErrInviteInvalid = errors.New("invitation is invalid")
	// ErrInviteExpired means the invite's redemption window has passed.
	ErrInviteExpired = errors.New("invitation has expired")
	// ErrWeakPassword is returned when a chosen password is too short.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)

const minPasswordLength = 8

// LoginInput carries a login attempt. SubDomain is set when the
// attempt comes from a tenant-scoped login page; it pins the account
// to that organization.
type LoginInput struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	SubDomain string `json:"sub_domain"`
}

// LoginResult is the successful login payload.
type LoginResult struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expires_at"`
	Profile   models.SessionProfile `json:"profile"`
	HomePath  string                `json:"home_path"`
}

// homePath resolves where the client should land after login. Tenant
// members go to their organization's dashboard, super admins to the
// platform console.
func homePath(user *models.User, subDomain string) string {
	if user.Role == models.RoleSuperAdmin {
		return "/console"
	}
	if subDomain != "" {
		return tenantpath.Path(subDomain, "/dashboard")
	}
	return "/dashboard"
}

// resolveUserSubDomain loads the slug for the user's organization.
func resolveUserSubDomain(db *gorm.DB, user *models.User) (string, error) {
	if user.OrganizationID == nil {
		return "", nil
	}
	var org models.Organization
	if err := db.Select("sub_domain").Where("id = ?", *user.OrganizationID).First(&org).Error; err != nil {
		return "", fmt.Errorf("failed to load organization: %w", err)
	}
	return org.SubDomain, nil
}

// TokenIssuer abstracts the middleware's token signing so Login stays
// decoupled from gin.
type TokenIssuer interface {
	IssueToken(user *models.User, subDomain string) (string, error)
	TokenTTL() time.Duration
}

// Login authenticates an email/password pair, issues a signed token
// and records the session in Redis.
func Login(db *gorm.DB, issuer TokenIssuer, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Burn a comparison anyway so the timing matches a wrong
		// password.
		_ = bcrypt.CompareHashAndPassword(
			[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
			[]byte(input.Password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Status == models.EmploymentTerminated {
		return nil, ErrAccountDisabled
	}

	subDomain, err := resolveUserSubDomain(db, &user)
	if err != nil {
		return nil, err
	}

	// A tenant login page only signs in members of that tenant. Super
	// admins may enter through any tenant's page.
	if requested := tenantpath.CanonicalizeSlug(input.SubDomain); requested != "" {
		if requested != subDomain && user.Role != models.RoleSuperAdmin {
			return nil, ErrWrongTenant
		}
	}

	token, err := issuer.IssueToken(&user, subDomain)
	if err != nil {
		return nil, err
	}

	profile := models.SessionProfile{
		UserID:         user.ID,
		Email:          user.Email,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
		SubDomain:      subDomain,
	}

	session, err := utils.CreateTokenSession(token, profile, issuer.TokenTTL())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	now := time.Now()
	if err := db.Model(&user).Update("last_login_at", now).Error; err != nil {
		// The login already succeeded; a stale timestamp is not worth
		// failing it over.
		_ = err
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Profile:   profile,
		HomePath:  homePath(&user, subDomain),
	}, nil
}

// AcceptInviteInput redeems an invitation token and sets the account's
// first password.
type AcceptInviteInput struct {
	Token    string `json:"token" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AcceptInvite activates an invited account: the token must match its
// hash, be unexpired and belong to the given email. The invite is
// consumed in the same transaction that activates the account.
func AcceptInvite(db *gorm.DB, input AcceptInviteInput) error {
	if len(input.Password) < minPasswordLength {
		return ErrWeakPassword
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	var invite models.InvitationToken
	err := db.Preload("User").
		Where("token_hash = ?", utils.HashToken(input.Token)).
		First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInviteInvalid
	}
	if err != nil {
		return fmt.Errorf("failed to load invitation: %w", err)
	}

	if invite.IsExpired() {
		return ErrInviteExpired
	}
	if invite.User == nil || !strings.EqualFold(invite.User.Email, email) {
		return ErrInviteInvalid
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"password_hash": string(passwordHash),
			"status":        models.EmploymentActive,
		}
		if err := tx.Model(&models.User{}).Where("id = ?", invite.UserID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to activate account: %w", err)
		}
		if err := tx.Where("user_id = ?", invite.UserID).
			Delete(&models.InvitationToken{}).Error; err != nil {
			return fmt.Errorf("failed to consume invitation: %w", err)
		}
		return nil
	})
}

// ChangePasswordInput updates a signed-in user's password.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ChangePassword verifies the current password, stores the new hash
// and revokes every other session for the user.
func ChangePassword(db *gorm.DB, caller models.Caller, input ChangePasswordInput) error {
	if len(input.NewPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	var user models.User
	if err := db.Where("id = ?", caller.UserID).First(&user).Error; err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)) != nil {
		return ErrInvalidCredentials
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := db.Model(&user).Update("password_hash", string(passwordHash)).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return utils.RevokeAllUserSessions(user.ID)
}
