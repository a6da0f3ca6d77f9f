package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nandak93/go-people-ops-system/shared/models"
	"github.com/nandak93/go-people-ops-system/shared/tenantpath"
	"github.com/nandak93/go-people-ops-system/shared/utils"
)

// CreateOrganizationInput provisions a new tenant with its founding
// owner account.
type CreateOrganizationInput struct {
	Name             string  `json:"name" binding:"required"`
	SubDomain        string  `json:"sub_domain" binding:"required"`
	Domain           *string `json:"domain"`
	Timezone         *string `json:"timezone"`
	Locale           *string `json:"locale"`
	LogoURL          *string `json:"logo_url"`
	OwnerName        string  `json:"owner_name" binding:"required"`
	OwnerEmail       string  `json:"owner_email" binding:"required,email"`
	OwnerPhone       *string `json:"owner_phone"`
	OwnerDesignation *string `json:"owner_designation"`
	SendInvite       *bool   `json:"send_invite"`
}

// CreateOrganizationResult reports the provisioned tenant and the
// owner invitation.
type CreateOrganizationResult struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	SubDomain      string    `json:"sub_domain"`
	OwnerID        uuid.UUID `json:"owner_id"`
	OwnerEmail     string    `json:"owner_email"`
	InviteURL      string    `json:"invite_url"`
	InvitationSent bool      `json:"invitation_sent"`
}

// buildInviteLink constructs the absolute invitation URL on the
// tenant's auth namespace.
func buildInviteLink(subDomain, rawToken, email string) string {
	baseURL := os.Getenv("APP_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	query := url.Values{}
	query.Set("token", rawToken)
	query.Set("email", email)
	return tenantpath.AbsoluteURL(baseURL, subDomain, "/auth/invite?"+query.Encode())
}

// placeholderPasswordHash creates an unguessable hash for accounts
// that have not completed invitation yet.
func placeholderPasswordHash() (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(utils.NewInviteToken()), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash placeholder password: %w", err)
	}
	return string(hash), nil
}

// CreateOrganization provisions an organization, its owner account
// and the owner's invitation token in one transaction. The invitation
// email goes out after commit; a mail failure does not undo the
// provisioning.
func CreateOrganization(db *gorm.DB, mailer *utils.Mailer, caller models.Caller, input CreateOrganizationInput) (*CreateOrganizationResult, error) {
	if err := requireSuperAdmin(caller); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	subDomain, err := normalizeSubDomain(input.SubDomain)
	if err != nil {
		return nil, err
	}

	ownerEmail := strings.ToLower(strings.TrimSpace(input.OwnerEmail))
	ownerPhone := sanitizeOptional(input.OwnerPhone)
	designation := "Org Owner"
	if d := sanitizeOptional(input.OwnerDesignation); d != nil {
		designation = *d
	}

	var count int64
	if err := db.Model(&models.Organization{}).Where("sub_domain = ?", subDomain).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check sub-domain: %w", err)
	}
	if count > 0 {
		return nil, ErrSubDomainTaken
	}

	if err := db.Model(&models.User{}).Where("email = ?", ownerEmail).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check owner email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	passwordHash, err := placeholderPasswordHash()
	if err != nil {
		return nil, err
	}

	firstName, lastName := splitFullName(input.OwnerName)
	employeeCode := generateOwnerEmployeeCode(name)
	rawToken := utils.NewInviteToken()
	now := time.Now()

	org := models.Organization{
		ID:        uuid.New(),
		Name:      name,
		SubDomain: subDomain,
		Domain:    sanitizeOptional(input.Domain),
		Timezone:  sanitizeOptional(input.Timezone),
		Locale:    sanitizeOptional(input.Locale),
		LogoURL:   sanitizeOptional(input.LogoURL),
	}

	owner := models.User{
		ID:             uuid.New(),
		OrganizationID: &org.ID,
		Email:          ownerEmail,
		Phone:          ownerPhone,
		PasswordHash:   passwordHash,
		Role:           models.RoleOrgOwner,
		Status:         models.EmploymentInactive,
		FirstName:      &firstName,
		PreferredName:  &firstName,
		Designation:    &designation,
		EmployeeCode:   &employeeCode,
		InvitedAt:      &now,
		InvitedByID:    &caller.UserID,
	}
	if lastName != "" {
		owner.LastName = &lastName
	}

	invite := models.InvitationToken{
		ID:        uuid.New(),
		UserID:    owner.ID,
		TokenHash: utils.HashToken(rawToken),
		ExpiresAt: utils.InviteExpiry(),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return fmt.Errorf("failed to create organization: %w", err)
		}
		if err := tx.Create(&owner).Error; err != nil {
			return fmt.Errorf("failed to create owner account: %w", err)
		}
		if err := tx.Create(&invite).Error; err != nil {
			return fmt.Errorf("failed to create invitation token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	inviteLink := buildInviteLink(subDomain, rawToken, ownerEmail)
	invitationSent := false

	if mailer != nil && (input.SendInvite == nil || *input.SendInvite) {
		err := mailer.SendInvitation(utils.InvitationEmail{
			To:               ownerEmail,
			RecipientName:    firstName,
			OrganizationName: name,
			InvitedRole:      string(models.RoleOrgOwner),
			InviteLink:       inviteLink,
			SenderName:       caller.Email,
			ExpiresAt:        invite.ExpiresAt,
		})
		if err != nil {
			logrus.Errorf("Failed to send owner invitation: %v", err)
		} else {
			invitationSent = true
		}
	}

	return &CreateOrganizationResult{
		OrganizationID: org.ID,
		Name:           name,
		SubDomain:      subDomain,
		OwnerID:        owner.ID,
		OwnerEmail:     ownerEmail,
		InviteURL:      inviteLink,
		InvitationSent: invitationSent,
	}, nil
}
