package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nandak93/go-people-ops-system/shared/models"
)

// DeleteOrganizationInput confirms a cascade delete. The caller's
// password is re-verified before anything is removed.
type DeleteOrganizationInput struct {
	Password string `json:"password" binding:"required"`
}

// deletionStore is the persistence surface of a cascade delete, kept
// narrow so the flow is testable without Postgres.
type deletionStore interface {
	PasswordHash(userID uuid.UUID) (string, error)
	OrganizationByID(id uuid.UUID) (*models.Organization, error)
	CascadeDelete(organizationID uuid.UUID) error
}

// gormDeletionStore runs the cascade against Postgres.
type gormDeletionStore struct {
	db *gorm.DB
}

func (s gormDeletionStore) PasswordHash(userID uuid.UUID) (string, error) {
	var user models.User
	if err := s.db.Select("password_hash").Where("id = ?", userID).First(&user).Error; err != nil {
		return "", fmt.Errorf("failed to load caller account: %w", err)
	}
	return user.PasswordHash, nil
}

func (s gormDeletionStore) OrganizationByID(id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := s.db.Select("id, sub_domain").Where("id = ?", id).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	return &org, nil
}

// CascadeDelete removes the organization and every dependent row in
// one transaction, children first. Soft-delete markers are bypassed: a
// deleted tenant leaves nothing behind.
func (s gormDeletionStore) CascadeDelete(organizationID uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization_id = ?", organizationID).
			Delete(&models.Notification{}).Error; err != nil {
			return fmt.Errorf("failed to delete notifications: %w", err)
		}

		// Invitation tokens hang off users, not the organization.
		userIDs := tx.Model(&models.User{}).
			Select("id").
			Where("organization_id = ?", organizationID)
		if err := tx.Where("user_id IN (?)", userIDs).
			Delete(&models.InvitationToken{}).Error; err != nil {
			return fmt.Errorf("failed to delete invitation tokens: %w", err)
		}

		if err := tx.Where("organization_id = ?", organizationID).
			Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("failed to delete users: %w", err)
		}

		if err := tx.Unscoped().Where("id = ?", organizationID).
			Delete(&models.Organization{}).Error; err != nil {
			return fmt.Errorf("failed to delete organization: %w", err)
		}

		return nil
	})
}

// DeleteOrganization removes an organization after re-verifying the
// caller's password, then drops the tenant's cached branding so the
// public brand lookup stops serving the deleted slug.
func DeleteOrganization(db *gorm.DB, caller models.Caller, organizationID uuid.UUID, input DeleteOrganizationInput) error {
	return deleteOrganization(gormDeletionStore{db: db}, redisBrandCache{}, caller, organizationID, input)
}

func deleteOrganization(store deletionStore, cache BrandCache, caller models.Caller, organizationID uuid.UUID, input DeleteOrganizationInput) error {
	if err := requireSuperAdmin(caller); err != nil {
		return err
	}

	hash, err := store.PasswordHash(caller.UserID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(input.Password)) != nil {
		return ErrPasswordIncorrect
	}

	org, err := store.OrganizationByID(organizationID)
	if err != nil {
		return err
	}
	if org == nil {
		return ErrOrganizationNotFound
	}

	if err := store.CascadeDelete(organizationID); err != nil {
		return err
	}

	if cache != nil {
		_ = cache.Invalidate(org.SubDomain)
	}
	return nil
}
