package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nandak93/go-people-ops-system/shared/models"
)

func TestHomePath(t *testing.T) {
	superAdmin := &models.User{Role: models.RoleSuperAdmin}
	assert.Equal(t, "/console", homePath(superAdmin, ""))
	// Super admins land on the console even via a tenant login page.
	assert.Equal(t, "/console", homePath(superAdmin, "acme"))

	member := &models.User{Role: models.RoleEmployee}
	assert.Equal(t, "/org/acme/dashboard", homePath(member, "acme"))
	assert.Equal(t, "/dashboard", homePath(member, ""))
}

func TestAcceptInviteRejectsWeakPassword(t *testing.T) {
	// The length check runs before any database access.
	err := AcceptInvite(nil, AcceptInviteInput{
		Token:    "tok",
		Email:    "new@acme.test",
		Password: "short",
	})
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestChangePasswordRejectsWeakPassword(t *testing.T) {
	err := ChangePassword(nil, models.Caller{}, ChangePasswordInput{
		CurrentPassword: "old-password",
		NewPassword:     "tiny",
	})
	assert.ErrorIs(t, err, ErrWeakPassword)
}
