package main

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandak93/go-people-ops-system/shared/models"
)

func hrCaller() models.Caller {
	orgID := uuid.New()
	return models.Caller{
		UserID:         uuid.New(),
		Email:          "hr@acme.test",
		OrganizationID: &orgID,
		Role:           models.RoleHRAdmin,
	}
}

func TestRequireHRAdmin(t *testing.T) {
	caller := hrCaller()
	orgID, err := requireHRAdmin(caller)
	require.NoError(t, err)
	assert.Equal(t, *caller.OrganizationID, orgID)

	// Roles above HR admin pass as well.
	caller.Role = models.RoleOrgOwner
	_, err = requireHRAdmin(caller)
	assert.NoError(t, err)
}

func TestRequireHRAdminRejectsLowerRoles(t *testing.T) {
	for _, role := range []models.UserRole{models.RoleEmployee, models.RoleManager, models.UserRole("UNKNOWN")} {
		caller := hrCaller()
		caller.Role = role
		_, err := requireHRAdmin(caller)
		assert.ErrorIs(t, err, ErrForbidden, "role %s must be rejected", role)
	}
}

func TestRequireHRAdminRejectsMissingOrganization(t *testing.T) {
	caller := hrCaller()
	caller.OrganizationID = nil
	_, err := requireHRAdmin(caller)
	assert.ErrorIs(t, err, ErrNoOrganization)
}

func TestDedupeIDsPreservesOrder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	unique := dedupeIDs([]uuid.UUID{a, b, a, c, b})
	assert.Equal(t, []uuid.UUID{a, b, c}, unique)
}

// fakeAnnouncementStore resolves recipients against an in-memory
// member set and records every batch it is asked to persist.
type fakeAnnouncementStore struct {
	members map[uuid.UUID]bool
	batches [][]models.Notification
}

func (s *fakeAnnouncementStore) ResolveRecipientIDs(_ uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	resolved := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if s.members[id] {
			resolved = append(resolved, id)
		}
	}
	return resolved, nil
}

func (s *fakeAnnouncementStore) CreateBatch(records []models.Notification) error {
	s.batches = append(s.batches, records)
	return nil
}

func TestSendAnnouncementAbortsWhenAnyRecipientIsUnknown(t *testing.T) {
	caller := hrCaller()
	valid := uuid.New()
	store := &fakeAnnouncementStore{members: map[uuid.UUID]bool{valid: true}}

	_, err := sendAnnouncement(store, nil, caller, SendAnnouncementInput{
		Topic:        "Topic",
		Details:      "Body",
		Mode:         models.ScopeSpecific,
		RecipientIDs: []uuid.UUID{valid, uuid.New()},
	})
	assert.ErrorIs(t, err, ErrUnknownRecipient)
	assert.Empty(t, store.batches, "an aborted send must create no delivery rows")
}

func TestSendAnnouncementSpecificBatchIsAtomic(t *testing.T) {
	caller := hrCaller()
	u1, u2 := uuid.New(), uuid.New()
	store := &fakeAnnouncementStore{members: map[uuid.UUID]bool{u1: true, u2: true}}

	result, err := sendAnnouncement(store, nil, caller, SendAnnouncementInput{
		Topic:   "Quarterly update",
		Details: "Results are in.",
		Mode:    models.ScopeSpecific,
		// Duplicate ids collapse before resolution.
		RecipientIDs: []uuid.UUID{u1, u2, u1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DeliveredCount)

	require.Len(t, store.batches, 1, "a batch must be persisted in one call")
	batch := store.batches[0]
	require.Len(t, batch, 2)
	for _, record := range batch {
		require.NotNil(t, record.BatchID)
		assert.Equal(t, result.BatchID, *record.BatchID)
		require.NotNil(t, record.ScopeOverride)
		assert.Equal(t, models.ScopeSpecific, *record.ScopeOverride)
		assert.Equal(t, models.AudienceIndividual, record.Audience)
		assert.Equal(t, *caller.OrganizationID, record.OrganizationID)
	}
	assert.Equal(t, u1, *batch[0].TargetUserID)
	assert.Equal(t, u2, *batch[1].TargetUserID)
}

func TestSendAnnouncementOrganizationWideCreatesSingleRow(t *testing.T) {
	caller := hrCaller()
	store := &fakeAnnouncementStore{}

	result, err := sendAnnouncement(store, nil, caller, SendAnnouncementInput{
		Topic:   "All hands",
		Details: "Friday at noon.",
		Mode:    models.ScopeOrganization,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeliveredCount)

	require.Len(t, store.batches, 1)
	require.Len(t, store.batches[0], 1)
	record := store.batches[0][0]
	assert.Nil(t, record.TargetUserID)
	assert.Equal(t, models.AudienceOrganization, record.Audience)
	require.NotNil(t, record.ScopeOverride)
	assert.Equal(t, models.ScopeOrganization, *record.ScopeOverride)
}

func TestSendAnnouncementValidation(t *testing.T) {
	caller := hrCaller()

	// Validation runs before any database access, so a nil handle is
	// fine for these paths.
	_, err := SendAnnouncement(nil, nil, caller, SendAnnouncementInput{
		Topic:   "  ",
		Details: "body",
		Mode:    models.ScopeOrganization,
	})
	assert.ErrorIs(t, err, ErrMissingContent)

	_, err = SendAnnouncement(nil, nil, caller, SendAnnouncementInput{
		Topic:   "Topic",
		Details: "Body",
		Mode:    models.ScopeSpecific,
	})
	assert.ErrorIs(t, err, ErrNoRecipients)

	employee := caller
	employee.Role = models.RoleEmployee
	_, err = SendAnnouncement(nil, nil, employee, SendAnnouncementInput{
		Topic:   "Topic",
		Details: "Body",
		Mode:    models.ScopeOrganization,
	})
	assert.ErrorIs(t, err, ErrForbidden)
}
