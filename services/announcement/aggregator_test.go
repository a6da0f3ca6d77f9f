package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandak93/go-people-ops-system/shared/models"
)

func strPtr(s string) *string { return &s }

func testUser(email string) *models.User {
	return &models.User{
		ID:    uuid.New(),
		Email: email,
	}
}

func deliveryRecord(batchID *uuid.UUID, audience models.NotificationAudience, target *models.User, createdAt time.Time) models.Notification {
	record := models.Notification{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Title:          "Quarterly update",
		Body:           "Results are in.",
		Type:           models.NotificationAnnouncement,
		Audience:       audience,
		Status:         models.NotificationSent,
		BatchID:        batchID,
		CreatedAt:      createdAt,
	}
	if target != nil {
		record.TargetUserID = &target.ID
		record.TargetUser = target
	}
	return record
}

func TestFeedGroupsBatchWithDeduplicatedRecipients(t *testing.T) {
	batchID := uuid.New()
	now := time.Now()
	u1 := testUser("u1@acme.test")
	u2 := testUser("u2@acme.test")

	records := []models.Notification{
		deliveryRecord(&batchID, models.AudienceIndividual, u1, now),
		deliveryRecord(&batchID, models.AudienceIndividual, u1, now.Add(-time.Minute)),
		deliveryRecord(&batchID, models.AudienceIndividual, u2, now.Add(-2*time.Minute)),
	}

	feed := BuildAnnouncementFeed(records)
	require.Len(t, feed, 1)

	summary := feed[0]
	assert.Equal(t, batchID, summary.ID)
	assert.Equal(t, models.ScopeSpecific, summary.Recipients.Scope)
	require.NotNil(t, summary.Recipients.Count)
	assert.Equal(t, 3, *summary.Recipients.Count)

	require.Len(t, summary.Recipients.People, 2)
	got := map[uuid.UUID]bool{}
	for _, person := range summary.Recipients.People {
		got[person.ID] = true
	}
	assert.True(t, got[u1.ID])
	assert.True(t, got[u2.ID])
}

func TestFeedUngroupedRecordIsSingleton(t *testing.T) {
	now := time.Now()
	legacy := deliveryRecord(nil, models.AudienceOrganization, nil, now)

	feed := BuildAnnouncementFeed([]models.Notification{legacy})
	require.Len(t, feed, 1)
	assert.Equal(t, legacy.ID, feed[0].ID, "legacy rows are keyed by their own id")
	assert.Equal(t, models.ScopeOrganization, feed[0].Recipients.Scope)
}

func TestFeedTwoUngroupedRecordsNeverMerge(t *testing.T) {
	now := time.Now()
	a := deliveryRecord(nil, models.AudienceOrganization, nil, now)
	b := deliveryRecord(nil, models.AudienceOrganization, nil, now)
	a.Title = "Same title"
	b.Title = "Same title"

	feed := BuildAnnouncementFeed([]models.Notification{a, b})
	assert.Len(t, feed, 2)
}

func TestFeedScopeOverrideTakesPrecedence(t *testing.T) {
	now := time.Now()
	scope := models.ScopeSpecific
	target := testUser("target@acme.test")
	record := deliveryRecord(nil, models.AudienceOrganization, target, now)
	record.ScopeOverride = &scope

	feed := BuildAnnouncementFeed([]models.Notification{record})
	require.Len(t, feed, 1)
	assert.Equal(t, models.ScopeSpecific, feed[0].Recipients.Scope)
	require.Len(t, feed[0].Recipients.People, 1)
	assert.Equal(t, target.ID, feed[0].Recipients.People[0].ID)
}

func TestFeedInvalidScopeOverrideFallsBackToAudience(t *testing.T) {
	now := time.Now()
	bogus := models.AnnouncementScope("EVERYONE")
	record := deliveryRecord(nil, models.AudienceRole, nil, now)
	record.ScopeOverride = &bogus

	feed := BuildAnnouncementFeed([]models.Notification{record})
	require.Len(t, feed, 1)
	assert.Equal(t, models.ScopeRole, feed[0].Recipients.Scope)
}

func TestFeedBoundedOutput(t *testing.T) {
	now := time.Now()
	records := make([]models.Notification, 0, 500)
	for i := 0; i < 500; i++ {
		batchID := uuid.New()
		records = append(records, deliveryRecord(&batchID, models.AudienceOrganization, nil, now.Add(-time.Duration(i)*time.Second)))
	}

	feed := BuildAnnouncementFeed(records)
	assert.LessOrEqual(t, len(feed), announcementHistoryLimit)
	assert.Len(t, feed, announcementHistoryLimit)
}

func TestFeedSortedByDeliveredAtDescending(t *testing.T) {
	now := time.Now()
	records := make([]models.Notification, 0, 5)
	for i := 0; i < 5; i++ {
		batchID := uuid.New()
		record := deliveryRecord(&batchID, models.AudienceOrganization, nil, now.Add(-time.Duration(i)*time.Hour))
		sent := record.CreatedAt
		record.SentAt = &sent
		records = append(records, record)
	}

	feed := BuildAnnouncementFeed(records)
	require.Len(t, feed, 5)
	for i := 1; i < len(feed); i++ {
		assert.False(t, feed[i].DeliveredAt.After(feed[i-1].DeliveredAt),
			"feed must be ordered newest first")
	}
}

func TestFeedDeliveredAtIsBatchMax(t *testing.T) {
	batchID := uuid.New()
	base := time.Now().Add(-time.Hour)
	latest := base.Add(30 * time.Minute)

	first := deliveryRecord(&batchID, models.AudienceIndividual, testUser("a@acme.test"), base)
	second := deliveryRecord(&batchID, models.AudienceIndividual, testUser("b@acme.test"), base)
	second.SentAt = &latest

	feed := BuildAnnouncementFeed([]models.Notification{first, second})
	require.Len(t, feed, 1)
	assert.True(t, feed[0].DeliveredAt.Equal(latest))
}

func TestFeedBroadScopesHideRecipients(t *testing.T) {
	batchID := uuid.New()
	record := deliveryRecord(&batchID, models.AudienceOrganization, testUser("hidden@acme.test"), time.Now())

	feed := BuildAnnouncementFeed([]models.Notification{record})
	require.Len(t, feed, 1)
	assert.Equal(t, "Entire organization", feed[0].Recipients.Label)
	assert.Nil(t, feed[0].Recipients.Count)
	assert.Empty(t, feed[0].Recipients.People)
}

func TestFeedRecipientLabelPluralization(t *testing.T) {
	label, show := recipientLabel(models.ScopeSpecific, 1)
	assert.Equal(t, "Selected teammate", label)
	assert.True(t, show)

	label, show = recipientLabel(models.ScopeSpecific, 3)
	assert.Equal(t, "Selected teammates", label)
	assert.True(t, show)

	label, show = recipientLabel(models.ScopeRole, 7)
	assert.Equal(t, "Targeted roles", label)
	assert.False(t, show)
}

func TestFeedDeterministicAndNonMutating(t *testing.T) {
	now := time.Now()
	batchID := uuid.New()
	records := []models.Notification{
		deliveryRecord(&batchID, models.AudienceIndividual, testUser("x@acme.test"), now),
		deliveryRecord(nil, models.AudienceOrganization, nil, now.Add(-time.Minute)),
	}

	first := BuildAnnouncementFeed(records)
	second := BuildAnnouncementFeed(records)
	assert.Equal(t, first, second, "re-folding the same records must be idempotent")
}

func TestFeedSenderFallsBackToEmail(t *testing.T) {
	sender := testUser("hr@acme.test")
	batchID := uuid.New()
	record := deliveryRecord(&batchID, models.AudienceOrganization, nil, time.Now())
	record.SenderID = &sender.ID
	record.Sender = sender

	feed := BuildAnnouncementFeed([]models.Notification{record})
	require.Len(t, feed, 1)
	require.NotNil(t, feed[0].Sender.Name)
	assert.Equal(t, "hr@acme.test", *feed[0].Sender.Name)

	sender.PreferredName = strPtr("Sam")
	feed = BuildAnnouncementFeed([]models.Notification{record})
	assert.Equal(t, "Sam", *feed[0].Sender.Name)
}

func ExampleBuildAnnouncementFeed() {
	batchID := uuid.New()
	target := testUser("casey@acme.test")
	target.PreferredName = strPtr("Casey")

	records := []models.Notification{
		deliveryRecord(&batchID, models.AudienceIndividual, target, time.Now()),
	}

	feed := BuildAnnouncementFeed(records)
	fmt.Println(feed[0].Recipients.Label, *feed[0].Recipients.Count)
	// Output: Selected teammate 1
}
