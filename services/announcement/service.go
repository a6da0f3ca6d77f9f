package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nandak93/go-people-ops-system/shared/models"
)

var (
	// ErrForbidden means the caller lacks the HR admin role.
	ErrForbidden = errors.New("announcement access requires HR admin or higher")
	// ErrNoOrganization means the caller is not part of any organization.
	ErrNoOrganization = errors.New("join an organization to use announcements")
	// ErrMissingContent means topic or details were empty after trimming.
	ErrMissingContent = errors.New("announcement topic and details are required")
	// ErrNoRecipients means a SPECIFIC send named nobody.
	ErrNoRecipients = errors.New("select at least one teammate to notify")
	// ErrUnknownRecipient means a recipient id did not resolve to an
	// active member of the caller's organization.
	ErrUnknownRecipient = errors.New("one or more selected teammates could not be found")
)

// AnnouncementFeed is the grouped history returned to HR dashboards.
type AnnouncementFeed struct {
	Announcements []AnnouncementSummary `json:"announcements"`
	Total         int                   `json:"total"`
}

// SendAnnouncementInput is the request body for a send operation.
type SendAnnouncementInput struct {
	Topic        string                   `json:"topic" binding:"required"`
	Details      string                   `json:"details" binding:"required"`
	Mode         models.AnnouncementScope `json:"mode" binding:"required"`
	RecipientIDs []uuid.UUID              `json:"recipient_ids"`
}

// SendResult reports how many delivery rows one send produced.
type SendResult struct {
	BatchID        uuid.UUID `json:"batch_id"`
	DeliveredCount int       `json:"delivered_count"`
}

// requireHRAdmin checks the caller context shared by every
// announcement operation and returns the caller's organization id.
func requireHRAdmin(caller models.Caller) (uuid.UUID, error) {
	if !caller.Role.AtLeast(models.RoleHRAdmin) {
		return uuid.Nil, ErrForbidden
	}
	if caller.OrganizationID == nil {
		return uuid.Nil, ErrNoOrganization
	}
	return *caller.OrganizationID, nil
}

// ListAnnouncements fetches the newest delivery rows for the caller's
// organization and folds them into the grouped feed.
func ListAnnouncements(db *gorm.DB, caller models.Caller) (*AnnouncementFeed, error) {
	organizationID, err := requireHRAdmin(caller)
	if err != nil {
		return nil, err
	}

	var records []models.Notification
	err = db.
		Preload("Sender").
		Preload("TargetUser").
		Where("organization_id = ? AND type = ?", organizationID, models.NotificationAnnouncement).
		Order("created_at DESC").
		Limit(announcementFetchLimit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch announcement records: %w", err)
	}

	summaries := BuildAnnouncementFeed(records)
	return &AnnouncementFeed{Announcements: summaries, Total: len(summaries)}, nil
}

// ListRecipients returns the teammates an announcement can target:
// every non-terminated member of the caller's organization.
func ListRecipients(db *gorm.DB, caller models.Caller) ([]AnnouncementRecipient, error) {
	organizationID, err := requireHRAdmin(caller)
	if err != nil {
		return nil, err
	}

	var users []models.User
	err = db.
		Where("organization_id = ? AND status <> ?", organizationID, models.EmploymentTerminated).
		Order("preferred_name ASC NULLS LAST, first_name ASC NULLS LAST, email ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recipients: %w", err)
	}

	recipients := make([]AnnouncementRecipient, 0, len(users))
	for i := range users {
		user := &users[i]
		recipients = append(recipients, AnnouncementRecipient{
			ID:          user.ID,
			Name:        user.DisplayName(),
			Email:       user.Email,
			Designation: user.Designation,
			AvatarURL:   user.AvatarURL,
		})
	}
	return recipients, nil
}

// dedupeIDs drops duplicate recipient ids, preserving order.
func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// announcementStore is the persistence surface of a send, kept narrow
// so the all-or-nothing batch behavior is testable without Postgres.
type announcementStore interface {
	// ResolveRecipientIDs returns the ids among the requested set that
	// belong to active members of the organization.
	ResolveRecipientIDs(organizationID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error)
	// CreateBatch persists every record of one batch atomically.
	CreateBatch(records []models.Notification) error
}

// gormAnnouncementStore runs sends against Postgres.
type gormAnnouncementStore struct {
	db *gorm.DB
}

func (s gormAnnouncementStore) ResolveRecipientIDs(organizationID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	var resolved []models.User
	err := s.db.
		Select("id").
		Where("id IN ? AND organization_id = ? AND status <> ?",
			ids, organizationID, models.EmploymentTerminated).
		Find(&resolved).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipients: %w", err)
	}

	resolvedIDs := make([]uuid.UUID, 0, len(resolved))
	for i := range resolved {
		resolvedIDs = append(resolvedIDs, resolved[i].ID)
	}
	return resolvedIDs, nil
}

func (s gormAnnouncementStore) CreateBatch(records []models.Notification) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&records).Error
	})
}

// SendAnnouncement creates the delivery rows for one broadcast. An
// organization-wide send produces a single row; a SPECIFIC send
// produces one row per resolved recipient inside one transaction, so
// a batch is always all-or-nothing.
func SendAnnouncement(db *gorm.DB, producer *EventProducer, caller models.Caller, input SendAnnouncementInput) (*SendResult, error) {
	return sendAnnouncement(gormAnnouncementStore{db: db}, producer, caller, input)
}

func sendAnnouncement(store announcementStore, producer *EventProducer, caller models.Caller, input SendAnnouncementInput) (*SendResult, error) {
	organizationID, err := requireHRAdmin(caller)
	if err != nil {
		return nil, err
	}

	topic := strings.TrimSpace(input.Topic)
	details := strings.TrimSpace(input.Details)
	if topic == "" || details == "" {
		return nil, ErrMissingContent
	}

	now := time.Now()
	batchID := uuid.New()
	senderID := caller.UserID

	if input.Mode == models.ScopeOrganization {
		scope := models.ScopeOrganization
		record := models.Notification{
			ID:             uuid.New(),
			OrganizationID: organizationID,
			SenderID:       &senderID,
			Title:          topic,
			Body:           details,
			Type:           models.NotificationAnnouncement,
			Audience:       models.AudienceOrganization,
			Status:         models.NotificationSent,
			BatchID:        &batchID,
			ScopeOverride:  &scope,
			SentAt:         &now,
		}
		if err := store.CreateBatch([]models.Notification{record}); err != nil {
			return nil, fmt.Errorf("failed to create announcement: %w", err)
		}
		producer.EmitAnnouncement(&record)
		return &SendResult{BatchID: batchID, DeliveredCount: 1}, nil
	}

	if input.Mode != models.ScopeSpecific {
		return nil, fmt.Errorf("unsupported announcement mode %q", input.Mode)
	}

	recipientIDs := dedupeIDs(input.RecipientIDs)
	if len(recipientIDs) == 0 {
		return nil, ErrNoRecipients
	}

	resolved, err := store.ResolveRecipientIDs(organizationID, recipientIDs)
	if err != nil {
		return nil, err
	}
	// Any unresolvable id aborts the whole send before any insert.
	if len(resolved) != len(recipientIDs) {
		return nil, ErrUnknownRecipient
	}

	scope := models.ScopeSpecific
	records := make([]models.Notification, 0, len(resolved))
	for _, targetID := range resolved {
		targetID := targetID
		records = append(records, models.Notification{
			ID:             uuid.New(),
			OrganizationID: organizationID,
			SenderID:       &senderID,
			TargetUserID:   &targetID,
			Title:          topic,
			Body:           details,
			Type:           models.NotificationAnnouncement,
			Audience:       models.AudienceIndividual,
			Status:         models.NotificationSent,
			BatchID:        &batchID,
			ScopeOverride:  &scope,
			SentAt:         &now,
		})
	}

	if err := store.CreateBatch(records); err != nil {
		return nil, fmt.Errorf("failed to create announcement batch: %w", err)
	}

	for i := range records {
		producer.EmitAnnouncement(&records[i])
	}

	return &SendResult{BatchID: batchID, DeliveredCount: len(records)}, nil
}
