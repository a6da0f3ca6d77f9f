package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType distinguishes announcement deliveries from other
// notification rows sharing the table.
type NotificationType string

const (
	NotificationAnnouncement NotificationType = "ANNOUNCEMENT"
	NotificationSystem       NotificationType = "SYSTEM"
)

// NotificationAudience classifies who a delivery row was addressed to
// at send time.
type NotificationAudience string

const (
	AudienceOrganization NotificationAudience = "ORGANIZATION"
	AudienceRole         NotificationAudience = "ROLE"
	AudienceIndividual   NotificationAudience = "INDIVIDUAL"
)

// NotificationStatus is the delivery lifecycle of one row.
type NotificationStatus string

const (
	NotificationDraft     NotificationStatus = "DRAFT"
	NotificationScheduled NotificationStatus = "SCHEDULED"
	NotificationSent      NotificationStatus = "SENT"
	NotificationFailed    NotificationStatus = "FAILED"
)

// AnnouncementScope is the breadth of an announcement's intended
// audience as recorded by the send operation.
type AnnouncementScope string

const (
	ScopeOrganization AnnouncementScope = "ORGANIZATION"
	ScopeRole         AnnouncementScope = "ROLE"
	ScopeSpecific     AnnouncementScope = "SPECIFIC"
)

// ParseAnnouncementScope validates a stored scope value. Anything
// outside the known set fails closed to "no override" so the reader
// falls back to the audience classifier.
func ParseAnnouncementScope(value string) (AnnouncementScope, bool) {
	switch AnnouncementScope(value) {
	case ScopeOrganization, ScopeRole, ScopeSpecific:
		return AnnouncementScope(value), true
	}
	return "", false
}

// ScopeFromAudience derives the recipient scope when a row carries no
// explicit override. Individual deliveries read as SPECIFIC.
func ScopeFromAudience(audience NotificationAudience) AnnouncementScope {
	switch audience {
	case AudienceOrganization:
		return ScopeOrganization
	case AudienceRole:
		return ScopeRole
	default:
		return ScopeSpecific
	}
}

// Notification is one persisted delivery record: a single
// (announcement content, recipient) pairing. Batch membership and the
// scope override are dedicated nullable columns validated at write
// time; legacy rows predating batching leave both NULL.
type Notification struct {
	ID             uuid.UUID            `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrganizationID uuid.UUID            `json:"organization_id" gorm:"type:uuid;index;not null"`
	SenderID       *uuid.UUID           `json:"sender_id,omitempty" gorm:"type:uuid"`
	TargetUserID   *uuid.UUID           `json:"target_user_id,omitempty" gorm:"type:uuid;index"`
	Title          string               `json:"title" gorm:"not null"`
	Body           string               `json:"body" gorm:"not null"`
	Type           NotificationType     `json:"type" gorm:"type:varchar(32);index;not null"`
	Audience       NotificationAudience `json:"audience" gorm:"type:varchar(32);not null"`
	Status         NotificationStatus   `json:"status" gorm:"type:varchar(32);default:SENT"`

	BatchID       *uuid.UUID         `json:"batch_id,omitempty" gorm:"type:uuid;index"`
	ScopeOverride *AnnouncementScope `json:"scope_override,omitempty" gorm:"type:varchar(32)"`

	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`

	Sender     *User `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
	TargetUser *User `json:"target_user,omitempty" gorm:"foreignKey:TargetUserID"`
}

// TableName returns the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}

// DeliveredAt resolves the effective delivery timestamp of one row:
// sent time, else scheduled time, else creation time.
func (n *Notification) DeliveredAt() time.Time {
	if n.SentAt != nil {
		return *n.SentAt
	}
	if n.ScheduledAt != nil {
		return *n.ScheduledAt
	}
	return n.CreatedAt
}

// GroupKey is the announcement grouping key: the batch id when the
// row belongs to a batch, else the row's own id. Unbatched rows stay
// singletons so two separate legacy sends are never merged.
func (n *Notification) GroupKey() uuid.UUID {
	if n.BatchID != nil {
		return *n.BatchID
	}
	return n.ID
}

// ResolvedScope applies the explicit override when present and valid,
// falling back to the audience classifier otherwise.
func (n *Notification) ResolvedScope() AnnouncementScope {
	if n.ScopeOverride != nil {
		if scope, ok := ParseAnnouncementScope(string(*n.ScopeOverride)); ok {
			return scope
		}
	}
	return ScopeFromAudience(n.Audience)
}
