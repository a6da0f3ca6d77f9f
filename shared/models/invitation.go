package models

import (
	"time"

	"github.com/google/uuid"
)

// InvitationToken stores the hash of an outstanding invite. The raw
// token only ever travels inside the invitation email.
type InvitationToken struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	TokenHash string    `json:"-" gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName returns the table name for the InvitationToken model
func (InvitationToken) TableName() string {
	return "invitation_tokens"
}

// IsExpired reports whether the invite can no longer be redeemed.
func (it *InvitationToken) IsExpired() bool {
	return time.Now().After(it.ExpiresAt)
}
