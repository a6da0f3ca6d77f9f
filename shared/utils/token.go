package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// InviteTokenTTLHours is how long an invitation link stays redeemable.
const InviteTokenTTLHours = 72

// NewInviteToken generates a random token for an invitation link.
// Only its hash is persisted.
func NewInviteToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// HashToken returns the hex SHA256 digest stored for a raw token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// InviteExpiry returns the expiry timestamp for a fresh invitation.
func InviteExpiry() time.Time {
	return time.Now().Add(InviteTokenTTLHours * time.Hour)
}
