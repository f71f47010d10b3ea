package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Status is the lifecycle state of an invitation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusActive   Status = "active"
	StatusRevoked  Status = "revoked"
	StatusExpired  Status = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusRevoked || s == StatusExpired
}

// transitions holds the allowed status transitions. Terminal states have no outgoing edges.
var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusRevoked, StatusExpired},
	StatusAccepted: {StatusActive, StatusRevoked, StatusExpired},
	StatusActive:   {StatusActive, StatusRevoked, StatusExpired},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Invitation is the durable record of an owner-to-recipient credential-sharing grant.
// The credential pair is stored encrypted and is decrypted only transiently during auto-login.
type Invitation struct {
	ID                   string
	EntryID              string
	ServiceName          string
	ServiceURL           string
	OwnerID              string
	OwnerEmail           string
	RecipientEmail       string
	Status               Status
	CanAutoLogin         bool
	AutoRevokeAfterUse   bool
	EncryptedCredential  string
	EncryptedKey         string
	ExpiresAt            *time.Time // nil means no expiry
	LastUsedAt           *time.Time
	RevokedAt            *time.Time
	RevokedBy            string
	RevocationReason     string
	CreatedAt            time.Time
}

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether email is a plausible address.
func ValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// Validate checks required fields before the invitation is persisted.
func (i *Invitation) Validate() error {
	if i.ID == "" {
		return errors.New("invitation id is required")
	}
	if strings.TrimSpace(i.ServiceName) == "" {
		return errors.New("service name is required")
	}
	if i.OwnerID == "" {
		return errors.New("owner id is required")
	}
	if !ValidEmail(i.RecipientEmail) {
		return errors.New("invalid recipient email")
	}
	if i.EncryptedCredential == "" {
		return errors.New("encrypted credential is required")
	}
	return nil
}

// IsExpired reports whether the invitation's expiry has passed at the given time.
// Invitations without an expiry never expire.
func (i *Invitation) IsExpired(now time.Time) bool {
	return i.ExpiresAt != nil && i.ExpiresAt.Before(now)
}
