package domain

import "time"

// EventType classifies an invitation lifecycle event.
type EventType string

const (
	EventInvited  EventType = "invited"
	EventAccepted EventType = "accepted"
	EventDeclined EventType = "declined"
	EventLogin    EventType = "login"
	EventRevoked  EventType = "revoked"
	EventExpired  EventType = "expired"
)

// Entry is an immutable record of one lifecycle event on an invitation.
type Entry struct {
	ID           string            `json:"id"`
	InvitationID string            `json:"invitationId"`
	SessionID    string            `json:"sessionId,omitempty"`
	EventType    EventType         `json:"eventType"`
	ActorID      string            `json:"actorId"`
	ActorEmail   string            `json:"actorEmail"`
	EventData    map[string]string `json:"eventData,omitempty"`
	UserAgent    string            `json:"userAgent,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}
