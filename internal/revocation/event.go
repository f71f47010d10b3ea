// Package revocation fans out revocation notices to connected listeners.
// The bus is an optimization for responsiveness, not the authority for
// correctness: delivery is at-least-once to listeners connected at publish
// time and there is no replay, so credential-returning operations must always
// re-check durable invitation status.
package revocation

import "time"

// EventTypeRevoked is the only event type carried on the bus.
const EventTypeRevoked = "revoked"

// Event is the revocation notice published for an invitation.
type Event struct {
	Type           string    `json:"type"`
	SharedAccessID string    `json:"sharedAccessId"`
	Timestamp      time.Time `json:"timestamp"`
	Reason         string    `json:"reason,omitempty"`
}

// NewEvent returns a revoked event for the invitation.
func NewEvent(invitationID, reason string) Event {
	return Event{
		Type:           EventTypeRevoked,
		SharedAccessID: invitationID,
		Timestamp:      time.Now().UTC(),
		Reason:         reason,
	}
}

// Topic returns the per-invitation topic name.
func Topic(invitationID string) string {
	return "shared_access:" + invitationID
}
