package repository

import (
	"context"
	"time"

	"credvault/backend/internal/session/domain"
)

// Repository defines persistence for shared-access sessions.
//
// Close and CloseAll are conditional on the session still being open
// (logged_out_at IS NULL), so concurrent revokes and auto-revoke timers can
// run more than once without double-applying.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	ListOpenByInvitation(ctx context.Context, invitationID string) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// Close marks one session closed. Returns false if it was already closed.
	Close(ctx context.Context, id, reason string, at time.Time) (bool, error)
	// CloseAllByInvitation closes every open session for the invitation and returns how many were closed.
	CloseAllByInvitation(ctx context.Context, invitationID, reason string, at time.Time) (int64, error)
	UpdateLastActivity(ctx context.Context, id string, at time.Time) error
}
