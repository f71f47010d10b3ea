// Package session tracks live shared-access sessions and supports bulk invalidation.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"credvault/backend/internal/session/domain"
	"credvault/backend/internal/session/repository"
)

// Actor identifies who is opening a session.
type Actor struct {
	UserID string
	Email  string
}

// Registry opens and closes shared-access sessions on top of the repository.
// Close paths are conditional on the session still being open, so revokes and
// auto-revoke timers can safely repeat.
type Registry struct {
	repo repository.Repository
	nowF func() time.Time
}

// NewRegistry returns a Registry backed by repo.
func NewRegistry(repo repository.Repository) *Registry {
	return &Registry{repo: repo, nowF: func() time.Time { return time.Now().UTC() }}
}

// Open creates a session for the invitation with a fresh opaque token and returns it.
func (r *Registry) Open(ctx context.Context, invitationID string, actor Actor, deviceInfo string, autoLogout bool) (*domain.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	now := r.nowF()
	s := &domain.Session{
		ID:             uuid.New().String(),
		InvitationID:   invitationID,
		UserID:         actor.UserID,
		UserEmail:      actor.Email,
		SessionToken:   token,
		DeviceInfo:     deviceInfo,
		AutoLogout:     autoLogout,
		LoggedInAt:     now,
		LastActivityAt: now,
	}
	if err := r.repo.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Close marks one session closed with the given reason. Returns false if it was already closed.
func (r *Registry) Close(ctx context.Context, sessionID, reason string) (bool, error) {
	return r.repo.Close(ctx, sessionID, reason, r.nowF())
}

// CloseAll closes every open session for the invitation and returns how many were closed.
func (r *Registry) CloseAll(ctx context.Context, invitationID, reason string) (int64, error) {
	return r.repo.CloseAllByInvitation(ctx, invitationID, reason, r.nowF())
}

// ListOpen returns the open sessions for the invitation.
func (r *Registry) ListOpen(ctx context.Context, invitationID string) ([]*domain.Session, error) {
	return r.repo.ListOpenByInvitation(ctx, invitationID)
}

// Touch updates the session's last-activity timestamp.
func (r *Registry) Touch(ctx context.Context, sessionID string) error {
	return r.repo.UpdateLastActivity(ctx, sessionID, r.nowF())
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
