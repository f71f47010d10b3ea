package repository

import (
	"context"
	"time"

	"credvault/backend/internal/invitation/domain"
)

// Repository defines persistence for invitations.
//
// Status transitions are single conditional updates scoped to the expected
// source statuses; the bool result reports whether the row was moved, so a
// caller can detect losing a race to a concurrent transition.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Invitation, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Invitation, error)
	ListByRecipient(ctx context.Context, email string) ([]*domain.Invitation, error)
	// ListOverdue returns non-terminal invitations whose expiry passed before now, up to limit.
	ListOverdue(ctx context.Context, now time.Time, limit int32) ([]*domain.Invitation, error)
	Create(ctx context.Context, inv *domain.Invitation) error
	// MarkAccepted moves pending → accepted.
	MarkAccepted(ctx context.Context, id string) (bool, error)
	// MarkDeclined moves pending → revoked with reason "declined".
	MarkDeclined(ctx context.Context, id, declinedBy string, at time.Time) (bool, error)
	// MarkActive moves accepted/active → active and records last use.
	MarkActive(ctx context.Context, id string, lastUsedAt time.Time) (bool, error)
	// MarkRevoked moves any non-terminal status → revoked.
	MarkRevoked(ctx context.Context, id, revokedBy, reason string, at time.Time) (bool, error)
	// MarkExpired moves any non-terminal status → expired.
	MarkExpired(ctx context.Context, id string, at time.Time) (bool, error)
}
