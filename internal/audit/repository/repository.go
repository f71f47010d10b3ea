package repository

import (
	"context"

	"credvault/backend/internal/audit/domain"
)

// Repository defines persistence for audit entries. Entries are append-only;
// there is no update or delete.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	ListByInvitation(ctx context.Context, invitationID string, limit, offset int32) ([]*domain.Entry, error)
	Create(ctx context.Context, e *domain.Entry) error
}
