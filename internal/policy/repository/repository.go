package repository

import (
	"context"

	"credvault/backend/internal/policy/domain"
)

// Repository defines persistence for share policies.
type Repository interface {
	// GetEnabledByOwner returns the owner's enabled policy, or nil when the owner has none.
	GetEnabledByOwner(ctx context.Context, ownerID string) (*domain.SharePolicy, error)
	Upsert(ctx context.Context, p *domain.SharePolicy) error
}
