package repository

import (
	"context"
	"database/sql"
	"errors"

	"credvault/backend/internal/policy/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a share-policy repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetEnabledByOwner returns the owner's enabled policy, or nil when the owner has none.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetEnabledByOwner(ctx context.Context, ownerID string) (*domain.SharePolicy, error) {
	var p domain.SharePolicy
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, rules, enabled, created_at FROM share_policies
		 WHERE owner_id = $1 AND enabled = TRUE`, ownerID).
		Scan(&p.ID, &p.OwnerID, &p.Rules, &p.Enabled, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Upsert creates or replaces the owner's policy.
func (r *PostgresRepository) Upsert(ctx context.Context, p *domain.SharePolicy) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO share_policies (id, owner_id, rules, enabled, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (owner_id) DO UPDATE SET rules = EXCLUDED.rules, enabled = EXCLUDED.enabled`,
		p.ID, p.OwnerID, p.Rules, p.Enabled, p.CreatedAt)
	return err
}
