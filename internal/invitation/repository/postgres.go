package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"credvault/backend/internal/invitation/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an invitation repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const invitationColumns = `id, entry_id, service_name, service_url, owner_id, owner_email,
	recipient_email, status, can_auto_login, auto_revoke_after_use, encrypted_credential,
	encrypted_key, expires_at, last_used_at, revoked_at, revoked_by, revocation_reason, created_at`

// GetByID returns the invitation for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = $1`, id)
	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

// ListByOwner returns all invitations created by the given owner, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Invitation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvitations(rows)
}

// ListByRecipient returns all invitations addressed to the given email, newest first.
func (r *PostgresRepository) ListByRecipient(ctx context.Context, email string) ([]*domain.Invitation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE recipient_email = $1 ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvitations(rows)
}

// ListOverdue returns non-terminal invitations whose expiry passed before now, up to limit.
func (r *PostgresRepository) ListOverdue(ctx context.Context, now time.Time, limit int32) ([]*domain.Invitation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		 WHERE status IN ('pending', 'accepted', 'active') AND expires_at IS NOT NULL AND expires_at < $1
		 ORDER BY expires_at LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvitations(rows)
}

// Create persists the invitation to the database. The invitation must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invitations (`+invitationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		inv.ID, inv.EntryID, inv.ServiceName, toNullString(inv.ServiceURL), inv.OwnerID, inv.OwnerEmail,
		inv.RecipientEmail, string(inv.Status), inv.CanAutoLogin, inv.AutoRevokeAfterUse,
		inv.EncryptedCredential, inv.EncryptedKey, toNullTime(inv.ExpiresAt), toNullTime(inv.LastUsedAt),
		toNullTime(inv.RevokedAt), toNullString(inv.RevokedBy), toNullString(inv.RevocationReason), inv.CreatedAt)
	return err
}

// MarkAccepted moves pending → accepted. Returns false if the invitation was not pending.
func (r *PostgresRepository) MarkAccepted(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET status = 'accepted' WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	return oneRowMoved(res)
}

// MarkDeclined moves pending → revoked with reason "declined".
// Returns false if the invitation was not pending.
func (r *PostgresRepository) MarkDeclined(ctx context.Context, id, declinedBy string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET status = 'revoked', revoked_at = $2, revoked_by = $3, revocation_reason = 'declined'
		 WHERE id = $1 AND status = 'pending'`, id, at, declinedBy)
	if err != nil {
		return false, err
	}
	return oneRowMoved(res)
}

// MarkActive moves accepted/active → active and records last use.
// Returns false if the invitation was in any other status.
func (r *PostgresRepository) MarkActive(ctx context.Context, id string, lastUsedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET status = 'active', last_used_at = $2
		 WHERE id = $1 AND status IN ('accepted', 'active')`, id, lastUsedAt)
	if err != nil {
		return false, err
	}
	return oneRowMoved(res)
}

// MarkRevoked moves any non-terminal status → revoked. Returns false if already terminal.
func (r *PostgresRepository) MarkRevoked(ctx context.Context, id, revokedBy, reason string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET status = 'revoked', revoked_at = $2, revoked_by = $3, revocation_reason = $4
		 WHERE id = $1 AND status NOT IN ('revoked', 'expired')`,
		id, at, revokedBy, toNullString(reason))
	if err != nil {
		return false, err
	}
	return oneRowMoved(res)
}

// MarkExpired moves any non-terminal status → expired. Returns false if already terminal.
func (r *PostgresRepository) MarkExpired(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET status = 'expired', revoked_at = $2
		 WHERE id = $1 AND status IN ('pending', 'accepted', 'active')`, id, at)
	if err != nil {
		return false, err
	}
	return oneRowMoved(res)
}

func oneRowMoved(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (*domain.Invitation, error) {
	var (
		inv        domain.Invitation
		status     string
		serviceURL sql.NullString
		revokedBy  sql.NullString
		reason     sql.NullString
		expiresAt  sql.NullTime
		lastUsedAt sql.NullTime
		revokedAt  sql.NullTime
	)
	err := row.Scan(&inv.ID, &inv.EntryID, &inv.ServiceName, &serviceURL, &inv.OwnerID, &inv.OwnerEmail,
		&inv.RecipientEmail, &status, &inv.CanAutoLogin, &inv.AutoRevokeAfterUse, &inv.EncryptedCredential,
		&inv.EncryptedKey, &expiresAt, &lastUsedAt, &revokedAt, &revokedBy, &reason, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	inv.Status = domain.Status(status)
	inv.ServiceURL = serviceURL.String
	inv.RevokedBy = revokedBy.String
	inv.RevocationReason = reason.String
	inv.ExpiresAt = nullTimeToPtr(expiresAt)
	inv.LastUsedAt = nullTimeToPtr(lastUsedAt)
	inv.RevokedAt = nullTimeToPtr(revokedAt)
	return &inv, nil
}

func collectInvitations(rows *sql.Rows) ([]*domain.Invitation, error) {
	var out []*domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
