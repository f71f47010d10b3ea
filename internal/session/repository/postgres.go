package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"credvault/backend/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, invitation_id, user_id, user_email, session_token, device_info,
	auto_logout, logged_in_at, last_activity_at, logged_out_at, logout_reason`

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM shared_sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListOpenByInvitation returns the open sessions for the invitation, oldest first.
func (r *PostgresRepository) ListOpenByInvitation(ctx context.Context, invitationID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM shared_sessions
		 WHERE invitation_id = $1 AND logged_out_at IS NULL ORDER BY logged_in_at`, invitationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create persists the session to the database. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shared_sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.InvitationID, s.UserID, s.UserEmail, s.SessionToken,
		sql.NullString{String: s.DeviceInfo, Valid: s.DeviceInfo != ""},
		s.AutoLogout, s.LoggedInAt, s.LastActivityAt, timeToNullTime(s.LoggedOutAt),
		sql.NullString{String: s.LogoutReason, Valid: s.LogoutReason != ""})
	return err
}

// Close marks one session closed. Returns false if it was already closed.
func (r *PostgresRepository) Close(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shared_sessions SET logged_out_at = $2, logout_reason = $3
		 WHERE id = $1 AND logged_out_at IS NULL`, id, at, reason)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CloseAllByInvitation closes every open session for the invitation and returns how many were closed.
func (r *PostgresRepository) CloseAllByInvitation(ctx context.Context, invitationID, reason string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shared_sessions SET logged_out_at = $2, logout_reason = $3
		 WHERE invitation_id = $1 AND logged_out_at IS NULL`, invitationID, at, reason)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateLastActivity sets the session's last-activity timestamp for the given id.
func (r *PostgresRepository) UpdateLastActivity(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE shared_sessions SET last_activity_at = $2 WHERE id = $1`, id, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s            domain.Session
		deviceInfo   sql.NullString
		loggedOutAt  sql.NullTime
		logoutReason sql.NullString
	)
	err := row.Scan(&s.ID, &s.InvitationID, &s.UserID, &s.UserEmail, &s.SessionToken, &deviceInfo,
		&s.AutoLogout, &s.LoggedInAt, &s.LastActivityAt, &loggedOutAt, &logoutReason)
	if err != nil {
		return nil, err
	}
	s.DeviceInfo = deviceInfo.String
	s.LogoutReason = logoutReason.String
	if loggedOutAt.Valid {
		s.LoggedOutAt = &loggedOutAt.Time
	}
	return &s, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
