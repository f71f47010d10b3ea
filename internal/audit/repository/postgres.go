package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"credvault/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the audit entry for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, invitation_id, session_id, event_type, actor_id, actor_email, event_data, user_agent, created_at
		 FROM audit_entries WHERE id = $1`, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// ListByInvitation returns audit entries for the invitation in append order.
func (r *PostgresRepository) ListByInvitation(ctx context.Context, invitationID string, limit, offset int32) ([]*domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, invitation_id, session_id, event_type, actor_id, actor_email, event_data, user_agent, created_at
		 FROM audit_entries WHERE invitation_id = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		invitationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Create appends the entry. The entry must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Entry) error {
	data := e.EventData
	if data == nil {
		data = map[string]string{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO audit_entries (id, invitation_id, session_id, event_type, actor_id, actor_email, event_data, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.InvitationID, sql.NullString{String: e.SessionID, Valid: e.SessionID != ""},
		string(e.EventType), e.ActorID, e.ActorEmail, raw,
		sql.NullString{String: e.UserAgent, Valid: e.UserAgent != ""}, e.CreatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var (
		e         domain.Entry
		sessionID sql.NullString
		eventType string
		raw       []byte
		userAgent sql.NullString
	)
	err := row.Scan(&e.ID, &e.InvitationID, &sessionID, &eventType, &e.ActorID, &e.ActorEmail, &raw, &userAgent, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.SessionID = sessionID.String
	e.EventType = domain.EventType(eventType)
	e.UserAgent = userAgent.String
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &e.EventData); err != nil {
			return nil, err
		}
	}
	return &e, nil
}
