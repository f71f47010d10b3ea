package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"credvault/backend/internal/audit/domain"
)

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.Entry
	failOn  error
}

func (r *memAuditRepo) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (r *memAuditRepo) ListByInvitation(ctx context.Context, invitationID string, limit, offset int32) ([]*domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Entry
	for _, e := range r.entries {
		if e.InvitationID == invitationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memAuditRepo) Create(ctx context.Context, e *domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn != nil {
		return r.failOn
	}
	r.entries = append(r.entries, e)
	return nil
}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	repo := &memAuditRepo{}
	l := NewLogger(repo, nil)
	l.Record(context.Background(), &domain.Entry{
		InvitationID: "inv-1",
		EventType:    domain.EventInvited,
		ActorID:      "u1",
		ActorEmail:   "a@example.com",
	})
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.ID == "" {
		t.Error("Record should assign an id")
	}
	if e.CreatedAt.IsZero() {
		t.Error("Record should assign a timestamp")
	}
}

func TestRecordSwallowsRepositoryFailure(t *testing.T) {
	repo := &memAuditRepo{failOn: errors.New("db down")}
	l := NewLogger(repo, nil)
	// Must not panic or propagate; Record has no error return by contract.
	l.Record(context.Background(), &domain.Entry{
		InvitationID: "inv-1",
		EventType:    domain.EventRevoked,
		ActorID:      "u1",
		ActorEmail:   "a@example.com",
	})
}

func TestRecordTimestampsNonDecreasing(t *testing.T) {
	repo := &memAuditRepo{}
	l := NewLogger(repo, nil)
	ctx := context.Background()
	for _, et := range []domain.EventType{domain.EventInvited, domain.EventAccepted, domain.EventLogin, domain.EventRevoked} {
		l.Record(ctx, &domain.Entry{InvitationID: "inv-1", EventType: et, ActorID: "u1", ActorEmail: "a@example.com"})
	}
	var prev time.Time
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, e := range repo.entries {
		if e.CreatedAt.Before(prev) {
			t.Fatalf("timestamps decreased: %v before %v", e.CreatedAt, prev)
		}
		prev = e.CreatedAt
	}
}
