package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"credvault/backend/internal/session/domain"
)

type memSessionRepo struct {
	mu sync.Mutex
	m  map[string]*domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{m: make(map[string]*domain.Session)}
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[id], nil
}

func (r *memSessionRepo) ListOpenByInvitation(ctx context.Context, invitationID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.m {
		if s.InvitationID == invitationID && s.LoggedOutAt == nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.m[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) Close(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok || s.LoggedOutAt != nil {
		return false, nil
	}
	s.LoggedOutAt = &at
	s.LogoutReason = reason
	return true, nil
}

func (r *memSessionRepo) CloseAllByInvitation(ctx context.Context, invitationID, reason string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.m {
		if s.InvitationID == invitationID && s.LoggedOutAt == nil {
			s.LoggedOutAt = &at
			s.LogoutReason = reason
			n++
		}
	}
	return n, nil
}

func (r *memSessionRepo) UpdateLastActivity(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		s.LastActivityAt = at
	}
	return nil
}

func TestOpenGeneratesTokenAndID(t *testing.T) {
	reg := NewRegistry(newMemSessionRepo())
	s, err := reg.Open(context.Background(), "inv-1", Actor{UserID: "u1", Email: "b@example.com"}, "Firefox on Linux", false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.ID == "" || s.SessionToken == "" {
		t.Fatal("Open should assign id and token")
	}
	if !s.Open() {
		t.Error("new session should be open")
	}

	s2, err := reg.Open(context.Background(), "inv-1", Actor{UserID: "u1", Email: "b@example.com"}, "", false)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s2.SessionToken == s.SessionToken {
		t.Error("session tokens must be unique per login")
	}
}

func TestCloseAllIdempotent(t *testing.T) {
	repo := newMemSessionRepo()
	reg := NewRegistry(repo)
	ctx := context.Background()
	actor := Actor{UserID: "u1", Email: "b@example.com"}

	for i := 0; i < 3; i++ {
		if _, err := reg.Open(ctx, "inv-1", actor, "", false); err != nil {
			t.Fatalf("Open: %v", err)
		}
	}
	if _, err := reg.Open(ctx, "inv-2", actor, "", false); err != nil {
		t.Fatalf("Open: %v", err)
	}

	n, err := reg.CloseAll(ctx, "inv-1", "revoked")
	if err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if n != 3 {
		t.Errorf("CloseAll closed %d sessions, want 3", n)
	}

	n, err = reg.CloseAll(ctx, "inv-1", "revoked")
	if err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if n != 0 {
		t.Errorf("second CloseAll closed %d sessions, want 0", n)
	}

	open, err := reg.ListOpen(ctx, "inv-2")
	if err != nil {
		t.Fatalf("ListOpen: %v", err)
	}
	if len(open) != 1 {
		t.Errorf("inv-2 should be untouched, got %d open sessions", len(open))
	}
}

func TestCloseOnce(t *testing.T) {
	reg := NewRegistry(newMemSessionRepo())
	ctx := context.Background()
	s, err := reg.Open(ctx, "inv-1", Actor{UserID: "u1", Email: "b@example.com"}, "", true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	closed, err := reg.Close(ctx, s.ID, "recipient logout")
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !closed {
		t.Error("first Close should close the session")
	}
	closed, err = reg.Close(ctx, s.ID, "revoked")
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed {
		t.Error("second Close should be a no-op")
	}
}
