package engine

import (
	"context"
	"sync"
	"testing"

	"credvault/backend/internal/policy/domain"
)

type memPolicyRepo struct {
	mu sync.Mutex
	m  map[string]*domain.SharePolicy
}

func (r *memPolicyRepo) GetEnabledByOwner(ctx context.Context, ownerID string) (*domain.SharePolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.m[ownerID]
	if !ok || !p.Enabled {
		return nil, nil
	}
	return p, nil
}

func (r *memPolicyRepo) Upsert(ctx context.Context, p *domain.SharePolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m == nil {
		r.m = make(map[string]*domain.SharePolicy)
	}
	r.m[p.OwnerID] = p
	return nil
}

func TestHealthCheck(t *testing.T) {
	e := NewOPAEvaluator(nil)
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestDefaultPolicyAllows(t *testing.T) {
	e := NewOPAEvaluator(nil)
	res, err := e.EvaluateShare(context.Background(), ShareInput{
		OwnerID:        "u1",
		RecipientEmail: "b@example.com",
		TTLHours:       24,
	})
	if err != nil {
		t.Fatalf("EvaluateShare: %v", err)
	}
	if !res.Allowed {
		t.Error("default policy should allow")
	}
	if res.MaxTTLHours != 0 || res.RequireAutoRevoke {
		t.Errorf("default policy should not constrain: %+v", res)
	}
}

func TestOwnerPolicyDeniesDomain(t *testing.T) {
	repo := &memPolicyRepo{}
	_ = repo.Upsert(context.Background(), &domain.SharePolicy{
		ID:      "p1",
		OwnerID: "u1",
		Enabled: true,
		Rules: `package credvault.share

default allow = false
default deny_reason = "recipient domain is not allowed"
default max_ttl_hours = 0
default require_auto_revoke = false

allow if {
	input.recipient.domain == "example.com"
}
deny_reason = "" if { allow }
`,
	})
	e := NewOPAEvaluator(repo)

	res, err := e.EvaluateShare(context.Background(), ShareInput{OwnerID: "u1", RecipientEmail: "b@example.com"})
	if err != nil {
		t.Fatalf("EvaluateShare: %v", err)
	}
	if !res.Allowed {
		t.Errorf("example.com recipient should be allowed: %+v", res)
	}

	res, err = e.EvaluateShare(context.Background(), ShareInput{OwnerID: "u1", RecipientEmail: "mallory@evil.test"})
	if err != nil {
		t.Fatalf("EvaluateShare: %v", err)
	}
	if res.Allowed {
		t.Error("evil.test recipient should be denied")
	}
	if res.Reason == "" {
		t.Error("denial should carry a reason")
	}
}

func TestOwnerPolicyClampsTTLAndForcesAutoRevoke(t *testing.T) {
	repo := &memPolicyRepo{}
	_ = repo.Upsert(context.Background(), &domain.SharePolicy{
		ID:      "p1",
		OwnerID: "u1",
		Enabled: true,
		Rules: `package credvault.share

default allow = true
default deny_reason = ""
default max_ttl_hours = 48
default require_auto_revoke = true
`,
	})
	e := NewOPAEvaluator(repo)
	res, err := e.EvaluateShare(context.Background(), ShareInput{OwnerID: "u1", RecipientEmail: "b@example.com", TTLHours: 720})
	if err != nil {
		t.Fatalf("EvaluateShare: %v", err)
	}
	if res.MaxTTLHours != 48 {
		t.Errorf("MaxTTLHours = %v, want 48", res.MaxTTLHours)
	}
	if !res.RequireAutoRevoke {
		t.Error("RequireAutoRevoke should be true")
	}
}

func TestBrokenPolicyFailsOpen(t *testing.T) {
	repo := &memPolicyRepo{}
	_ = repo.Upsert(context.Background(), &domain.SharePolicy{
		ID:      "p1",
		OwnerID: "u1",
		Enabled: true,
		Rules:   "package credvault.share\n\nthis is not rego",
	})
	e := NewOPAEvaluator(repo)
	res, err := e.EvaluateShare(context.Background(), ShareInput{OwnerID: "u1", RecipientEmail: "b@example.com"})
	if err != nil {
		t.Fatalf("EvaluateShare: %v", err)
	}
	if !res.Allowed {
		t.Error("broken custom policy should fail open")
	}
}
