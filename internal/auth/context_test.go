package auth

import (
	"context"
	"testing"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{UserID: "u1", Email: "a@example.com", UserAgent: "cli"})
	a, ok := ActorFromContext(ctx)
	if !ok {
		t.Fatal("ActorFromContext should find the actor")
	}
	if a.UserID != "u1" || a.Email != "a@example.com" || a.UserAgent != "cli" {
		t.Errorf("unexpected actor: %+v", a)
	}
}

func TestActorMissing(t *testing.T) {
	if _, ok := ActorFromContext(context.Background()); ok {
		t.Error("empty context should have no actor")
	}
	ctx := WithActor(context.Background(), Actor{})
	if _, ok := ActorFromContext(ctx); ok {
		t.Error("actor without user id should not authenticate")
	}
}
