// Package auth carries the caller identity through context. The hosting
// platform authenticates requests; the sharing subsystem only reads the
// resulting actor.
package auth

import "context"

// Actor is the authenticated caller of a sharing operation.
type Actor struct {
	UserID    string
	Email     string
	UserAgent string
}

type contextKey struct{ name string }

var actorKey = contextKey{"actor"}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the actor and true if set; otherwise a zero Actor and false.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	if !ok || a.UserID == "" {
		return Actor{}, false
	}
	return a, true
}
