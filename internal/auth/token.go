package auth

import (
	"context"
	"strings"

	"credvault/backend/internal/security"
)

// ContextFromBearer validates a Bearer access token and returns a context
// carrying the authenticated actor. The userAgent is recorded on the actor for
// audit entries. Returns the original context and false when the token is invalid.
func ContextFromBearer(ctx context.Context, v *security.TokenValidator, authorization, userAgent string) (context.Context, bool) {
	if v == nil {
		return ctx, false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer"))
	if token == "" {
		return ctx, false
	}
	userID, email, err := v.ValidateAccess(token)
	if err != nil {
		return ctx, false
	}
	return WithActor(ctx, Actor{UserID: userID, Email: email, UserAgent: userAgent}), true
}
