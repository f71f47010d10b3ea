package engine

import "context"

// ShareInput describes a proposed share for policy evaluation.
type ShareInput struct {
	OwnerID            string
	RecipientEmail     string
	TTLHours           float64 // 0 means no expiry requested
	AutoRevokeAfterUse bool
	CanAutoLogin       bool
}

// ShareResult holds the outcome of share-policy evaluation.
type ShareResult struct {
	Allowed bool
	// Reason is a short human-readable denial reason when Allowed is false.
	Reason string
	// MaxTTLHours clamps the share expiry; 0 means no clamp.
	MaxTTLHours float64
	// RequireAutoRevoke forces auto-revoke-after-use on the share.
	RequireAutoRevoke bool
}

// Evaluator evaluates sharing policies using OPA or other engines.
type Evaluator interface {
	// EvaluateShare evaluates the owner's policy for a proposed share.
	EvaluateShare(ctx context.Context, in ShareInput) (ShareResult, error)
}
