package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"credvault/backend/internal/policy/repository"
)

const policyPackage = "credvault.share"

// Default Rego policy: every share is allowed, no TTL clamp, no forced
// auto-revoke. Owners override it with their own module in the same package.
const defaultRegoPolicy = `package credvault.share

default allow = true
default deny_reason = ""
default max_ttl_hours = 0
default require_auto_revoke = false
`

// OPAEvaluator evaluates sharing policies using OPA Rego.
type OPAEvaluator struct {
	policyRepo repository.Repository
}

// NewOPAEvaluator returns an OPA-based share-policy evaluator.
// policyRepo may be nil; then only the default policy applies.
func NewOPAEvaluator(policyRepo repository.Repository) *OPAEvaluator {
	return &OPAEvaluator{policyRepo: policyRepo}
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and
// evaluate the default policy. Does not touch the policy repo or database.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	compiler, err := ast.CompileModules(map[string]string{"policy_0.rego": defaultRegoPolicy})
	if err != nil {
		return fmt.Errorf("compile default policy: %w", err)
	}
	q := rego.New(
		rego.Query("data."+policyPackage+".allow"),
		rego.Compiler(compiler),
		rego.Input(buildInput(ShareInput{})),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// EvaluateShare evaluates the owner's sharing policy for a proposed share.
// A broken custom policy fails open to the default (allow) and is logged, so
// a bad Rego module cannot lock an owner out of their own vault.
func (e *OPAEvaluator) EvaluateShare(ctx context.Context, in ShareInput) (ShareResult, error) {
	policies := []string{defaultRegoPolicy}
	if e.policyRepo != nil && in.OwnerID != "" {
		p, err := e.policyRepo.GetEnabledByOwner(ctx, in.OwnerID)
		if err != nil {
			log.Printf("policy: failed to load policy for owner %s: %v", in.OwnerID, err)
		} else if p != nil && p.Rules != "" {
			policies = []string{p.Rules}
		}
	}

	result, err := e.evaluatePolicies(ctx, policies, buildInput(in))
	if err != nil {
		log.Printf("policy: evaluation failed: %v, allowing by default", err)
		return ShareResult{Allowed: true}, nil
	}
	return result, nil
}

func buildInput(in ShareInput) map[string]interface{} {
	domain := ""
	if i := strings.LastIndex(in.RecipientEmail, "@"); i >= 0 {
		domain = strings.ToLower(in.RecipientEmail[i+1:])
	}
	return map[string]interface{}{
		"recipient": map[string]interface{}{
			"email":  strings.ToLower(in.RecipientEmail),
			"domain": domain,
		},
		"share": map[string]interface{}{
			"ttl_hours":             in.TTLHours,
			"auto_revoke_after_use": in.AutoRevokeAfterUse,
			"can_auto_login":        in.CanAutoLogin,
		},
	}
}

func (e *OPAEvaluator) evaluatePolicies(ctx context.Context, policies []string, input map[string]interface{}) (ShareResult, error) {
	modules := make(map[string]string)
	for i, policy := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = policy
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return ShareResult{}, fmt.Errorf("compile policies: %w", err)
	}

	out := ShareResult{Allowed: true}

	if v, ok := evalBool(ctx, compiler, input, "allow"); ok {
		out.Allowed = v
	}
	if v, ok := evalString(ctx, compiler, input, "deny_reason"); ok {
		out.Reason = v
	}
	if v, ok := evalNumber(ctx, compiler, input, "max_ttl_hours"); ok && v > 0 {
		out.MaxTTLHours = v
	}
	if v, ok := evalBool(ctx, compiler, input, "require_auto_revoke"); ok {
		out.RequireAutoRevoke = v
	}
	return out, nil
}

func evalQuery(ctx context.Context, compiler *ast.Compiler, input map[string]interface{}, name string) (interface{}, bool) {
	q := rego.New(
		rego.Query("data."+policyPackage+"."+name),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil || len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, false
	}
	return rs[0].Expressions[0].Value, true
}

func evalBool(ctx context.Context, compiler *ast.Compiler, input map[string]interface{}, name string) (bool, bool) {
	v, ok := evalQuery(ctx, compiler, input, name)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func evalString(ctx context.Context, compiler *ast.Compiler, input map[string]interface{}, name string) (string, bool) {
	v, ok := evalQuery(ctx, compiler, input, name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func evalNumber(ctx context.Context, compiler *ast.Compiler, input map[string]interface{}, name string) (float64, bool) {
	v, ok := evalQuery(ctx, compiler, input, name)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}
