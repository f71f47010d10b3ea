// Package service orchestrates the credential-sharing lifecycle: issuing
// invitations, accepting and declining them, auto-login, revocation fan-out
// and the read-side projections.
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"credvault/backend/internal/audit"
	auditdomain "credvault/backend/internal/audit/domain"
	"credvault/backend/internal/auth"
	invdomain "credvault/backend/internal/invitation/domain"
	"credvault/backend/internal/notify"
	"credvault/backend/internal/policy/engine"
	"credvault/backend/internal/revocation"
	"credvault/backend/internal/security"
	"credvault/backend/internal/session"
	sessdomain "credvault/backend/internal/session/domain"
)

func newID() string { return uuid.New().String() }

const (
	mailTimeout     = 10 * time.Second
	listenerTimeout = 5 * time.Second
)

// InvitationStore is the invitation persistence the service depends on.
type InvitationStore interface {
	GetByID(ctx context.Context, id string) (*invdomain.Invitation, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*invdomain.Invitation, error)
	ListByRecipient(ctx context.Context, email string) ([]*invdomain.Invitation, error)
	ListOverdue(ctx context.Context, now time.Time, limit int32) ([]*invdomain.Invitation, error)
	Create(ctx context.Context, inv *invdomain.Invitation) error
	MarkAccepted(ctx context.Context, id string) (bool, error)
	MarkDeclined(ctx context.Context, id, declinedBy string, at time.Time) (bool, error)
	MarkActive(ctx context.Context, id string, lastUsedAt time.Time) (bool, error)
	MarkRevoked(ctx context.Context, id, revokedBy, reason string, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, id string, at time.Time) (bool, error)
}

// SessionRegistry tracks live shared-access sessions.
type SessionRegistry interface {
	Open(ctx context.Context, invitationID string, actor session.Actor, deviceInfo string, autoLogout bool) (*sessdomain.Session, error)
	Close(ctx context.Context, sessionID, reason string) (bool, error)
	CloseAll(ctx context.Context, invitationID, reason string) (int64, error)
	ListOpen(ctx context.Context, invitationID string) ([]*sessdomain.Session, error)
}

// Deps collects the collaborators of the sharing service. Policies and Mailer
// may be nil; the corresponding step is skipped.
type Deps struct {
	Invitations InvitationStore
	Sessions    SessionRegistry
	Audit       audit.Recorder
	Bus         revocation.Bus
	Cipher      security.CredentialCipher
	Policies    engine.Evaluator
	Mailer      notify.Mailer
	Notifier    notify.Notifier
	// AppURL is the base URL used in invitation emails.
	AppURL string
	// AutoRevokeDelay is how long after a first use an auto-revoke share stays alive.
	AutoRevokeDelay time.Duration
}

// SharingService implements passwordless credential sharing with instant
// revocation. Mutating operations return structured results for business
// outcomes and a non-nil error only for authentication and store failures,
// so callers can distinguish "the user did something invalid" from "the
// system is broken".
type SharingService struct {
	invitations InvitationStore
	sessions    SessionRegistry
	audit       audit.Recorder
	bus         revocation.Bus
	cipher      security.CredentialCipher
	policies    engine.Evaluator
	mailer      notify.Mailer
	notifier    notify.Notifier

	appURL          string
	autoRevokeDelay time.Duration
	nowF            func() time.Time

	tracer      trace.Tracer
	shares      metric.Int64Counter
	logins      metric.Int64Counter
	revocations metric.Int64Counter
}

// NewSharingService wires a SharingService from its collaborators.
func NewSharingService(d Deps) *SharingService {
	notifier := d.Notifier
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	meter := otel.Meter("credvault/backend/internal/sharing")
	shares, _ := meter.Int64Counter("credvault.shares", metric.WithDescription("Invitations issued"))
	logins, _ := meter.Int64Counter("credvault.auto_logins", metric.WithDescription("Successful auto-logins"))
	revocations, _ := meter.Int64Counter("credvault.revocations", metric.WithDescription("Invitations revoked or expired"))
	return &SharingService{
		invitations:     d.Invitations,
		sessions:        d.Sessions,
		audit:           d.Audit,
		bus:             d.Bus,
		cipher:          d.Cipher,
		policies:        d.Policies,
		mailer:          d.Mailer,
		notifier:        notifier,
		appURL:          d.AppURL,
		autoRevokeDelay: d.AutoRevokeDelay,
		nowF:            func() time.Time { return time.Now().UTC() },
		tracer:          otel.Tracer("credvault/backend/internal/sharing"),
		shares:          shares,
		logins:          logins,
		revocations:     revocations,
	}
}

// ShareAccessInput describes a new share. The plaintext credential pair never
// leaves this call: it is envelope-encrypted before anything is persisted.
type ShareAccessInput struct {
	EntryID            string
	ServiceName        string
	ServiceURL         string
	RecipientEmail     string
	Username           string
	Password           string
	CanAutoLogin       bool
	AutoRevokeAfterUse bool
	ExpiresAt          *time.Time
}

// ShareAccess creates a pending invitation for the recipient and emails them
// an accept link. The owner is taken from the context.
func (s *SharingService) ShareAccess(ctx context.Context, in ShareAccessInput) (*ShareResult, error) {
	ctx, span := s.tracer.Start(ctx, "SharingService.ShareAccess")
	defer span.End()

	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	now := s.nowF()

	inv := &invdomain.Invitation{
		ID:                 newID(),
		EntryID:            in.EntryID,
		ServiceName:        in.ServiceName,
		ServiceURL:         in.ServiceURL,
		OwnerID:            actor.UserID,
		OwnerEmail:         strings.ToLower(actor.Email),
		RecipientEmail:     strings.ToLower(in.RecipientEmail),
		Status:             invdomain.StatusPending,
		CanAutoLogin:       in.CanAutoLogin,
		AutoRevokeAfterUse: in.AutoRevokeAfterUse,
		ExpiresAt:          in.ExpiresAt,
		CreatedAt:          now,
	}
	blob, wrappedKey, err := security.SealEnvelope(s.cipher, security.CredentialPair{
		Username: in.Username,
		Password: in.Password,
	})
	if err != nil {
		// The credential never reaches storage when sealing fails.
		log.Printf("sharing: seal credential for entry %s failed: %v", in.EntryID, err)
		return &ShareResult{Result: failResult(CodeEncryptionFailure, "could not encrypt the credential")}, nil
	}
	inv.EncryptedCredential = blob
	inv.EncryptedKey = wrappedKey

	if err := inv.Validate(); err != nil {
		return &ShareResult{Result: failResult(CodeInvalidState, err.Error())}, nil
	}
	if inv.ExpiresAt != nil && !inv.ExpiresAt.After(now) {
		return &ShareResult{Result: failResult(CodeInvalidState, "expiry must be in the future")}, nil
	}

	if s.policies != nil {
		ttlHours := 0.0
		if inv.ExpiresAt != nil {
			ttlHours = inv.ExpiresAt.Sub(now).Hours()
		}
		verdict, err := s.policies.EvaluateShare(ctx, engine.ShareInput{
			OwnerID:            inv.OwnerID,
			RecipientEmail:     inv.RecipientEmail,
			TTLHours:           ttlHours,
			AutoRevokeAfterUse: inv.AutoRevokeAfterUse,
			CanAutoLogin:       inv.CanAutoLogin,
		})
		if err != nil {
			return nil, fmt.Errorf("evaluate share policy: %w", err)
		}
		if !verdict.Allowed {
			reason := verdict.Reason
			if reason == "" {
				reason = "sharing denied by policy"
			}
			return &ShareResult{Result: failResult(CodeInvalidState, reason)}, nil
		}
		if verdict.MaxTTLHours > 0 {
			clamp := now.Add(time.Duration(verdict.MaxTTLHours * float64(time.Hour)))
			if inv.ExpiresAt == nil || inv.ExpiresAt.After(clamp) {
				inv.ExpiresAt = &clamp
			}
		}
		if verdict.RequireAutoRevoke {
			inv.AutoRevokeAfterUse = true
		}
	}

	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	s.shares.Add(ctx, 1)
	s.record(ctx, auditdomain.EventInvited, inv, actor, "", map[string]string{
		"serviceName": inv.ServiceName,
		"recipient":   inv.RecipientEmail,
	})
	s.sendInvitationMail(inv)

	return &ShareResult{
		Result:       okResult("Invitation sent to " + inv.RecipientEmail),
		InvitationID: inv.ID,
	}, nil
}

// AcceptInvitation moves a pending invitation to accepted. Only the invited
// recipient may accept; anyone else sees the invitation as missing.
func (s *SharingService) AcceptInvitation(ctx context.Context, invitationID string) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "SharingService.AcceptInvitation")
	defer span.End()

	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	if inv == nil || !strings.EqualFold(inv.RecipientEmail, actor.Email) {
		r := failResult(CodeNotFound, "invitation not found")
		return &r, nil
	}
	if inv.IsExpired(s.nowF()) {
		s.expire(ctx, inv)
		r := failResult(CodeExpired, "invitation has expired")
		return &r, nil
	}
	moved, err := s.invitations.MarkAccepted(ctx, invitationID)
	if err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}
	if !moved {
		r := failResult(CodeInvalidState, "invitation is no longer pending")
		return &r, nil
	}
	s.record(ctx, auditdomain.EventAccepted, inv, actor, "", nil)
	r := okResult("Invitation accepted")
	return &r, nil
}

// DeclineInvitation lets the recipient refuse a pending invitation. The
// invitation lands in revoked with reason "declined" and cannot be reopened.
func (s *SharingService) DeclineInvitation(ctx context.Context, invitationID string) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "SharingService.DeclineInvitation")
	defer span.End()

	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	if inv == nil || !strings.EqualFold(inv.RecipientEmail, actor.Email) {
		r := failResult(CodeNotFound, "invitation not found")
		return &r, nil
	}
	moved, err := s.invitations.MarkDeclined(ctx, invitationID, actor.UserID, s.nowF())
	if err != nil {
		return nil, fmt.Errorf("decline invitation: %w", err)
	}
	if !moved {
		r := failResult(CodeInvalidState, "invitation is no longer pending")
		return &r, nil
	}
	s.record(ctx, auditdomain.EventDeclined, inv, actor, "", nil)
	r := okResult("Invitation declined")
	return &r, nil
}

// AutoLogin exercises an accepted invitation: it re-checks durable status,
// decrypts the credential pair and opens a tracked session. The durable
// status check is authoritative; a revocation that landed before this call
// wins regardless of what any listener has seen.
func (s *SharingService) AutoLogin(ctx context.Context, invitationID, deviceInfo string) (*AutoLoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "SharingService.AutoLogin",
		trace.WithAttributes(attribute.String("invitation.id", invitationID)))
	defer span.End()

	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	if inv == nil || !strings.EqualFold(inv.RecipientEmail, actor.Email) {
		return &AutoLoginResult{Result: failResult(CodeNotFound, "invitation not found")}, nil
	}
	if !inv.CanAutoLogin {
		return &AutoLoginResult{Result: failResult(CodeInvalidState, "auto-login is disabled for this share")}, nil
	}
	if r, done := loginBlockedBy(inv.Status); done {
		return &AutoLoginResult{Result: r}, nil
	}
	if inv.IsExpired(s.nowF()) {
		s.expire(ctx, inv)
		return &AutoLoginResult{Result: failResult(CodeExpired, "invitation has expired")}, nil
	}

	moved, err := s.invitations.MarkActive(ctx, invitationID, s.nowF())
	if err != nil {
		return nil, fmt.Errorf("activate invitation: %w", err)
	}
	if !moved {
		// Lost a race to a concurrent revoke or expiry; re-read for the verdict.
		fresh, err := s.invitations.GetByID(ctx, invitationID)
		if err != nil {
			return nil, fmt.Errorf("load invitation: %w", err)
		}
		if fresh != nil {
			if r, done := loginBlockedBy(fresh.Status); done {
				return &AutoLoginResult{Result: r}, nil
			}
		}
		return &AutoLoginResult{Result: failResult(CodeInvalidState, "invitation is not available for login")}, nil
	}

	pair, err := security.OpenEnvelope(s.cipher, inv.EncryptedCredential, inv.EncryptedKey)
	if err != nil {
		log.Printf("sharing: open credential for invitation %s failed: %v", inv.ID, err)
		return &AutoLoginResult{Result: failResult(CodeEncryptionFailure, "could not decrypt the credential")}, nil
	}

	sess, err := s.sessions.Open(ctx, inv.ID, session.Actor{UserID: actor.UserID, Email: actor.Email}, deviceInfo, inv.AutoRevokeAfterUse)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	// A revoke landing between activation and the session insert closed zero
	// sessions and already published its event, so nothing else would ever
	// close this one. Re-check durable status and undo the open if it lost.
	fresh, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	if fresh == nil || fresh.Status.Terminal() {
		if _, cerr := s.sessions.Close(ctx, sess.ID, closeReasonFor(fresh)); cerr != nil {
			log.Printf("sharing: close raced session %s failed: %v", sess.ID, cerr)
		}
		if fresh != nil {
			if r, done := loginBlockedBy(fresh.Status); done {
				return &AutoLoginResult{Result: r}, nil
			}
		}
		return &AutoLoginResult{Result: failResult(CodeInvalidState, "invitation is not available for login")}, nil
	}

	s.logins.Add(ctx, 1)
	s.record(ctx, auditdomain.EventLogin, inv, actor, sess.ID, map[string]string{"device": deviceInfo})

	if inv.AutoRevokeAfterUse {
		s.scheduleAutoRevoke(inv)
	}

	return &AutoLoginResult{
		Result:     okResult("Logged in to " + inv.ServiceName),
		SessionID:  sess.ID,
		Username:   pair.Username,
		Password:   pair.Password,
		ServiceURL: inv.ServiceURL,
	}, nil
}

// RevokeAccess revokes the invitation, closes every open session for it and
// publishes a revocation event. Only the owner may revoke. The operation is
// idempotent: revoking an already revoked invitation succeeds and closes
// nothing.
func (s *SharingService) RevokeAccess(ctx context.Context, invitationID, reason string) (*RevokeResult, error) {
	ctx, span := s.tracer.Start(ctx, "SharingService.RevokeAccess",
		trace.WithAttributes(attribute.String("invitation.id", invitationID)))
	defer span.End()

	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	if inv == nil || inv.OwnerID != actor.UserID {
		return &RevokeResult{Result: failResult(CodeNotFound, "invitation not found")}, nil
	}
	if reason == "" {
		reason = "revoked by owner"
	}
	moved, closed, err := s.revoke(ctx, inv, actor, reason)
	if err != nil {
		return nil, err
	}
	msg := "Access revoked"
	if !moved {
		msg = "Access was already revoked"
	}
	return &RevokeResult{Result: okResult(msg), SessionsClosed: closed}, nil
}

// revoke performs the durable transition, closes sessions and fans the event
// out. It is shared by owner revokes, auto-revoke timers and expiry handling.
func (s *SharingService) revoke(ctx context.Context, inv *invdomain.Invitation, actor auth.Actor, reason string) (bool, int64, error) {
	moved, err := s.invitations.MarkRevoked(ctx, inv.ID, actor.UserID, reason, s.nowF())
	if err != nil {
		return false, 0, fmt.Errorf("revoke invitation: %w", err)
	}
	closed, err := s.sessions.CloseAll(ctx, inv.ID, reason)
	if err != nil {
		return moved, 0, fmt.Errorf("close sessions: %w", err)
	}
	if moved || closed > 0 {
		if err := s.bus.Publish(ctx, revocation.NewEvent(inv.ID, reason)); err != nil {
			log.Printf("sharing: publish revocation for %s failed: %v", inv.ID, err)
		}
	}
	if moved {
		s.revocations.Add(ctx, 1)
		s.record(ctx, auditdomain.EventRevoked, inv, actor, "", map[string]string{
			"reason":         reason,
			"sessionsClosed": fmt.Sprintf("%d", closed),
		})
	}
	return moved, closed, nil
}

// scheduleAutoRevoke arms a one-shot revoke on behalf of the owner after the
// configured delay. The durable conditional update makes a redundant firing
// harmless.
func (s *SharingService) scheduleAutoRevoke(inv *invdomain.Invitation) {
	delay := s.autoRevokeDelay
	if delay <= 0 {
		delay = 30 * time.Second
	}
	time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), listenerTimeout)
		defer cancel()
		owner := auth.Actor{UserID: inv.OwnerID, Email: inv.OwnerEmail}
		if _, _, err := s.revoke(ctx, inv, owner, "auto-revoked after use"); err != nil {
			log.Printf("sharing: auto-revoke for %s failed: %v", inv.ID, err)
		}
	})
}

// SubscribeToRevocation registers a listener that logs the session out and
// raises a local notification when the invitation is revoked. The returned
// function removes the listener and must be called when the session ends.
func (s *SharingService) SubscribeToRevocation(invitationID, sessionID string) func() {
	return s.bus.Subscribe(invitationID, func(ev revocation.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), listenerTimeout)
		defer cancel()
		// The revoker usually closed the session durably already; closing
		// again is a no-op. The local user is told either way.
		if _, err := s.sessions.Close(ctx, sessionID, ev.Reason); err != nil {
			log.Printf("sharing: close session %s on revocation failed: %v", sessionID, err)
		}
		s.notifier.Notify("Shared access revoked",
			fmt.Sprintf("Session %s was logged out: %s", sessionID, ev.Reason))
	})
}

// ExpireOverdue transitions invitations whose expiry has passed and closes
// their sessions. It is called periodically by the worker and returns how
// many invitations it expired.
func (s *SharingService) ExpireOverdue(ctx context.Context, limit int32) (int, error) {
	ctx, span := s.tracer.Start(ctx, "SharingService.ExpireOverdue")
	defer span.End()

	overdue, err := s.invitations.ListOverdue(ctx, s.nowF(), limit)
	if err != nil {
		return 0, fmt.Errorf("list overdue invitations: %w", err)
	}
	expired := 0
	for _, inv := range overdue {
		if s.expire(ctx, inv) {
			expired++
		}
	}
	return expired, nil
}

// expire moves one invitation to expired, closes its sessions and fans out a
// revocation event so connected listeners log out immediately.
func (s *SharingService) expire(ctx context.Context, inv *invdomain.Invitation) bool {
	moved, err := s.invitations.MarkExpired(ctx, inv.ID, s.nowF())
	if err != nil {
		log.Printf("sharing: expire invitation %s failed: %v", inv.ID, err)
		return false
	}
	closed, err := s.sessions.CloseAll(ctx, inv.ID, "expired")
	if err != nil {
		log.Printf("sharing: close sessions for expired %s failed: %v", inv.ID, err)
	}
	if moved || closed > 0 {
		if err := s.bus.Publish(ctx, revocation.NewEvent(inv.ID, "expired")); err != nil {
			log.Printf("sharing: publish expiry for %s failed: %v", inv.ID, err)
		}
	}
	if moved {
		s.revocations.Add(ctx, 1)
		system := auth.Actor{UserID: "system", Email: ""}
		s.record(ctx, auditdomain.EventExpired, inv, system, "", nil)
	}
	return moved
}

// SharedByMe returns the invitations the caller has issued, newest first.
func (s *SharingService) SharedByMe(ctx context.Context) ([]*invdomain.Invitation, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return s.invitations.ListByOwner(ctx, actor.UserID)
}

// SharedWithMe returns the invitations addressed to the caller, newest first.
func (s *SharingService) SharedWithMe(ctx context.Context) ([]*invdomain.Invitation, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return s.invitations.ListByRecipient(ctx, strings.ToLower(actor.Email))
}

// ActiveSessions returns the open sessions for an invitation. The owner and
// the recipient may look; anyone else gets ErrNotFound.
func (s *SharingService) ActiveSessions(ctx context.Context, invitationID string) ([]*sessdomain.Session, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	if inv == nil || (inv.OwnerID != actor.UserID && !strings.EqualFold(inv.RecipientEmail, actor.Email)) {
		return nil, ErrNotFound
	}
	return s.sessions.ListOpen(ctx, invitationID)
}

func (s *SharingService) record(ctx context.Context, ev auditdomain.EventType, inv *invdomain.Invitation, actor auth.Actor, sessionID string, data map[string]string) {
	s.audit.Record(ctx, &auditdomain.Entry{
		InvitationID: inv.ID,
		SessionID:    sessionID,
		EventType:    ev,
		ActorID:      actor.UserID,
		ActorEmail:   actor.Email,
		EventData:    data,
		UserAgent:    actor.UserAgent,
	})
}

func (s *SharingService) sendInvitationMail(inv *invdomain.Invitation) {
	if s.mailer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		subject, body := notify.InvitationEmail(s.appURL, inv.OwnerEmail, inv.ServiceName, inv.ID)
		if err := s.mailer.Send(ctx, inv.RecipientEmail, subject, body); err != nil {
			log.Printf("sharing: invitation email to %s failed: %v", inv.RecipientEmail, err)
		}
	}()
}

// closeReasonFor picks the logout reason for a session undone by a lost race.
func closeReasonFor(inv *invdomain.Invitation) string {
	switch {
	case inv == nil:
		return "revoked"
	case inv.Status == invdomain.StatusExpired:
		return "expired"
	case inv.RevocationReason != "":
		return inv.RevocationReason
	default:
		return "revoked"
	}
}

// loginBlockedBy maps a non-loginable status to its failure result.
func loginBlockedBy(status invdomain.Status) (Result, bool) {
	switch status {
	case invdomain.StatusPending:
		return failResult(CodeInvalidState, "invitation has not been accepted"), true
	case invdomain.StatusRevoked:
		return failResult(CodeInvalidState, "access has been revoked"), true
	case invdomain.StatusExpired:
		return failResult(CodeExpired, "invitation has expired"), true
	default:
		return Result{}, false
	}
}
