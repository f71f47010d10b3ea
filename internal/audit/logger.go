// Package audit records invitation lifecycle events. Writes are best-effort:
// a failed append must never fail the operation that produced it.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"credvault/backend/internal/audit/domain"
	"credvault/backend/internal/audit/producer"
	auditrepo "credvault/backend/internal/audit/repository"
)

// emitTimeout is the max time allowed for a single async stream emit.
const emitTimeout = 5 * time.Second

// Recorder writes a single audit entry for an invitation lifecycle event.
// Record is best-effort: failures are logged and do not affect the caller.
type Recorder interface {
	Record(ctx context.Context, e *domain.Entry)
}

// Logger implements Recorder using the audit repository and an optional event producer.
// When a producer is set, every entry is also emitted asynchronously to the audit
// stream (shipped to the ops log store by the worker), so a swallowed repository
// failure still leaves an operational trace.
type Logger struct {
	repo     auditrepo.Repository
	producer producer.Producer
}

// NewLogger returns a Recorder that persists to repo and optionally emits to p.
// p may be nil; then entries are only persisted.
func NewLogger(repo auditrepo.Repository, p producer.Producer) *Logger {
	return &Logger{repo: repo, producer: p}
}

// Record assigns the entry an ID and timestamp if missing, appends it, and emits
// it to the audit stream. Best-effort: errors are logged and not returned.
func (l *Logger) Record(ctx context.Context, e *domain.Entry) {
	if l == nil || e == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if l.repo != nil {
		if err := l.repo.Create(ctx, e); err != nil {
			log.Printf("audit: failed to append %s for invitation %s: %v", e.EventType, e.InvitationID, err)
		}
	}
	if l.producer != nil {
		entry := *e
		go func() {
			emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
			defer cancel()
			if err := l.producer.Emit(emitCtx, &entry); err != nil {
				log.Printf("audit: async emit failed: %v", err)
			}
		}()
	}
}
