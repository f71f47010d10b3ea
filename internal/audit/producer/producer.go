// Package producer defines the interface for emitting audit entries to the ops stream (e.g. Kafka).
package producer

import (
	"context"

	"credvault/backend/internal/audit/domain"
)

// Producer emits audit entries. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single audit entry. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, e *domain.Entry) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
