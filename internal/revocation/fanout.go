package revocation

import (
	"context"
	"log"
	"time"
)

// Fanout is a Bus that publishes locally and, when a Kafka publisher is
// configured, also emits the event for other nodes. The remote emit is
// fire-and-forget: a broker failure never fails the revoke that produced it.
type Fanout struct {
	local  Bus
	remote *KafkaPublisher
}

// NewFanout wraps the local bus with optional cross-node publishing. remote may be nil.
func NewFanout(local Bus, remote *KafkaPublisher) *Fanout {
	return &Fanout{local: local, remote: remote}
}

// Publish delivers locally, then emits to Kafka in the background.
func (f *Fanout) Publish(ctx context.Context, ev Event) error {
	err := f.local.Publish(ctx, ev)
	if f.remote != nil {
		go func() {
			emitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if emitErr := f.remote.Emit(emitCtx, ev); emitErr != nil {
				log.Printf("revocation: remote emit failed for %s: %v", ev.SharedAccessID, emitErr)
			}
		}()
	}
	return err
}

// Subscribe registers the listener on the local bus.
func (f *Fanout) Subscribe(invitationID string, fn Listener) func() {
	return f.local.Subscribe(invitationID, fn)
}
