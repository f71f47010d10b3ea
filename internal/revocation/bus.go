package revocation

import (
	"context"
	"sync"
)

// Listener receives revocation events for one invitation.
type Listener func(Event)

// Bus is a per-invitation topic publish/subscribe channel.
type Bus interface {
	// Publish broadcasts the event to listeners subscribed to its invitation. Fire-and-forget.
	Publish(ctx context.Context, ev Event) error
	// Subscribe registers a listener for the invitation and returns its unsubscribe
	// function. Callers must unsubscribe when the session/tab ends to avoid leaking listeners.
	Subscribe(invitationID string, fn Listener) (unsubscribe func())
}

// wildcardTopic receives every event regardless of invitation.
const wildcardTopic = "*"

// MemoryBus is an in-process Bus with a per-invitation listener registry.
type MemoryBus struct {
	mu        sync.Mutex
	listeners map[string]map[int64]Listener
	nextID    int64
}

// NewMemoryBus returns an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{listeners: make(map[string]map[int64]Listener)}
}

// Publish delivers the event to every listener currently subscribed to the
// invitation. Listeners registered after Publish returns do not see the event.
func (b *MemoryBus) Publish(ctx context.Context, ev Event) error {
	topic := Topic(ev.SharedAccessID)
	b.mu.Lock()
	snapshot := make([]Listener, 0, len(b.listeners[topic])+len(b.listeners[wildcardTopic]))
	for _, fn := range b.listeners[topic] {
		snapshot = append(snapshot, fn)
	}
	for _, fn := range b.listeners[wildcardTopic] {
		snapshot = append(snapshot, fn)
	}
	b.mu.Unlock()
	// Deliver outside the lock so a listener may unsubscribe during delivery.
	for _, fn := range snapshot {
		fn(ev)
	}
	return nil
}

// Subscribe registers fn for the invitation's topic and returns its unsubscribe function.
// Unsubscribe is idempotent.
func (b *MemoryBus) Subscribe(invitationID string, fn Listener) func() {
	topic := Topic(invitationID)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.listeners[topic] == nil {
		b.listeners[topic] = make(map[int64]Listener)
	}
	b.listeners[topic][id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.listeners[topic]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(b.listeners, topic)
			}
		}
	}
}

// SubscribeAll registers fn for every invitation's events and returns its
// unsubscribe function. Used by consumers that reconcile rather than watch a
// single invitation.
func (b *MemoryBus) SubscribeAll(fn Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.listeners[wildcardTopic] == nil {
		b.listeners[wildcardTopic] = make(map[int64]Listener)
	}
	b.listeners[wildcardTopic][id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.listeners[wildcardTopic]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(b.listeners, wildcardTopic)
			}
		}
	}
}

// ListenerCount returns how many listeners are subscribed to the invitation's topic.
func (b *MemoryBus) ListenerCount(invitationID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[Topic(invitationID)])
}
