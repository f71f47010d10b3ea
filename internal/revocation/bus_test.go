package revocation

import (
	"context"
	"sync"
	"testing"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewMemoryBus()
	var mu sync.Mutex
	var got []Event
	unsub := bus.Subscribe("inv-1", func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})
	defer unsub()

	if err := bus.Publish(context.Background(), NewEvent("inv-1", "owner revoked")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].Type != EventTypeRevoked || got[0].SharedAccessID != "inv-1" || got[0].Reason != "owner revoked" {
		t.Errorf("unexpected event: %+v", got[0])
	}
}

func TestPublishScopedToInvitation(t *testing.T) {
	bus := NewMemoryBus()
	var calls int
	unsub := bus.Subscribe("inv-other", func(Event) { calls++ })
	defer unsub()

	if err := bus.Publish(context.Background(), NewEvent("inv-1", "")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if calls != 0 {
		t.Errorf("listener on another invitation received %d events", calls)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewMemoryBus()
	var calls int
	unsub := bus.Subscribe("inv-1", func(Event) { calls++ })

	_ = bus.Publish(context.Background(), NewEvent("inv-1", ""))
	unsub()
	unsub() // idempotent
	_ = bus.Publish(context.Background(), NewEvent("inv-1", ""))

	if calls != 1 {
		t.Errorf("got %d deliveries, want 1", calls)
	}
	if n := bus.ListenerCount("inv-1"); n != 0 {
		t.Errorf("ListenerCount = %d after unsubscribe, want 0", n)
	}
}

func TestListenerMayUnsubscribeDuringDelivery(t *testing.T) {
	bus := NewMemoryBus()
	var unsub func()
	unsub = bus.Subscribe("inv-1", func(Event) { unsub() })

	// Must not deadlock.
	_ = bus.Publish(context.Background(), NewEvent("inv-1", ""))
	if n := bus.ListenerCount("inv-1"); n != 0 {
		t.Errorf("ListenerCount = %d, want 0", n)
	}
}

func TestSubscribeAllSeesEveryInvitation(t *testing.T) {
	bus := NewMemoryBus()
	var calls int
	unsub := bus.SubscribeAll(func(Event) { calls++ })

	_ = bus.Publish(context.Background(), NewEvent("inv-1", ""))
	_ = bus.Publish(context.Background(), NewEvent("inv-2", ""))
	if calls != 2 {
		t.Errorf("got %d deliveries, want 2", calls)
	}

	unsub()
	_ = bus.Publish(context.Background(), NewEvent("inv-3", ""))
	if calls != 2 {
		t.Errorf("got %d deliveries after unsubscribe, want 2", calls)
	}
}

func TestTopicName(t *testing.T) {
	if got := Topic("abc"); got != "shared_access:abc" {
		t.Errorf("Topic = %q, want shared_access:abc", got)
	}
}
