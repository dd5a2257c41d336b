package notify

import (
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	h := NewHub()
	defer h.Close()
	if h.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers")
	}
	_, unsubscribe := h.Subscribe()
	if h.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber")
	}
	unsubscribe()
	if h.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after unsubscribe")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	defer h.Close()
	ch, unsubscribe := h.Subscribe()
	unsubscribe()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	// A second call must be a safe no-op.
	unsubscribe()
}

func TestPublishDelivery(t *testing.T) {
	h := NewHub()
	defer h.Close()
	ch, unsubscribe := h.Subscribe()
	defer unsubscribe()

	h.Publish(Event{Type: TypeNoteSaved, Data: NoteRef{Path: "a.md"}})

	select {
	case ev := <-ch:
		if ev.Type != TypeNoteSaved {
			t.Errorf("type = %q", ev.Type)
		}
		ref, ok := ev.Data.(NoteRef)
		if !ok || ref.Path != "a.md" {
			t.Errorf("data = %#v", ev.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	defer h.Close()

	ch1, u1 := h.Subscribe()
	defer u1()
	ch2, u2 := h.Subscribe()
	defer u2()

	h.Publish(Event{Type: TypeVaultChanged, Data: VaultChange{Paths: []string{"x.md"}}})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != TypeVaultChanged {
				t.Errorf("subscriber %d: type = %q", i, ev.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timeout", i)
		}
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	h := NewHub()
	defer h.Close()
	_, unsubscribe := h.Subscribe()
	defer unsubscribe()

	// Exceed the subscriber buffer (capacity 64) without reading; the
	// loop must not block.
	for i := 0; i < 70; i++ {
		h.Publish(Event{Type: TypeVaultChanged, Data: VaultChange{}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	h := NewHub()
	ch, _ := h.Subscribe()
	if h.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber")
	}

	h.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if h.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after close")
	}

	// Safe no-ops after close.
	h.Publish(Event{Type: TypeNoteSaved, Data: NoteRef{Path: "x.md"}})
	late, unsub := h.Subscribe()
	unsub()
	if _, ok := <-late; ok {
		t.Fatal("subscribe after close should return a closed channel")
	}
}
