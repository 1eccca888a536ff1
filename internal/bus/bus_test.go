package bus

import (
	"testing"
	"time"
)

func TestEmitSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("notify.", 10)
	defer unsub()

	b.Emit(KindFlash, Flash{Level: LevelError, Message: "send failed"})

	select {
	case evt := <-ch:
		if evt.Kind != KindFlash {
			t.Errorf("got kind %q, want %s", evt.Kind, KindFlash)
		}
		if evt.Timestamp.IsZero() {
			t.Error("event not timestamped")
		}
		if f, ok := evt.Payload.(Flash); !ok || f.Message != "send failed" {
			t.Errorf("payload = %#v", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPrefixFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("thread.", 10)
	defer unsub()

	b.Emit(KindSidebarChanged, nil)
	b.Emit(KindThreadChanged, nil)

	select {
	case evt := <-ch:
		if evt.Kind != KindThreadChanged {
			t.Errorf("got kind %q, want %s", evt.Kind, KindThreadChanged)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEmptyPrefixReceivesAll(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 10)
	defer unsub()

	b.Emit(KindSound, nil)
	b.Emit(KindFeedStatusChanged, nil)
	if len(ch) != 2 {
		t.Errorf("buffered = %d, want 2", len(ch))
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("thread.", 10)
	if b.Subscribers() != 1 {
		t.Fatalf("subscribers = %d, want 1", b.Subscribers())
	}
	unsub()
	unsub()
	if b.Subscribers() != 0 {
		t.Fatalf("subscribers = %d, want 0", b.Subscribers())
	}

	b.Emit(KindThreadChanged, nil)
	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("thread.", 1)
	defer unsub()

	b.Emit(KindThreadChanged, 1)
	b.Emit(KindThreadChanged, 2)

	evt := <-ch
	if evt.Payload != 1 {
		t.Errorf("got payload %v, want 1", evt.Payload)
	}
	if b.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", b.Dropped())
	}
}
