package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindStatusChanged, Timestamp: time.Now(), Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != KindStatusChanged {
			t.Errorf("got kind %q, want %s", evt.Kind, KindStatusChanged)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conversation.", 10)
	defer unsub()

	b.Emit(KindStatusChanged, nil)
	b.Emit(KindAppended, nil)

	select {
	case evt := <-ch:
		if evt.Kind != KindAppended {
			t.Errorf("got kind %q, want %s", evt.Kind, KindAppended)
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

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	unsub()

	b.Emit(KindStatusChanged, nil)

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("notice", 1)
	defer unsub()

	b.Emit(KindNotice, Notice{Level: LevelInfo, Text: "one"})
	b.Emit(KindNotice, Notice{Level: LevelInfo, Text: "two"})

	evt := <-ch
	if n := evt.Payload.(Notice); n.Text != "one" {
		t.Errorf("got %q, want one", n.Text)
	}
	if b.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", b.Dropped())
	}
}

func TestPublishStampsTimestamp(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("", 1)
	defer unsub()

	b.Publish(Event{Kind: KindContactAdded})
	evt := <-ch
	if evt.Timestamp.IsZero() {
		t.Error("Timestamp not set by Publish")
	}
}

func TestNilBus(t *testing.T) {
	var b *Bus
	b.Emit(KindNotice, nil)
	ch, unsub := b.Subscribe("", 1)
	defer unsub()
	if ch == nil {
		t.Fatal("Subscribe on nil bus returned nil channel")
	}
	if b.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", b.Dropped())
	}
}
