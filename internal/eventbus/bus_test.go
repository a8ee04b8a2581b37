package eventbus

import (
	"testing"
	"time"
)

func TestBus_SubscribeReceivesPublishedValue(t *testing.T) {
	b := New[int](false)
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	b.Publish(42)

	select {
	case v := <-ch:
		if v != 42 {
			t.Fatalf("expected 42, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published value")
	}
}

func TestBus_NoReplayWithoutPriorPublish(t *testing.T) {
	b := New[int](true)
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	select {
	case v := <-ch:
		t.Fatalf("expected no replayed value, got %d", v)
	default:
	}
}

func TestBus_ReplayLastDeliversMostRecentValueToNewSubscriber(t *testing.T) {
	b := New[int](true)
	b.Publish(1)
	b.Publish(2)

	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	select {
	case v := <-ch:
		if v != 2 {
			t.Fatalf("expected replayed value 2, got %d", v)
		}
	default:
		t.Fatal("expected replayed value to be immediately available")
	}
}

func TestBus_SlowSubscriberGetsOverwrittenNotBlocked(t *testing.T) {
	b := New[int](false)
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		b.Publish(1)
		b.Publish(2)
		b.Publish(3)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a subscriber that never drained its channel")
	}

	select {
	case v := <-ch:
		if v != 3 {
			t.Fatalf("expected the last published value 3, got %d", v)
		}
	default:
		t.Fatal("expected a buffered value after the publishes")
	}
}

func TestBus_UnsubscribeClosesChannelAndDropsCount(t *testing.T) {
	b := New[int](false)
	ch, unsubscribe := b.Subscribe()

	if got := b.SubscriberCount(); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	unsubscribe()

	if got := b.SubscriberCount(); got != 0 {
		t.Fatalf("expected 0 subscribers after unsubscribe, got %d", got)
	}

	if _, open := <-ch; open {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	b := New[int](false)
	_, unsubscribe := b.Subscribe()

	unsubscribe()
	unsubscribe()
}

func TestBus_MultipleSubscribersAllReceive(t *testing.T) {
	b := New[string](false)

	const n = 5
	chans := make([]<-chan string, n)
	for i := 0; i < n; i++ {
		ch, unsubscribe := b.Subscribe()
		defer unsubscribe()
		chans[i] = ch
	}

	b.Publish("hello")

	for i, ch := range chans {
		select {
		case v := <-ch:
			if v != "hello" {
				t.Fatalf("subscriber %d: expected %q, got %q", i, "hello", v)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timed out waiting for value", i)
		}
	}
}
