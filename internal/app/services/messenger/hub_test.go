package messenger

import (
	"testing"
	"time"
)

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub(nil)

	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelA()
	defer cancelB()

	hub.Broadcast(Message{Kind: KindCacheRefresh})

	for _, ch := range []<-chan Message{a, b} {
		select {
		case msg := <-ch:
			if msg.Kind != KindCacheRefresh {
				t.Fatalf("kind = %s, want %s", msg.Kind, KindCacheRefresh)
			}
			if msg.Timestamp.IsZero() {
				t.Fatal("timestamp not stamped")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive broadcast")
		}
	}
}

func TestCancelledSubscriberNoLongerCounted(t *testing.T) {
	hub := NewHub(nil)

	_, cancel := hub.Subscribe()
	if n := hub.SubscriberCount(); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	cancel()
	if n := hub.SubscriberCount(); n != 0 {
		t.Fatalf("count after cancel = %d, want 0", n)
	}
	// Double cancel is safe.
	cancel()
}

func TestSlowSubscriberDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub(nil)

	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.Broadcast(Message{Kind: KindPushAlert})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full subscriber")
	}
}

func TestClosedHubDropsBroadcasts(t *testing.T) {
	hub := NewHub(nil)

	ch, _ := hub.Subscribe()
	hub.Close()

	if _, open := <-ch; open {
		t.Fatal("subscriber channel still open after Close")
	}
	hub.Broadcast(Message{Kind: KindSyncComplete})
	if n := hub.SubscriberCount(); n != 0 {
		t.Fatalf("count = %d after close, want 0", n)
	}
}

func TestPushAlertDefaultsEmptyPayload(t *testing.T) {
	msg := PushAlert("")
	if msg.Kind != KindPushAlert {
		t.Fatalf("kind = %s, want %s", msg.Kind, KindPushAlert)
	}
	if body, _ := msg.Payload["body"].(string); body == "" {
		t.Fatal("empty payload not defaulted")
	}
}
