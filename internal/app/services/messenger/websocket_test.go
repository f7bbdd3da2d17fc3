package messenger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestGateway(t *testing.T, gw *Gateway) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(gw.Attach))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestAttachedInstanceReceivesBroadcasts(t *testing.T) {
	hub := NewHub(nil)
	conn := dialTestGateway(t, NewGateway(hub, nil, nil))

	// Wait until the subscription is registered before broadcasting.
	deadline := time.Now().Add(time.Second)
	for hub.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Broadcast(Message{Kind: KindSyncComplete, Payload: map[string]any{"tag": "t"}})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if msg.Kind != KindSyncComplete {
		t.Fatalf("kind = %s, want %s", msg.Kind, KindSyncComplete)
	}
	if msg.Payload["tag"] != "t" {
		t.Fatalf("payload = %v, want tag t", msg.Payload)
	}
}

func TestInboundControlMessageRouted(t *testing.T) {
	hub := NewHub(nil)
	received := make(chan Message, 1)
	gw := NewGateway(hub, func(ctx context.Context, msg Message) error {
		received <- msg
		return nil
	}, nil)
	conn := dialTestGateway(t, gw)

	if err := conn.WriteJSON(Message{Kind: KindSkipWaiting}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Kind != KindSkipWaiting {
			t.Fatalf("kind = %s, want %s", msg.Kind, KindSkipWaiting)
		}
	case <-time.After(time.Second):
		t.Fatal("control message never delivered")
	}
}

func TestMalformedControlMessageIgnored(t *testing.T) {
	hub := NewHub(nil)
	called := make(chan struct{}, 1)
	gw := NewGateway(hub, func(ctx context.Context, msg Message) error {
		called <- struct{}{}
		return nil
	}, nil)
	conn := dialTestGateway(t, gw)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if err := conn.WriteJSON(Message{Kind: KindCacheRefresh}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	select {
	case <-called:
		// The well-formed follow-up arrived; the junk was skipped without
		// killing the connection.
	case <-time.After(time.Second):
		t.Fatal("connection died on malformed message")
	}
}
