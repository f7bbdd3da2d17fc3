// Package messenger broadcasts coordination messages to every connected
// application instance. Delivery is best-effort: no acknowledgement and no
// ordering guarantee across instances.
package messenger

import (
	"sync"
	"time"

	"github.com/R3E-Network/offline_gateway/pkg/logger"
)

// Kind enumerates the fixed message vocabulary.
type Kind string

const (
	// KindSkipWaiting forces immediate activation of a waiting version.
	KindSkipWaiting Kind = "SKIP_WAITING"
	// KindCacheRefresh requests a sync-queue pass on demand.
	KindCacheRefresh Kind = "CACHE_REFRESH"
	// KindSyncComplete announces a finished background sync pass.
	KindSyncComplete Kind = "SYNC_COMPLETE"
	// KindMutationAbandoned surfaces a mutation that exhausted its retry
	// budget and requires user acknowledgement.
	KindMutationAbandoned Kind = "MUTATION_ABANDONED"
	// KindPushAlert carries an inbound push payload to the instances.
	KindPushAlert Kind = "PUSH_ALERT"
	// KindGesture carries a recognized gesture to the instances.
	KindGesture Kind = "GESTURE"
)

// Message is one broadcast unit.
type Message struct {
	Kind      Kind           `json:"kind"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// subscriberBuffer bounds per-subscriber queues; a subscriber that cannot
// keep up loses messages rather than blocking the broadcaster.
const subscriberBuffer = 16

// Hub is the in-process broadcast channel behind all transports.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Message
	closed bool
	log    *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewDefault("messenger")
	}
	return &Hub{subs: make(map[int]chan Message), log: log}
}

// Subscribe registers a listener. The returned cancel function must be
// called when the listener goes away.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Message, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Broadcast delivers a message to all current subscribers without blocking;
// subscribers with full buffers are skipped.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for id, ch := range h.subs {
		select {
		case ch <- msg:
		default:
			h.log.WithField("subscriber", id).
				WithField("kind", string(msg.Kind)).
				Warn("subscriber buffer full; dropping message")
		}
	}
}

// SubscriberCount returns the number of attached listeners.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close terminates all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
