// Package broadcast fans engine events out to live subscribers.
package broadcast

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/kozaktomas/facewatch/internal/logger"
	"github.com/kozaktomas/facewatch/internal/metrics"
)

// ErrSlowSubscriber is returned by Deliver when a subscriber's buffer is full.
var ErrSlowSubscriber = errors.New("subscriber buffer full")

// Message is an event together with its JSON encoding.
type Message struct {
	Event   Event
	Payload []byte
}

// Subscriber receives events. Deliver is called with the hub lock held and
// must not block. Close is called once, by the hub, after removal.
type Subscriber interface {
	Deliver(msg Message) error
	Close()
}

// Hub is a multicast hub. Membership changes and fan-out share one lock.
type Hub struct {
	mu      sync.Mutex
	subs    map[Subscriber]struct{}
	closed  bool
	metrics *metrics.Metrics
}

// NewHub creates an empty hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		subs:    make(map[Subscriber]struct{}),
		metrics: m,
	}
}

// Subscribe registers s. Subscribing to a closed hub closes s immediately.
func (h *Hub) Subscribe(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.Close()
		return
	}
	h.subs[s] = struct{}{}
	h.metrics.SetSubscribers(len(h.subs))
}

// Unsubscribe removes and closes s. It is a no-op if s is not registered.
func (h *Hub) Unsubscribe(s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(s)
}

func (h *Hub) remove(s Subscriber) {
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	s.Close()
	h.metrics.SetSubscribers(len(h.subs))
}

// Broadcast delivers ev to every subscriber and returns how many accepted it.
// Subscribers whose delivery fails are dropped.
func (h *Hub) Broadcast(ev Event) int {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Error("broadcast: failed to marshal event", "type", ev.Type, "error", err)
		return 0
	}
	msg := Message{Event: ev, Payload: payload}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for s := range h.subs {
		if err := s.Deliver(msg); err != nil {
			logger.Debug("broadcast: dropping subscriber", "error", err)
			h.remove(s)
			h.metrics.SubscriberDropped()
			continue
		}
		delivered++
	}
	return delivered
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close removes and closes every subscriber. Later subscriptions are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		h.remove(s)
	}
	h.closed = true
}
