package server

import (
	"sync"

	"go.uber.org/zap"
)

// subscriberBuffer is how many undelivered frames a subscriber may lag
// behind before the hub drops it.
const subscriberBuffer = 64

// Subscriber is one open subscription's view of the hub. Frames arrives on
// C; the channel is closed when the hub drops or closes the subscriber.
type Subscriber struct {
	C  <-chan []byte
	ch chan []byte
}

// Hub fans published frames out to all live subscribers. Sends never block:
// a subscriber whose buffer is full is dropped rather than stalling the
// publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	logger *zap.Logger
	closed bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[*Subscriber]struct{}),
		logger: logger,
	}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscriber {
	ch := make(chan []byte, subscriberBuffer)
	sub := &Subscriber{C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return sub
	}

	h.subs[sub] = struct{}{}

	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call
// multiple times and after Close.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; !ok {
		return
	}

	delete(h.subs, sub)
	close(sub.ch)
}

// Broadcast delivers a frame to every subscriber. Subscribers that cannot
// keep up are dropped.
func (h *Hub) Broadcast(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub.ch <- frame:
		default:
			h.logger.Warn("dropping slow subscriber",
				zap.Int("buffered", len(sub.ch)),
			)
			delete(h.subs, sub)
			close(sub.ch)
		}
	}
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs)
}

// Close drops all subscribers and rejects future ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.ch)
	}
}
