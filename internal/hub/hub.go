package hub

import (
	"log/slog"
	"sync"

	"github.com/atikulmunna/geotail/internal/model"
)

const subscriberBuffer = 1024

// Hub broadcasts enriched events to all subscribers. Publishing never blocks:
// a subscriber whose buffer is full misses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan model.Enriched]struct{}
	dropped     int64
	closed      bool
	logger      *slog.Logger
}

// New creates an empty Hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[chan model.Enriched]struct{}),
		logger:      logger,
	}
}

// Subscribe returns a buffered channel that receives every published event.
// The channel is closed by Unsubscribe or Close.
func (h *Hub) Subscribe() <-chan model.Enriched {
	ch := make(chan model.Enriched, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (h *Hub) Unsubscribe(sub <-chan model.Enriched) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		if ch == sub {
			delete(h.subscribers, ch)
			close(ch)
			return
		}
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Dropped returns the total number of events dropped due to slow consumers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Publish sends ev to every subscriber.
func (h *Hub) Publish(ev model.Enriched) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			h.dropped++
			h.logger.Debug("hub: dropped event for slow consumer", "total_dropped", h.dropped)
		}
	}
}

// Close closes all subscriber channels. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = make(map[chan model.Enriched]struct{})
	h.closed = true
}
