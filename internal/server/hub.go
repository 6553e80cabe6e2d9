package server

import (
	"context"
	"sync"

	"github.com/unklstewy/atc-presence/pkg/presence"
)

// Hub keeps the last published activity and fans it out to subscribers.
// It implements presence.Publisher.
type Hub struct {
	mu     sync.RWMutex
	latest presence.Activity
	has    bool
	subs   map[chan presence.Activity]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan presence.Activity]struct{})}
}

// Publish stores a and delivers it to every subscriber. A subscriber that
// has not consumed its previous activity gets it replaced by a.
func (h *Hub) Publish(_ context.Context, a presence.Activity) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = a
	h.has = true
	for ch := range h.subs {
		select {
		case ch <- a:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- a:
		default:
		}
	}
	return nil
}

// Latest returns the last published activity, if any.
func (h *Hub) Latest() (presence.Activity, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.has
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called to release it.
func (h *Hub) Subscribe() (<-chan presence.Activity, func()) {
	ch := make(chan presence.Activity, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
