package realtime

import (
	"context"
	"sync"
)

const defaultBuffer = 32

// Subscription is one registered listener. C is closed on Unsubscribe.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	filter Filter
}

type hubMetrics interface {
	SubscriberDelta(delta int)
	RecordRealtimeDrop()
}

// Hub fans events out to in-process subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	metrics hubMetrics
}

func NewHub(metrics hubMetrics) *Hub {
	return &Hub{subs: map[*Subscription]struct{}{}, metrics: metrics}
}

func (h *Hub) Subscribe(filter Filter, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan Event, buffer)
	sub := &Subscription{C: ch, ch: ch, filter: filter}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.SubscriberDelta(1)
	}
	return sub
}

// Unsubscribe is safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	_, exists := h.subs[sub]
	if exists {
		delete(h.subs, sub)
	}
	h.mu.Unlock()
	if exists {
		close(sub.ch)
		if h.metrics != nil {
			h.metrics.SubscriberDelta(-1)
		}
	}
}

func (h *Hub) Publish(_ context.Context, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			if h.metrics != nil {
				h.metrics.RecordRealtimeDrop()
			}
		}
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
