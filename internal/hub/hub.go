// Package hub is the in-memory fanout of order state changes to long-lived
// push connections. Channels are keyed by order public id or by store id;
// nothing is persisted, a reconnecting subscriber gets no backlog.
package hub

import (
	"strconv"
	"sync"

	"github.com/cardapioweb/cardapio/internal/models"
)

// subscriberBuffer is the per-sink event backlog. A sink that falls this far
// behind is dropped instead of blocking the publisher.
const subscriberBuffer = 16

// Subscriber is one attached sink. Events arrive on Events in publish order;
// the channel is closed when the hub drops the subscriber.
type Subscriber struct {
	key string
	ch  chan models.Event
}

// Events returns the subscriber's event stream.
func (s *Subscriber) Events() <-chan models.Event {
	return s.ch
}

// Hub maps channel keys to attached subscribers. Construct one per process
// with New and inject it; subscribe, unsubscribe and publish race by design
// and are all safe to call concurrently.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscriber]struct{}
}

// New creates new Hub instance
func New() *Hub {
	return &Hub{subs: make(map[string]map[*Subscriber]struct{})}
}

// StoreKey is the channel key for a store's kitchen display subscribers.
func StoreKey(storeID uint64) string {
	return "store:" + strconv.FormatUint(storeID, 10)
}

// Subscribe attaches a new sink to the channel key.
func (h *Hub) Subscribe(key string) *Subscriber {
	sub := &Subscriber{key: key, ch: make(chan models.Event, subscriberBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[key]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[key] = set
	}
	set[sub] = struct{}{}

	return sub
}

// Unsubscribe detaches the sink and closes its event stream. Safe to call
// after the hub has already dropped the subscriber.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(sub)
}

// Publish delivers the event to every subscriber currently attached to the
// key, best effort. A sink that cannot accept the event is dropped so one dead
// peer never blocks delivery to the rest.
func (h *Hub) Publish(key string, event models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[key] {
		select {
		case sub.ch <- event:
		default:
			h.remove(sub)
		}
	}
}

// remove deletes the subscriber and prunes the key when its set empties.
// Callers must hold mu.
func (h *Hub) remove(sub *Subscriber) {
	set, ok := h.subs[sub.key]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sub.key)
	}
}

// subscriberCount reports attached sinks for a key.
func (h *Hub) subscriberCount(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}
