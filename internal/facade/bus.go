package facade

import (
	"sync"

	"github.com/google/uuid"
)

// Change is a notification that a mutating call affected rows under
// the given address.
type Change struct {
	Address string
}

// Bus fans change notifications out to any number of observers so
// they can react to writes (e.g. refresh a live view) without
// polling.
//
// An observer of a collection address also receives changes for the
// collection's items; an observer of an item address receives only
// that item's changes. Delivery is non-blocking: a subscriber that
// stops draining its channel loses notifications rather than stalling
// the writer.
type Bus struct {
	mu   sync.Mutex
	subs map[string]*subscription
}

type subscription struct {
	addr Address
	ch   chan Change
}

// NewBus creates an empty notification bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]*subscription)}
}

// Subscribe registers an observer for an address and returns an
// opaque token for Unsubscribe plus the notification channel.
func (b *Bus) Subscribe(address string) (string, <-chan Change, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return "", nil, err
	}

	sub := &subscription{
		addr: addr,
		ch:   make(chan Change, 8),
	}
	token := uuid.NewString()

	b.mu.Lock()
	b.subs[token] = sub
	b.mu.Unlock()

	return token, sub.ch, nil
}

// Unsubscribe removes an observer and closes its channel.
// Unknown tokens are ignored.
func (b *Bus) Unsubscribe(token string) {
	b.mu.Lock()
	sub, ok := b.subs[token]
	delete(b.subs, token)
	b.mu.Unlock()

	if ok {
		close(sub.ch)
	}
}

// Publish broadcasts a change for the given address to every matching
// observer.
func (b *Bus) Publish(addr Address) {
	change := Change{Address: addr.String()}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if !matches(sub.addr, addr) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			// Slow observer: drop rather than block the writer.
		}
	}
}

// matches reports whether a change at addr is visible to a
// subscription at watch.
func matches(watch, changed Address) bool {
	if watch.Collection() != changed.Collection() {
		return false
	}
	if watch.IsItem() {
		return changed.IsItem() && watch.ID == changed.ID
	}
	// Collection observers see the collection and all of its items.
	return true
}
