// internal/services/events.go
package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventCacheLoaded    EventType = "cache.loaded"
	EventProductCreated EventType = "product.created"
	EventProductUpdated EventType = "product.updated"
	EventProductDeleted EventType = "product.deleted"
	EventSaleCreated    EventType = "sale.created"
	EventSaleUpdated    EventType = "sale.updated"
	EventSaleDeleted    EventType = "sale.deleted"
)

// Event describes a change of the cached state.
type Event struct {
	Type EventType `json:"type"`
	ID   uuid.UUID `json:"id,omitempty"`
	At   time.Time `json:"at"`
}

type broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

func (b *broadcaster) subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]func(Event))
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// emit calls every subscriber synchronously. Subscribers must not block.
func (b *broadcaster) emit(ev Event) {
	b.mu.Lock()
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
