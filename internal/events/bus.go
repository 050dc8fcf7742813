package events

import (
	"context"
	"sync"
)

// Name identifies a broadcast event. Events carry no payload: subscribers
// re-query the store for current state instead of trusting event data.
type Name string

const (
	DataUpdated              Name = "data-updated"
	ApplicationCreated       Name = "application-created"
	ApplicationStatusChanged Name = "application-status-changed"
	PracticeDeleted          Name = "practice-deleted"
	UserDeleted              Name = "user-deleted"
	UserRoleChanged          Name = "user-role-changed"
	ThreadCreated            Name = "thread-created"
	MessageSent              Name = "message-sent"
	PracticesMigrated        Name = "practices-migrated"
)

// Bus fans out change notifications to in-process subscribers. Publishing
// is synchronous and fire-and-forget: a slow subscriber loses events
// rather than blocking the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int64]*subscriber
	nextID      int64
	bufferSize  int
}

type subscriber struct {
	id     int64
	names  map[Name]struct{}
	stream chan Name
}

// NewBus constructs an empty event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[int64]*subscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a listener for the given event names. With no names
// the listener receives every event. The returned cancel function removes
// the subscription; cancelling the context does the same.
func (b *Bus) Subscribe(ctx context.Context, names ...Name) (<-chan Name, func()) {
	var filter map[Name]struct{}
	if len(names) > 0 {
		filter = make(map[Name]struct{}, len(names))
		for _, name := range names {
			filter[name] = struct{}{}
		}
	}

	sub := &subscriber{
		names:  filter,
		stream: make(chan Name, b.bufferSize),
	}

	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subscribers[sub.id] = sub
	b.mu.Unlock()

	cleanup := func() {
		b.mu.Lock()
		delete(b.subscribers, sub.id)
		b.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		cleanup()
	}()

	return sub.stream, cleanup
}

// Publish delivers the event to every matching subscriber without
// blocking. Subscribers whose buffers are full miss the event.
func (b *Bus) Publish(name Name) {
	if name == "" {
		return
	}

	b.mu.RLock()
	copies := make([]*subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		copies = append(copies, sub)
	}
	b.mu.RUnlock()

	for _, sub := range copies {
		if sub.names != nil {
			if _, ok := sub.names[name]; !ok {
				continue
			}
		}
		select {
		case sub.stream <- name:
		default:
		}
	}
}
