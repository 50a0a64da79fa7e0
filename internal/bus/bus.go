// Package bus provides the synchronous publish/subscribe registry that
// decouples stores from each other. Emit calls current subscribers in
// registration order; nothing is queued or replayed, so a subscriber
// registered after an emit never sees it.
package bus

import "sync"

// Event names the enumerated cross-store notifications.
type Event string

// Cross-store events published by the engine.
const (
	// UserUpdated fires after a user mutation is confirmed.
	UserUpdated Event = "user.updated"
	// UserDeleted fires after a user deletion is confirmed, letting the task
	// store clear dangling references.
	UserDeleted Event = "user.deleted"
	// TaskAssigned fires when a task's assignee changes.
	TaskAssigned Event = "task.assigned"
	// CacheInvalidated fires when a store's bulk cache is forcibly cleared.
	CacheInvalidated Event = "cache.invalidated"
)

// Handler receives an event payload. Payload types are enumerated in
// payloads.go; handlers must not retain or mutate shared state through them.
type Handler func(payload any)

type subscriber struct {
	seq int
	fn  Handler
}

// Bus is a string-keyed synchronous registry. The zero value is not usable;
// construct with New.
type Bus struct {
	mu   sync.Mutex
	seq  int
	subs map[Event][]subscriber
}

// New constructs an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[Event][]subscriber)}
}

// On registers fn for event and returns an unsubscribe function. Calling the
// unsubscribe function more than once is harmless.
func (b *Bus) On(event Event, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	id := b.seq
	b.subs[event] = append(b.subs[event], subscriber{seq: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			current := b.subs[event]
			for i, sub := range current {
				if sub.seq == id {
					b.subs[event] = append(current[:i:i], current[i+1:]...)
					break
				}
			}
		})
	}
}

// Emit synchronously invokes all subscribers registered for event at the
// moment of the call, in registration order.
func (b *Bus) Emit(event Event, payload any) {
	b.mu.Lock()
	current := append([]subscriber(nil), b.subs[event]...)
	b.mu.Unlock()

	for _, sub := range current {
		sub.fn(payload)
	}
}

// SubscriberCount reports how many handlers are registered for event.
func (b *Bus) SubscriberCount(event Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[event])
}
