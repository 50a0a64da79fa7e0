// Package optimistic tracks speculative mutations per entity id with a
// confirm/rollback lifecycle and auto-rollback on timeout. The state machine
// per id is none -> pending -> confirmed or rolled back, both terminal and
// both removing the record.
package optimistic

import (
	"sync"
	"time"

	"cachecore/internal/logging"
	"cachecore/pkg/domain"
)

// Kind distinguishes the speculative mutation type.
type Kind string

// Speculative mutation kinds.
const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Update is a pending speculative mutation. Original is the owned snapshot
// restored on rollback; Optimistic is the value currently shown to readers.
type Update[E domain.Entity] struct {
	ID         string
	Kind       Kind
	Original   E
	Optimistic E
	At         time.Time
}

type record[E domain.Entity] struct {
	update Update[E]
	cancel CancelFunc
}

// Options configure a Manager.
type Options struct {
	// Timeout is the auto-rollback delay for unconfirmed updates.
	Timeout time.Duration
	// MaxPending bounds the concurrent pending records across the manager.
	MaxPending int
	Scheduler  Scheduler
	Clock      func() time.Time
	Logger     logging.Logger
}

// Defaults applied when an option is zero.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxPending = 50
)

// Manager tracks pending speculative mutations for one store. The expire
// callback receives the entity id and original snapshot when an update times
// out without confirmation; callers treat it exactly like a failure rollback.
type Manager[E domain.Entity] struct {
	mu       sync.Mutex
	pending  map[string]*record[E]
	timeout  time.Duration
	maxPend  int
	sched    Scheduler
	clock    func() time.Time
	log      logging.Logger
	onExpire func(Update[E])
	closed   bool
}

// NewManager constructs a manager. onExpire may be nil when the caller polls
// instead of reacting to expiry.
func NewManager[E domain.Entity](opts Options, onExpire func(Update[E])) *Manager[E] {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = DefaultMaxPending
	}
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler{}
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.Logger == nil {
		opts.Logger = logging.Noop{}
	}
	return &Manager[E]{
		pending:  make(map[string]*record[E]),
		timeout:  opts.Timeout,
		maxPend:  opts.MaxPending,
		sched:    opts.Scheduler,
		clock:    opts.Clock,
		log:      opts.Logger,
		onExpire: onExpire,
	}
}

// Add records a speculative mutation for id, cancelling and replacing any
// pending record for the same id, and schedules its auto-rollback. It returns
// false when the manager is at its pending limit or closed; the rejection is
// logged rather than queued.
func (m *Manager[E]) Add(id string, kind Kind, optimistic, original E) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	if existing, ok := m.pending[id]; ok {
		existing.cancel()
	} else if len(m.pending) >= m.maxPend {
		m.mu.Unlock()
		m.log.Warn("optimistic update rejected, pending limit reached",
			"id", id, "limit", m.maxPend)
		return false
	}
	rec := &record[E]{update: Update[E]{
		ID:         id,
		Kind:       kind,
		Original:   original,
		Optimistic: optimistic,
		At:         m.clock(),
	}}
	rec.cancel = m.sched.Schedule(m.timeout, func() { m.expire(id, rec) })
	m.pending[id] = rec
	m.mu.Unlock()
	return true
}

// expire runs when a scheduled rollback fires. A record replaced or resolved
// between scheduling and firing is ignored.
func (m *Manager[E]) expire(id string, rec *record[E]) {
	m.mu.Lock()
	current, ok := m.pending[id]
	if !ok || current != rec {
		m.mu.Unlock()
		return
	}
	delete(m.pending, id)
	m.mu.Unlock()

	m.log.Warn("optimistic update expired without confirmation", "id", id, "kind", string(rec.update.Kind))
	if m.onExpire != nil {
		m.onExpire(rec.update)
	}
}

// Confirm cancels the timeout and discards the record. No state is written
// back; the caller is responsible for having applied the authoritative value.
func (m *Manager[E]) Confirm(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.pending[id]
	if !ok {
		return false
	}
	rec.cancel()
	delete(m.pending, id)
	return true
}

// Rollback cancels the timeout and returns the original snapshot so the
// caller can restore it. ok is false when nothing was pending for id.
func (m *Manager[E]) Rollback(id string) (E, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.pending[id]
	if !ok {
		var zero E
		return zero, false
	}
	rec.cancel()
	delete(m.pending, id)
	return rec.update.Original, true
}

// RollbackAll cancels every timer and returns all pending updates. Used on
// teardown so no orphaned optimistic state survives the manager.
func (m *Manager[E]) RollbackAll() []Update[E] {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Update[E], 0, len(m.pending))
	for id, rec := range m.pending {
		rec.cancel()
		out = append(out, rec.update)
		delete(m.pending, id)
	}
	return out
}

// Close tears the manager down: every pending update is rolled back and
// further Adds are rejected.
func (m *Manager[E]) Close() []Update[E] {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.RollbackAll()
}

// Pending returns the pending update for id, if any.
func (m *Manager[E]) Pending(id string) (Update[E], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.pending[id]
	if !ok {
		return Update[E]{}, false
	}
	return rec.update, true
}

// Len reports the number of pending records.
func (m *Manager[E]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
