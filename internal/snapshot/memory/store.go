// Package memory holds the serialisable snapshot representation and the
// in-memory snapshot store used for tests and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"cachecore/pkg/domain"
)

// Snapshot is the serialisable export of both cached collections. Display
// order and relationship indexes are not persisted; stores rebuild them on
// restore.
type Snapshot struct {
	Users map[string]domain.User `json:"users"`
	Tasks map[string]domain.Task `json:"tasks"`
}

// New returns an empty snapshot with initialised buckets.
func New() Snapshot {
	return Snapshot{
		Users: map[string]domain.User{},
		Tasks: map[string]domain.Task{},
	}
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Users: make(map[string]domain.User, len(s.Users)),
		Tasks: make(map[string]domain.Task, len(s.Tasks)),
	}
	for id, user := range s.Users {
		out.Users[id] = user.Clone()
	}
	for id, task := range s.Tasks {
		out.Tasks[id] = task.Clone()
	}
	return out
}

// Len reports the total number of entities across buckets.
func (s Snapshot) Len() int { return len(s.Users) + len(s.Tasks) }

// Store keeps the snapshot in process memory.
type Store struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewStore constructs an empty in-memory snapshot store.
func NewStore() *Store {
	return &Store{snap: New()}
}

// Load returns a deep copy of the held snapshot.
func (s *Store) Load(context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone(), nil
}

// Save replaces the held snapshot with a deep copy of the argument.
func (s *Store) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }
