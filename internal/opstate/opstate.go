// Package opstate tracks per-operation and per-entity in-flight flags and
// errors for a store. Values are plain data; the owning store provides the
// locking.
package opstate

import "cachecore/internal/remote"

// Operation names a store operation for flag and error bookkeeping.
type Operation string

// Store operations tracked by the state.
const (
	OpFetch  Operation = "fetch"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// State holds in-flight flags and the most recent error per operation.
// Update and delete are tracked per entity id so a single failed row can
// surface its own error without blocking the rest of the list.
type State struct {
	Fetching bool
	Creating bool
	Updating map[string]bool
	Deleting map[string]bool

	FetchErr  *remote.Error
	CreateErr *remote.Error
	UpdateErr map[string]*remote.Error
	DeleteErr map[string]*remote.Error
}

// New returns an initialized state.
func New() State {
	return State{
		Updating:  make(map[string]bool),
		Deleting:  make(map[string]bool),
		UpdateErr: make(map[string]*remote.Error),
		DeleteErr: make(map[string]*remote.Error),
	}
}

// Begin marks an operation as in flight and clears its previous error. The
// id is ignored for bulk operations.
func (s *State) Begin(op Operation, id string) {
	switch op {
	case OpFetch:
		s.Fetching = true
		s.FetchErr = nil
	case OpCreate:
		s.Creating = true
		s.CreateErr = nil
	case OpUpdate:
		s.Updating[id] = true
		delete(s.UpdateErr, id)
	case OpDelete:
		s.Deleting[id] = true
		delete(s.DeleteErr, id)
	}
}

// End clears the in-flight flag and records the outcome. A nil err marks
// success.
func (s *State) End(op Operation, id string, err *remote.Error) {
	switch op {
	case OpFetch:
		s.Fetching = false
		s.FetchErr = err
	case OpCreate:
		s.Creating = false
		s.CreateErr = err
	case OpUpdate:
		delete(s.Updating, id)
		if err != nil {
			s.UpdateErr[id] = err
		}
	case OpDelete:
		delete(s.Deleting, id)
		if err != nil {
			s.DeleteErr[id] = err
		}
	}
}

// ErrorFor returns the recorded error for an operation and entity id.
func (s State) ErrorFor(op Operation, id string) *remote.Error {
	switch op {
	case OpFetch:
		return s.FetchErr
	case OpCreate:
		return s.CreateErr
	case OpUpdate:
		return s.UpdateErr[id]
	case OpDelete:
		return s.DeleteErr[id]
	}
	return nil
}

// Busy reports whether any operation is in flight.
func (s State) Busy() bool {
	return s.Fetching || s.Creating || len(s.Updating) > 0 || len(s.Deleting) > 0
}

// Errors collects every recorded error, bulk operations first.
func (s State) Errors() []*remote.Error {
	var out []*remote.Error
	if s.FetchErr != nil {
		out = append(out, s.FetchErr)
	}
	if s.CreateErr != nil {
		out = append(out, s.CreateErr)
	}
	for _, err := range s.UpdateErr {
		out = append(out, err)
	}
	for _, err := range s.DeleteErr {
		out = append(out, err)
	}
	return out
}

// Clone returns an independent copy for read snapshots.
func (s State) Clone() State {
	out := New()
	out.Fetching = s.Fetching
	out.Creating = s.Creating
	out.FetchErr = s.FetchErr
	out.CreateErr = s.CreateErr
	for id, v := range s.Updating {
		out.Updating[id] = v
	}
	for id, v := range s.Deleting {
		out.Deleting[id] = v
	}
	for id, err := range s.UpdateErr {
		out.UpdateErr[id] = err
	}
	for id, err := range s.DeleteErr {
		out.DeleteErr[id] = err
	}
	return out
}
