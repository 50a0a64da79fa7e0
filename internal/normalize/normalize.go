// Package normalize converts entity collections to and from the canonical
// map-plus-order-list representation shared by every store.
package normalize

import (
	"fmt"
	"sort"
	"time"

	"cachecore/pkg/domain"
)

// State is the normalized representation of one collection: an id-to-entity
// map plus the ordered id list that defines display order. Every id in AllIDs
// must have an entry in ByID and vice versa.
type State[E domain.Entity] struct {
	ByID   map[string]E
	AllIDs []string
}

// NewState returns an empty normalized state.
func NewState[E domain.Entity]() State[E] {
	return State[E]{ByID: make(map[string]E)}
}

// Normalize converts a slice of entities into normalized form. Duplicate ids
// overwrite earlier values in ByID while AllIDs keeps only the first-seen
// position: last write wins on value, first seen wins on order.
func Normalize[E domain.Entity](entities []E) State[E] {
	state := State[E]{
		ByID:   make(map[string]E, len(entities)),
		AllIDs: make([]string, 0, len(entities)),
	}
	for _, entity := range entities {
		id := entity.EntityID()
		if _, seen := state.ByID[id]; !seen {
			state.AllIDs = append(state.AllIDs, id)
		}
		state.ByID[id] = entity
	}
	return state
}

// Denormalize produces entities in AllIDs order, silently skipping ids with
// no ByID entry. It never fails; a partial delete yields a shorter slice.
func (s State[E]) Denormalize() []E {
	out := make([]E, 0, len(s.AllIDs))
	for _, id := range s.AllIDs {
		if entity, ok := s.ByID[id]; ok {
			out = append(out, entity)
		}
	}
	return out
}

// Get returns the entity for id.
func (s State[E]) Get(id string) (E, bool) {
	entity, ok := s.ByID[id]
	return entity, ok
}

// Len returns the number of ids in the collection.
func (s State[E]) Len() int { return len(s.AllIDs) }

// Upsert inserts or replaces a single entity. The id is appended to AllIDs
// only when not already present, so no duplicate ids can enter the order list.
func (s *State[E]) Upsert(entity E) {
	id := entity.EntityID()
	if s.ByID == nil {
		s.ByID = make(map[string]E)
	}
	if _, exists := s.ByID[id]; !exists {
		s.AllIDs = append(s.AllIDs, id)
	}
	s.ByID[id] = entity
}

// Remove deletes a single entity from both ByID and AllIDs.
func (s *State[E]) Remove(id string) {
	if _, exists := s.ByID[id]; !exists {
		return
	}
	delete(s.ByID, id)
	for i, existing := range s.AllIDs {
		if existing == id {
			s.AllIDs = append(s.AllIDs[:i], s.AllIDs[i+1:]...)
			break
		}
	}
}

// Clone returns an independent copy of the state using the supplied entity
// clone function.
func (s State[E]) Clone(cloneEntity func(E) E) State[E] {
	out := State[E]{
		ByID:   make(map[string]E, len(s.ByID)),
		AllIDs: append([]string(nil), s.AllIDs...),
	}
	for id, entity := range s.ByID {
		out.ByID[id] = cloneEntity(entity)
	}
	return out
}

// Check verifies the AllIDs/ByID bijection and returns a description of the
// first divergence found, or an empty string when the state is consistent.
func (s State[E]) Check() string {
	seen := make(map[string]struct{}, len(s.AllIDs))
	for _, id := range s.AllIDs {
		if _, dup := seen[id]; dup {
			return fmt.Sprintf("id %q appears more than once in order list", id)
		}
		seen[id] = struct{}{}
		if _, ok := s.ByID[id]; !ok {
			return fmt.Sprintf("id %q present in order list but missing from map", id)
		}
	}
	for id := range s.ByID {
		if _, ok := seen[id]; !ok {
			return fmt.Sprintf("id %q present in map but missing from order list", id)
		}
	}
	return ""
}

// Filter returns entities matching the predicate, preserving order.
func Filter[E domain.Entity](entities []E, keep func(E) bool) []E {
	out := make([]E, 0, len(entities))
	for _, entity := range entities {
		if keep(entity) {
			out = append(out, entity)
		}
	}
	return out
}

// Direction selects sort order.
type Direction int

// Sort directions.
const (
	Ascending Direction = iota
	Descending
)

// SortBy sorts entities with a stable total-order comparator. less must
// report strict field ordering; equal elements keep their relative positions.
func SortBy[E domain.Entity](entities []E, less func(a, b E) bool, dir Direction) []E {
	out := append([]E(nil), entities...)
	sort.SliceStable(out, func(i, j int) bool {
		if dir == Descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

// Paginate returns the page at offset/limit, clamped to the slice bounds.
// A non-positive limit returns everything from offset.
func Paginate[E domain.Entity](entities []E, offset, limit int) []E {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entities) {
		return nil
	}
	end := len(entities)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return entities[offset:end]
}

// CacheValid reports whether a bulk fetch performed at lastFetch is still
// fresh at now. A nil lastFetch is always stale, and the boundary is
// exclusive: an age exactly equal to ttl is stale.
func CacheValid(lastFetch *time.Time, ttl time.Duration, now time.Time) bool {
	if lastFetch == nil {
		return false
	}
	return now.Sub(*lastFetch) < ttl
}
