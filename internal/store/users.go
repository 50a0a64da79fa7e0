package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"cachecore/internal/bus"
	"cachecore/internal/logging"
	"cachecore/internal/normalize"
	"cachecore/internal/observability"
	"cachecore/internal/opstate"
	"cachecore/internal/optimistic"
	"cachecore/internal/remote"
	"cachecore/pkg/domain"
)

// UserFilters selects a subset of the user collection. Zero-value fields do
// not constrain; all set fields must match.
type UserFilters struct {
	Role domain.Role
	Team string
	// Search matches Name or Email, case-insensitively.
	Search string
}

// UserStats summarises the cached collection.
type UserStats struct {
	Total  int
	Active int
	ByRole map[domain.Role]int
}

// Users is the typed user store: the generic engine plus the team index and
// the bus events other stores react to.
type Users struct {
	engine *Store[domain.User, domain.UserPatch]
	events *bus.Bus
	log    logging.Logger

	mu sync.Mutex
	// teamMembers maps team name to member ids in display order. Rebuilt from
	// scratch after every confirmed change rather than patched in place.
	teamMembers map[string][]string
}

// UsersOptions configures user store construction.
type UsersOptions struct {
	Source     remote.Source[domain.User, domain.UserPatch]
	Cache      CacheConfig
	Optimistic optimistic.Options
	Reporter   remote.Reporter
	Bus        *bus.Bus
	Logger     logging.Logger
	Metrics    observability.MetricsRecorder
	Clock      func() time.Time
}

// NewUsers constructs the user store.
func NewUsers(opts UsersOptions) *Users {
	if opts.Bus == nil {
		opts.Bus = bus.New()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Noop{}
	}
	u := &Users{
		events:      opts.Bus,
		log:         opts.Logger,
		teamMembers: make(map[string][]string),
	}
	u.engine = New(Options[domain.User, domain.UserPatch]{
		Entity:     domain.EntityUser,
		Source:     opts.Source,
		Cache:      opts.Cache,
		Optimistic: opts.Optimistic,
		Logger:     opts.Logger,
		Metrics:    opts.Metrics,
		Reporter:   opts.Reporter,
		Clock:      opts.Clock,
		Notify:     u.onChanges,
	})
	return u
}

// FetchAll loads the user collection, serving from cache within the TTL.
func (u *Users) FetchAll(ctx context.Context, force bool) ListResult[domain.User] {
	return u.engine.FetchAll(ctx, force)
}

// FetchMore loads the next page.
func (u *Users) FetchMore(ctx context.Context) ListResult[domain.User] {
	return u.engine.FetchMore(ctx)
}

// FetchOne loads one user, serving from cache within the profile max age.
func (u *Users) FetchOne(ctx context.Context, id string, force bool) OpResult[domain.User] {
	return u.engine.FetchOne(ctx, id, force)
}

// Create sends a new user to the collaborator. Creation is never optimistic.
func (u *Users) Create(ctx context.Context, user domain.User) OpResult[domain.User] {
	return u.engine.Create(ctx, user)
}

// Update applies the patch optimistically and reconciles.
func (u *Users) Update(ctx context.Context, id string, patch domain.UserPatch) OpResult[domain.User] {
	return u.engine.Update(ctx, id, patch)
}

// Delete removes the user optimistically and reconciles.
func (u *Users) Delete(ctx context.Context, id string) OpResult[domain.User] {
	return u.engine.Delete(ctx, id)
}

// GetByID returns the cached user.
func (u *Users) GetByID(id string) (domain.User, bool) { return u.engine.GetByID(id) }

// List returns every cached user in display order.
func (u *Users) List() []domain.User { return u.engine.List() }

// GetFiltered returns users matching all set filter fields, in display order.
func (u *Users) GetFiltered(f UserFilters) []domain.User {
	search := strings.ToLower(f.Search)
	return normalize.Filter(u.engine.List(), func(user domain.User) bool {
		if f.Role != "" && user.Role != f.Role {
			return false
		}
		if f.Team != "" && user.Team != f.Team {
			return false
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(user.Name), search) &&
			!strings.Contains(strings.ToLower(user.Email), search) {
			return false
		}
		return true
	})
}

// Active returns users with the active flag set, in display order.
func (u *Users) Active() []domain.User {
	return normalize.Filter(u.engine.List(), func(user domain.User) bool { return user.Active })
}

// TeamMembers returns the ids of the named team's members in display order.
func (u *Users) TeamMembers(team string) []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.teamMembers[team]...)
}

// Teams returns the known team names, sorted.
func (u *Users) Teams() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, 0, len(u.teamMembers))
	for team := range u.teamMembers {
		out = append(out, team)
	}
	sort.Strings(out)
	return out
}

// Stats summarises the cached collection.
func (u *Users) Stats() UserStats {
	stats := UserStats{ByRole: make(map[domain.Role]int)}
	for _, user := range u.engine.List() {
		stats.Total++
		if user.Active {
			stats.Active++
		}
		stats.ByRole[user.Role]++
	}
	return stats
}

// OpState snapshots in-flight flags and recorded errors.
func (u *Users) OpState() opstate.State { return u.engine.OpState() }

// Invalidate clears cache validity and announces it on the bus.
func (u *Users) Invalidate() {
	u.engine.Invalidate()
	u.events.Emit(bus.CacheInvalidated, bus.Invalidation{Entity: domain.EntityUser})
}

// Engine exposes the generic store for snapshot restore and invariant checks.
func (u *Users) Engine() *Store[domain.User, domain.UserPatch] { return u.engine }

// Close rolls back pending optimistic mutations.
func (u *Users) Close() { u.engine.Close() }

// onChanges runs after the engine releases its lock: the team index is
// rebuilt from current state and confirmed mutations are published.
func (u *Users) onChanges(changes []domain.Change) {
	u.rebuildIndex()
	for _, change := range changes {
		switch change.Action {
		case domain.ActionUpdate:
			if change.After == nil {
				continue
			}
			u.events.Emit(bus.UserUpdated, u.payload(change))
		case domain.ActionCreate:
			u.events.Emit(bus.UserUpdated, u.payload(change))
		case domain.ActionDelete:
			u.events.Emit(bus.UserDeleted, u.payload(change))
		}
	}
}

func (u *Users) payload(change domain.Change) bus.UserChange {
	out := bus.UserChange{Action: change.Action}
	if user, ok := change.Before.(domain.User); ok {
		out.ID = user.EntityID()
		if p, err := domain.NewChangePayloadFromValue(user); err == nil {
			out.Before = p
		} else {
			u.log.Error("encode user change payload", "id", user.EntityID(), "error", err.Error())
		}
	}
	if user, ok := change.After.(domain.User); ok {
		out.ID = user.EntityID()
		if p, err := domain.NewChangePayloadFromValue(user); err == nil {
			out.After = p
		} else {
			u.log.Error("encode user change payload", "id", user.EntityID(), "error", err.Error())
		}
	}
	return out
}

func (u *Users) rebuildIndex() {
	members := make(map[string][]string)
	for _, user := range u.engine.List() {
		if user.Team == "" {
			continue
		}
		members[user.Team] = append(members[user.Team], user.EntityID())
	}
	u.mu.Lock()
	u.teamMembers = members
	u.mu.Unlock()
}
