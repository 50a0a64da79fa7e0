// Package store implements the normalized entity store engine: cached bulk
// and single-entity reads with TTL validity, optimistic mutations reconciled
// against the injected data-access collaborator, and pure selectors over the
// normalized state.
package store

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"cachecore/internal/logging"
	"cachecore/internal/normalize"
	"cachecore/internal/observability"
	"cachecore/internal/opstate"
	"cachecore/internal/optimistic"
	"cachecore/internal/remote"
	"cachecore/pkg/domain"
)

// Store owns one normalized entity collection. All state transitions are
// synchronous under a single mutex; the mutex is released around collaborator
// calls, and change notifications fire only after the lock is dropped so
// subscribers can safely read back into the store.
type Store[E domain.Record[E], P domain.Patch[E]] struct {
	entity   domain.EntityType
	source   remote.Source[E, P]
	cfg      CacheConfig
	log      logging.Logger
	metrics  observability.MetricsRecorder
	reporter remote.Reporter
	clock    func() time.Time

	mu        sync.Mutex
	state     normalize.State[E]
	ops       opstate.State
	lastFetch *time.Time
	hasMore   bool
	manager   *optimistic.Manager[E]
	profile   *lru.Cache[string, time.Time]

	// notify receives confirmed changes after the store lock is released.
	// Typed stores use it to rebuild relationship indexes and publish bus
	// events; it is never invoked for rolled-back mutations.
	notify func([]domain.Change)
}

// Options configures store construction.
type Options[E domain.Record[E], P domain.Patch[E]] struct {
	Entity     domain.EntityType
	Source     remote.Source[E, P]
	Cache      CacheConfig
	Optimistic optimistic.Options
	Logger     logging.Logger
	Metrics    observability.MetricsRecorder
	Reporter   remote.Reporter
	Clock      func() time.Time
	Notify     func([]domain.Change)
}

// New constructs a store for one entity collection.
func New[E domain.Record[E], P domain.Patch[E]](opts Options[E, P]) *Store[E, P] {
	if opts.Logger == nil {
		opts.Logger = logging.Noop{}
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.Noop{}
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	if opts.Reporter == nil {
		opts.Reporter = logReporter{log: opts.Logger}
	}
	cfg := opts.Cache.normalized()
	profile, err := lru.New[string, time.Time](cfg.MaxSize)
	if err != nil {
		panic(err) // MaxSize is normalized above; a failure here is a bug
	}
	s := &Store[E, P]{
		entity:   opts.Entity,
		source:   opts.Source,
		cfg:      cfg,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		reporter: opts.Reporter,
		clock:    opts.Clock,
		state:    normalize.NewState[E](),
		ops:      opstate.New(),
		profile:  profile,
		notify:   opts.Notify,
	}
	mgrOpts := opts.Optimistic
	mgrOpts.Logger = opts.Logger
	if mgrOpts.Clock == nil {
		mgrOpts.Clock = opts.Clock
	}
	s.manager = optimistic.NewManager[E](mgrOpts, s.handleExpiry)
	return s
}

// Entity returns the collection's entity type.
func (s *Store[E, P]) Entity() domain.EntityType { return s.entity }

// FetchAll returns the full collection. When the bulk cache is valid and
// force is false it is served from memory with no network call. On a
// collaborator failure existing data is left untouched; stale-but-present
// data is preferred over blanking the UI.
func (s *Store[E, P]) FetchAll(ctx context.Context, force bool) ListResult[E] {
	s.mu.Lock()
	if !force && normalize.CacheValid(s.lastFetch, s.cfg.TTL, s.clock()) {
		data := s.cloneAllLocked()
		s.mu.Unlock()
		s.metrics.CacheHit(string(s.entity), true)
		return ListResult[E]{OK: true, Data: data, Cached: true}
	}
	s.ops.Begin(opstate.OpFetch, "")
	s.mu.Unlock()
	s.metrics.CacheHit(string(s.entity), false)

	started := s.clock()
	params := remote.Params{}
	if s.cfg.PageSize > 0 {
		params.Limit = s.cfg.PageSize
	}
	entities, err := s.source.List(ctx, params)
	s.observe(ctx, "fetch_all", started, err)
	if err != nil {
		classified := s.classify(ctx, err)
		s.mu.Lock()
		s.ops.End(opstate.OpFetch, "", classified)
		s.mu.Unlock()
		s.log.Error("bulk fetch failed", "entity", string(s.entity), "kind", string(classified.Kind))
		return ListResult[E]{Err: classified}
	}

	s.mu.Lock()
	s.state = normalize.Normalize(cloneSlice(entities))
	now := s.clock()
	s.lastFetch = &now
	s.hasMore = s.cfg.PageSize > 0 && len(entities) == s.cfg.PageSize
	s.ops.End(opstate.OpFetch, "", nil)
	data := s.cloneAllLocked()
	s.mu.Unlock()

	s.fire(domain.Change{Entity: s.entity, Action: domain.ActionUpdate})
	return ListResult[E]{OK: true, Data: data}
}

// FetchMore appends the next page to the collection. It reports hasMore
// through HasMore after completion.
func (s *Store[E, P]) FetchMore(ctx context.Context) ListResult[E] {
	s.mu.Lock()
	if s.cfg.PageSize <= 0 || !s.hasMore {
		data := s.cloneAllLocked()
		s.mu.Unlock()
		return ListResult[E]{OK: true, Data: data, Cached: true}
	}
	offset := s.state.Len()
	s.ops.Begin(opstate.OpFetch, "")
	s.mu.Unlock()

	started := s.clock()
	entities, err := s.source.List(ctx, remote.Params{Offset: offset, Limit: s.cfg.PageSize})
	s.observe(ctx, "fetch_more", started, err)
	if err != nil {
		classified := s.classify(ctx, err)
		s.mu.Lock()
		s.ops.End(opstate.OpFetch, "", classified)
		s.mu.Unlock()
		return ListResult[E]{Err: classified}
	}

	s.mu.Lock()
	for _, entity := range entities {
		s.state.Upsert(entity.Clone())
	}
	s.hasMore = len(entities) == s.cfg.PageSize
	s.ops.End(opstate.OpFetch, "", nil)
	data := s.cloneAllLocked()
	s.mu.Unlock()

	s.fire(domain.Change{Entity: s.entity, Action: domain.ActionUpdate})
	return ListResult[E]{OK: true, Data: data}
}

// FetchOne returns one entity, served from cache when it is present and its
// last fetch is within MaxAge.
func (s *Store[E, P]) FetchOne(ctx context.Context, id string, force bool) OpResult[E] {
	s.mu.Lock()
	if !force {
		if entity, ok := s.state.Get(id); ok {
			if fetchedAt, seen := s.profile.Get(id); seen {
				at := fetchedAt
				if normalize.CacheValid(&at, s.cfg.MaxAge, s.clock()) {
					out := entity.Clone()
					s.mu.Unlock()
					s.metrics.CacheHit(string(s.entity), true)
					return OpResult[E]{OK: true, Data: out, Cached: true}
				}
			} else if normalize.CacheValid(s.lastFetch, s.cfg.TTL, s.clock()) {
				// Present via a fresh bulk fetch counts as cached too.
				out := entity.Clone()
				s.mu.Unlock()
				s.metrics.CacheHit(string(s.entity), true)
				return OpResult[E]{OK: true, Data: out, Cached: true}
			}
		}
	}
	s.ops.Begin(opstate.OpFetch, "")
	s.mu.Unlock()
	s.metrics.CacheHit(string(s.entity), false)

	started := s.clock()
	entity, err := s.source.Get(ctx, id)
	s.observe(ctx, "fetch_one", started, err)
	if err != nil {
		classified := s.classify(ctx, err)
		s.mu.Lock()
		s.ops.End(opstate.OpFetch, "", classified)
		s.mu.Unlock()
		return OpResult[E]{Err: classified}
	}

	s.mu.Lock()
	s.state.Upsert(entity.Clone())
	s.profile.Add(id, s.clock())
	s.ops.End(opstate.OpFetch, "", nil)
	out := entity.Clone()
	s.mu.Unlock()

	s.fire(domain.Change{Entity: s.entity, Action: domain.ActionUpdate, After: out.Clone()})
	return OpResult[E]{OK: true, Data: out}
}

// Create sends the payload to the collaborator and upserts the authoritative
// response. There is no optimistic insert: new entities lack a server-assigned
// id to key a speculative record on.
func (s *Store[E, P]) Create(ctx context.Context, payload E) OpResult[E] {
	s.mu.Lock()
	s.ops.Begin(opstate.OpCreate, "")
	s.mu.Unlock()

	started := s.clock()
	created, err := s.source.Create(ctx, payload)
	s.observe(ctx, "create", started, err)
	if err != nil {
		classified := s.classify(ctx, err)
		s.mu.Lock()
		s.ops.End(opstate.OpCreate, "", classified)
		s.mu.Unlock()
		return OpResult[E]{Err: classified}
	}

	s.mu.Lock()
	s.state.Upsert(created.Clone())
	s.profile.Add(created.EntityID(), s.clock())
	s.ops.End(opstate.OpCreate, "", nil)
	out := created.Clone()
	s.mu.Unlock()

	s.fire(domain.Change{Entity: s.entity, Action: domain.ActionCreate, After: out.Clone()})
	return OpResult[E]{OK: true, Data: out}
}

// Update applies the patch optimistically, then reconciles with the
// collaborator. Unknown ids fail fast without a network call. On failure the
// pre-update snapshot is restored exactly.
func (s *Store[E, P]) Update(ctx context.Context, id string, patch P) OpResult[E] {
	s.mu.Lock()
	current, ok := s.state.Get(id)
	if !ok {
		s.mu.Unlock()
		return OpResult[E]{Err: s.classify(ctx, domain.ErrNotFound{Entity: s.entity, ID: id})}
	}
	original := current.Clone()
	speculative, err := patch.Apply(original)
	if err != nil {
		s.mu.Unlock()
		return OpResult[E]{Err: s.classify(ctx, remote.NewStatusError(422, err.Error()))}
	}
	if s.manager.Add(id, optimistic.KindUpdate, speculative.Clone(), original.Clone()) {
		s.state.Upsert(speculative.Clone())
	}
	s.ops.Begin(opstate.OpUpdate, id)
	s.mu.Unlock()

	started := s.clock()
	authoritative, err := s.source.Update(ctx, id, patch)
	s.observe(ctx, "update", started, err)
	if err != nil {
		classified := s.classify(ctx, err)
		s.mu.Lock()
		if restored, pending := s.manager.Rollback(id); pending {
			s.state.Upsert(restored.Clone())
		}
		s.ops.End(opstate.OpUpdate, id, classified)
		s.mu.Unlock()
		s.log.Warn("update rolled back", "entity", string(s.entity), "id", id, "kind", string(classified.Kind))
		return OpResult[E]{Err: classified}
	}

	s.mu.Lock()
	s.manager.Confirm(id)
	s.state.Upsert(authoritative.Clone())
	s.profile.Add(id, s.clock())
	s.ops.End(opstate.OpUpdate, id, nil)
	out := authoritative.Clone()
	s.mu.Unlock()

	s.fire(domain.Change{Entity: s.entity, Action: domain.ActionUpdate, Before: original, After: out.Clone()})
	return OpResult[E]{OK: true, Data: out}
}

// Delete removes the entity optimistically and reconciles with the
// collaborator, reinserting the exact removed value on failure.
func (s *Store[E, P]) Delete(ctx context.Context, id string) OpResult[E] {
	s.mu.Lock()
	current, ok := s.state.Get(id)
	if !ok {
		s.mu.Unlock()
		return OpResult[E]{Err: s.classify(ctx, domain.ErrNotFound{Entity: s.entity, ID: id})}
	}
	original := current.Clone()
	var zero E
	if s.manager.Add(id, optimistic.KindDelete, zero, original.Clone()) {
		s.state.Remove(id)
		s.profile.Remove(id)
	}
	s.ops.Begin(opstate.OpDelete, id)
	s.mu.Unlock()

	started := s.clock()
	err := s.source.Delete(ctx, id)
	s.observe(ctx, "delete", started, err)
	if err != nil {
		classified := s.classify(ctx, err)
		s.mu.Lock()
		if restored, pending := s.manager.Rollback(id); pending {
			s.state.Upsert(restored.Clone())
		}
		s.ops.End(opstate.OpDelete, id, classified)
		s.mu.Unlock()
		return OpResult[E]{Err: classified}
	}

	s.mu.Lock()
	s.manager.Confirm(id)
	s.ops.End(opstate.OpDelete, id, nil)
	s.mu.Unlock()

	s.fire(domain.Change{Entity: s.entity, Action: domain.ActionDelete, Before: original})
	return OpResult[E]{OK: true, Data: original}
}

// GetByID is a pure read over current state.
func (s *Store[E, P]) GetByID(id string) (E, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, ok := s.state.Get(id)
	if !ok {
		var zero E
		return zero, false
	}
	return entity.Clone(), true
}

// List returns the collection in display order.
func (s *Store[E, P]) List() []E {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneAllLocked()
}

// IDs returns the raw ordered id list.
func (s *Store[E, P]) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.state.AllIDs...)
}

// Len reports the number of cached entities.
func (s *Store[E, P]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Len()
}

// HasMore reports whether additional pages exist server-side.
func (s *Store[E, P]) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Fresh reports whether the bulk cache is currently within its TTL.
func (s *Store[E, P]) Fresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return normalize.CacheValid(s.lastFetch, s.cfg.TTL, s.clock())
}

// OpState returns a snapshot of the in-flight flags and recorded errors.
func (s *Store[E, P]) OpState() opstate.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops.Clone()
}

// Invalidate clears cache validity so the next FetchAll goes to the network.
// Cached data itself is retained.
func (s *Store[E, P]) Invalidate() {
	s.mu.Lock()
	s.lastFetch = nil
	s.profile.Purge()
	s.mu.Unlock()
}

// ApplyLocal upserts an entity without a collaborator round trip. It exists
// for bus-driven repairs (e.g. clearing references after a foreign deletion)
// and for snapshot restore; the change is reported through notify.
func (s *Store[E, P]) ApplyLocal(entity E) {
	s.mu.Lock()
	change := domain.Change{Entity: s.entity, Action: domain.ActionUpdate, After: entity.Clone()}
	if before, ok := s.state.Get(entity.EntityID()); ok {
		change.Before = before.Clone()
	}
	s.state.Upsert(entity.Clone())
	s.mu.Unlock()
	s.fire(change)
}

// Close rolls back every pending optimistic mutation and restores the
// originals, so no orphaned speculative state survives teardown.
func (s *Store[E, P]) Close() {
	rolled := s.manager.Close()
	if len(rolled) == 0 {
		return
	}
	s.mu.Lock()
	for _, up := range rolled {
		s.state.Upsert(up.Original.Clone())
	}
	s.mu.Unlock()
}

// CheckInvariant reports the first AllIDs/ByID divergence, or "".
func (s *Store[E, P]) CheckInvariant() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Check()
}

// handleExpiry restores the original snapshot when an optimistic record
// times out unconfirmed. Callers cannot distinguish this from an explicit
// failure: both roll back and record a timeout error.
func (s *Store[E, P]) handleExpiry(up optimistic.Update[E]) {
	classified := s.classify(context.Background(), context.DeadlineExceeded)
	s.mu.Lock()
	s.state.Upsert(up.Original.Clone())
	switch up.Kind {
	case optimistic.KindDelete:
		s.ops.End(opstate.OpDelete, up.ID, classified)
	default:
		s.ops.End(opstate.OpUpdate, up.ID, classified)
	}
	s.mu.Unlock()
}

func (s *Store[E, P]) cloneAllLocked() []E {
	out := make([]E, 0, s.state.Len())
	for _, id := range s.state.AllIDs {
		if entity, ok := s.state.Get(id); ok {
			out = append(out, entity.Clone())
		}
	}
	return out
}

func (s *Store[E, P]) fire(change domain.Change) {
	if s.notify != nil {
		s.notify([]domain.Change{change})
	}
}

// classify converts a collaborator rejection into the uniform error shape.
// Critical rejections are reported out of band immediately instead of
// waiting in the operation records.
func (s *Store[E, P]) classify(ctx context.Context, err error) *remote.Error {
	classified := remote.Classify(err)
	if classified != nil && classified.Severity == remote.SeverityCritical {
		s.reporter.Report(ctx, classified)
	}
	return classified
}

// logReporter is the default escalation path: critical rejections go
// straight to the error log.
type logReporter struct {
	log logging.Logger
}

func (r logReporter) Report(_ context.Context, err *remote.Error) {
	r.log.Error("critical rejection", "kind", string(err.Kind), "status", err.Status, "message", err.Message)
}

func (s *Store[E, P]) observe(ctx context.Context, op string, started time.Time, err error) {
	s.metrics.Observe(ctx, string(s.entity)+"."+op, err == nil, s.clock().Sub(started))
}

func cloneSlice[E domain.Record[E]](entities []E) []E {
	out := make([]E, len(entities))
	for i, entity := range entities {
		out[i] = entity.Clone()
	}
	return out
}
