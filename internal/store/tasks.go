package store

import (
	"context"
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

// DueWindow buckets tasks by proximity of their due date.
type DueWindow string

// Due date buckets accepted by TaskFilters.
const (
	DueAny      DueWindow = ""
	DueOverdue  DueWindow = "overdue"
	DueToday    DueWindow = "today"
	DueThisWeek DueWindow = "week"
	DueNone     DueWindow = "none"
)

// TaskFilters selects a subset of the task collection. Zero-value fields do
// not constrain; all set fields must match.
type TaskFilters struct {
	Status     domain.TaskStatus
	AssigneeID string
	Due        DueWindow
	// Search matches Title or Description, case-insensitively.
	Search string
}

// TaskView is a task hydrated with its resolved users. Hydration happens at
// read time from the user store; resolved users are never written back into
// task state.
type TaskView struct {
	domain.Task
	Assignee    *domain.User
	Responsible *domain.User
	Accountable *domain.User
}

// UserLookup resolves a user id against the user store's current cache.
type UserLookup func(id string) (domain.User, bool)

// Tasks is the typed task store: the generic engine plus relationship
// indexes, read-time hydration, and the user-deletion repair subscription.
type Tasks struct {
	engine *Store[domain.Task, domain.TaskPatch]
	events *bus.Bus
	log    logging.Logger
	lookup UserLookup
	clock  func() time.Time

	mu sync.Mutex
	// byUser maps a user id to the ids of tasks referencing it through any
	// RACI field. byStatus groups task ids per workflow state. Both are
	// rebuilt from scratch after every confirmed change.
	byUser   map[string][]string
	byStatus map[domain.TaskStatus][]string

	unsubscribe func()
}

// TasksOptions configures task store construction.
type TasksOptions struct {
	Source     remote.Source[domain.Task, domain.TaskPatch]
	Cache      CacheConfig
	Optimistic optimistic.Options
	Reporter   remote.Reporter
	Bus        *bus.Bus
	Users      UserLookup
	Logger     logging.Logger
	Metrics    observability.MetricsRecorder
	Clock      func() time.Time
}

// NewTasks constructs the task store and subscribes it to user deletions so
// dangling references are cleared as soon as the deletion is confirmed.
func NewTasks(opts TasksOptions) *Tasks {
	if opts.Bus == nil {
		opts.Bus = bus.New()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Noop{}
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	t := &Tasks{
		events:   opts.Bus,
		log:      opts.Logger,
		lookup:   opts.Users,
		clock:    opts.Clock,
		byUser:   make(map[string][]string),
		byStatus: make(map[domain.TaskStatus][]string),
	}
	t.engine = New(Options[domain.Task, domain.TaskPatch]{
		Entity:     domain.EntityTask,
		Source:     opts.Source,
		Cache:      opts.Cache,
		Optimistic: opts.Optimistic,
		Logger:     opts.Logger,
		Metrics:    opts.Metrics,
		Reporter:   opts.Reporter,
		Clock:      opts.Clock,
		Notify:     t.onChanges,
	})
	t.unsubscribe = opts.Bus.On(bus.UserDeleted, t.onUserDeleted)
	return t
}

// FetchAll loads the task collection, serving from cache within the TTL.
func (t *Tasks) FetchAll(ctx context.Context, force bool) ListResult[domain.Task] {
	return t.engine.FetchAll(ctx, force)
}

// FetchMore loads the next page.
func (t *Tasks) FetchMore(ctx context.Context) ListResult[domain.Task] {
	return t.engine.FetchMore(ctx)
}

// FetchOne loads one task, serving from cache within the profile max age.
func (t *Tasks) FetchOne(ctx context.Context, id string, force bool) OpResult[domain.Task] {
	return t.engine.FetchOne(ctx, id, force)
}

// Create sends a new task to the collaborator. Creation is never optimistic.
func (t *Tasks) Create(ctx context.Context, task domain.Task) OpResult[domain.Task] {
	return t.engine.Create(ctx, task)
}

// Update applies the patch optimistically and reconciles.
func (t *Tasks) Update(ctx context.Context, id string, patch domain.TaskPatch) OpResult[domain.Task] {
	return t.engine.Update(ctx, id, patch)
}

// Assign is a convenience wrapper setting or clearing the assignee.
func (t *Tasks) Assign(ctx context.Context, id string, assignee *string) OpResult[domain.Task] {
	patch := domain.TaskPatch{AssigneeID: domain.ClearID()}
	if assignee != nil {
		patch.AssigneeID = domain.SetID(*assignee)
	}
	return t.engine.Update(ctx, id, patch)
}

// Delete removes the task optimistically and reconciles.
func (t *Tasks) Delete(ctx context.Context, id string) OpResult[domain.Task] {
	return t.engine.Delete(ctx, id)
}

// GetByID returns the cached task.
func (t *Tasks) GetByID(id string) (domain.Task, bool) { return t.engine.GetByID(id) }

// List returns every cached task in display order.
func (t *Tasks) List() []domain.Task { return t.engine.List() }

// GetFiltered returns tasks matching all set filter fields, in display order.
func (t *Tasks) GetFiltered(f TaskFilters) []domain.Task {
	search := strings.ToLower(f.Search)
	now := t.clock()
	return normalize.Filter(t.engine.List(), func(task domain.Task) bool {
		if f.Status != "" && task.Status != f.Status {
			return false
		}
		if f.AssigneeID != "" && (task.AssigneeID == nil || *task.AssigneeID != f.AssigneeID) {
			return false
		}
		if !inDueWindow(task.DueDate, f.Due, now) {
			return false
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(task.Title), search) &&
			!strings.Contains(strings.ToLower(task.Description), search) {
			return false
		}
		return true
	})
}

// ByUser returns ids of tasks referencing the user through any RACI field.
func (t *Tasks) ByUser(userID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.byUser[userID]...)
}

// ByStatus returns ids of tasks in the given workflow state.
func (t *Tasks) ByStatus(status domain.TaskStatus) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.byStatus[status]...)
}

// Hydrate resolves the task's RACI references against the user cache. A
// reference whose user is not cached resolves to nil rather than failing.
func (t *Tasks) Hydrate(task domain.Task) TaskView {
	view := TaskView{Task: task}
	if t.lookup == nil {
		return view
	}
	view.Assignee = t.resolve(task.AssigneeID)
	view.Responsible = t.resolve(task.ResponsibleID)
	view.Accountable = t.resolve(task.AccountableID)
	return view
}

// HydrateAll resolves references for every task in the slice.
func (t *Tasks) HydrateAll(tasks []domain.Task) []TaskView {
	out := make([]TaskView, len(tasks))
	for i, task := range tasks {
		out[i] = t.Hydrate(task)
	}
	return out
}

// OpState snapshots in-flight flags and recorded errors.
func (t *Tasks) OpState() opstate.State { return t.engine.OpState() }

// Invalidate clears cache validity and announces it on the bus.
func (t *Tasks) Invalidate() {
	t.engine.Invalidate()
	t.events.Emit(bus.CacheInvalidated, bus.Invalidation{Entity: domain.EntityTask})
}

// Engine exposes the generic store for snapshot restore and invariant checks.
func (t *Tasks) Engine() *Store[domain.Task, domain.TaskPatch] { return t.engine }

// Close unsubscribes from the bus and rolls back pending optimistic mutations.
func (t *Tasks) Close() {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
	t.engine.Close()
}

func (t *Tasks) resolve(id *string) *domain.User {
	if id == nil {
		return nil
	}
	user, ok := t.lookup(*id)
	if !ok {
		return nil
	}
	return &user
}

// onChanges runs after the engine releases its lock: indexes are rebuilt from
// current state and assignee transitions are published. Clearing an assignee
// counts as an assignment change.
func (t *Tasks) onChanges(changes []domain.Change) {
	t.rebuildIndexes()
	for _, change := range changes {
		after, ok := change.After.(domain.Task)
		if !ok {
			continue
		}
		switch change.Action {
		case domain.ActionCreate:
			if after.AssigneeID != nil {
				t.events.Emit(bus.TaskAssigned, bus.TaskAssignment{TaskID: after.EntityID(), AssigneeID: after.AssigneeID})
			}
		case domain.ActionUpdate:
			before, hadBefore := change.Before.(domain.Task)
			if hadBefore && !sameRef(before.AssigneeID, after.AssigneeID) {
				t.events.Emit(bus.TaskAssigned, bus.TaskAssignment{TaskID: after.EntityID(), AssigneeID: after.AssigneeID})
			}
		}
	}
}

// onUserDeleted clears RACI references to the deleted user in local state
// only. The backend performs the same cleanup server-side, so no mutation is
// sent.
func (t *Tasks) onUserDeleted(payload any) {
	change, ok := payload.(bus.UserChange)
	if !ok || change.ID == "" {
		return
	}
	affected := t.ByUser(change.ID)
	for _, taskID := range affected {
		task, ok := t.engine.GetByID(taskID)
		if !ok {
			continue
		}
		if task.AssigneeID != nil && *task.AssigneeID == change.ID {
			task.AssigneeID = nil
		}
		if task.ResponsibleID != nil && *task.ResponsibleID == change.ID {
			task.ResponsibleID = nil
		}
		if task.AccountableID != nil && *task.AccountableID == change.ID {
			task.AccountableID = nil
		}
		t.engine.ApplyLocal(task)
	}
	if len(affected) > 0 {
		t.log.Info("cleared references to deleted user", "user_id", change.ID, "tasks", len(affected))
	}
}

func (t *Tasks) rebuildIndexes() {
	byUser := make(map[string][]string)
	byStatus := make(map[domain.TaskStatus][]string)
	for _, task := range t.engine.List() {
		id := task.EntityID()
		byStatus[task.Status] = append(byStatus[task.Status], id)
		for _, userID := range referencedUsers(task) {
			byUser[userID] = append(byUser[userID], id)
		}
	}
	t.mu.Lock()
	t.byUser = byUser
	t.byStatus = byStatus
	t.mu.Unlock()
}

// referencedUsers returns the distinct user ids a task references.
func referencedUsers(task domain.Task) []string {
	var out []string
	seen := make(map[string]struct{}, 3)
	for _, field := range []domain.ReferenceField{domain.FieldAssignee, domain.FieldResponsible, domain.FieldAccountable} {
		ref := task.Reference(field)
		if ref == nil {
			continue
		}
		if _, dup := seen[*ref]; dup {
			continue
		}
		seen[*ref] = struct{}{}
		out = append(out, *ref)
	}
	return out
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func inDueWindow(due *time.Time, window DueWindow, now time.Time) bool {
	switch window {
	case DueAny:
		return true
	case DueNone:
		return due == nil
	}
	if due == nil {
		return false
	}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch window {
	case DueOverdue:
		return due.Before(startOfDay)
	case DueToday:
		return !due.Before(startOfDay) && due.Before(startOfDay.AddDate(0, 0, 1))
	case DueThisWeek:
		return !due.Before(startOfDay) && due.Before(startOfDay.AddDate(0, 0, 7))
	}
	return true
}
