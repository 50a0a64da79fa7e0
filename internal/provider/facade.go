package provider

import (
	"context"

	"cachecore/internal/store"
	"cachecore/pkg/domain"
)

// Actions is the mutating surface callers use. It covers entity CRUD on both
// collections plus cache maintenance, so consumers never touch the stores
// directly.
type Actions struct {
	p *Provider
}

// Actions returns the mutating facade.
func (p *Provider) Actions() Actions { return Actions{p: p} }

func (a Actions) CreateUser(ctx context.Context, user domain.User) store.OpResult[domain.User] {
	return a.p.users.Create(ctx, user)
}

func (a Actions) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) store.OpResult[domain.User] {
	return a.p.users.Update(ctx, id, patch)
}

func (a Actions) DeleteUser(ctx context.Context, id string) store.OpResult[domain.User] {
	return a.p.users.Delete(ctx, id)
}

func (a Actions) CreateTask(ctx context.Context, task domain.Task) store.OpResult[domain.Task] {
	return a.p.tasks.Create(ctx, task)
}

func (a Actions) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) store.OpResult[domain.Task] {
	return a.p.tasks.Update(ctx, id, patch)
}

func (a Actions) AssignTask(ctx context.Context, id string, assignee *string) store.OpResult[domain.Task] {
	return a.p.tasks.Assign(ctx, id, assignee)
}

func (a Actions) DeleteTask(ctx context.Context, id string) store.OpResult[domain.Task] {
	return a.p.tasks.Delete(ctx, id)
}

// Refresh forces both collections to reload.
func (a Actions) Refresh(ctx context.Context) error { return a.p.Refresh(ctx) }

// ClearCaches marks both collections stale without dropping data.
func (a Actions) ClearCaches() { a.p.ClearCaches() }

// Selectors is the read-only surface over the cached state. All results are
// cloned values; mutating them never changes the cache.
type Selectors struct {
	p *Provider
}

// Selectors returns the read facade.
func (p *Provider) Selectors() Selectors { return Selectors{p: p} }

func (s Selectors) User(id string) (domain.User, bool) { return s.p.users.GetByID(id) }

func (s Selectors) Users(f store.UserFilters) []domain.User { return s.p.users.GetFiltered(f) }

func (s Selectors) ActiveUsers() []domain.User { return s.p.users.Active() }

func (s Selectors) Teams() []string { return s.p.users.Teams() }

func (s Selectors) TeamMembers(team string) []string { return s.p.users.TeamMembers(team) }

func (s Selectors) UserStats() store.UserStats { return s.p.users.Stats() }

func (s Selectors) Task(id string) (domain.Task, bool) { return s.p.tasks.GetByID(id) }

func (s Selectors) Tasks(f store.TaskFilters) []domain.Task { return s.p.tasks.GetFiltered(f) }

func (s Selectors) TasksForUser(userID string) []string { return s.p.tasks.ByUser(userID) }

func (s Selectors) TasksByStatus(status domain.TaskStatus) []string {
	return s.p.tasks.ByStatus(status)
}

// HydratedTask resolves the task's references against the cached users.
func (s Selectors) HydratedTask(id string) (store.TaskView, bool) {
	task, ok := s.p.tasks.GetByID(id)
	if !ok {
		return store.TaskView{}, false
	}
	return s.p.tasks.Hydrate(task), true
}
