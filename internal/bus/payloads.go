package bus

import "cachecore/pkg/domain"

// UserChange is the payload for UserUpdated and UserDeleted. Before and
// After carry cloned JSON snapshots so subscribers cannot mutate store state.
type UserChange struct {
	ID     string
	Action domain.Action
	Before domain.ChangePayload
	After  domain.ChangePayload
}

// TaskAssignment is the payload for TaskAssigned.
type TaskAssignment struct {
	TaskID     string
	AssigneeID *string
}

// Invalidation is the payload for CacheInvalidated.
type Invalidation struct {
	Entity domain.EntityType
}
