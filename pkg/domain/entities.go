// Package domain defines the cached entities, value types, and rule
// evaluation primitives used by cachecore.
package domain

import (
	"fmt"
	"time"
)

// EntityType identifies the type of record held in a store.
type EntityType string

// Supported entity type identifiers used in Change records and snapshot buckets.
const (
	// EntityUser identifies a user record.
	EntityUser EntityType = "user"
	// EntityTask identifies a task record.
	EntityTask EntityType = "task"
)

// Entity is implemented by every cached record.
type Entity interface {
	EntityID() string
}

// Role enumerates the access roles assigned to users.
type Role string

// Canonical user roles recognised by selectors and the session collaborator.
const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// TaskStatus enumerates canonical task workflow states.
type TaskStatus string

// Canonical task statuses used for filtering and relationship indexes.
const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

// TaskPriority enumerates task urgency buckets.
type TaskPriority string

// Canonical task priorities.
const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Base contains common fields for all cached records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityID returns the record identifier.
func (b Base) EntityID() string { return b.ID }

// User represents a person known to the backend.
type User struct {
	Base
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Team   string `json:"team"`
	Active bool   `json:"active"`
}

// Clone returns an independent copy of the user.
func (u User) Clone() User { return u }

// Task represents a unit of work with RACI references into the user collection.
type Task struct {
	Base
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Status        TaskStatus   `json:"status"`
	Priority      TaskPriority `json:"priority"`
	AssigneeID    *string      `json:"assignee_id"`
	ResponsibleID *string      `json:"responsible_id"`
	AccountableID *string      `json:"accountable_id"`
	DueDate       *time.Time   `json:"due_date"`
	Tags          []string     `json:"tags"`
}

// Clone returns an independent copy of the task.
func (t Task) Clone() Task {
	cp := t
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		cp.AssigneeID = &id
	}
	if t.ResponsibleID != nil {
		id := *t.ResponsibleID
		cp.ResponsibleID = &id
	}
	if t.AccountableID != nil {
		id := *t.AccountableID
		cp.AccountableID = &id
	}
	if t.DueDate != nil {
		d := *t.DueDate
		cp.DueDate = &d
	}
	cp.Tags = append([]string(nil), t.Tags...)
	return cp
}

// ReferenceField names a task field holding a user reference.
type ReferenceField string

// Task fields carrying foreign keys into the user collection.
const (
	FieldAssignee    ReferenceField = "assignee_id"
	FieldResponsible ReferenceField = "responsible_id"
	FieldAccountable ReferenceField = "accountable_id"
)

// Reference returns the user id held by the named field, if any.
func (t Task) Reference(field ReferenceField) *string {
	switch field {
	case FieldAssignee:
		return t.AssigneeID
	case FieldResponsible:
		return t.ResponsibleID
	case FieldAccountable:
		return t.AccountableID
	}
	return nil
}

// Change describes a mutation applied to an entity within a store.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured for subscribers.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine repair behavior and logging.
const (
	// SeverityBlock marks issues that make the cache unusable as-is.
	SeverityBlock Severity = "block"
	// SeverityWarn marks issues that are repairable or informational.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
	// Field names the dangling reference field when the violation is
	// repairable by clearing it; empty otherwise.
	Field ReferenceField
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "consistency check reported blocking violations"
}

// ErrNotFound reports an entity id unknown to the local cache.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}
