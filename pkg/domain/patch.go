package domain

import "fmt"

// Patch describes a validated partial update for an entity. Apply returns the
// patched copy; implementations must reject values outside the entity's
// enumerations so callers cannot inject unknown state into a store.
type Patch[E Entity] interface {
	Apply(E) (E, error)
	// IsZero reports whether the patch carries no fields.
	IsZero() bool
}

// UserPatch carries optional replacement values for user fields.
type UserPatch struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Role   *Role   `json:"role,omitempty"`
	Team   *string `json:"team,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// IsZero reports whether no field is set.
func (p UserPatch) IsZero() bool {
	return p.Name == nil && p.Email == nil && p.Role == nil && p.Team == nil && p.Active == nil
}

// Apply merges the patch into a copy of the user.
func (p UserPatch) Apply(u User) (User, error) {
	if p.IsZero() {
		return User{}, fmt.Errorf("empty user patch")
	}
	out := u.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Email != nil {
		out.Email = *p.Email
	}
	if p.Role != nil {
		switch *p.Role {
		case RoleAdmin, RoleManager, RoleMember:
		default:
			return User{}, fmt.Errorf("unknown role %q", *p.Role)
		}
		out.Role = *p.Role
	}
	if p.Team != nil {
		out.Team = *p.Team
	}
	if p.Active != nil {
		out.Active = *p.Active
	}
	return out, nil
}

// OptionalID distinguishes "leave unchanged" (unset) from "clear" (set, nil value).
type OptionalID struct {
	set   bool
	value *string
}

// SetID returns an OptionalID replacing the reference with the given id.
func SetID(id string) OptionalID {
	return OptionalID{set: true, value: &id}
}

// ClearID returns an OptionalID clearing the reference.
func ClearID() OptionalID {
	return OptionalID{set: true}
}

// Set reports whether the patch field was provided at all.
func (o OptionalID) Set() bool { return o.set }

// Value returns the replacement reference; nil means clear.
func (o OptionalID) Value() *string {
	if o.value == nil {
		return nil
	}
	id := *o.value
	return &id
}

// TaskPatch carries optional replacement values for task fields.
type TaskPatch struct {
	Title         *string       `json:"title,omitempty"`
	Description   *string       `json:"description,omitempty"`
	Status        *TaskStatus   `json:"status,omitempty"`
	Priority      *TaskPriority `json:"priority,omitempty"`
	AssigneeID    OptionalID    `json:"assignee_id,omitzero"`
	ResponsibleID OptionalID    `json:"responsible_id,omitzero"`
	AccountableID OptionalID    `json:"accountable_id,omitzero"`
	DueDate       *string       `json:"due_date,omitempty"`
	Tags          *[]string     `json:"tags,omitempty"`
}

// IsZero reports whether no field is set.
func (p TaskPatch) IsZero() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && !p.AssigneeID.Set() && !p.ResponsibleID.Set() &&
		!p.AccountableID.Set() && p.DueDate == nil && p.Tags == nil
}

// ClearReference returns a patch clearing exactly one RACI field. It is the
// repair payload used when a consistency check finds a dangling reference.
func ClearReference(field ReferenceField) (TaskPatch, error) {
	var p TaskPatch
	switch field {
	case FieldAssignee:
		p.AssigneeID = ClearID()
	case FieldResponsible:
		p.ResponsibleID = ClearID()
	case FieldAccountable:
		p.AccountableID = ClearID()
	default:
		return TaskPatch{}, fmt.Errorf("unknown reference field %q", field)
	}
	return p, nil
}

// Apply merges the patch into a copy of the task.
func (p TaskPatch) Apply(t Task) (Task, error) {
	if p.IsZero() {
		return Task{}, fmt.Errorf("empty task patch")
	}
	out := t.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Status != nil {
		switch *p.Status {
		case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		default:
			return Task{}, fmt.Errorf("unknown task status %q", *p.Status)
		}
		out.Status = *p.Status
	}
	if p.Priority != nil {
		switch *p.Priority {
		case PriorityLow, PriorityMedium, PriorityHigh:
		default:
			return Task{}, fmt.Errorf("unknown task priority %q", *p.Priority)
		}
		out.Priority = *p.Priority
	}
	if p.AssigneeID.Set() {
		out.AssigneeID = p.AssigneeID.Value()
	}
	if p.ResponsibleID.Set() {
		out.ResponsibleID = p.ResponsibleID.Value()
	}
	if p.AccountableID.Set() {
		out.AccountableID = p.AccountableID.Value()
	}
	if p.DueDate != nil {
		due, err := parseDueDate(*p.DueDate)
		if err != nil {
			return Task{}, err
		}
		out.DueDate = due
	}
	if p.Tags != nil {
		out.Tags = append([]string(nil), (*p.Tags)...)
	}
	return out, nil
}
