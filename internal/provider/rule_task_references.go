package provider

import (
	"context"
	"fmt"

	"cachecore/pkg/domain"
)

// TaskReferencesRule flags tasks whose RACI fields point at users absent from
// the user cache. Violations are warn severity and carry the dangling field
// so FixConsistencyIssues can clear exactly that reference.
func TaskReferencesRule() domain.Rule {
	return taskReferencesRule{}
}

type taskReferencesRule struct{}

func (taskReferencesRule) Name() string { return "task_references" }

func (taskReferencesRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	fields := []domain.ReferenceField{domain.FieldAssignee, domain.FieldResponsible, domain.FieldAccountable}
	for _, task := range view.ListTasks() {
		for _, field := range fields {
			ref := task.Reference(field)
			if ref == nil || *ref == "" {
				continue
			}
			if _, ok := view.FindUser(*ref); ok {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "task_references",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("task %s field %s references missing user %s", task.ID, field, *ref),
				Entity:   domain.EntityTask,
				EntityID: task.ID,
				Field:    field,
			})
		}
	}
	return res, nil
}
