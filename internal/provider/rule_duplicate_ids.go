package provider

import (
	"context"
	"fmt"

	"cachecore/pkg/domain"
)

// DuplicateIDsRule flags ids appearing more than once in a collection's order
// list. Normalization already applies keep-first ordering, so a duplicate here
// means the invariant between the id list and the entity map was broken; the
// violation blocks and is never auto-repaired.
func DuplicateIDsRule() domain.Rule {
	return duplicateIDsRule{}
}

type duplicateIDsRule struct{}

func (duplicateIDsRule) Name() string { return "duplicate_ids" }

func (duplicateIDsRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, entity := range []domain.EntityType{domain.EntityUser, domain.EntityTask} {
		seen := make(map[string]struct{})
		for _, id := range view.CollectionIDs(entity) {
			if _, dup := seen[id]; dup {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "duplicate_ids",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("%s id %s appears more than once in the collection order", entity, id),
					Entity:   entity,
					EntityID: id,
				})
				continue
			}
			seen[id] = struct{}{}
		}
	}
	return res, nil
}
