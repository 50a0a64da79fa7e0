package domain

import "context"

// RuleView provides read-only access to cached entities for rule evaluation.
type RuleView interface {
	ListUsers() []User
	ListTasks() []Task
	FindUser(id string) (User, bool)
	FindTask(id string) (Task, bool)
	// CollectionIDs returns the raw ordered id list for a collection so rules
	// can detect duplicates that map-backed listings would hide.
	CollectionIDs(entity EntityType) []string
}

// Rule defines a consistency evaluation executed over the cached state.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
