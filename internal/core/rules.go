package core

import (
	"context"
	"fmt"

	"spreadsim/pkg/domain"
)

// Rule aliases the domain rule contract.
type Rule = domain.Rule

// RulesEngine orchestrates rule evaluation in registration order.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// NewDefaultRulesEngine builds a rules engine with the built-in transition
// rules in their fixed order: infection, quarantine, self-cure.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewInfectionRule())
	engine.Register(NewQuarantineRule())
	engine.Register(NewSelfCureRule())
	return engine
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	if rule == nil {
		return
	}
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rule names in evaluation order.
func (e *RulesEngine) Rules() []string {
	out := make([]string, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Name()
	}
	return out
}

// Evaluate executes all registered rules against the partition. Each rule's
// transitions are applied before the next rule runs, so later rules observe
// the categories produced by earlier ones.
func (e *RulesEngine) Evaluate(ctx context.Context, pop *Partition, rc domain.RuleContext) (domain.Result, error) {
	var combined domain.Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, pop, rc)
		if err != nil {
			return combined, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		if err := pop.Apply(res); err != nil {
			return combined, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
