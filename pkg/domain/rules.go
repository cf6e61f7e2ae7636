package domain

import "context"

// Rand is the randomness source rules draw from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Population provides rule access to the current category collections.
// Members returns live agents; rules may update counters on them but must
// express category changes as transitions.
type Population interface {
	Members(category Category) []*Agent
	Locate(id AgentID) (Category, bool)
}

// RuleContext carries the per-tick inputs shared by every rule.
type RuleContext struct {
	Tick   int
	Params Parameters
	Rand   Rand
	// Exposed lists susceptible agents whose exposure crossed the threshold
	// during this tick's proximity pass. Each agent appears at most once.
	Exposed []AgentID
}

// Rule evaluates one stage of the tick and returns the category transitions
// it decided on.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, pop Population, rc RuleContext) (Result, error)
}

// Transition moves one agent between categories.
type Transition struct {
	AgentID AgentID  `json:"agent_id"`
	From    Category `json:"from"`
	To      Category `json:"to"`
	Rule    string   `json:"rule"`
}

// Result aggregates the transitions emitted by one or more rules.
type Result struct {
	Transitions []Transition
}

// Merge appends transitions from another result.
func (r *Result) Merge(other Result) {
	r.Transitions = append(r.Transitions, other.Transitions...)
}

// Count returns how many transitions land in category to.
func (r Result) Count(to Category) int {
	n := 0
	for _, t := range r.Transitions {
		if t.To == to {
			n++
		}
	}
	return n
}
