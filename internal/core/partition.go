package core

import (
	"fmt"

	"spreadsim/pkg/domain"
)

// Partition holds every agent in exactly one category collection. Category
// changes are applied by rebuilding the affected collections from stable
// identities, so no rule ever deletes by index.
type Partition struct {
	members map[domain.Category][]*domain.Agent
	index   map[domain.AgentID]domain.Category
}

var _ domain.Population = (*Partition)(nil)

// NewPartition returns an empty partition.
func NewPartition() *Partition {
	return &Partition{
		members: make(map[domain.Category][]*domain.Agent, len(domain.Categories())),
		index:   make(map[domain.AgentID]domain.Category),
	}
}

// Add places a new agent in category. Identities must be unique.
func (p *Partition) Add(category domain.Category, agent domain.Agent) error {
	if !category.Valid() {
		return fmt.Errorf("unknown category %q", category)
	}
	if existing, ok := p.index[agent.ID]; ok {
		return fmt.Errorf("agent %d already placed in %s", agent.ID, existing)
	}
	a := agent
	p.members[category] = append(p.members[category], &a)
	p.index[agent.ID] = category
	return nil
}

// Members returns the live agents of a category in insertion order.
func (p *Partition) Members(category domain.Category) []*domain.Agent {
	return p.members[category]
}

// Locate returns the category currently holding id.
func (p *Partition) Locate(id domain.AgentID) (domain.Category, bool) {
	c, ok := p.index[id]
	return c, ok
}

// Find returns the live agent with the given identity.
func (p *Partition) Find(id domain.AgentID) (*domain.Agent, bool) {
	c, ok := p.index[id]
	if !ok {
		return nil, false
	}
	for _, a := range p.members[c] {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// Len returns the total number of agents.
func (p *Partition) Len() int {
	return len(p.index)
}

// Counts returns the size of every category.
func (p *Partition) Counts() domain.Counts {
	return domain.Counts{
		Susceptible:  len(p.members[domain.CategorySusceptible]),
		Symptomatic:  len(p.members[domain.CategorySymptomatic]),
		Asymptomatic: len(p.members[domain.CategoryAsymptomatic]),
		SelfCured:    len(p.members[domain.CategorySelfCured]),
		Quarantined:  len(p.members[domain.CategoryQuarantined]),
	}
}

// Each calls fn for every agent, category by category in canonical order.
func (p *Partition) Each(fn func(domain.Category, *domain.Agent)) {
	for _, c := range domain.Categories() {
		for _, a := range p.members[c] {
			fn(c, a)
		}
	}
}

// Apply moves agents according to the transitions in res. Every transition is
// checked against the current category before anything changes; a mismatch or
// a second transition for the same agent yields a TransitionConflictError and
// leaves the partition untouched.
func (p *Partition) Apply(res domain.Result) error {
	if len(res.Transitions) == 0 {
		return nil
	}
	moves := make(map[domain.AgentID]domain.Transition, len(res.Transitions))
	for _, tr := range res.Transitions {
		actual, ok := p.index[tr.AgentID]
		if !ok || actual != tr.From {
			return domain.TransitionConflictError{Transition: tr, Actual: actual}
		}
		if _, dup := moves[tr.AgentID]; dup {
			return domain.TransitionConflictError{Transition: tr, Actual: tr.From}
		}
		if !tr.To.Valid() || tr.To == tr.From {
			return fmt.Errorf("rule %s: invalid target category %q for agent %d", tr.Rule, tr.To, tr.AgentID)
		}
		moves[tr.AgentID] = tr
	}

	moved := make(map[domain.AgentID]*domain.Agent, len(moves))
	rebuilt := make(map[domain.Category]bool)
	for _, tr := range res.Transitions {
		if rebuilt[tr.From] {
			continue
		}
		rebuilt[tr.From] = true
		current := p.members[tr.From]
		kept := make([]*domain.Agent, 0, len(current))
		for _, a := range current {
			if _, ok := moves[a.ID]; ok {
				moved[a.ID] = a
				continue
			}
			kept = append(kept, a)
		}
		p.members[tr.From] = kept
	}
	for _, tr := range res.Transitions {
		p.members[tr.To] = append(p.members[tr.To], moved[tr.AgentID])
		p.index[tr.AgentID] = tr.To
	}
	return nil
}
