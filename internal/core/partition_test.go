package core

import (
	"errors"
	"testing"

	"spreadsim/pkg/domain"
)

func seededPartition(t *testing.T) *Partition {
	t.Helper()
	p := NewPartition()
	for _, id := range []int{1, 2, 3, 4} {
		if err := p.Add(domain.CategorySusceptible, agentAt(id, float64(id), 0)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := p.Add(domain.CategorySymptomatic, agentAt(-1, 0, 0)); err != nil {
		t.Fatalf("add: %v", err)
	}
	return p
}

func TestPartitionApplyMovesByIdentity(t *testing.T) {
	p := seededPartition(t)
	res := domain.Result{Transitions: []domain.Transition{
		{AgentID: 3, From: domain.CategorySusceptible, To: domain.CategoryAsymptomatic},
		{AgentID: 1, From: domain.CategorySusceptible, To: domain.CategorySymptomatic},
	}}
	if err := p.Apply(res); err != nil {
		t.Fatalf("apply: %v", err)
	}
	var ids []domain.AgentID
	for _, a := range p.Members(domain.CategorySusceptible) {
		ids = append(ids, a.ID)
	}
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 4 {
		t.Fatalf("expected remaining order [2 4], got %v", ids)
	}
	sym := p.Members(domain.CategorySymptomatic)
	if len(sym) != 2 || sym[1].ID != 1 || sym[1].Position.X != 1 {
		t.Fatalf("expected agent 1 appended with its state, got %+v", sym)
	}
	if c, _ := p.Locate(3); c != domain.CategoryAsymptomatic {
		t.Fatalf("expected index updated, got %s", c)
	}
	if p.Len() != 5 || p.Counts().Total() != 5 {
		t.Fatalf("expected population size preserved")
	}
}

func TestPartitionApplyRejectsConflicts(t *testing.T) {
	tests := []struct {
		name string
		res  domain.Result
	}{
		{"wrong source", domain.Result{Transitions: []domain.Transition{
			{AgentID: 1, From: domain.CategorySymptomatic, To: domain.CategoryQuarantined},
		}}},
		{"unknown agent", domain.Result{Transitions: []domain.Transition{
			{AgentID: 77, From: domain.CategorySusceptible, To: domain.CategorySymptomatic},
		}}},
		{"duplicate", domain.Result{Transitions: []domain.Transition{
			{AgentID: 2, From: domain.CategorySusceptible, To: domain.CategorySymptomatic},
			{AgentID: 2, From: domain.CategorySusceptible, To: domain.CategoryAsymptomatic},
		}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := seededPartition(t)
			err := p.Apply(tc.res)
			var conflict domain.TransitionConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("expected TransitionConflictError, got %v", err)
			}
			if got := p.Counts(); got.Susceptible != 4 || got.Symptomatic != 1 {
				t.Fatalf("expected partition untouched, got %+v", got)
			}
		})
	}

	p := seededPartition(t)
	err := p.Apply(domain.Result{Transitions: []domain.Transition{
		{AgentID: 1, From: domain.CategorySusceptible, To: "zombie"},
	}})
	if err == nil {
		t.Fatalf("expected invalid target to be rejected")
	}
}

func TestPartitionAddGuards(t *testing.T) {
	p := NewPartition()
	if err := p.Add("zombie", agentAt(1, 0, 0)); err == nil {
		t.Fatalf("expected unknown category error")
	}
	if err := p.Add(domain.CategorySusceptible, agentAt(1, 0, 0)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := p.Add(domain.CategorySelfCured, agentAt(1, 0, 0)); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if _, ok := p.Find(2); ok {
		t.Fatalf("expected missing agent")
	}
	a, ok := p.Find(1)
	if !ok || a.ID != 1 {
		t.Fatalf("expected to find agent 1")
	}
	n := 0
	p.Each(func(domain.Category, *domain.Agent) { n++ })
	if n != 1 {
		t.Fatalf("expected Each to visit one agent, got %d", n)
	}
}
