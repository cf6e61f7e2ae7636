package core

import (
	"context"

	"spreadsim/pkg/domain"
)

// NewSelfCureRule returns the rule moving asymptomatic agents to self-cured
// after their healing time reaches the configured threshold.
func NewSelfCureRule() domain.Rule {
	return selfCureRule{}
}

type selfCureRule struct{}

func (selfCureRule) Name() string { return "self_cure" }

func (selfCureRule) Evaluate(_ context.Context, pop domain.Population, rc domain.RuleContext) (domain.Result, error) {
	res := domain.Result{}
	for _, a := range pop.Members(domain.CategoryAsymptomatic) {
		if a.HealingTime < rc.Params.TillSelfCure {
			a.HealingTime += domain.HealingStep
			continue
		}
		res.Transitions = append(res.Transitions, domain.Transition{
			AgentID: a.ID,
			From:    domain.CategoryAsymptomatic,
			To:      domain.CategorySelfCured,
			Rule:    "self_cure",
		})
	}
	return res, nil
}
