package core

import (
	"context"

	"spreadsim/pkg/domain"
)

// NewInfectionRule returns the rule converting flagged susceptible agents into
// one of the infected categories.
func NewInfectionRule() domain.Rule {
	return infectionRule{}
}

type infectionRule struct{}

func (infectionRule) Name() string { return "infection" }

func (infectionRule) Evaluate(_ context.Context, pop domain.Population, rc domain.RuleContext) (domain.Result, error) {
	res := domain.Result{}
	for _, id := range rc.Exposed {
		if c, ok := pop.Locate(id); !ok || c != domain.CategorySusceptible {
			continue
		}
		if rc.Rand.Float64() >= rc.Params.InfectionProbability {
			continue
		}
		to := domain.CategorySymptomatic
		if rc.Rand.Float64() < rc.Params.NoSymptomsProbability {
			to = domain.CategoryAsymptomatic
		}
		res.Transitions = append(res.Transitions, domain.Transition{
			AgentID: id,
			From:    domain.CategorySusceptible,
			To:      to,
			Rule:    "infection",
		})
	}
	return res, nil
}
