package core

import (
	"context"

	"spreadsim/pkg/domain"
)

// NewQuarantineRule returns the rule retiring symptomatic agents once their
// treatment time reaches the configured threshold. Candidates that fail the
// quarantine draw stay symptomatic and are drawn again on every later tick.
func NewQuarantineRule() domain.Rule {
	return quarantineRule{}
}

type quarantineRule struct{}

func (quarantineRule) Name() string { return "quarantine" }

func (quarantineRule) Evaluate(_ context.Context, pop domain.Population, rc domain.RuleContext) (domain.Result, error) {
	var candidates []domain.AgentID
	for _, a := range pop.Members(domain.CategorySymptomatic) {
		if a.TreatmentTime < rc.Params.TillQuarantine {
			a.TreatmentTime += domain.TreatmentStep
			continue
		}
		candidates = append(candidates, a.ID)
	}

	res := domain.Result{}
	for _, id := range candidates {
		if rc.Rand.Float64() >= rc.Params.QuarantineRate {
			continue
		}
		res.Transitions = append(res.Transitions, domain.Transition{
			AgentID: id,
			From:    domain.CategorySymptomatic,
			To:      domain.CategoryQuarantined,
			Rule:    "quarantine",
		})
	}
	return res, nil
}
