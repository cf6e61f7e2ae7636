// Package screening provides a plugin that quarantines symptomatic agents
// detected by random testing before their treatment time reaches the
// quarantine threshold.
package screening

import (
	"context"
	"fmt"

	"spreadsim/internal/core"
	"spreadsim/pkg/domain"
)

const (
	pluginName    = "screening"
	pluginVersion = "0.1.0"
	ruleName      = "screening"
)

// Plugin registers the screening rule.
type Plugin struct {
	rate float64
}

// New returns a plugin testing each symptomatic agent once per tick and
// quarantining it with probability rate.
func New(rate float64) (*Plugin, error) {
	if rate < 0 || rate > 1 {
		return nil, fmt.Errorf("screening rate %v must be within [0, 1]", rate)
	}
	return &Plugin{rate: rate}, nil
}

func (p *Plugin) Name() string    { return pluginName }
func (p *Plugin) Version() string { return pluginVersion }

// Register contributes the screening rule.
func (p *Plugin) Register(registry *core.PluginRegistry) error {
	registry.RegisterRule(rule{rate: p.rate})
	registry.DescribeParameter("screening_rate", fmt.Sprintf("per-tick detection probability for symptomatic agents (%.3g)", p.rate))
	return nil
}

type rule struct {
	rate float64
}

func (rule) Name() string { return ruleName }

// Evaluate runs after the built-in quarantine rule, so agents it already
// retired are no longer symptomatic here.
func (r rule) Evaluate(ctx context.Context, pop domain.Population, rc domain.RuleContext) (domain.Result, error) {
	res := domain.Result{}
	if r.rate == 0 {
		return res, nil
	}
	for _, a := range pop.Members(domain.CategorySymptomatic) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if rc.Rand.Float64() >= r.rate {
			continue
		}
		res.Transitions = append(res.Transitions, domain.Transition{
			AgentID: a.ID,
			From:    domain.CategorySymptomatic,
			To:      domain.CategoryQuarantined,
			Rule:    ruleName,
		})
	}
	return res, nil
}
