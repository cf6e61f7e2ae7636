package core

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"spreadsim/pkg/domain"
)

func TestCoLocatedPairInfectedOnFifthTick(t *testing.T) {
	w := newScriptedWorld(t, scriptedParams(), map[domain.Category][]domain.Agent{
		domain.CategorySusceptible: {agentAt(1, 5, 5)},
		domain.CategorySymptomatic: {agentAt(-1, 5, 5)},
	})

	for tick := 1; tick <= 4; tick++ {
		mustStep(t, w)
		if c := categoryOf(t, w, 1); c != domain.CategorySusceptible {
			t.Fatalf("expected agent 1 susceptible after tick %d, got %s", tick, c)
		}
		a, _, _ := w.Agent(1)
		if want := 0.25 * float64(tick); a.ExposureTime != want {
			t.Fatalf("expected exposure %.2f after tick %d, got %s", want, tick, describe(a))
		}
	}

	res := mustStep(t, w)
	if c := categoryOf(t, w, 1); c != domain.CategorySymptomatic {
		t.Fatalf("expected agent 1 symptomatic on tick 5, got %s", c)
	}
	if res.Count(domain.CategorySymptomatic) != 1 {
		t.Fatalf("expected one infection transition, got %+v", res.Transitions)
	}
	src, _, _ := w.Agent(-1)
	if src.InfectionsCaused != 1 {
		t.Fatalf("expected source credited once, got %d", src.InfectionsCaused)
	}
	infected, _, _ := w.Agent(1)
	if infected.ExposureTime != 1 {
		t.Fatalf("expected exposure carried into infected category, got %s", describe(infected))
	}
}

func TestAsymptomaticSourceIsNotCredited(t *testing.T) {
	params := scriptedParams()
	params.NoSymptomsProbability = 1
	w := newScriptedWorld(t, params, map[domain.Category][]domain.Agent{
		domain.CategorySusceptible:  {agentAt(1, 5, 5)},
		domain.CategoryAsymptomatic: {agentAt(-1, 5, 5)},
	})
	for i := 0; i < 5; i++ {
		mustStep(t, w)
	}
	if c := categoryOf(t, w, 1); c != domain.CategoryAsymptomatic {
		t.Fatalf("expected agent 1 asymptomatic, got %s", c)
	}
	if w.InfectionsCaused() != 0 {
		t.Fatalf("asymptomatic sources must not be credited, got %d", w.InfectionsCaused())
	}
}

func TestTargetFlaggedBySeveralSourcesResolvesOnce(t *testing.T) {
	cases := []struct {
		name    string
		sources map[domain.Category][]domain.Agent
		credit  map[domain.AgentID]int
	}{
		{
			name: "symptomatic only",
			sources: map[domain.Category][]domain.Agent{
				domain.CategorySymptomatic: {agentAt(-1, 5, 5), agentAt(-2, 5, 5), agentAt(-3, 5, 5)},
			},
			credit: map[domain.AgentID]int{-1: 1, -2: 1, -3: 1},
		},
		{
			name: "mixed sources",
			sources: map[domain.Category][]domain.Agent{
				domain.CategorySymptomatic:  {agentAt(-1, 5, 5), agentAt(-2, 5, 5)},
				domain.CategoryAsymptomatic: {agentAt(-3, 5, 5)},
			},
			credit: map[domain.AgentID]int{-1: 1, -2: 1, -3: 0},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			saturated := agentAt(1, 5, 5)
			saturated.ExposureTime = domain.ExposureThreshold
			cohorts := map[domain.Category][]domain.Agent{domain.CategorySusceptible: {saturated}}
			for c, agents := range tc.sources {
				cohorts[c] = agents
			}

			w := newScriptedWorld(t, scriptedParams(), cohorts)
			exposed := detectProximity(w.pop, w.params.EffectiveRadius())
			if len(exposed) != 1 || exposed[0] != 1 {
				t.Fatalf("expected target flagged once, got %v", exposed)
			}
			draws := &seqRand{vals: []float64{0.5}}
			rc := domain.RuleContext{Tick: 1, Params: w.params, Rand: draws, Exposed: exposed}
			res, err := NewInfectionRule().Evaluate(t.Context(), w.pop, rc)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if len(res.Transitions) != 1 || draws.i != 2 {
				t.Fatalf("expected one transition from one infection draw and one symptom draw, got %+v after %d draws", res.Transitions, draws.i)
			}

			w = newScriptedWorld(t, scriptedParams(), cohorts)
			res = mustStep(t, w)
			if res.Count(domain.CategorySymptomatic) != 1 || categoryOf(t, w, 1) != domain.CategorySymptomatic {
				t.Fatalf("expected a single infection transition, got %+v", res.Transitions)
			}
			total := 0
			for id, want := range tc.credit {
				src, _, _ := w.Agent(id)
				if src.InfectionsCaused != want {
					t.Fatalf("source %d credited %d, want %d", id, src.InfectionsCaused, want)
				}
				total += want
			}
			if w.InfectionsCaused() != total {
				t.Fatalf("expected %d infections caused, got %d", total, w.InfectionsCaused())
			}
		})
	}
}

func TestOutOfRangePairNeverExposed(t *testing.T) {
	w := newScriptedWorld(t, scriptedParams(), map[domain.Category][]domain.Agent{
		domain.CategorySusceptible: {agentAt(1, 1, 1)},
		domain.CategorySymptomatic: {agentAt(-1, 4, 1)},
	})
	for i := 0; i < 10; i++ {
		mustStep(t, w)
	}
	a, c, _ := w.Agent(1)
	if c != domain.CategorySusceptible || a.ExposureTime != 0 {
		t.Fatalf("expected distance equal to radius to be out of range, got %s in %s", describe(a), c)
	}
}

func TestImmediateQuarantine(t *testing.T) {
	params := scriptedParams()
	params.QuarantineRate = 1
	params.TillQuarantine = 0
	w := newScriptedWorld(t, params, map[domain.Category][]domain.Agent{
		domain.CategorySymptomatic: {agentAt(-1, 5, 5)},
	})
	res := mustStep(t, w)
	if c := categoryOf(t, w, -1); c != domain.CategoryQuarantined {
		t.Fatalf("expected quarantine on first evaluation, got %s", c)
	}
	if res.Count(domain.CategoryQuarantined) != 1 {
		t.Fatalf("expected quarantine transition, got %+v", res.Transitions)
	}
	if snap := w.Snapshot(); snap.Len() != 0 {
		t.Fatalf("quarantined agents must leave the snapshot, got %+v", snap.Positions)
	}
	if w.Counts().Quarantined != 1 {
		t.Fatalf("expected quarantined count 1")
	}
}

func TestNewlySymptomaticEvaluatedForQuarantineSameTick(t *testing.T) {
	params := scriptedParams()
	params.QuarantineRate = 1
	params.TillQuarantine = 0
	saturated := agentAt(1, 5, 5)
	saturated.ExposureTime = domain.ExposureThreshold
	w := newScriptedWorld(t, params, map[domain.Category][]domain.Agent{
		domain.CategorySusceptible: {saturated},
		domain.CategorySymptomatic: {agentAt(-1, 5, 5)},
	})
	res := mustStep(t, w)
	if res.Count(domain.CategorySymptomatic) != 1 || res.Count(domain.CategoryQuarantined) != 2 {
		t.Fatalf("expected infection then two quarantines in one tick, got %+v", res.Transitions)
	}
	for _, id := range []domain.AgentID{1, -1} {
		if c := categoryOf(t, w, id); c != domain.CategoryQuarantined {
			t.Fatalf("expected agent %d quarantined, got %s", id, c)
		}
	}
	if res.Transitions[0].Rule != "infection" || res.Transitions[1].Rule != "quarantine" {
		t.Fatalf("expected rule order infection before quarantine, got %+v", res.Transitions)
	}
}

func TestFailedQuarantineCandidateIsRedrawn(t *testing.T) {
	params := scriptedParams()
	params.QuarantineRate = 0.5
	params.TillQuarantine = 0
	w := newScriptedWorld(t, params, map[domain.Category][]domain.Agent{
		domain.CategorySymptomatic: {agentAt(-1, 5, 5)},
	})
	draws := &seqRand{vals: []float64{0.9, 0.9, 0.1}}
	for tick := 1; tick <= 3; tick++ {
		rc := domain.RuleContext{Tick: tick, Params: params, Rand: draws}
		if _, err := w.engine.Evaluate(t.Context(), w.pop, rc); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		c := categoryOf(t, w, -1)
		if tick < 3 && c != domain.CategorySymptomatic {
			t.Fatalf("expected candidate to stay symptomatic after failed draw %d, got %s", tick, c)
		}
		if tick == 3 && c != domain.CategoryQuarantined {
			t.Fatalf("expected quarantine on third draw, got %s", c)
		}
	}
	a, _, _ := w.Agent(-1)
	if a.TreatmentTime != 0 {
		t.Fatalf("candidate treatment time must stop advancing, got %v", a.TreatmentTime)
	}
}

func TestImmediateSelfCure(t *testing.T) {
	params := scriptedParams()
	params.TillSelfCure = 0
	w := newScriptedWorld(t, params, map[domain.Category][]domain.Agent{
		domain.CategoryAsymptomatic: {agentAt(-1, 5, 5)},
		domain.CategorySusceptible:  {agentAt(1, 9, 9)},
	})
	mustStep(t, w)
	if c := categoryOf(t, w, -1); c != domain.CategorySelfCured {
		t.Fatalf("expected self-cure on first evaluation, got %s", c)
	}
	snap := w.Snapshot()
	if len(snap.Positions[domain.CategorySelfCured]) != 1 {
		t.Fatalf("self-cured agents stay in the world, got %+v", snap.Positions)
	}
}

func TestSelfCuredAgentsAreInert(t *testing.T) {
	w := newScriptedWorld(t, scriptedParams(), map[domain.Category][]domain.Agent{
		domain.CategorySelfCured:   {agentAt(-1, 5, 5)},
		domain.CategorySusceptible: {agentAt(1, 5, 5)},
	})
	for i := 0; i < 8; i++ {
		mustStep(t, w)
	}
	a, c, _ := w.Agent(1)
	if c != domain.CategorySusceptible || a.ExposureTime != 0 {
		t.Fatalf("self-cured agents must not expose others, got %s", describe(a))
	}
}

func TestHealingAccumulatesUntilThreshold(t *testing.T) {
	params := scriptedParams()
	params.TillSelfCure = 0.3
	w := newScriptedWorld(t, params, map[domain.Category][]domain.Agent{
		domain.CategoryAsymptomatic: {agentAt(-1, 5, 5)},
	})
	ticks := 0
	for categoryOf(t, w, -1) == domain.CategoryAsymptomatic {
		mustStep(t, w)
		ticks++
		if ticks > 10 {
			t.Fatalf("agent never self-cured")
		}
	}
	// three 0.1 steps reach the threshold; the fourth evaluation cures
	if ticks != 4 {
		t.Fatalf("unexpected ticks to cure: %d", ticks)
	}
}

func TestLifecycleErrors(t *testing.T) {
	w := NewWorld()
	if _, err := w.Step(t.Context()); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := w.Move(); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured from Move, got %v", err)
	}
	if err := w.Configure(domain.DefaultParameters()); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if _, err := w.Step(t.Context()); !errors.Is(err, domain.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if snap := w.Snapshot(); snap.Len() != 0 || snap.Positions == nil {
		t.Fatalf("expected empty non-nil snapshot, got %+v", snap)
	}
	if w.Counts().Total() != 0 || w.InfectionsCaused() != 0 || w.Agents(domain.CategorySusceptible) != nil {
		t.Fatalf("expected empty accessors before initialize")
	}
	if _, _, ok := w.Agent(1); ok {
		t.Fatalf("expected no agents before initialize")
	}
}

func TestConfigureAndInitializeRejectInvalidInput(t *testing.T) {
	w := NewWorld()
	bad := domain.DefaultParameters()
	bad.InfectionProbability = 2
	var cerr *domain.ConfigError
	if err := w.Configure(bad); !errors.As(err, &cerr) || !cerr.Has("infection_probability") {
		t.Fatalf("expected infection_probability rejection, got %v", err)
	}
	if _, err := w.Step(t.Context()); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("rejected configuration must not be installed")
	}

	err := w.Initialize(math.MaxInt, 10, 1, 1)
	if !errors.As(err, &cerr) || !cerr.Has("grid.width") {
		t.Fatalf("expected oversized grid to be rejected, got %v", err)
	}

	err = w.Initialize(0, 10, -1, 2)
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if !cerr.Has("grid.width") || !cerr.Has("population.susceptible") {
		t.Fatalf("expected both grid and population problems, got %v", err)
	}

	err = w.InitializeWith(domain.Grid{Width: 5, Height: 5}, map[domain.Category][]domain.Agent{
		domain.CategorySusceptible: {agentAt(1, 6, 1), agentAt(2, 1, 1)},
		domain.CategorySymptomatic: {agentAt(2, 2, 2)},
	})
	if !errors.As(err, &cerr) || len(cerr.Problems) != 2 {
		t.Fatalf("expected out-of-grid and duplicate id problems, got %v", err)
	}
}

func TestInitializeSeedsCohorts(t *testing.T) {
	w := NewWorld(WithSeed(3))
	if err := w.Configure(domain.DefaultParameters()); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := w.Initialize(20, 30, 50, 5); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	counts := w.Counts()
	if counts.Susceptible != 50 || counts.Symptomatic != 5 || counts.Total() != 55 {
		t.Fatalf("unexpected seeded counts %+v", counts)
	}
	for _, a := range w.Agents(domain.CategorySusceptible) {
		if a.ID <= 0 {
			t.Fatalf("susceptible ids must be positive, got %d", a.ID)
		}
		if a.Position.X != float64(int(a.Position.X)) || !a.Position.Within(w.Grid()) {
			t.Fatalf("expected integer position inside grid, got %+v", a.Position)
		}
	}
	for _, a := range w.Agents(domain.CategorySymptomatic) {
		if a.ID >= 0 {
			t.Fatalf("infected seed ids must be negative, got %d", a.ID)
		}
	}
	if w.Tick() != 0 {
		t.Fatalf("expected tick 0 after initialize")
	}
}

func TestInertParametersWarnOnConfigure(t *testing.T) {
	logger := &captureLogger{}
	w := NewWorld(WithWorldLogger(logger))
	if err := w.Configure(domain.DefaultParameters()); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if logger.count("warn") != 1 {
		t.Fatalf("expected one inert-parameter warning, got %d", logger.count("warn"))
	}
	p := domain.DefaultParameters()
	p.FatalityRate = 0
	if err := w.Configure(p); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if logger.count("warn") != 1 {
		t.Fatalf("expected no warning without inert parameters")
	}
	if w.Parameters().FatalityRate != 0 {
		t.Fatalf("expected reconfigured parameters to be active")
	}
}

func randomWorld(t *testing.T, seed uint64) *World {
	t.Helper()
	p := domain.DefaultParameters()
	p.InfectionProbability = 0.6
	p.TillQuarantine = 1
	p.TillSelfCure = 1
	p.CentralHub = true
	p.TravelRate = 0.05
	w := NewWorld(WithSeed(seed))
	if err := w.Configure(p); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := w.Initialize(15, 15, 120, 6); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return w
}

func TestPartitionAndCounterInvariants(t *testing.T) {
	w := randomWorld(t, 42)
	total := w.Counts().Total()
	type counters struct {
		exposure, treatment, healing float64
		caused                       int
	}
	last := make(map[domain.AgentID]counters)
	sawInfection := false

	for tick := 0; tick < 150; tick++ {
		res := mustStep(t, w)
		if res.Count(domain.CategorySymptomatic)+res.Count(domain.CategoryAsymptomatic) > 0 {
			sawInfection = true
		}
		if got := w.Counts().Total(); got != total {
			t.Fatalf("tick %d: population changed from %d to %d", w.Tick(), total, got)
		}
		seen := make(map[domain.AgentID]bool, total)
		for _, c := range domain.Categories() {
			for _, a := range w.Agents(c) {
				if seen[a.ID] {
					t.Fatalf("tick %d: agent %d in more than one category", w.Tick(), a.ID)
				}
				seen[a.ID] = true
				if a.ExposureTime < 0 || a.ExposureTime > 1 {
					t.Fatalf("tick %d: exposure out of range: %s", w.Tick(), describe(a))
				}
				prev := last[a.ID]
				if a.ExposureTime < prev.exposure || a.TreatmentTime < prev.treatment ||
					a.HealingTime < prev.healing || a.InfectionsCaused < prev.caused {
					t.Fatalf("tick %d: counters decreased for %s", w.Tick(), describe(a))
				}
				last[a.ID] = counters{a.ExposureTime, a.TreatmentTime, a.HealingTime, a.InfectionsCaused}
				if c.Active() && !a.Position.Within(w.Grid()) {
					t.Fatalf("tick %d: agent %d left the grid at %+v", w.Tick(), a.ID, a.Position)
				}
			}
		}
		if len(seen) != total {
			t.Fatalf("tick %d: expected %d agents, saw %d", w.Tick(), total, len(seen))
		}
	}
	if !sawInfection {
		t.Fatalf("expected at least one infection in a dense world")
	}
}

func TestDeterministicUnderFixedSeed(t *testing.T) {
	a := randomWorld(t, 7)
	b := randomWorld(t, 7)
	c := randomWorld(t, 8)
	for i := 0; i < 60; i++ {
		mustStep(t, a)
		mustStep(t, b)
		mustStep(t, c)
	}
	if !reflect.DeepEqual(a.Snapshot(), b.Snapshot()) || a.Counts() != b.Counts() {
		t.Fatalf("expected identical worlds for identical seeds")
	}
	if reflect.DeepEqual(a.Snapshot(), c.Snapshot()) {
		t.Fatalf("expected different seeds to diverge")
	}
}

func TestBoundaryContainmentWithLargeJitter(t *testing.T) {
	p := domain.DefaultParameters()
	p.Jitter = 25
	p.InfectionProbability = 0
	w := NewWorld(WithSeed(11))
	if err := w.Configure(p); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := w.Initialize(3, 4, 40, 3); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for i := 0; i < 100; i++ {
		mustStep(t, w)
		for c, pts := range w.Snapshot().Positions {
			for _, pt := range pts {
				if pt.X <= 0 || pt.Y <= 0 || pt.X > 3 || pt.Y > 4 {
					t.Fatalf("%s agent outside (0, W] x (0, H]: %+v", c, pt)
				}
			}
		}
	}
}

func TestCentralHubTeleport(t *testing.T) {
	params := scriptedParams()
	params.CentralHub = true
	params.TravelRate = 1
	params.Jitter = 3
	w := newScriptedWorld(t, params, map[domain.Category][]domain.Agent{
		domain.CategorySusceptible: {agentAt(1, 1, 1), agentAt(2, 9, 2)},
		domain.CategorySelfCured:   {agentAt(3, 2, 8)},
	})
	if err := w.Move(); err != nil {
		t.Fatalf("move: %v", err)
	}
	for _, pts := range w.Snapshot().Positions {
		for _, pt := range pts {
			if pt != (domain.Point{X: 5, Y: 5}) {
				t.Fatalf("expected teleport to exact center, got %+v", pt)
			}
		}
	}
}

func TestStepWrapsRuleErrors(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{name: "bogus", transitions: []domain.Transition{
		{AgentID: 1, From: domain.CategorySymptomatic, To: domain.CategoryQuarantined, Rule: "bogus"},
	}})
	w := NewWorld(WithRulesEngine(engine))
	if err := w.Configure(scriptedParams()); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := w.InitializeWith(domain.Grid{Width: 5, Height: 5}, map[domain.Category][]domain.Agent{
		domain.CategorySusceptible: {agentAt(1, 1, 1)},
	}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	_, err := w.Step(t.Context())
	var conflict domain.TransitionConflictError
	if !errors.As(err, &conflict) || !strings.Contains(err.Error(), "tick 1") {
		t.Fatalf("expected wrapped TransitionConflictError, got %v", err)
	}
	if conflict.Actual != domain.CategorySusceptible {
		t.Fatalf("expected actual category susceptible, got %s", conflict.Actual)
	}
}
