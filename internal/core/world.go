package core

import (
	"context"
	"fmt"
	"math/rand/v2"

	"spreadsim/pkg/domain"
)

// World owns the agent population of one simulation and advances it one tick
// at a time. It is not safe for concurrent use; the driver calls Step and Move
// alternately and may stop at any tick boundary.
type World struct {
	grid       domain.Grid
	params     domain.Parameters
	configured bool
	pop        *Partition
	rng        *rand.Rand
	engine     *RulesEngine
	logger     Logger
	tick       int
}

// WorldOption configures optional World collaborators.
type WorldOption func(*World)

// WithSeed makes every random draw of the world reproducible.
func WithSeed(seed uint64) WorldOption {
	return func(w *World) {
		w.rng = newRand(seed)
	}
}

// WithWorldLogger installs a logger for configuration warnings.
func WithWorldLogger(logger Logger) WorldOption {
	return func(w *World) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithRulesEngine replaces the default infection, quarantine and self-cure
// rule set.
func WithRulesEngine(engine *RulesEngine) WorldOption {
	return func(w *World) {
		if engine != nil {
			w.engine = engine
		}
	}
}

// NewWorld constructs an empty world. It must be configured and initialized
// before it can be stepped.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		rng:    newRand(0),
		engine: NewDefaultRulesEngine(),
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Configure validates and installs the simulation parameters. It may be
// called again between ticks to change parameters for subsequent ticks.
func (w *World) Configure(params domain.Parameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	w.params = params
	w.configured = true
	if inert := params.Inert(); len(inert) > 0 {
		w.logger.Warn("parameters accepted but not applied by any rule", "parameters", inert)
	}
	return nil
}

// Initialize discards any existing population and seeds two cohorts at
// uniformly random integer positions. Susceptible agents get ids 1..n and
// infected symptomatic agents get ids -1..-m.
func (w *World) Initialize(width, height, susceptible, infected int) error {
	grid := domain.Grid{Width: width, Height: height}
	seeding := domain.Seeding{Susceptible: susceptible, Infected: infected}
	var cerr domain.ConfigError
	cerr.Merge(grid.Validate())
	cerr.Merge(seeding.Validate())
	if err := cerr.OrNil(); err != nil {
		return err
	}

	pop := NewPartition()
	place := func(category domain.Category, id domain.AgentID) error {
		return pop.Add(category, domain.Agent{ID: id, Position: w.randomCell(grid)})
	}
	for i := 1; i <= susceptible; i++ {
		if err := place(domain.CategorySusceptible, domain.AgentID(i)); err != nil {
			return err
		}
	}
	for i := 1; i <= infected; i++ {
		if err := place(domain.CategorySymptomatic, domain.AgentID(-i)); err != nil {
			return err
		}
	}
	w.grid = grid
	w.pop = pop
	w.tick = 0
	return nil
}

// InitializeWith discards any existing population and places the given agents
// exactly as supplied. It is intended for scripted scenarios.
func (w *World) InitializeWith(grid domain.Grid, cohorts map[domain.Category][]domain.Agent) error {
	var cerr domain.ConfigError
	cerr.Merge(grid.Validate())
	if err := cerr.OrNil(); err != nil {
		return err
	}
	pop := NewPartition()
	for _, category := range domain.Categories() {
		for _, a := range cohorts[category] {
			if !a.Position.Within(grid) {
				cerr.Add(fmt.Sprintf("agents[%d].position", a.ID), a.Position, "outside grid "+grid.String())
				continue
			}
			if err := pop.Add(category, a); err != nil {
				cerr.Add(fmt.Sprintf("agents[%d].id", a.ID), a.ID, err.Error())
			}
		}
	}
	for category := range cohorts {
		if !category.Valid() {
			cerr.Add("cohorts", category, "unknown category")
		}
	}
	if err := cerr.OrNil(); err != nil {
		return err
	}
	w.grid = grid
	w.pop = pop
	w.tick = 0
	return nil
}

func (w *World) randomCell(g domain.Grid) domain.Point {
	return domain.Point{
		X: float64(w.rng.IntN(g.Width + 1)),
		Y: float64(w.rng.IntN(g.Height + 1)),
	}
}

func (w *World) ready() error {
	if !w.configured {
		return domain.ErrNotConfigured
	}
	if w.pop == nil {
		return domain.ErrNotInitialized
	}
	return nil
}

// Step advances the world by one tick: proximity detection followed by the
// registered transition rules. It returns every transition applied.
func (w *World) Step(ctx context.Context) (domain.Result, error) {
	if err := w.ready(); err != nil {
		return domain.Result{}, err
	}
	w.tick++
	rc := domain.RuleContext{
		Tick:    w.tick,
		Params:  w.params,
		Rand:    w.rng,
		Exposed: detectProximity(w.pop, w.params.EffectiveRadius()),
	}
	res, err := w.engine.Evaluate(ctx, w.pop, rc)
	if err != nil {
		return res, fmt.Errorf("tick %d: %w", w.tick, err)
	}
	return res, nil
}

// Move applies one movement step to every agent that is not quarantined.
func (w *World) Move() error {
	if err := w.ready(); err != nil {
		return err
	}
	for _, category := range domain.Categories() {
		if !category.Active() {
			continue
		}
		for _, a := range w.pop.Members(category) {
			moveAgent(a, w.grid, w.params, w.rng)
		}
	}
	return nil
}

// Snapshot returns a copy of the positions of every active agent grouped by
// category. An uninitialized world yields an empty snapshot.
func (w *World) Snapshot() domain.Snapshot {
	snap := domain.Snapshot{Tick: w.tick, Positions: make(map[domain.Category][]domain.Point)}
	if w.pop == nil {
		return snap
	}
	for _, category := range domain.Categories() {
		if !category.Active() {
			continue
		}
		members := w.pop.Members(category)
		pts := make([]domain.Point, len(members))
		for i, a := range members {
			pts[i] = a.Position
		}
		snap.Positions[category] = pts
	}
	return snap
}

// Counts returns the current size of every category.
func (w *World) Counts() domain.Counts {
	if w.pop == nil {
		return domain.Counts{}
	}
	return w.pop.Counts()
}

// InfectionsCaused sums the infections credited to every agent, including
// those already quarantined.
func (w *World) InfectionsCaused() int {
	if w.pop == nil {
		return 0
	}
	total := 0
	w.pop.Each(func(_ domain.Category, a *domain.Agent) {
		total += a.InfectionsCaused
	})
	return total
}

// Agents returns copies of the agents in a category.
func (w *World) Agents(category domain.Category) []domain.Agent {
	if w.pop == nil {
		return nil
	}
	members := w.pop.Members(category)
	out := make([]domain.Agent, len(members))
	for i, a := range members {
		out[i] = a.Clone()
	}
	return out
}

// Agent returns a copy of one agent and its category.
func (w *World) Agent(id domain.AgentID) (domain.Agent, domain.Category, bool) {
	if w.pop == nil {
		return domain.Agent{}, "", false
	}
	a, ok := w.pop.Find(id)
	if !ok {
		return domain.Agent{}, "", false
	}
	c, _ := w.pop.Locate(id)
	return a.Clone(), c, true
}

// Tick returns the number of completed steps.
func (w *World) Tick() int { return w.tick }

// Grid returns the grid set by the last initialization.
func (w *World) Grid() domain.Grid { return w.grid }

// Parameters returns the active parameters.
func (w *World) Parameters() domain.Parameters { return w.params }
