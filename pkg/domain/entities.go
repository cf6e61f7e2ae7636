// Package domain defines the simulation entities, configuration values, and
// rule evaluation primitives used by spreadsim.
package domain

import (
	"fmt"
	"math"
)

// AgentID identifies an agent for its whole lifetime. Susceptible seeds use
// positive identifiers and infected seeds use negative ones; the sign carries
// no other meaning.
type AgentID int

// Point is a position in continuous 2D space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Within reports whether p lies inside the closed grid rectangle.
func (p Point) Within(g Grid) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= float64(g.Width) && p.Y <= float64(g.Height)
}

// Category is the epidemiological state an agent is currently in. Every agent
// belongs to exactly one category at a time.
type Category string

// Canonical categories forming the population state machine.
const (
	// CategorySusceptible holds agents that can still be exposed.
	CategorySusceptible Category = "susceptible"
	// CategorySymptomatic holds infected agents showing symptoms; they are
	// candidates for quarantine.
	CategorySymptomatic Category = "infected_symptomatic"
	// CategoryAsymptomatic holds infected agents without symptoms; they
	// self-cure after a fixed duration.
	CategoryAsymptomatic Category = "infected_asymptomatic"
	// CategorySelfCured holds recovered asymptomatic agents.
	CategorySelfCured Category = "self_cured"
	// CategoryQuarantined holds agents retired from the active world.
	CategoryQuarantined Category = "quarantined"
)

// Categories returns every category in canonical snapshot order.
func Categories() []Category {
	return []Category{
		CategorySusceptible,
		CategorySymptomatic,
		CategoryAsymptomatic,
		CategorySelfCured,
		CategoryQuarantined,
	}
}

// Valid reports whether c is one of the canonical categories.
func (c Category) Valid() bool {
	switch c {
	case CategorySusceptible, CategorySymptomatic, CategoryAsymptomatic, CategorySelfCured, CategoryQuarantined:
		return true
	default:
		return false
	}
}

// Active reports whether agents in c still move and appear in the world.
func (c Category) Active() bool {
	return c.Valid() && c != CategoryQuarantined
}

// Infectious reports whether agents in c act as infection sources.
func (c Category) Infectious() bool {
	return c == CategorySymptomatic || c == CategoryAsymptomatic
}

// Agent is an individual simulated person.
type Agent struct {
	ID       AgentID `json:"id"`
	Position Point   `json:"position"`
	// ExposureTime accumulates proximity to infectious agents while susceptible.
	ExposureTime float64 `json:"exposure_time"`
	// TreatmentTime accumulates while symptomatic and drives quarantine.
	TreatmentTime float64 `json:"treatment_time"`
	// HealingTime accumulates while asymptomatic and drives self-cure.
	HealingTime float64 `json:"healing_time"`
	// InfectionsCaused counts threshold-crossing exposures this agent caused
	// while symptomatic.
	InfectionsCaused int `json:"infections_caused"`
}

// Clone returns a value copy of the agent.
func (a *Agent) Clone() Agent {
	return *a
}

// MaxGridDimension bounds each grid dimension.
const MaxGridDimension = 100_000

// Grid describes the bounded simulation space [0, Width] x [0, Height].
type Grid struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the central hub point of the grid.
func (g Grid) Center() Point {
	return Point{X: float64(g.Width) / 2, Y: float64(g.Height) / 2}
}

// Validate rejects dimensions outside [1, MaxGridDimension].
func (g Grid) Validate() error {
	var cerr ConfigError
	checkDimension(&cerr, "grid.width", g.Width)
	checkDimension(&cerr, "grid.height", g.Height)
	return cerr.OrNil()
}

func checkDimension(cerr *ConfigError, field string, v int) {
	switch {
	case v <= 0:
		cerr.Add(field, v, "must be positive")
	case v > MaxGridDimension:
		cerr.Add(field, v, fmt.Sprintf("must not exceed %d", MaxGridDimension))
	}
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}

// Seeding describes the two initial cohorts placed on the grid.
type Seeding struct {
	Susceptible int `json:"susceptible"`
	Infected    int `json:"infected"`
}

// Validate rejects negative cohort sizes.
func (s Seeding) Validate() error {
	var cerr ConfigError
	if s.Susceptible < 0 {
		cerr.Add("population.susceptible", s.Susceptible, "must not be negative")
	}
	if s.Infected < 0 {
		cerr.Add("population.infected", s.Infected, "must not be negative")
	}
	return cerr.OrNil()
}
