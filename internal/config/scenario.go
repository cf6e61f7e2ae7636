// Package config loads simulation scenarios from TOML or YAML files and
// applies SPREADSIM_ environment overrides.
package config

import (
	"strings"

	"spreadsim/internal/core"
	"spreadsim/pkg/domain"
)

// Scenario is a fully resolved simulation setup.
type Scenario struct {
	Name            string
	Seed            uint64
	Ticks           int
	FrameInterval   int
	StopWhenExtinct bool
	Grid            domain.Grid
	Population      domain.Seeding
	Parameters      domain.Parameters
	// ScreeningRate enables the screening plugin when positive.
	ScreeningRate float64
	// Exports lists artifact formats to render after the run (json, csv, png, avi).
	Exports []string
}

// Default returns the reference scenario: a 100x100 area with 100 susceptible
// and 10 infected agents, run for 101 ticks.
func Default() Scenario {
	return Scenario{
		Name:       "default",
		Ticks:      101,
		Grid:       domain.Grid{Width: 100, Height: 100},
		Population: domain.Seeding{Susceptible: 100, Infected: 10},
		Parameters: domain.DefaultParameters(),
	}
}

// Validate reports every invalid field.
func (s Scenario) Validate() error {
	var cerr domain.ConfigError
	if strings.TrimSpace(s.Name) == "" {
		cerr.Add("name", s.Name, "must not be empty")
	}
	if s.Ticks <= 0 {
		cerr.Add("ticks", s.Ticks, "must be positive")
	}
	if s.FrameInterval < 0 {
		cerr.Add("frame_interval", s.FrameInterval, "must not be negative")
	}
	if !(s.ScreeningRate >= 0 && s.ScreeningRate <= 1) {
		cerr.Add("screening_rate", s.ScreeningRate, "must be within [0, 1]")
	}
	cerr.Merge(s.Grid.Validate())
	cerr.Merge(s.Population.Validate())
	cerr.Merge(s.Parameters.Validate())
	return cerr.OrNil()
}

// Request converts the scenario into a run request.
func (s Scenario) Request() core.RunRequest {
	return core.RunRequest{
		Name:            s.Name,
		Seed:            s.Seed,
		Ticks:           s.Ticks,
		FrameInterval:   s.FrameInterval,
		Grid:            s.Grid,
		Population:      s.Population,
		Parameters:      s.Parameters,
		StopWhenExtinct: s.StopWhenExtinct,
	}
}

// scenarioFile mirrors Scenario with optional fields so that a file only
// overrides the keys it sets.
type scenarioFile struct {
	Name            *string         `toml:"name" yaml:"name"`
	Seed            *uint64         `toml:"seed" yaml:"seed"`
	Ticks           *int            `toml:"ticks" yaml:"ticks"`
	FrameInterval   *int            `toml:"frame_interval" yaml:"frame_interval"`
	StopWhenExtinct *bool           `toml:"stop_when_extinct" yaml:"stop_when_extinct"`
	Grid            *gridFile       `toml:"grid" yaml:"grid"`
	Population      *populationFile `toml:"population" yaml:"population"`
	Parameters      *parametersFile `toml:"parameters" yaml:"parameters"`
	ScreeningRate   *float64        `toml:"screening_rate" yaml:"screening_rate"`
	Exports         []string        `toml:"exports" yaml:"exports"`
}

type gridFile struct {
	Width  *int `toml:"width" yaml:"width"`
	Height *int `toml:"height" yaml:"height"`
}

type populationFile struct {
	Susceptible *int `toml:"susceptible" yaml:"susceptible"`
	Infected    *int `toml:"infected" yaml:"infected"`
}

type parametersFile struct {
	InfectionProbability   *float64 `toml:"infection_probability" yaml:"infection_probability"`
	NoSymptomsProbability  *float64 `toml:"no_symptoms_probability" yaml:"no_symptoms_probability"`
	InfectionRadius        *float64 `toml:"infection_radius" yaml:"infection_radius"`
	CentralHub             *bool    `toml:"central_hub" yaml:"central_hub"`
	QuarantineRate         *float64 `toml:"quarantine_rate" yaml:"quarantine_rate"`
	FatalityRate           *float64 `toml:"fatality_rate" yaml:"fatality_rate"`
	SocialDistancingFactor *float64 `toml:"social_distancing_factor" yaml:"social_distancing_factor"`
	TravelRate             *float64 `toml:"travel_rate" yaml:"travel_rate"`
	Jitter                 *int     `toml:"jitter" yaml:"jitter"`
	TillQuarantine         *float64 `toml:"till_quarantine" yaml:"till_quarantine"`
	TillSelfCure           *float64 `toml:"till_selfcure" yaml:"till_selfcure"`
}

func (f scenarioFile) apply(s *Scenario) {
	set(&s.Name, f.Name)
	set(&s.Seed, f.Seed)
	set(&s.Ticks, f.Ticks)
	set(&s.FrameInterval, f.FrameInterval)
	set(&s.StopWhenExtinct, f.StopWhenExtinct)
	set(&s.ScreeningRate, f.ScreeningRate)
	if f.Grid != nil {
		set(&s.Grid.Width, f.Grid.Width)
		set(&s.Grid.Height, f.Grid.Height)
	}
	if f.Population != nil {
		set(&s.Population.Susceptible, f.Population.Susceptible)
		set(&s.Population.Infected, f.Population.Infected)
	}
	if p := f.Parameters; p != nil {
		set(&s.Parameters.InfectionProbability, p.InfectionProbability)
		set(&s.Parameters.NoSymptomsProbability, p.NoSymptomsProbability)
		set(&s.Parameters.InfectionRadius, p.InfectionRadius)
		set(&s.Parameters.CentralHub, p.CentralHub)
		set(&s.Parameters.QuarantineRate, p.QuarantineRate)
		set(&s.Parameters.FatalityRate, p.FatalityRate)
		set(&s.Parameters.SocialDistancingFactor, p.SocialDistancingFactor)
		set(&s.Parameters.TravelRate, p.TravelRate)
		set(&s.Parameters.Jitter, p.Jitter)
		set(&s.Parameters.TillQuarantine, p.TillQuarantine)
		set(&s.Parameters.TillSelfCure, p.TillSelfCure)
	}
	if f.Exports != nil {
		s.Exports = append([]string(nil), f.Exports...)
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
