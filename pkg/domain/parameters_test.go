package domain

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultParametersValidate(t *testing.T) {
	p := DefaultParameters()
	if err := p.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if p.InfectionProbability != 0.2 || p.QuarantineRate != 0.8 || p.Jitter != 2 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if got := p.EffectiveRadius(); got != 3 {
		t.Fatalf("expected effective radius 3, got %v", got)
	}
}

func TestParametersValidateRejectsEveryBadField(t *testing.T) {
	p := DefaultParameters()
	p.InfectionProbability = 1.5
	p.NoSymptomsProbability = -0.1
	p.QuarantineRate = math.NaN()
	p.InfectionRadius = -1
	p.Jitter = -2
	p.TillQuarantine = -1
	p.TillSelfCure = -1

	err := p.Validate()
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	for _, field := range []string{
		"infection_probability",
		"no_symptoms_probability",
		"quarantine_rate",
		"infection_radius",
		"jitter",
		"till_quarantine",
		"till_selfcure",
	} {
		if !cerr.Has(field) {
			t.Errorf("expected %s to be rejected: %v", field, err)
		}
	}
	if cerr.Has("travel_rate") {
		t.Fatalf("travel_rate should be valid")
	}

	cases := map[string]func(*Parameters){
		"infection_radius":         func(p *Parameters) { p.InfectionRadius = math.NaN() },
		"social_distancing_factor": func(p *Parameters) { p.SocialDistancingFactor = math.Inf(1) },
		"till_quarantine":          func(p *Parameters) { p.TillQuarantine = math.NaN() },
		"till_selfcure":            func(p *Parameters) { p.TillSelfCure = math.Inf(1) },
	}
	for field, mutate := range cases {
		p := DefaultParameters()
		mutate(&p)
		var cerr *ConfigError
		if err := p.Validate(); !errors.As(err, &cerr) || !cerr.Has(field) || len(cerr.Problems) != 1 {
			t.Errorf("expected only %s to be rejected, got %v", field, err)
		}
	}
	p = DefaultParameters()
	p.TillQuarantine = math.Inf(-1)
	if err := p.Validate(); err == nil {
		t.Fatalf("expected -Inf till_quarantine to be rejected")
	}
}

func TestParametersInert(t *testing.T) {
	p := DefaultParameters()
	inert := p.Inert()
	if len(inert) != 1 || inert[0] != "fatality_rate" {
		t.Fatalf("expected fatality_rate inert by default, got %v", inert)
	}
	p.FatalityRate = 0
	p.SocialDistancingFactor = 0.5
	inert = p.Inert()
	if len(inert) != 1 || inert[0] != "social_distancing_factor" {
		t.Fatalf("unexpected inert list %v", inert)
	}
	p.SocialDistancingFactor = 0
	if got := p.Inert(); len(got) != 0 {
		t.Fatalf("expected no inert parameters, got %v", got)
	}
}

func TestGridAndSeedingValidate(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		field string
	}{
		{"zero width", Grid{Width: 0, Height: 5}.Validate(), "grid.width"},
		{"negative height", Grid{Width: 5, Height: -1}.Validate(), "grid.height"},
		{"negative susceptible", Seeding{Susceptible: -1}.Validate(), "population.susceptible"},
		{"negative infected", Seeding{Infected: -3}.Validate(), "population.infected"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cerr *ConfigError
			if !errors.As(tc.err, &cerr) {
				t.Fatalf("expected ConfigError, got %v", tc.err)
			}
			if !cerr.Has(tc.field) {
				t.Fatalf("expected %s in %v", tc.field, cerr)
			}
		})
	}
	if err := (Grid{Width: 1, Height: 1}).Validate(); err != nil {
		t.Fatalf("expected valid grid: %v", err)
	}
	if err := (Seeding{}).Validate(); err != nil {
		t.Fatalf("expected empty seeding to be valid: %v", err)
	}
}

func TestConfigErrorMerge(t *testing.T) {
	var cerr ConfigError
	cerr.Merge(nil)
	if cerr.OrNil() != nil {
		t.Fatalf("expected nil after merging nil")
	}
	cerr.Merge(Grid{}.Validate())
	cerr.Merge(errors.New("boom"))
	if len(cerr.Problems) != 3 {
		t.Fatalf("expected 3 problems, got %d", len(cerr.Problems))
	}
	if !cerr.Has("general") {
		t.Fatalf("expected plain error recorded under general")
	}
	if msg := cerr.OrNil().Error(); msg == "" {
		t.Fatalf("expected error message")
	}
}
