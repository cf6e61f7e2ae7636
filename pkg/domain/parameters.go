package domain

import "math"

// Fixed rates of the proximity and progression model.
const (
	// RadiusScale multiplies the configured infection radius.
	RadiusScale = 3.0
	// ExposureStep is added to a susceptible agent per in-range tick.
	ExposureStep = 0.25
	// ExposureThreshold is the exposure at which transmission is attempted.
	ExposureThreshold = 1.0
	// TreatmentStep is added to a symptomatic agent per tick.
	TreatmentStep = 0.1
	// HealingStep is added to an asymptomatic agent per tick.
	HealingStep = 0.1
	// BoundaryBand is the fraction of a dimension used when resampling an
	// out-of-bounds coordinate.
	BoundaryBand = 0.2
)

// Parameters configures the transition rules and the movement model.
type Parameters struct {
	InfectionProbability  float64 `json:"infection_probability"`
	NoSymptomsProbability float64 `json:"no_symptoms_probability"`
	// InfectionRadius is scaled by RadiusScale before proximity checks.
	InfectionRadius float64 `json:"infection_radius"`
	CentralHub      bool    `json:"central_hub"`
	QuarantineRate  float64 `json:"quarantine_rate"`
	// FatalityRate is accepted but not applied by any rule.
	FatalityRate float64 `json:"fatality_rate"`
	// SocialDistancingFactor is accepted but not applied by any rule.
	SocialDistancingFactor float64 `json:"social_distancing_factor"`
	TravelRate             float64 `json:"travel_rate"`
	// Jitter is the number of random perturbations applied per move.
	Jitter         int     `json:"jitter"`
	TillQuarantine float64 `json:"till_quarantine"`
	TillSelfCure   float64 `json:"till_selfcure"`
}

// DefaultParameters returns the reference configuration.
func DefaultParameters() Parameters {
	return Parameters{
		InfectionProbability:  0.2,
		NoSymptomsProbability: 0.2,
		InfectionRadius:       1,
		CentralHub:            false,
		QuarantineRate:        0.8,
		FatalityRate:          0.3,
		TravelRate:            0.002,
		Jitter:                2,
		TillQuarantine:        7,
		TillSelfCure:          7,
	}
}

// EffectiveRadius returns the radius used for proximity checks.
func (p Parameters) EffectiveRadius() float64 {
	return p.InfectionRadius * RadiusScale
}

// Validate rejects probabilities outside [0, 1] and magnitudes that are
// negative, NaN or infinite.
func (p Parameters) Validate() error {
	var cerr ConfigError
	probabilities := []struct {
		field string
		value float64
	}{
		{"infection_probability", p.InfectionProbability},
		{"no_symptoms_probability", p.NoSymptomsProbability},
		{"quarantine_rate", p.QuarantineRate},
		{"fatality_rate", p.FatalityRate},
		{"travel_rate", p.TravelRate},
	}
	for _, prob := range probabilities {
		if !validProbability(prob.value) {
			cerr.Add(prob.field, prob.value, "must be within [0, 1]")
		}
	}
	magnitudes := []struct {
		field string
		value float64
	}{
		{"infection_radius", p.InfectionRadius},
		{"social_distancing_factor", p.SocialDistancingFactor},
		{"till_quarantine", p.TillQuarantine},
		{"till_selfcure", p.TillSelfCure},
	}
	for _, m := range magnitudes {
		if !validMagnitude(m.value) {
			cerr.Add(m.field, m.value, "must be a finite, non-negative number")
		}
	}
	if p.Jitter < 0 {
		cerr.Add("jitter", p.Jitter, "must not be negative")
	}
	return cerr.OrNil()
}

// Inert returns the names of parameters that are set but have no effect on
// any transition rule.
func (p Parameters) Inert() []string {
	var out []string
	if p.FatalityRate != 0 {
		out = append(out, "fatality_rate")
	}
	if p.SocialDistancingFactor != 0 {
		out = append(out, "social_distancing_factor")
	}
	return out
}

// NaN fails both comparisons and is rejected.
func validProbability(v float64) bool {
	return v >= 0 && v <= 1
}

func validMagnitude(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}
