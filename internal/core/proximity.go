package core

import (
	"math"

	"spreadsim/pkg/domain"
)

// detectProximity runs the exhaustive source/target scan for one tick. Each
// in-range pair either raises the target's exposure by one step or, once the
// exposure has saturated, flags the target. Symptomatic sources are credited
// for every flag they raise. The returned ids are unique and ordered by first
// flag.
func detectProximity(pop *Partition, radius float64) []domain.AgentID {
	targets := pop.Members(domain.CategorySusceptible)
	if len(targets) == 0 {
		return nil
	}
	var exposed []domain.AgentID
	seen := make(map[domain.AgentID]bool)
	for _, source := range []domain.Category{domain.CategorySymptomatic, domain.CategoryAsymptomatic} {
		credit := source == domain.CategorySymptomatic
		for _, src := range pop.Members(source) {
			for _, dst := range targets {
				if src.Position.Distance(dst.Position) >= radius {
					continue
				}
				if dst.ExposureTime < domain.ExposureThreshold {
					dst.ExposureTime = math.Min(dst.ExposureTime+domain.ExposureStep, domain.ExposureThreshold)
					continue
				}
				if credit {
					src.InfectionsCaused++
				}
				if !seen[dst.ID] {
					seen[dst.ID] = true
					exposed = append(exposed, dst.ID)
				}
			}
		}
	}
	return exposed
}
