package core

import "spreadsim/pkg/domain"

// moveAgent advances one agent by a single movement step. With the central hub
// enabled the agent may teleport to the grid center; otherwise it is jittered
// and pulled back inside the grid.
func moveAgent(a *domain.Agent, g domain.Grid, p domain.Parameters, rng domain.Rand) {
	if p.CentralHub && rng.Float64() < p.TravelRate {
		a.Position = g.Center()
		return
	}
	for i := 0; i < p.Jitter; i++ {
		a.Position.X += rng.Float64()
		a.Position.Y += rng.Float64()
		a.Position.X -= rng.Float64()
		a.Position.Y -= rng.Float64()
	}
	a.Position.X = correctAxis(a.Position.X, float64(g.Width), rng)
	a.Position.Y = correctAxis(a.Position.Y, float64(g.Height), rng)
}

// correctAxis resamples a coordinate that left [0, limit]. Values above the
// limit land in (limit-band, limit]; values at or below zero land in (0, band].
func correctAxis(v, limit float64, rng domain.Rand) float64 {
	band := domain.BoundaryBand * limit
	switch {
	case v > limit:
		return limit - band*rng.Float64()
	case v <= 0:
		return band * (1 - rng.Float64())
	default:
		return v
	}
}
