package domain

import "time"

// Counts holds the population size of each category.
type Counts struct {
	Susceptible  int `json:"susceptible"`
	Symptomatic  int `json:"infected_symptomatic"`
	Asymptomatic int `json:"infected_asymptomatic"`
	SelfCured    int `json:"self_cured"`
	Quarantined  int `json:"quarantined"`
}

// Of returns the count for a single category.
func (c Counts) Of(category Category) int {
	switch category {
	case CategorySusceptible:
		return c.Susceptible
	case CategorySymptomatic:
		return c.Symptomatic
	case CategoryAsymptomatic:
		return c.Asymptomatic
	case CategorySelfCured:
		return c.SelfCured
	case CategoryQuarantined:
		return c.Quarantined
	default:
		return 0
	}
}

// Total returns the number of agents across all categories.
func (c Counts) Total() int {
	return c.Susceptible + c.Symptomatic + c.Asymptomatic + c.SelfCured + c.Quarantined
}

// Infectious returns the number of agents able to infect others.
func (c Counts) Infectious() int {
	return c.Symptomatic + c.Asymptomatic
}

// TickStats summarises the population after one tick.
type TickStats struct {
	Tick             int    `json:"tick"`
	Counts           Counts `json:"counts"`
	NewInfections    int    `json:"new_infections"`
	NewQuarantines   int    `json:"new_quarantines"`
	NewCures         int    `json:"new_cures"`
	InfectionsCaused int    `json:"infections_caused"`
}

// Snapshot is a read-only view of agent positions grouped by category.
type Snapshot struct {
	Tick      int                  `json:"tick"`
	Positions map[Category][]Point `json:"positions"`
}

// Len returns the number of positions across all categories.
func (s Snapshot) Len() int {
	n := 0
	for _, pts := range s.Positions {
		n += len(pts)
	}
	return n
}

// RunStatus tracks the lifecycle of a stored run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the persisted report of one simulation. It holds aggregate series,
// never agent state.
type Run struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Seed             uint64      `json:"seed"`
	Grid             Grid        `json:"grid"`
	Population       Seeding     `json:"population"`
	Parameters       Parameters  `json:"parameters"`
	Status           RunStatus   `json:"status"`
	Ticks            int         `json:"ticks"`
	Series           []TickStats `json:"series"`
	Final            Counts      `json:"final"`
	InfectionsCaused int         `json:"infections_caused"`
	Error            string      `json:"error,omitempty"`
	StartedAt        time.Time   `json:"started_at"`
	FinishedAt       time.Time   `json:"finished_at"`
}

// Clone returns a deep copy of the run.
func (r Run) Clone() Run {
	out := r
	out.Series = append([]TickStats(nil), r.Series...)
	return out
}

// Summary returns the list view of the run.
func (r Run) Summary() RunSummary {
	return RunSummary{
		ID:         r.ID,
		Name:       r.Name,
		Status:     r.Status,
		Ticks:      r.Ticks,
		Final:      r.Final,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

// PeakInfectious returns the tick and size of the largest infectious
// population in the series.
func (r Run) PeakInfectious() (tick, count int) {
	for _, s := range r.Series {
		if n := s.Counts.Infectious(); n > count {
			tick, count = s.Tick, n
		}
	}
	return tick, count
}

// RunSummary is the compact listing form of a run.
type RunSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Status     RunStatus `json:"status"`
	Ticks      int       `json:"ticks"`
	Final      Counts    `json:"final"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
