package core

import (
	"fmt"
	"sync"
	"testing"

	"spreadsim/pkg/domain"
)

// seqRand replays a fixed sequence of draws, cycling when exhausted.
type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
	l.mu.Unlock()
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *captureLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

// scriptedParams returns parameters with every random path forced: certain
// infection with symptoms, no movement, no quarantine, no self-cure.
func scriptedParams() domain.Parameters {
	return domain.Parameters{
		InfectionProbability:  1,
		NoSymptomsProbability: 0,
		InfectionRadius:       1,
		QuarantineRate:        0,
		Jitter:                0,
		TillQuarantine:        100,
		TillSelfCure:          100,
	}
}

func newScriptedWorld(t *testing.T, params domain.Parameters, cohorts map[domain.Category][]domain.Agent) *World {
	t.Helper()
	w := NewWorld(WithSeed(1))
	if err := w.Configure(params); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := w.InitializeWith(domain.Grid{Width: 10, Height: 10}, cohorts); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return w
}

func mustStep(t *testing.T, w *World) domain.Result {
	t.Helper()
	res, err := w.Step(t.Context())
	if err != nil {
		t.Fatalf("step %d: %v", w.Tick()+1, err)
	}
	if err := w.Move(); err != nil {
		t.Fatalf("move: %v", err)
	}
	return res
}

func categoryOf(t *testing.T, w *World, id domain.AgentID) domain.Category {
	t.Helper()
	_, c, ok := w.Agent(id)
	if !ok {
		t.Fatalf("agent %d missing", id)
	}
	return c
}

func agentAt(id int, x, y float64) domain.Agent {
	return domain.Agent{ID: domain.AgentID(id), Position: domain.Point{X: x, Y: y}}
}

func describe(a domain.Agent) string {
	return fmt.Sprintf("agent %d exposure=%.2f treatment=%.2f healing=%.2f", a.ID, a.ExposureTime, a.TreatmentTime, a.HealingTime)
}
