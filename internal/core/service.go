package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"spreadsim/internal/infra/persistence/memory"
	"spreadsim/pkg/domain"
)

// Service drives simulation runs and manages their stored reports.
type Service struct {
	store      domain.RunStore
	logger     Logger
	metrics    MetricsRecorder
	tracer     Tracer
	population PopulationRecorder
	now        func() time.Time
	newID      func() string

	mu          sync.Mutex
	plugins     map[string]PluginMetadata
	pluginRules []Rule
}

// Option customises a Service.
type Option func(*Service)

// WithLogger installs a structured logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for run timestamps and derived seeds.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetricsRecorder installs an operation metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer installs an operation tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithPopulationRecorder installs a per-tick population observer.
func WithPopulationRecorder(recorder PopulationRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.population = recorder
		}
	}
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService constructs a service backed by the supplied run store.
func NewService(store domain.RunStore, opts ...Option) *Service {
	s := &Service{
		store:      store,
		logger:     noopLogger{},
		metrics:    noopMetricsRecorder{},
		tracer:     noopTracer{},
		population: noopPopulationRecorder{},
		now:        time.Now,
		newID:      uuid.NewString,
		plugins:    make(map[string]PluginMetadata),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service with an ephemeral run store.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(memory.NewStore(), opts...)
}

// Store returns the underlying run store.
func (s *Service) Store() domain.RunStore {
	return s.store
}

// RunRequest describes one simulation to execute.
type RunRequest struct {
	Name string
	// Seed fixes every random draw; zero derives a seed from the clock.
	Seed  uint64
	Ticks int
	// FrameInterval captures a snapshot every N ticks, starting at tick 0.
	// Zero disables frame capture.
	FrameInterval   int
	Grid            domain.Grid
	Population      domain.Seeding
	Parameters      domain.Parameters
	StopWhenExtinct bool
}

// Validate reports every invalid field of the request.
func (r RunRequest) Validate() error {
	var cerr domain.ConfigError
	if r.Name == "" {
		cerr.Add("name", r.Name, "must not be empty")
	}
	if r.Ticks <= 0 {
		cerr.Add("ticks", r.Ticks, "must be positive")
	}
	if r.FrameInterval < 0 {
		cerr.Add("frame_interval", r.FrameInterval, "must not be negative")
	}
	cerr.Merge(r.Grid.Validate())
	cerr.Merge(r.Population.Validate())
	cerr.Merge(r.Parameters.Validate())
	return cerr.OrNil()
}

// RunOutput holds the stored run report and any captured frames.
type RunOutput struct {
	Run    domain.Run
	Frames []domain.Snapshot
}

// ErrNotFound is returned when a stored run does not exist.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Run executes a simulation to completion, cancellation or failure and stores
// its report. On cancellation the partial report is stored with status
// cancelled and the context error is returned alongside the output.
func (s *Service) Run(ctx context.Context, req RunRequest) (out RunOutput, err error) {
	ctx, finish := s.instrument(ctx, "run")
	defer func() { finish(err) }()

	if err = req.Validate(); err != nil {
		return RunOutput{}, err
	}
	seed := req.Seed
	if seed == 0 {
		seed = uint64(s.now().UnixNano())
	}
	world := NewWorld(WithSeed(seed), WithWorldLogger(s.logger), WithRulesEngine(s.newEngine()))
	if err = world.Configure(req.Parameters); err != nil {
		return RunOutput{}, err
	}
	if err = world.Initialize(req.Grid.Width, req.Grid.Height, req.Population.Susceptible, req.Population.Infected); err != nil {
		return RunOutput{}, err
	}

	run := domain.Run{
		ID:         s.newID(),
		Name:       req.Name,
		Seed:       seed,
		Grid:       req.Grid,
		Population: req.Population,
		Parameters: req.Parameters,
		Status:     domain.RunStatusCompleted,
		StartedAt:  s.now().UTC(),
	}
	s.logger.Info("run started", "run", run.ID, "name", run.Name, "seed", seed, "ticks", req.Ticks, "grid", req.Grid.String())

	var frames []domain.Snapshot
	record := func(stats domain.TickStats) {
		run.Series = append(run.Series, stats)
		s.population.RecordTick(ctx, run.Name, stats)
		if req.FrameInterval > 0 && stats.Tick%req.FrameInterval == 0 {
			frames = append(frames, world.Snapshot())
		}
	}
	record(domain.TickStats{Tick: 0, Counts: world.Counts()})

	var runErr error
	for world.Tick() < req.Ticks {
		if cerr := ctx.Err(); cerr != nil {
			run.Status = domain.RunStatusCancelled
			runErr = cerr
			break
		}
		res, stepErr := world.Step(ctx)
		if stepErr == nil {
			stepErr = world.Move()
		}
		if stepErr != nil {
			// Rules before the failing one have already been applied.
			if world.Tick() > run.Series[len(run.Series)-1].Tick {
				record(tickStats(world, res))
			}
			if errors.Is(stepErr, context.Canceled) || errors.Is(stepErr, context.DeadlineExceeded) {
				run.Status = domain.RunStatusCancelled
			} else {
				run.Status = domain.RunStatusFailed
				run.Error = stepErr.Error()
			}
			runErr = stepErr
			break
		}
		stats := tickStats(world, res)
		record(stats)
		if req.StopWhenExtinct && stats.Counts.Infectious() == 0 {
			s.logger.Debug("no infectious agents remain", "run", run.ID, "tick", stats.Tick)
			break
		}
	}

	run.Ticks = world.Tick()
	run.Final = world.Counts()
	run.InfectionsCaused = world.InfectionsCaused()
	run.FinishedAt = s.now().UTC()

	if saveErr := s.store.SaveRun(context.WithoutCancel(ctx), run); saveErr != nil {
		s.logger.Error("store run failed", "run", run.ID, "error", saveErr)
		return RunOutput{Run: run, Frames: frames}, errors.Join(runErr, fmt.Errorf("save run %s: %w", run.ID, saveErr))
	}
	s.logger.Info("run finished", "run", run.ID, "status", run.Status, "ticks", run.Ticks,
		"susceptible", run.Final.Susceptible, "quarantined", run.Final.Quarantined, "self_cured", run.Final.SelfCured)
	return RunOutput{Run: run, Frames: frames}, runErr
}

func tickStats(world *World, res domain.Result) domain.TickStats {
	stats := domain.TickStats{
		Tick:             world.Tick(),
		Counts:           world.Counts(),
		InfectionsCaused: world.InfectionsCaused(),
	}
	for _, tr := range res.Transitions {
		switch {
		case tr.From == domain.CategorySusceptible && tr.To.Infectious():
			stats.NewInfections++
		case tr.To == domain.CategoryQuarantined:
			stats.NewQuarantines++
		case tr.To == domain.CategorySelfCured:
			stats.NewCures++
		}
	}
	return stats
}

func (s *Service) newEngine() *RulesEngine {
	engine := NewDefaultRulesEngine()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rule := range s.pluginRules {
		engine.Register(rule)
	}
	return engine
}

// GetRun returns a stored run.
func (s *Service) GetRun(ctx context.Context, id string) (run domain.Run, err error) {
	_, finish := s.instrument(ctx, "get_run")
	defer func() { finish(err) }()
	run, ok := s.store.GetRun(id)
	if !ok {
		return domain.Run{}, ErrNotFound{Entity: "run", ID: id}
	}
	return run, nil
}

// ListRuns returns summaries of stored runs, newest first.
func (s *Service) ListRuns(ctx context.Context) []domain.RunSummary {
	_, finish := s.instrument(ctx, "list_runs")
	defer finish(nil)
	runs := s.store.ListRuns()
	out := make([]domain.RunSummary, len(runs))
	for i, r := range runs {
		out[i] = r.Summary()
	}
	return out
}

// DeleteRun removes a stored run.
func (s *Service) DeleteRun(ctx context.Context, id string) (err error) {
	ctx, finish := s.instrument(ctx, "delete_run")
	defer func() { finish(err) }()
	if err = s.store.DeleteRun(ctx, id); err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			return ErrNotFound{Entity: "run", ID: id}
		}
		s.logger.Error("delete run failed", "run", id, "error", err)
		return err
	}
	return nil
}

// InstallPlugin registers a plugin; its rules join every subsequent run.
func (s *Service) InstallPlugin(plugin Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, fmt.Errorf("plugin cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plugins[plugin.Name()]; ok {
		return PluginMetadata{}, fmt.Errorf("plugin %s already registered", plugin.Name())
	}

	registry := NewPluginRegistry()
	if err := plugin.Register(registry); err != nil {
		return PluginMetadata{}, err
	}

	rules := registry.Rules()
	names := make([]string, len(rules))
	for i, rule := range rules {
		names[i] = rule.Name()
	}
	s.pluginRules = append(s.pluginRules, rules...)

	meta := PluginMetadata{
		Name:       plugin.Name(),
		Version:    plugin.Version(),
		Rules:      names,
		Parameters: registry.Parameters(),
	}
	s.plugins[plugin.Name()] = meta
	s.logger.Info("plugin installed", "plugin", meta.Name, "version", meta.Version, "rules", names)
	return meta, nil
}

// RegisteredPlugins returns metadata describing installed plugins, sorted by name.
func (s *Service) RegisteredPlugins() []PluginMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PluginMetadata, 0, len(s.plugins))
	for _, meta := range s.plugins {
		out = append(out, meta)
	}
	sortPluginMetadata(out)
	return out
}

func (s *Service) instrument(ctx context.Context, operation string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	return ctx, func(err error) {
		s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
		span.End(err)
	}
}
