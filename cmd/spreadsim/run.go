package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"spreadsim/internal/adapters/exports"
	"spreadsim/internal/config"
	"spreadsim/internal/core"
	"spreadsim/plugins/screening"
)

type runOptions struct {
	configPath      string
	name            string
	ticks           int
	seed            uint64
	frames          int
	export          string
	metricsAddr     string
	stopWhenExtinct bool
	screeningRate   float64
	exportTimeout   time.Duration
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation and store its report",
		Long: `Run a simulation scenario to completion, store the report and optionally
export artifacts (json, csv, png, avi) to the configured blob store.

The scenario comes from --config (TOML or YAML) or the built-in default, then
SPREADSIM_* environment overrides, then flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSimulation(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "scenario file (.toml, .yaml, .yml)")
	f.StringVar(&opts.name, "name", "", "run name")
	f.IntVar(&opts.ticks, "ticks", 0, "number of ticks to simulate")
	f.Uint64Var(&opts.seed, "seed", 0, "random seed (0 derives one from the clock)")
	f.IntVar(&opts.frames, "frames", 0, "capture a snapshot every N ticks (0 disables)")
	f.StringVar(&opts.export, "export", "", "comma separated export formats: json,csv,png,avi")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	f.BoolVar(&opts.stopWhenExtinct, "stop-when-extinct", false, "stop once no infectious agents remain")
	f.Float64Var(&opts.screeningRate, "screening-rate", 0, "install the screening plugin with this per-tick detection probability")
	f.DurationVar(&opts.exportTimeout, "export-timeout", 2*time.Minute, "maximum time to wait for exports")
	return cmd
}

// scenarioFor resolves the scenario: file, then environment, then flags. The
// merged result is validated once.
func scenarioFor(cmd *cobra.Command, opts runOptions) (config.Scenario, error) {
	s, err := config.Read(opts.configPath)
	if err != nil {
		return config.Scenario{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("name") {
		s.Name = opts.name
	}
	if flags.Changed("ticks") {
		s.Ticks = opts.ticks
	}
	if flags.Changed("seed") {
		s.Seed = opts.seed
	}
	if flags.Changed("frames") {
		s.FrameInterval = opts.frames
	}
	if flags.Changed("stop-when-extinct") {
		s.StopWhenExtinct = opts.stopWhenExtinct
	}
	if flags.Changed("screening-rate") {
		s.ScreeningRate = opts.screeningRate
	}
	if flags.Changed("export") {
		s.Exports = strings.Split(opts.export, ",")
	}
	if err := s.Validate(); err != nil {
		return config.Scenario{}, err
	}
	return s, nil
}

func (a *app) runSimulation(cmd *cobra.Command, opts runOptions) (err error) {
	scenario, err := scenarioFor(cmd, opts)
	if err != nil {
		return err
	}
	formats, err := exports.ParseFormats(strings.Join(scenario.Exports, ","))
	if err != nil {
		return err
	}
	for _, f := range formats {
		if f == exports.FormatAVI && scenario.FrameInterval == 0 {
			return fmt.Errorf("avi export requires --frames or frame_interval > 0")
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	store, err := a.openRunStore()
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close run store: %w", cerr)
		}
	}()

	svcOpts := []core.Option{core.WithLogger(a.logger)}
	if opts.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		recorder, rerr := core.NewPrometheusMetricsRecorder(reg)
		if rerr != nil {
			return rerr
		}
		shutdown, serr := a.serveMetrics(opts.metricsAddr, reg)
		if serr != nil {
			return serr
		}
		defer shutdown()
		svcOpts = append(svcOpts, core.WithMetricsRecorder(recorder), core.WithPopulationRecorder(recorder))
	}
	svc := core.NewService(store, svcOpts...)
	if scenario.ScreeningRate > 0 {
		plugin, perr := screening.New(scenario.ScreeningRate)
		if perr != nil {
			return perr
		}
		if _, perr := svc.InstallPlugin(plugin); perr != nil {
			return perr
		}
	}

	out, runErr := svc.Run(ctx, scenario.Request())
	if out.Run.ID == "" {
		return runErr
	}
	renderRunSummary(a.stdout, out.Run)
	if runErr != nil {
		return runErr
	}
	if len(formats) == 0 {
		return nil
	}

	exportCtx, cancel := context.WithTimeout(ctx, opts.exportTimeout)
	defer cancel()
	rec, err := a.exportRun(exportCtx, svc, out, formats)
	if err != nil {
		return err
	}
	renderArtifacts(a.stdout, rec.Artifacts)
	return nil
}

// exportRun renders the requested formats through the export worker and
// waits for the result.
func (a *app) exportRun(ctx context.Context, svc *core.Service, out core.RunOutput, formats []exports.Format) (exports.ExportRecord, error) {
	bs, err := a.openBlob(ctx)
	if err != nil {
		return exports.ExportRecord{}, fmt.Errorf("open blob store: %w", err)
	}
	worker := exports.NewWorker(svc, exports.NewBlobObjectStore(bs), exports.LoggerAuditLog{Logger: a.logger},
		exports.WithWorkerLogger(a.logger))
	worker.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = worker.Stop(stopCtx)
	}()

	queued, err := worker.EnqueueExport(ctx, exports.ExportInput{
		RunID:       out.Run.ID,
		Formats:     formats,
		RequestedBy: requester(),
		Frames:      out.Frames,
	})
	if err != nil {
		return exports.ExportRecord{}, err
	}
	rec, err := worker.Wait(ctx, queued.ID)
	if err != nil {
		return rec, fmt.Errorf("export %s: %w", queued.ID, err)
	}
	if rec.Status == exports.ExportStatusFailed {
		return rec, fmt.Errorf("export %s failed: %s", rec.ID, rec.Error)
	}
	return rec, nil
}

// serveMetrics exposes reg on addr until the returned shutdown is called.
func (a *app) serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "error", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", ln.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func requester() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "spreadsim"
}
