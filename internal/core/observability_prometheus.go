package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"spreadsim/pkg/domain"
)

// PrometheusMetricsRecorder exports service operation metrics and per-run
// population gauges to a Prometheus registry.
type PrometheusMetricsRecorder struct {
	operations *prometheus.HistogramVec
	population *prometheus.GaugeVec
	ticks      *prometheus.CounterVec
	infections *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder registers the spreadsim collectors with reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	r := &PrometheusMetricsRecorder{
		operations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spreadsim",
			Name:      "operation_duration_seconds",
			Help:      "Duration of service operations by outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"operation", "status"}),
		population: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "spreadsim",
			Name:      "population",
			Help:      "Agents per category at the latest tick.",
		}, []string{"run", "category"}),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spreadsim",
			Name:      "ticks_total",
			Help:      "Simulation ticks executed.",
		}, []string{"run"}),
		infections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spreadsim",
			Name:      "new_infections_total",
			Help:      "Susceptible agents that became infected.",
		}, []string{"run"}),
	}
	for _, c := range []prometheus.Collector{r.operations, r.population, r.ticks, r.infections} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := "error"
	if success {
		status = "success"
	}
	r.operations.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordTick implements PopulationRecorder.
func (r *PrometheusMetricsRecorder) RecordTick(_ context.Context, run string, stats domain.TickStats) {
	for _, c := range domain.Categories() {
		r.population.WithLabelValues(run, string(c)).Set(float64(stats.Counts.Of(c)))
	}
	if stats.Tick > 0 {
		r.ticks.WithLabelValues(run).Inc()
	}
	r.infections.WithLabelValues(run).Add(float64(stats.NewInfections))
}
