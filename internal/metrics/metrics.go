// Package metrics records run statistics in a private Prometheus registry and
// exports them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relaygen"

// Recorder is safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	runDuration *prometheus.HistogramVec
	factories   *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	bindings    prometheus.Counter
	lastRun     prometheus.Gauge
}

func NewRecorder() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of relaygen runs in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"mode"}),
		factories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "factories_total",
			Help:      "Factories processed, by outcome",
		}, []string{"status"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostics reported, by code and severity",
		}, []string{"code", "severity"}),
		bindings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bindings_total",
			Help:      "Constructor bindings planned",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run",
		}),
	}

	collectors := []prometheus.Collector{r.runDuration, r.factories, r.diagnostics, r.bindings, r.lastRun}
	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return r, nil
}

func (r *Recorder) ObserveRun(mode string, elapsed time.Duration, finished time.Time) {
	r.runDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	r.lastRun.Set(float64(finished.Unix()))
}

func (r *Recorder) CountFactory(status string) {
	r.factories.WithLabelValues(status).Inc()
}

func (r *Recorder) CountDiagnostic(code, severity string) {
	r.diagnostics.WithLabelValues(code, severity).Inc()
}

func (r *Recorder) AddBindings(n int) {
	r.bindings.Add(float64(n))
}

// Gatherer exposes the registry, for tests and custom exporters.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
