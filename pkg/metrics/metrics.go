// Package metrics counts run outcomes on a private Prometheus registry and
// writes them in node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"airgapintel/pkg/models"
)

// Recorder holds the collectors for one process
type Recorder struct {
	registry *prometheus.Registry

	tasks           *prometheus.CounterVec
	discoveryErrors *prometheus.CounterVec
	bytesPersisted  *prometheus.CounterVec
	fetchDuration   prometheus.Histogram
	lastRun         prometheus.Gauge
	lastRunDuration prometheus.Gauge
}

// New registers the run collectors on a fresh registry
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		tasks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airgapintel_tasks_total",
				Help: "Feed downloads attempted, by category and status",
			},
			[]string{"category", "status"},
		),
		discoveryErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airgapintel_discovery_errors_total",
				Help: "Sources that could not be enumerated",
			},
			[]string{"category"},
		),
		bytesPersisted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airgapintel_bytes_persisted_total",
				Help: "Bytes written to the output tree",
			},
			[]string{"category"},
		),
		fetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "airgapintel_fetch_duration_seconds",
				Help:    "Time to fetch and persist one feed",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),
		lastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "airgapintel_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),
		lastRunDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "airgapintel_last_run_duration_seconds",
				Help: "Wall time of the last run",
			},
		),
	}
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Record counts one task outcome
func (r *Recorder) Record(o models.TaskOutcome) {
	category := string(o.Task.Category)
	status := models.StatusFailed
	if o.Success {
		status = models.StatusSuccess
		r.bytesPersisted.WithLabelValues(category).Add(float64(o.Size))
	}
	r.tasks.WithLabelValues(category, status).Inc()
	r.fetchDuration.Observe(o.Duration.Seconds())
}

// RecordDiscovery counts a source that produced no tasks
func (r *Recorder) RecordDiscovery(d models.DiscoveryError) {
	r.discoveryErrors.WithLabelValues(string(d.Category)).Inc()
}

// Finish stamps the run gauges
func (r *Recorder) Finish(result *models.RunResult) {
	r.lastRun.Set(float64(result.FinishedAt.Unix()))
	r.lastRunDuration.Set(result.Duration().Seconds())
}

// WriteTextfile writes the registry to path, creating its directory
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
