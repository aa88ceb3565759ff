// Package metrics records per-phase results of a provisioning run and writes
// them for the node_exporter textfile collector.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Phase results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Recorder holds the metrics of one run. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	phaseTotal    *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	lastRun       *prometheus.GaugeVec
	runSuccess    *prometheus.GaugeVec
}

// NewRecorder returns a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		phaseTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gsprov",
				Subsystem: "phase",
				Name:      "runs_total",
				Help:      "Provisioning phases executed by operation, phase and result",
			},
			[]string{"operation", "phase", "result"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gsprov",
				Subsystem: "phase",
				Name:      "duration_seconds",
				Help:      "Duration of provisioning phases in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7min
			},
			[]string{"operation", "phase"},
		),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gsprov",
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last run of an operation finished",
			},
			[]string{"operation", "service"},
		),
		runSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gsprov",
				Name:      "last_run_success",
				Help:      "Whether the last run of an operation succeeded (1) or not (0)",
			},
			[]string{"operation", "service"},
		),
	}
	r.registry.MustRegister(r.phaseTotal, r.phaseDuration, r.lastRun, r.runSuccess)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObservePhase records one phase execution.
func (r *Recorder) ObservePhase(operation, phase string, d time.Duration, err error) {
	if r == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	r.phaseTotal.WithLabelValues(operation, phase, result).Inc()
	r.phaseDuration.WithLabelValues(operation, phase).Observe(d.Seconds())
}

// ObserveRun records the outcome of a whole operation.
func (r *Recorder) ObserveRun(operation, service string, finished time.Time, err error) {
	if r == nil {
		return
	}
	r.lastRun.WithLabelValues(operation, service).Set(float64(finished.Unix()))
	if err != nil {
		r.runSuccess.WithLabelValues(operation, service).Set(0)
	} else {
		r.runSuccess.WithLabelValues(operation, service).Set(1)
	}
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return errors.New("metrics recorder is nil")
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
