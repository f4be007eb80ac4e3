// Package metrics provides Prometheus metrics collection for the replay
// driver.
//
// Metrics are optional: if InitRegistry is never called, every recording
// function is a no-op with zero overhead. This lets dittoflow run replays
// with or without a metrics endpoint wired up.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once

	actionDurationOriginal *prometheus.HistogramVec
	actionDurationActual   *prometheus.HistogramVec
	actionsInFlight        *prometheus.GaugeVec
)

// durationBuckets covers the 1ms-10s range the original protocol's call
// latencies fall into.
var durationBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
}

// InitRegistry initializes the global Prometheus registry and the replay
// action metrics it owns. Safe to call multiple times; subsequent calls are
// no-ops. Must be called before a replay run for metrics to be recorded.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		actionDurationOriginal = promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittoflow_replay_action_duration_original_seconds",
				Help:    "Recorded (trace) duration of a replayed action, by run and action name",
				Buckets: durationBuckets,
			},
			[]string{"run_id", "action"},
		)
		actionDurationActual = promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittoflow_replay_action_duration_actual_seconds",
				Help:    "Observed duration of a replayed action, by run and action name",
				Buckets: durationBuckets,
			},
			[]string{"run_id", "action"},
		)
		actionsInFlight = promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dittoflow_replay_actions_in_flight",
				Help: "Number of replay actions submitted but not yet completed, by run",
			},
			[]string{"run_id"},
		)
	})
}

// GetRegistry returns the global Prometheus registry, or nil if InitRegistry
// has not been called.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// ObserveOriginalDuration records a recorded-trace duration for action,
// labeled with runID. No-op if metrics are disabled.
func ObserveOriginalDuration(runID, action string, d time.Duration) {
	if !IsEnabled() {
		return
	}
	actionDurationOriginal.WithLabelValues(runID, action).Observe(d.Seconds())
}

// ObserveActualDuration records an observed replay duration for action,
// labeled with runID. No-op if metrics are disabled.
func ObserveActualDuration(runID, action string, d time.Duration) {
	if !IsEnabled() {
		return
	}
	actionDurationActual.WithLabelValues(runID, action).Observe(d.Seconds())
}

// InFlightInc increments the in-flight gauge for runID.
func InFlightInc(runID string) {
	if !IsEnabled() {
		return
	}
	actionsInFlight.WithLabelValues(runID).Inc()
}

// InFlightDec decrements the in-flight gauge for runID.
func InFlightDec(runID string) {
	if !IsEnabled() {
		return
	}
	actionsInFlight.WithLabelValues(runID).Dec()
}
