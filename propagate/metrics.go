package propagate

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics provides Prometheus-compatible metrics collection for
// propagation monitoring in production environments.
//
// Metrics exposed (all namespaced with "asyncmd_"):
//
// 1. inflight_propagations (gauge): Propagation loops currently running.
// Use: monitor how many walkers an orchestration layer has active.
//
// 2. segments_total (counter): Trajectory segments produced by the engine.
// Labels: run_name.
// Use: engine throughput per run.
//
// 3. condition_eval_latency_ms (histogram): Wall time of one whole-segment
// condition evaluation pass in milliseconds.
// Labels: run_name.
// Buckets: [1, 5, 10, 50, 100, 500, 1000, 5000, 10000].
//
// 4. stitch_latency_ms (histogram): Wall time of one concatenation in
// milliseconds, measured from limiter release to output handle.
// Labels: status (success/error).
//
// 5. terminal_status_total (counter): Propagation terminal outcomes.
// Labels: run_name, status (condition_met, max_steps_exceeded, error).
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := NewPrometheusMetrics(registry)
//	p, err := New(factory, conditions, walltime, WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// Thread-safe: all methods delegate to prometheus collectors.
type PrometheusMetrics struct {
	inflight    prometheus.Gauge
	segments    *prometheus.CounterVec
	evalLatency *prometheus.HistogramVec
	stitch      *prometheus.HistogramVec
	terminal    *prometheus.CounterVec

	registry prometheus.Registerer
	enabled  atomic.Bool
}

// NewPrometheusMetrics creates and registers all propagation metrics with
// the provided registry. A nil registry falls back to the global
// prometheus.DefaultRegisterer; pass a dedicated prometheus.NewRegistry()
// for isolation (recommended in tests and multi-tenant processes).
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	pm := &PrometheusMetrics{registry: registry}
	pm.enabled.Store(true)

	pm.inflight = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "asyncmd",
		Name:      "inflight_propagations",
		Help:      "Propagation loops currently driving an engine",
	})

	pm.segments = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "asyncmd",
		Name:      "segments_total",
		Help:      "Trajectory segments produced by the engine",
	}, []string{"run_name"})

	pm.evalLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "asyncmd",
		Name:      "condition_eval_latency_ms",
		Help:      "Whole-segment condition evaluation duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
	}, []string{"run_name"})

	pm.stitch = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "asyncmd",
		Name:      "stitch_latency_ms",
		Help:      "Trajectory concatenation duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
	}, []string{"status"}) // status: success, error

	pm.terminal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "asyncmd",
		Name:      "terminal_status_total",
		Help:      "Propagation terminal outcomes",
	}, []string{"run_name", "status"}) // status: condition_met, max_steps_exceeded, error

	return pm
}

// PropagationStarted increments the inflight gauge.
func (pm *PrometheusMetrics) PropagationStarted() {
	if !pm.enabled.Load() {
		return
	}
	pm.inflight.Inc()
}

// PropagationFinished decrements the inflight gauge.
func (pm *PrometheusMetrics) PropagationFinished() {
	if !pm.enabled.Load() {
		return
	}
	pm.inflight.Dec()
}

// SegmentProduced counts one finished engine segment for runName.
func (pm *PrometheusMetrics) SegmentProduced(runName string) {
	if !pm.enabled.Load() {
		return
	}
	pm.segments.WithLabelValues(runName).Inc()
}

// RecordEvalLatency records the wall time of one condition evaluation pass.
func (pm *PrometheusMetrics) RecordEvalLatency(runName string, latency time.Duration) {
	if !pm.enabled.Load() {
		return
	}
	pm.evalLatency.WithLabelValues(runName).Observe(float64(latency.Milliseconds()))
}

// RecordStitchLatency records the wall time of one concatenation.
// Status should be "success" or "error".
func (pm *PrometheusMetrics) RecordStitchLatency(latency time.Duration, status string) {
	if !pm.enabled.Load() {
		return
	}
	pm.stitch.WithLabelValues(status).Observe(float64(latency.Milliseconds()))
}

// RecordTerminal counts one terminal outcome for runName.
func (pm *PrometheusMetrics) RecordTerminal(runName, status string) {
	if !pm.enabled.Load() {
		return
	}
	pm.terminal.WithLabelValues(runName, status).Inc()
}

// SetEnabled toggles metric recording at runtime. The collectors stay
// registered; disabled metrics simply stop updating. Safe to call while
// propagations are recording.
func (pm *PrometheusMetrics) SetEnabled(enabled bool) {
	pm.enabled.Store(enabled)
}
