package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GuardMetrics tracks guarded engine calls.
// All methods are safe to call on a nil receiver.
type GuardMetrics struct {
	calls        *prometheus.CounterVec
	masks        *prometheus.CounterVec
	skips        *prometheus.CounterVec
	restores     *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	violations   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
}

// NewGuardMetrics creates the collectors and registers them with reg.
// Passing prometheus.DefaultRegisterer mirrors the package-level registry;
// tests should pass a fresh prometheus.NewRegistry().
func NewGuardMetrics(reg prometheus.Registerer) *GuardMetrics {
	m := &GuardMetrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelguard_engine_calls_total",
				Help: "Engine calls by outcome",
			},
			[]string{"engine", "model", "outcome"}, // outcome: "ok", "error"
		),
		masks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelguard_guard_masks_total",
				Help: "Scopes that captured and cleared the backend attribute",
			},
			[]string{"engine"},
		),
		skips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelguard_guard_skips_total",
				Help: "Scopes entered with no backend attribute to mask",
			},
			[]string{"engine"},
		),
		restores: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelguard_guard_restores_total",
				Help: "Backend attributes written back on scope exit",
			},
			[]string{"engine", "exit"}, // exit: "normal", "error"
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelguard_engine_cache_lookups_total",
				Help: "Output cache lookups by result",
			},
			[]string{"engine", "result"}, // result: "hit", "miss"
		),
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelguard_run_restore_violations_total",
				Help: "Steps that finished without the backend attached",
			},
			[]string{"model"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "modelguard_engine_call_duration_seconds",
				Help:    "Duration of guarded engine calls",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"engine"},
		),
	}

	reg.MustRegister(m.calls, m.masks, m.skips, m.restores, m.cacheLookups, m.violations, m.callDuration)

	return m
}

// RecordCall records the outcome and latency of one engine call
func (m *GuardMetrics) RecordCall(engine, model string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.calls.WithLabelValues(engine, model, outcome).Inc()
	m.callDuration.WithLabelValues(engine).Observe(d.Seconds())
}

// RecordScope records what a guard did on entry and exit
func (m *GuardMetrics) RecordScope(engine string, masked bool, err error) {
	if m == nil {
		return
	}
	if !masked {
		m.skips.WithLabelValues(engine).Inc()
		return
	}
	m.masks.WithLabelValues(engine).Inc()
	exit := "normal"
	if err != nil {
		exit = "error"
	}
	m.restores.WithLabelValues(engine, exit).Inc()
}

// RecordCacheLookup records an output cache hit or miss
func (m *GuardMetrics) RecordCacheLookup(engine string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(engine, result).Inc()
}

// RecordViolation records a step that ended with the backend missing
func (m *GuardMetrics) RecordViolation(model string) {
	if m == nil {
		return
	}
	m.violations.WithLabelValues(model).Inc()
}
