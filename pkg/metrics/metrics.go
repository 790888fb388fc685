// Package metrics exposes the picker's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for the picker.
// A nil *Registry is valid and records nothing.
// ⭐ SSOT: 메트릭 정의는 여기서만
type Registry struct {
	reg *prometheus.Registry

	StageDuration       *prometheus.HistogramVec
	StageItems          *prometheus.CounterVec
	ClassifierFallbacks *prometheus.CounterVec
	PublishAttempts     *prometheus.CounterVec
	PickRuns            *prometheus.CounterVec
	BreakerState        *prometheus.GaugeVec
	HTTPDuration        *prometheus.HistogramVec
}

// New creates a registry with all picker metrics and the Go runtime collectors
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "picker_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"stage", "result"},
		),

		StageItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picker_stage_items_total",
				Help: "Items processed per stage by outcome",
			},
			[]string{"stage", "outcome"},
		),

		ClassifierFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picker_catalyst_fallbacks_total",
				Help: "Model classifier fall-throughs to the rule table by reason",
			},
			[]string{"reason"},
		),

		PublishAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picker_publish_attempts_total",
				Help: "Publish attempts by source and outcome",
			},
			[]string{"source", "outcome"},
		),

		PickRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "picker_runs_total",
				Help: "Picker invocations by result",
			},
			[]string{"result"},
		),

		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "picker_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "picker_http_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "code"},
		),
	}

	r.reg.MustRegister(
		r.StageDuration,
		r.StageItems,
		r.ClassifierFallbacks,
		r.PublishAttempts,
		r.PickRuns,
		r.BreakerState,
		r.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry (tests)
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveStage records the duration of a stage since start
func (r *Registry) ObserveStage(stage string, start time.Time, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.StageDuration.WithLabelValues(stage, result).Observe(time.Since(start).Seconds())
}

// CountItems adds n items to a stage outcome
func (r *Registry) CountItems(stage, outcome string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.StageItems.WithLabelValues(stage, outcome).Add(float64(n))
}

// CountFallback records one classifier fall-through
func (r *Registry) CountFallback(reason string) {
	if r == nil {
		return
	}
	r.ClassifierFallbacks.WithLabelValues(reason).Inc()
}

// CountPublish records one publish attempt
func (r *Registry) CountPublish(source, outcome string) {
	if r == nil {
		return
	}
	r.PublishAttempts.WithLabelValues(source, outcome).Inc()
}

// CountRun records one picker invocation
func (r *Registry) CountRun(result string) {
	if r == nil {
		return
	}
	r.PickRuns.WithLabelValues(result).Inc()
}

// SetBreakerState records a breaker transition
func (r *Registry) SetBreakerState(name string, state int) {
	if r == nil {
		return
	}
	r.BreakerState.WithLabelValues(name).Set(float64(state))
}

// ObserveHTTP records one API request
func (r *Registry) ObserveHTTP(route, method, code string, d time.Duration) {
	if r == nil {
		return
	}
	r.HTTPDuration.WithLabelValues(route, method, code).Observe(d.Seconds())
}
