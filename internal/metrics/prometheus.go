// Package metrics provides Prometheus metrics for the shot pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the pipeline collectors. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  *prometheus.Registry

	runs            prometheus.Counter
	stageDuration   *prometheus.HistogramVec
	sectionsTotal   *prometheus.CounterVec
	sectionFailures *prometheus.CounterVec
	foldsEvaluated  *prometheus.CounterVec
	gridCandidates  *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewManager creates a manager registered on its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "shots",
		subsystem: "pipeline",
		buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.runs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_total",
		Help:      "Total number of pipeline runs",
	})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stage_duration_seconds",
		Help:      "Duration of each pipeline stage",
		Buckets:   m.buckets,
	}, []string{"stage"})

	m.sectionsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_sections_total",
		Help:      "Model sections evaluated",
	}, []string{"model"})

	m.sectionFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_section_failures_total",
		Help:      "Model sections that failed to fit",
	}, []string{"model"})

	m.foldsEvaluated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cv_folds_total",
		Help:      "Cross-validation folds fitted and scored",
	}, []string{"model"})

	m.gridCandidates = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "grid_candidates_total",
		Help:      "Hyperparameter combinations evaluated by grid search",
	}, []string{"model"})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Dataset cache hits",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Dataset cache misses (loads from disk)",
	})
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) IncRuns() {
	if m == nil {
		return
	}
	m.runs.Inc()
}

// ObserveStage records how long a pipeline stage took.
func (m *Manager) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordSection counts an evaluated model section and whether it failed.
func (m *Manager) RecordSection(model string, failed bool) {
	if m == nil {
		return
	}
	m.sectionsTotal.WithLabelValues(model).Inc()
	if failed {
		m.sectionFailures.WithLabelValues(model).Inc()
	}
}

func (m *Manager) AddFolds(model string, n int) {
	if m == nil {
		return
	}
	m.foldsEvaluated.WithLabelValues(model).Add(float64(n))
}

func (m *Manager) AddGridCandidates(model string, n int) {
	if m == nil {
		return
	}
	m.gridCandidates.WithLabelValues(model).Add(float64(n))
}

func (m *Manager) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Manager) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}
