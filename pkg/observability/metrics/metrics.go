package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "urisense"

// Metrics holds the serving collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	cache       *prometheus.CounterVec
	redactions  *prometheus.CounterVec
	latency     prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serving",
			Name:      "predictions_total",
			Help:      "Completed assessments by diagnosis and risk level.",
		}, []string{"diagnosis", "risk_level"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serving",
			Name:      "prediction_failures_total",
			Help:      "Rejected or failed prediction requests by reason.",
		}, []string{"reason"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serving",
			Name:      "prediction_cache_lookups_total",
			Help:      "Prediction cache lookups by result.",
		}, []string{"result"}),
		redactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "serving",
			Name:      "redacted_identifiers_total",
			Help:      "Identifier types masked in prediction inputs before logging.",
		}, []string{"type"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "serving",
			Name:      "prediction_duration_seconds",
			Help:      "Time spent assessing a sample, cache included.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
	}
	m.registry.MustRegister(
		m.predictions,
		m.failures,
		m.cache,
		m.redactions,
		m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObservePrediction(diagnosis, riskLevel string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(diagnosis, riskLevel).Inc()
	m.latency.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveFailure(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRedaction(types []string) {
	if m == nil {
		return
	}
	for _, t := range types {
		m.redactions.WithLabelValues(t).Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
