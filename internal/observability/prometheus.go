package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports store operation metrics through a Prometheus
// registry: an operation duration histogram, a result counter, and a cache
// hit/miss counter.
type PrometheusRecorder struct {
	durations *prometheus.HistogramVec
	results   *prometheus.CounterVec
	cache     *prometheus.CounterVec
}

// NewPrometheusRecorder registers the collectors with reg. Passing nil uses
// the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rec := &PrometheusRecorder{
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cachecore",
			Name:      "operation_duration_seconds",
			Help:      "Duration of store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachecore",
			Name:      "operation_results_total",
			Help:      "Store operation outcomes by status.",
		}, []string{"operation", "status"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachecore",
			Name:      "cache_requests_total",
			Help:      "Cache hits and misses per entity type.",
		}, []string{"entity", "outcome"}),
	}
	for _, collector := range []prometheus.Collector{rec.durations, rec.results, rec.cache} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Observe records a store operation outcome.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, status).Inc()
}

// CacheHit records a cache hit or miss for an entity type.
func (r *PrometheusRecorder) CacheHit(entity string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cache.WithLabelValues(entity, outcome).Inc()
}
