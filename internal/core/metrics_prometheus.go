package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exposes operation timings and result counters to a
// Prometheus registry.
type PrometheusMetricsRecorder struct {
	durations *prometheus.HistogramVec
	results   *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder constructs a recorder and registers its
// collectors with the supplied registerer (prometheus.DefaultRegisterer when
// nil).
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rec := &PrometheusMetricsRecorder{
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "contigalias",
			Name:      "operation_duration_seconds",
			Help:      "Duration of service operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contigalias",
			Name:      "operation_results_total",
			Help:      "Service operation outcomes by status.",
		}, []string{"operation", "status"}),
	}
	for _, c := range []prometheus.Collector{rec.durations, rec.results} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// Observe records a service operation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
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
