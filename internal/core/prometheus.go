package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetricsRecorder exports operation durations and outcomes and the
// number of published assets per kind.
type PrometheusMetricsRecorder struct {
	durations  *prometheus.HistogramVec
	operations *prometheus.CounterVec
	published  *prometheus.CounterVec
}

var (
	_ MetricsRecorder         = (*PrometheusMetricsRecorder)(nil)
	_ PublishedAssetsRecorder = (*PrometheusMetricsRecorder)(nil)
)

// NewPrometheusMetricsRecorder registers the collectors with reg under
// namespace. A nil reg uses the default registerer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer, namespace string) *PrometheusMetricsRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &PrometheusMetricsRecorder{
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of publication service operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Publication service operations by outcome.",
		}, []string{"operation", "status"}),
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_assets_total",
			Help:      "Assets promoted to official by kind.",
		}, []string{"kind"}),
	}
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := "error"
	if success {
		status = "success"
	}
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
	r.operations.WithLabelValues(operation, status).Inc()
}

// AddPublished implements PublishedAssetsRecorder.
func (r *PrometheusMetricsRecorder) AddPublished(kind string, n int) {
	r.published.WithLabelValues(kind).Add(float64(n))
}
