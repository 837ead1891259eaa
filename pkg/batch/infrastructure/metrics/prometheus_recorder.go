package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	metrics "github.com/tigerroll/moray/pkg/batch/core/metrics"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	operationDurationSeconds *prometheus.HistogramVec
	operationCounter         *prometheus.CounterVec
	lockConflictCounter      *prometheus.CounterVec
	sequenceValueGauge       *prometheus.GaugeVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() metrics.MetricRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		operationDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "batch_repository_operation_duration_seconds",
			Help:    "Duration of job repository persistence operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"collection", "operation", "outcome"}),
		operationCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_repository_operation_total",
			Help: "Total number of job repository persistence operations by outcome.",
		}, []string{"collection", "operation", "outcome"}),
		lockConflictCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_repository_lock_conflict_total",
			Help: "Total number of updates rejected by optimistic lock version checks.",
		}, []string{"collection"}),
		sequenceValueGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "batch_repository_sequence_value",
			Help: "Most recently allocated value of each identifier sequence.",
		}, []string{"sequence"}),
	}

	registry.MustRegister(r.operationDurationSeconds)
	registry.MustRegister(r.operationCounter)
	registry.MustRegister(r.lockConflictCounter)
	registry.MustRegister(r.sequenceValueGauge)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordOperation records one repository operation with its duration and outcome.
func (r *PrometheusRecorder) RecordOperation(ctx context.Context, collection string, operation string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.operationDurationSeconds.WithLabelValues(collection, operation, outcome).Observe(duration.Seconds())
	r.operationCounter.WithLabelValues(collection, operation, outcome).Inc()
}

// RecordOptimisticLockConflict records a version-check rejection on the given collection.
func (r *PrometheusRecorder) RecordOptimisticLockConflict(ctx context.Context, collection string) {
	r.lockConflictCounter.WithLabelValues(collection).Inc()
}

// RecordSequenceValue records the most recently allocated value of the named sequence.
func (r *PrometheusRecorder) RecordSequenceValue(ctx context.Context, sequenceName string, value int64) {
	r.sequenceValueGauge.WithLabelValues(sequenceName).Set(float64(value))
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
