package metrics

import (
	"context"
	"time"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used when metrics are disabled or during testing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

// RecordOperation does nothing.
func (r *NoOpMetricRecorder) RecordOperation(ctx context.Context, collection string, operation string, duration time.Duration, err error) {
}

// RecordOptimisticLockConflict does nothing.
func (r *NoOpMetricRecorder) RecordOptimisticLockConflict(ctx context.Context, collection string) {}

// RecordSequenceValue does nothing.
func (r *NoOpMetricRecorder) RecordSequenceValue(ctx context.Context, sequenceName string, value int64) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)
