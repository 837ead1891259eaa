package metrics

import (
	"context"
	"time"
)

// MetricRecorder is an abstract interface for recording metrics about the
// persistence operations of the job repository.
//
// It provides a standardized way to observe repository traffic, latency and
// contention, and facilitates integration with different metrics backends
// (e.g., Prometheus, OpenTelemetry Metrics).
type MetricRecorder interface {
	// RecordOperation records one repository operation against a collection,
	// with its duration and outcome.
	//
	// ctx: The context for the operation.
	// collection: The collection the operation touched (e.g., "JobExecution").
	// operation: The logical operation name (e.g., "save", "update", "find").
	// duration: Wall-clock time the operation took.
	// err: The operation error, nil on success.
	RecordOperation(ctx context.Context, collection string, operation string, duration time.Duration, err error)

	// RecordOptimisticLockConflict records a rejected update caused by a
	// version mismatch on the given collection.
	RecordOptimisticLockConflict(ctx context.Context, collection string)

	// RecordSequenceValue records the most recently allocated value of the
	// named sequence.
	RecordSequenceValue(ctx context.Context, sequenceName string, value int64)
}
