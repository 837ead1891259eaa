package mongo

import (
	"context"
	"fmt"

	"github.com/tigerroll/moray/pkg/batch/adapter/docstore"
	metrics "github.com/tigerroll/moray/pkg/batch/core/metrics"
	"github.com/tigerroll/moray/pkg/batch/support/util/exception"
)

// SequenceGenerator allocates monotonically increasing int64 identifiers from
// named counters in the Sequences collection. Allocation relies on the
// storage engine's atomic increment-with-upsert, so concurrent callers never
// observe the same value and a missing counter starts at 1.
type SequenceGenerator struct {
	store    docstore.Store
	recorder metrics.MetricRecorder
}

// NewSequenceGenerator creates a SequenceGenerator over the given store.
func NewSequenceGenerator(store docstore.Store, recorder metrics.MetricRecorder) *SequenceGenerator {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &SequenceGenerator{store: store, recorder: recorder}
}

// NextID returns the next value of the named sequence.
func (g *SequenceGenerator) NextID(ctx context.Context, name string) (int64, error) {
	const op = "SequenceGenerator.NextID"
	value, err := g.store.Collection(collectionSequences).
		FindOneAndIncrement(ctx, docstore.Filter{sequenceNameKey: name}, sequenceValueKey, 1)
	if err != nil {
		return 0, exception.NewBatchError(op, fmt.Sprintf("failed to allocate next ID for sequence '%s'", name), err, false, true)
	}
	g.recorder.RecordSequenceValue(ctx, name, value)
	return value, nil
}
