// Package mongo implements the repository.JobRepository interface on top of
// the docstore port, persisting batch metadata in the JobInstance,
// JobExecution, StepExecution, ExecutionContext and Sequences collections.
package mongo

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/moray/pkg/batch/adapter/docstore"
	repository "github.com/tigerroll/moray/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/moray/pkg/batch/core/metrics"
	"github.com/tigerroll/moray/pkg/batch/support/util/exception"
	"github.com/tigerroll/moray/pkg/batch/support/util/logger"
)

// MongoJobRepository implements the repository.JobRepository interface.
type MongoJobRepository struct {
	store    docstore.Store
	seq      *SequenceGenerator
	recorder metrics.MetricRecorder
}

// NewMongoJobRepository creates a new instance of MongoJobRepository.
//
// Parameters:
//
//	store: The document store holding the metadata collections.
//	recorder: The metric recorder; nil falls back to the no-op recorder.
//
// Returns:
//
//	A new instance of repository.JobRepository.
func NewMongoJobRepository(store docstore.Store, recorder metrics.MetricRecorder) repository.JobRepository {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &MongoJobRepository{
		store:    store,
		seq:      NewSequenceGenerator(store, recorder),
		recorder: recorder,
	}
}

func (r *MongoJobRepository) collection(name string) docstore.Collection {
	return r.store.Collection(name)
}

// record reports one finished operation to the metric recorder.
func (r *MongoJobRepository) record(ctx context.Context, collection, operation string, start time.Time, err error) {
	r.recorder.RecordOperation(ctx, collection, operation, time.Since(start), err)
}

// drainDocuments reads all remaining documents of the cursor and closes it.
func drainDocuments(ctx context.Context, cur docstore.Cursor) ([]docstore.Document, error) {
	defer func() {
		if err := cur.Close(ctx); err != nil {
			logger.Warnf("Failed to close cursor: %v", err)
		}
	}()
	var docs []docstore.Document
	for cur.Next(ctx) {
		doc, err := cur.Decode()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// EnsureIndexes creates the indexes the point lookups and joins rely on.
// The (jobName, jobKey) index is unique so that two concurrent creates of the
// same logical instance cannot both succeed.
func (r *MongoJobRepository) EnsureIndexes(ctx context.Context) error {
	const op = "MongoJobRepository.EnsureIndexes"
	var result *multierror.Error

	type indexSpec struct {
		collection string
		fields     []string
		unique     bool
	}
	specs := []indexSpec{
		{collectionSequences, []string{sequenceNameKey}, true},
		{collectionJobInstance, []string{jobInstanceIDKey}, false},
		{collectionJobInstance, []string{jobNameKey, jobKeyKey}, true},
		{collectionJobExecution, []string{jobExecutionIDKey, jobInstanceIDKey}, false},
		{collectionStepExecution, []string{stepExecutionIDKey, jobExecutionIDKey}, false},
		{collectionExecutionContext, []string{stepExecutionIDKey, jobExecutionIDKey}, false},
	}
	for _, spec := range specs {
		if err := r.collection(spec.collection).EnsureIndex(ctx, spec.fields, spec.unique); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return exception.NewBatchError(op, "failed to create metadata indexes", err, false, true)
	}
	logger.Debugf("Metadata indexes are in place.")
	return nil
}

// Close releases the underlying store.
func (r *MongoJobRepository) Close() error {
	return r.store.Close(context.Background())
}

var _ repository.JobRepository = (*MongoJobRepository)(nil)
