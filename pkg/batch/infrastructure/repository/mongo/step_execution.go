package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/moray/pkg/batch/adapter/docstore"
	model "github.com/tigerroll/moray/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/moray/pkg/batch/core/domain/repository"
	"github.com/tigerroll/moray/pkg/batch/support/util/exception"
	"github.com/tigerroll/moray/pkg/batch/support/util/logger"
)

func validateStepExecution(op string, execution *model.StepExecution) error {
	if execution == nil {
		return exception.NewBatchError(op, "step execution must not be nil", nil, false, false)
	}
	if execution.StepName == "" {
		return exception.NewBatchError(op, "StepExecution step name must be set", nil, false, false)
	}
	if execution.StartTime == nil {
		return exception.NewBatchError(op, "StepExecution start time must be set", nil, false, false)
	}
	if execution.Status == "" {
		return exception.NewBatchError(op, "StepExecution status must be set", nil, false, false)
	}
	return nil
}

// SaveStepExecution persists a new StepExecution, allocating its ID from the
// StepExecution sequence and writing version 0. A caller-supplied ID or
// version is an input error.
func (r *MongoJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) (err error) {
	const op = "MongoJobRepository.SaveStepExecution"
	defer func(start time.Time) { r.record(ctx, collectionStepExecution, "save", start, err) }(time.Now())

	if stepExecution != nil && stepExecution.ID != 0 {
		return exception.NewBatchError(op, "to-be-saved (not updated) StepExecution can't already have an ID assigned", nil, false, false)
	}
	if stepExecution != nil && stepExecution.Version != 0 {
		return exception.NewBatchError(op, "to-be-saved (not updated) StepExecution can't already have a version assigned", nil, false, false)
	}
	if err = validateStepExecution(op, stepExecution); err != nil {
		return err
	}

	id, err := r.seq.NextID(ctx, collectionStepExecution)
	if err != nil {
		return err
	}
	stepExecution.ID = id
	stepExecution.Version = 0

	doc := stepExecutionToDocWithoutVersion(stepExecution)
	doc[versionKey] = int64(stepExecution.Version)
	if err = r.collection(collectionStepExecution).InsertOne(ctx, doc); err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save StepExecution (ID: %d)", id), err, false, true)
	}
	return nil
}

// SaveStepExecutions persists a batch of new StepExecutions. The batch is not
// transactional; the first failure aborts the remainder.
func (r *MongoJobRepository) SaveStepExecutions(ctx context.Context, stepExecutions []*model.StepExecution) error {
	const op = "MongoJobRepository.SaveStepExecutions"
	if stepExecutions == nil {
		return exception.NewBatchError(op, "attempt to save a nil collection of step executions", nil, false, false)
	}
	for _, stepExecution := range stepExecutions {
		if err := r.SaveStepExecution(ctx, stepExecution); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStepExecution updates an existing StepExecution under the same
// optimistic-locking protocol as UpdateJobExecution.
func (r *MongoJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) (err error) {
	const op = "MongoJobRepository.UpdateStepExecution"
	defer func(start time.Time) { r.record(ctx, collectionStepExecution, "update", start, err) }(time.Now())

	if err = validateStepExecution(op, stepExecution); err != nil {
		return err
	}
	if stepExecution.ID == 0 {
		return exception.NewBatchError(op, "StepExecution must be saved before it can be updated", nil, false, false)
	}

	coll := r.collection(collectionStepExecution)
	doc := stepExecutionToDocWithoutVersion(stepExecution)
	doc[versionKey] = int64(stepExecution.Version + 1)
	result, err := coll.ReplaceOne(ctx, docstore.Filter{
		stepExecutionIDKey: stepExecution.ID,
		versionKey:         int64(stepExecution.Version),
	}, doc, false)
	if err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to update StepExecution (ID: %d)", stepExecution.ID), err, false, true)
	}

	if result.MatchedCount == 0 && result.ModifiedCount == 0 {
		logger.Errorf("%s: update of StepExecution (ID: %d) matched no document.", op, stepExecution.ID)
		r.recorder.RecordOptimisticLockConflict(ctx, collectionStepExecution)
		current, findErr := coll.FindOne(ctx, docstore.Filter{stepExecutionIDKey: stepExecution.ID})
		if findErr != nil {
			return exception.NewBatchError(op, fmt.Sprintf("failed to re-read StepExecution (ID: %d)", stepExecution.ID), findErr, false, true)
		}
		if current == nil {
			return exception.NewBatchError(op, "can't update this StepExecution, it was never saved", nil, false, false)
		}
		return exception.NewOptimisticLockingFailureException(op,
			fmt.Sprintf("attempt to update step execution id=%d with wrong version (%d), where current version is %d",
				stepExecution.ID, stepExecution.Version, docInt(current, versionKey)), nil)
	}

	stepExecution.Version++
	return nil
}

// FindStepExecution finds the StepExecution with the given ID scoped to the
// given JobExecution.
func (r *MongoJobRepository) FindStepExecution(ctx context.Context, jobExecution *model.JobExecution, stepExecutionID int64) (execution *model.StepExecution, err error) {
	const op = "MongoJobRepository.FindStepExecution"
	defer func(start time.Time) { r.record(ctx, collectionStepExecution, "find", start, err) }(time.Now())

	if jobExecution == nil || jobExecution.ID == 0 {
		return nil, exception.NewBatchError(op, "job execution with an ID is required", nil, false, false)
	}

	doc, err := r.collection(collectionStepExecution).FindOne(ctx, docstore.Filter{
		stepExecutionIDKey: stepExecutionID,
		jobExecutionIDKey:  jobExecution.ID,
	})
	if err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find StepExecution by ID: %d", stepExecutionID), err, false, true)
	}
	if doc == nil {
		return nil, repository.ErrStepExecutionNotFound
	}
	return docToStepExecution(doc, jobExecution), nil
}

// AddStepExecutions loads all StepExecutions of the given JobExecution,
// ordered by step execution ID ascending, and attaches them to it.
func (r *MongoJobRepository) AddStepExecutions(ctx context.Context, jobExecution *model.JobExecution) (err error) {
	const op = "MongoJobRepository.AddStepExecutions"
	defer func(start time.Time) { r.record(ctx, collectionStepExecution, "list", start, err) }(time.Now())

	if jobExecution == nil || jobExecution.ID == 0 {
		return exception.NewBatchError(op, "job execution with an ID is required", nil, false, false)
	}

	cur, err := r.collection(collectionStepExecution).Find(ctx,
		docstore.Filter{jobExecutionIDKey: jobExecution.ID},
		&docstore.FindOptions{Sort: []docstore.Sort{{Field: stepExecutionIDKey}}})
	if err != nil {
		return exception.NewBatchError(op, "failed to find StepExecutions", err, false, true)
	}
	docs, err := drainDocuments(ctx, cur)
	if err != nil {
		return exception.NewBatchError(op, "failed to read StepExecutions", err, false, true)
	}

	for _, doc := range docs {
		jobExecution.AddStepExecution(docToStepExecution(doc, jobExecution))
	}
	logger.Debugf("%s: attached %d step executions to JobExecution (ID: %d).", op, len(docs), jobExecution.ID)
	return nil
}
