package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/moray/pkg/batch/adapter/docstore"
	model "github.com/tigerroll/moray/pkg/batch/core/domain/model"
	"github.com/tigerroll/moray/pkg/batch/support/util/exception"
)

// findExecutionContext reads the context document keyed by the given
// execution ID field. An absent document decodes to an empty context.
func (r *MongoJobRepository) findExecutionContext(ctx context.Context, op, executionIDKey string, executionID int64) (model.ExecutionContext, error) {
	if executionID == 0 {
		return nil, exception.NewBatchError(op, "execution ID must be set", nil, false, false)
	}
	doc, err := r.collection(collectionExecutionContext).FindOne(ctx, docstore.Filter{executionIDKey: executionID})
	if err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find ExecutionContext (%s: %d)", executionIDKey, executionID), err, false, true)
	}
	return decodeExecutionContext(doc, jobExecutionIDKey, stepExecutionIDKey), nil
}

// saveExecutionContext upserts the context document keyed by the given
// execution ID field, replacing any previously stored attributes.
func (r *MongoJobRepository) saveExecutionContext(ctx context.Context, op, executionIDKey string, executionID int64, ec model.ExecutionContext) error {
	if executionID == 0 {
		return exception.NewBatchError(op, "execution ID must be set", nil, false, false)
	}
	if ec == nil {
		return exception.NewBatchError(op, "execution context must not be nil", nil, false, false)
	}

	doc := encodeExecutionContext(ec)
	doc[executionIDKey] = executionID
	_, err := r.collection(collectionExecutionContext).ReplaceOne(ctx,
		docstore.Filter{executionIDKey: executionID}, doc, true)
	if err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save ExecutionContext (%s: %d)", executionIDKey, executionID), err, false, true)
	}
	return nil
}

// FindJobExecutionContext retrieves the ExecutionContext of a JobExecution.
func (r *MongoJobRepository) FindJobExecutionContext(ctx context.Context, jobExecutionID int64) (ec model.ExecutionContext, err error) {
	const op = "MongoJobRepository.FindJobExecutionContext"
	defer func(start time.Time) { r.record(ctx, collectionExecutionContext, "find", start, err) }(time.Now())
	return r.findExecutionContext(ctx, op, jobExecutionIDKey, jobExecutionID)
}

// FindStepExecutionContext retrieves the ExecutionContext of a StepExecution.
func (r *MongoJobRepository) FindStepExecutionContext(ctx context.Context, stepExecutionID int64) (ec model.ExecutionContext, err error) {
	const op = "MongoJobRepository.FindStepExecutionContext"
	defer func(start time.Time) { r.record(ctx, collectionExecutionContext, "find", start, err) }(time.Now())
	return r.findExecutionContext(ctx, op, stepExecutionIDKey, stepExecutionID)
}

// SaveJobExecutionContext upserts the ExecutionContext of the given JobExecution.
func (r *MongoJobRepository) SaveJobExecutionContext(ctx context.Context, jobExecution *model.JobExecution) (err error) {
	const op = "MongoJobRepository.SaveJobExecutionContext"
	defer func(start time.Time) { r.record(ctx, collectionExecutionContext, "save", start, err) }(time.Now())
	if jobExecution == nil {
		return exception.NewBatchError(op, "job execution must not be nil", nil, false, false)
	}
	return r.saveExecutionContext(ctx, op, jobExecutionIDKey, jobExecution.ID, jobExecution.ExecutionContext)
}

// SaveStepExecutionContext upserts the ExecutionContext of the given StepExecution.
func (r *MongoJobRepository) SaveStepExecutionContext(ctx context.Context, stepExecution *model.StepExecution) (err error) {
	const op = "MongoJobRepository.SaveStepExecutionContext"
	defer func(start time.Time) { r.record(ctx, collectionExecutionContext, "save", start, err) }(time.Now())
	if stepExecution == nil {
		return exception.NewBatchError(op, "step execution must not be nil", nil, false, false)
	}
	return r.saveExecutionContext(ctx, op, stepExecutionIDKey, stepExecution.ID, stepExecution.ExecutionContext)
}

// UpdateJobExecutionContext upserts the ExecutionContext of the given JobExecution.
// Save and update share upsert semantics, so this is an alias of the save path.
func (r *MongoJobRepository) UpdateJobExecutionContext(ctx context.Context, jobExecution *model.JobExecution) error {
	return r.SaveJobExecutionContext(ctx, jobExecution)
}

// UpdateStepExecutionContext upserts the ExecutionContext of the given StepExecution.
func (r *MongoJobRepository) UpdateStepExecutionContext(ctx context.Context, stepExecution *model.StepExecution) error {
	return r.SaveStepExecutionContext(ctx, stepExecution)
}

// SaveExecutionContexts saves the context of each step execution and re-saves
// the context of its owning job execution. The batch is not transactional;
// every failure is collected and the aggregate returned.
func (r *MongoJobRepository) SaveExecutionContexts(ctx context.Context, stepExecutions []*model.StepExecution) error {
	const op = "MongoJobRepository.SaveExecutionContexts"
	if stepExecutions == nil {
		return exception.NewBatchError(op, "attempt to save a nil collection of step executions", nil, false, false)
	}

	var result *multierror.Error
	for _, stepExecution := range stepExecutions {
		if err := r.SaveStepExecutionContext(ctx, stepExecution); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if stepExecution.JobExecution != nil {
			if err := r.SaveJobExecutionContext(ctx, stepExecution.JobExecution); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return exception.NewBatchError(op, "failed to save one or more execution contexts", err, false, true)
	}
	return nil
}
