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

func validateJobExecution(op string, execution *model.JobExecution) error {
	if execution == nil {
		return exception.NewBatchError(op, "job execution must not be nil", nil, false, false)
	}
	if execution.JobInstanceID == 0 {
		return exception.NewBatchError(op, "JobExecution instance ID must be set", nil, false, false)
	}
	if execution.Status == "" {
		return exception.NewBatchError(op, "JobExecution status must be set", nil, false, false)
	}
	if execution.CreateTime.IsZero() {
		return exception.NewBatchError(op, "JobExecution create time must be set", nil, false, false)
	}
	return nil
}

// SaveJobExecution persists a new JobExecution, allocating its ID from the
// JobExecution sequence and writing version 0.
func (r *MongoJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) (err error) {
	const op = "MongoJobRepository.SaveJobExecution"
	defer func(start time.Time) { r.record(ctx, collectionJobExecution, "save", start, err) }(time.Now())

	if err = validateJobExecution(op, jobExecution); err != nil {
		return err
	}

	id, err := r.seq.NextID(ctx, collectionJobExecution)
	if err != nil {
		return err
	}
	jobExecution.ID = id
	jobExecution.Version = 0

	return r.insertJobExecution(ctx, op, jobExecution)
}

func (r *MongoJobRepository) insertJobExecution(ctx context.Context, op string, jobExecution *model.JobExecution) error {
	doc := jobExecutionToDocWithoutVersion(jobExecution)
	doc[versionKey] = int64(jobExecution.Version)
	if err := r.collection(collectionJobExecution).InsertOne(ctx, doc); err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save JobExecution (ID: %d)", jobExecution.ID), err, false, true)
	}
	return nil
}

// UpdateJobExecution updates an existing JobExecution under optimistic
// locking. The replacement is filtered by (ID, version); when nothing
// matched, a missing document is reported as a no-such-object error and a
// version mismatch as an optimistic locking failure naming both versions.
func (r *MongoJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) (err error) {
	const op = "MongoJobRepository.UpdateJobExecution"
	defer func(start time.Time) { r.record(ctx, collectionJobExecution, "update", start, err) }(time.Now())

	if err = validateJobExecution(op, jobExecution); err != nil {
		return err
	}
	if jobExecution.ID == 0 {
		return exception.NewBatchError(op, "JobExecution must be saved before it can be updated", nil, false, false)
	}

	coll := r.collection(collectionJobExecution)

	existing, err := coll.FindOne(ctx, docstore.Filter{jobExecutionIDKey: jobExecution.ID})
	if err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to look up JobExecution (ID: %d)", jobExecution.ID), err, false, true)
	}
	if existing == nil {
		return exception.NewNoSuchObjectException(op, fmt.Sprintf("invalid JobExecution, ID %d not found", jobExecution.ID))
	}

	doc := jobExecutionToDocWithoutVersion(jobExecution)
	doc[versionKey] = int64(jobExecution.Version + 1)
	result, err := coll.ReplaceOne(ctx, docstore.Filter{
		jobExecutionIDKey: jobExecution.ID,
		versionKey:        int64(jobExecution.Version),
	}, doc, false)
	if err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to update JobExecution (ID: %d)", jobExecution.ID), err, false, true)
	}

	if result.MatchedCount == 0 && result.ModifiedCount == 0 {
		logger.Errorf("%s: update of JobExecution (ID: %d) matched no document.", op, jobExecution.ID)
		r.recorder.RecordOptimisticLockConflict(ctx, collectionJobExecution)
		current, findErr := coll.FindOne(ctx, docstore.Filter{jobExecutionIDKey: jobExecution.ID})
		if findErr != nil {
			return exception.NewBatchError(op, fmt.Sprintf("failed to re-read JobExecution (ID: %d)", jobExecution.ID), findErr, false, true)
		}
		if current == nil {
			return exception.NewBatchError(op, "can't update this JobExecution, it was never saved", nil, false, false)
		}
		return exception.NewOptimisticLockingFailureException(op,
			fmt.Sprintf("attempt to update job execution id=%d with wrong version (%d), where current version is %d",
				jobExecution.ID, jobExecution.Version, docInt(current, versionKey)), nil)
	}

	jobExecution.Version++
	return nil
}

// FindJobExecutionsByJobInstance finds all JobExecutions of the given
// JobInstance, sorted by execution ID descending.
func (r *MongoJobRepository) FindJobExecutionsByJobInstance(ctx context.Context, jobInstance *model.JobInstance) (executions []*model.JobExecution, err error) {
	const op = "MongoJobRepository.FindJobExecutionsByJobInstance"
	defer func(start time.Time) { r.record(ctx, collectionJobExecution, "list", start, err) }(time.Now())

	if jobInstance == nil || jobInstance.ID == 0 {
		return nil, exception.NewBatchError(op, "job instance with an ID is required", nil, false, false)
	}

	cur, err := r.collection(collectionJobExecution).Find(ctx,
		docstore.Filter{jobInstanceIDKey: jobInstance.ID},
		&docstore.FindOptions{Sort: []docstore.Sort{{Field: jobExecutionIDKey, Descending: true}}})
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to find JobExecutions", err, false, true)
	}
	docs, err := drainDocuments(ctx, cur)
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to read JobExecutions", err, false, true)
	}

	executions = make([]*model.JobExecution, 0, len(docs))
	for _, doc := range docs {
		executions = append(executions, docToJobExecution(doc, jobInstance))
	}
	return executions, nil
}

// FindLastJobExecution finds the most recently created JobExecution of the
// given JobInstance.
func (r *MongoJobRepository) FindLastJobExecution(ctx context.Context, jobInstance *model.JobInstance) (execution *model.JobExecution, err error) {
	const op = "MongoJobRepository.FindLastJobExecution"
	defer func(start time.Time) { r.record(ctx, collectionJobExecution, "find", start, err) }(time.Now())

	if jobInstance == nil || jobInstance.ID == 0 {
		return nil, exception.NewBatchError(op, "job instance with an ID is required", nil, false, false)
	}

	cur, err := r.collection(collectionJobExecution).Find(ctx,
		docstore.Filter{jobInstanceIDKey: jobInstance.ID},
		&docstore.FindOptions{
			Sort:  []docstore.Sort{{Field: createTimeKey, Descending: true}},
			Limit: 1,
		})
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to find last JobExecution", err, false, true)
	}
	docs, err := drainDocuments(ctx, cur)
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to read last JobExecution", err, false, true)
	}
	if len(docs) == 0 {
		return nil, repository.ErrJobExecutionNotFound
	}
	if len(docs) > 1 {
		return nil, exception.NewBatchError(op, "there must be at most one latest JobExecution", nil, false, false)
	}
	return docToJobExecution(docs[0], jobInstance), nil
}

// FindRunningJobExecutions finds all executions of the named job that have no
// end time yet, across all instances of that job, newest IDs first.
func (r *MongoJobRepository) FindRunningJobExecutions(ctx context.Context, jobName string) (executions []*model.JobExecution, err error) {
	const op = "MongoJobRepository.FindRunningJobExecutions"
	defer func(start time.Time) { r.record(ctx, collectionJobExecution, "list", start, err) }(time.Now())

	instanceCur, err := r.collection(collectionJobInstance).Find(ctx,
		docstore.Filter{jobNameKey: jobName},
		&docstore.FindOptions{Projection: []string{jobInstanceIDKey}})
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to list JobInstances", err, false, true)
	}
	instanceDocs, err := drainDocuments(ctx, instanceCur)
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to read JobInstances", err, false, true)
	}
	ids := make([]interface{}, 0, len(instanceDocs))
	for _, doc := range instanceDocs {
		ids = append(ids, docInt64(doc, jobInstanceIDKey))
	}

	cur, err := r.collection(collectionJobExecution).Find(ctx,
		docstore.Filter{
			jobInstanceIDKey: docstore.In(ids...),
			endTimeKey:       nil,
		},
		&docstore.FindOptions{Sort: []docstore.Sort{{Field: jobExecutionIDKey, Descending: true}}})
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to find running JobExecutions", err, false, true)
	}
	docs, err := drainDocuments(ctx, cur)
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to read running JobExecutions", err, false, true)
	}

	executions = make([]*model.JobExecution, 0, len(docs))
	for _, doc := range docs {
		executions = append(executions, docToJobExecution(doc, nil))
	}
	return executions, nil
}

// FindJobExecutionByID finds a JobExecution by its ID.
func (r *MongoJobRepository) FindJobExecutionByID(ctx context.Context, executionID int64) (execution *model.JobExecution, err error) {
	const op = "MongoJobRepository.FindJobExecutionByID"
	defer func(start time.Time) { r.record(ctx, collectionJobExecution, "find", start, err) }(time.Now())

	doc, err := r.collection(collectionJobExecution).FindOne(ctx, docstore.Filter{jobExecutionIDKey: executionID})
	if err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find JobExecution by ID: %d", executionID), err, false, true)
	}
	if doc == nil {
		return nil, repository.ErrJobExecutionNotFound
	}
	return docToJobExecution(doc, nil), nil
}

// SynchronizeStatus reconciles the in-memory execution with storage. When the
// stored version differs, the in-memory status is upgraded to the stored one
// and the in-memory version overwritten with the stored version; a missing
// document is re-saved first under the execution's current ID and version.
// Best-effort: a concurrent update between the reads may still win.
func (r *MongoJobRepository) SynchronizeStatus(ctx context.Context, jobExecution *model.JobExecution) (err error) {
	const op = "MongoJobRepository.SynchronizeStatus"
	defer func(start time.Time) { r.record(ctx, collectionJobExecution, "synchronize", start, err) }(time.Now())

	if jobExecution == nil || jobExecution.ID == 0 {
		return exception.NewBatchError(op, "job execution with an ID is required", nil, false, false)
	}

	coll := r.collection(collectionJobExecution)
	doc, err := coll.FindOne(ctx, docstore.Filter{jobExecutionIDKey: jobExecution.ID})
	if err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to read JobExecution (ID: %d)", jobExecution.ID), err, false, true)
	}

	currentVersion := 0
	if doc != nil {
		currentVersion = docInt(doc, versionKey)
	}
	if currentVersion == jobExecution.Version {
		return nil
	}

	if doc == nil {
		logger.Warnf("%s: JobExecution (ID: %d) is missing from storage, re-saving.", op, jobExecution.ID)
		if err = r.insertJobExecution(ctx, op, jobExecution); err != nil {
			return err
		}
		doc, err = coll.FindOne(ctx, docstore.Filter{jobExecutionIDKey: jobExecution.ID})
		if err != nil {
			return exception.NewBatchError(op, fmt.Sprintf("failed to re-read JobExecution (ID: %d)", jobExecution.ID), err, false, true)
		}
		if doc == nil {
			return exception.NewBatchError(op, fmt.Sprintf("JobExecution (ID: %d) vanished after re-save", jobExecution.ID), nil, false, true)
		}
	}

	jobExecution.UpgradeStatus(model.BatchStatus(docString(doc, statusKey)))
	jobExecution.Version = currentVersion
	return nil
}
