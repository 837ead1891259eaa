package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tigerroll/moray/pkg/batch/adapter/docstore"
	model "github.com/tigerroll/moray/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/moray/pkg/batch/core/domain/repository"
	"github.com/tigerroll/moray/pkg/batch/support/util/exception"
	"github.com/tigerroll/moray/pkg/batch/support/util/logger"
)

// CreateJobInstance allocates an ID and inserts a new JobInstance document.
// The (jobName, jobKey) pair identifies the logical instance; an existing
// pair fails the create. The unique index backs up this check against
// concurrent creates racing past the lookup.
func (r *MongoJobRepository) CreateJobInstance(ctx context.Context, jobName string, params model.JobParameters) (instance *model.JobInstance, err error) {
	const op = "MongoJobRepository.CreateJobInstance"
	defer func(start time.Time) { r.record(ctx, collectionJobInstance, "create", start, err) }(time.Now())

	if jobName == "" {
		return nil, exception.NewBatchError(op, "job name must not be empty", nil, false, false)
	}
	if params.IsZero() {
		return nil, exception.NewBatchError(op, "job parameters must not be nil", nil, false, false)
	}

	_, err = r.FindJobInstanceByJobNameAndParameters(ctx, jobName, params)
	if err == nil {
		return nil, exception.NewBatchError(op,
			fmt.Sprintf("JobInstance for job '%s' already exists", jobName),
			repository.ErrJobInstanceAlreadyExists, false, false)
	}
	if !errors.Is(err, repository.ErrJobInstanceNotFound) {
		return nil, err
	}

	id, err := r.seq.NextID(ctx, collectionJobInstance)
	if err != nil {
		return nil, err
	}

	instance = model.NewJobInstance(jobName, params)
	instance.ID = id
	instance.Version = 0

	err = r.collection(collectionJobInstance).InsertOne(ctx, jobInstanceToDoc(instance))
	if err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, exception.NewBatchError(op,
				fmt.Sprintf("JobInstance for job '%s' already exists", jobName),
				repository.ErrJobInstanceAlreadyExists, false, false)
		}
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to save JobInstance (ID: %d)", id), err, false, true)
	}
	return instance, nil
}

// FindJobInstanceByJobNameAndParameters finds the JobInstance matching the
// job name and the key derived from the parameters. A key match with
// differing parameters is treated as a hash collision and skipped.
func (r *MongoJobRepository) FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (instance *model.JobInstance, err error) {
	const op = "MongoJobRepository.FindJobInstanceByJobNameAndParameters"
	defer func(start time.Time) { r.record(ctx, collectionJobInstance, "find", start, err) }(time.Now())

	if jobName == "" {
		return nil, exception.NewBatchError(op, "job name must not be empty", nil, false, false)
	}
	if params.IsZero() {
		return nil, exception.NewBatchError(op, "job parameters must not be nil", nil, false, false)
	}

	doc, err := r.collection(collectionJobInstance).FindOne(ctx, docstore.Filter{
		jobNameKey: jobName,
		jobKeyKey:  params.Key(),
	})
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to find JobInstance", err, false, true)
	}
	if doc == nil {
		return nil, repository.ErrJobInstanceNotFound
	}

	instance = docToJobInstance(doc)
	if !instance.Parameters.Equal(params) {
		logger.Warnf("%s: JobInstance (ID: %d) key matched but parameters mismatched. Possible digest collision.", op, instance.ID)
		return nil, repository.ErrJobInstanceNotFound
	}
	return instance, nil
}

// FindJobInstanceByID finds a JobInstance by its ID.
func (r *MongoJobRepository) FindJobInstanceByID(ctx context.Context, id int64) (instance *model.JobInstance, err error) {
	const op = "MongoJobRepository.FindJobInstanceByID"
	defer func(start time.Time) { r.record(ctx, collectionJobInstance, "find", start, err) }(time.Now())

	doc, err := r.collection(collectionJobInstance).FindOne(ctx, docstore.Filter{jobInstanceIDKey: id})
	if err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find JobInstance by ID: %d", id), err, false, true)
	}
	if doc == nil {
		return nil, repository.ErrJobInstanceNotFound
	}
	return docToJobInstance(doc), nil
}

// FindJobInstanceByExecution resolves the owning JobInstance of the given
// JobExecution via the persisted execution record.
func (r *MongoJobRepository) FindJobInstanceByExecution(ctx context.Context, jobExecution *model.JobExecution) (instance *model.JobInstance, err error) {
	const op = "MongoJobRepository.FindJobInstanceByExecution"
	defer func(start time.Time) { r.record(ctx, collectionJobInstance, "find", start, err) }(time.Now())

	if jobExecution == nil {
		return nil, exception.NewBatchError(op, "job execution must not be nil", nil, false, false)
	}

	executionDoc, err := r.collection(collectionJobExecution).FindOne(ctx, docstore.Filter{jobExecutionIDKey: jobExecution.ID})
	if err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to resolve JobExecution (ID: %d)", jobExecution.ID), err, false, true)
	}
	if executionDoc == nil {
		return nil, repository.ErrJobInstanceNotFound
	}

	return r.FindJobInstanceByID(ctx, docInt64(executionDoc, jobInstanceIDKey))
}

// FindJobInstancesByJobName returns instances of the given job, newest IDs
// first, paginated by start offset and count.
func (r *MongoJobRepository) FindJobInstancesByJobName(ctx context.Context, jobName string, start, count int) (instances []*model.JobInstance, err error) {
	const op = "MongoJobRepository.FindJobInstancesByJobName"
	defer func(startTime time.Time) { r.record(ctx, collectionJobInstance, "list", startTime, err) }(time.Now())

	cur, err := r.collection(collectionJobInstance).Find(ctx,
		docstore.Filter{jobNameKey: jobName},
		&docstore.FindOptions{
			Sort:  []docstore.Sort{{Field: jobInstanceIDKey, Descending: true}},
			Skip:  int64(start),
			Limit: int64(count),
		})
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to find JobInstances by job name", err, false, true)
	}
	docs, err := drainDocuments(ctx, cur)
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to read JobInstances", err, false, true)
	}

	instances = make([]*model.JobInstance, 0, len(docs))
	for _, doc := range docs {
		instances = append(instances, docToJobInstance(doc))
	}
	return instances, nil
}

// GetJobInstanceCount returns the number of JobInstances for a given job name.
func (r *MongoJobRepository) GetJobInstanceCount(ctx context.Context, jobName string) (count int, err error) {
	const op = "MongoJobRepository.GetJobInstanceCount"
	defer func(start time.Time) { r.record(ctx, collectionJobInstance, "count", start, err) }(time.Now())

	cur, err := r.collection(collectionJobInstance).Find(ctx,
		docstore.Filter{jobNameKey: jobName},
		&docstore.FindOptions{Projection: []string{jobInstanceIDKey}})
	if err != nil {
		return 0, exception.NewBatchError(op, "failed to count JobInstances", err, false, true)
	}
	docs, err := drainDocuments(ctx, cur)
	if err != nil {
		return 0, exception.NewBatchError(op, "failed to count JobInstances", err, false, true)
	}
	return len(docs), nil
}

// GetJobNames returns the sorted list of all distinct job names.
func (r *MongoJobRepository) GetJobNames(ctx context.Context) (names []string, err error) {
	const op = "MongoJobRepository.GetJobNames"
	defer func(start time.Time) { r.record(ctx, collectionJobInstance, "names", start, err) }(time.Now())

	values, err := r.collection(collectionJobInstance).Distinct(ctx, jobNameKey, docstore.Filter{})
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to list job names", err, false, true)
	}
	names = make([]string, 0, len(values))
	for _, v := range values {
		if name, ok := v.(string); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
