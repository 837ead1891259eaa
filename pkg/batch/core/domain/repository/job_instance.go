package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/moray/pkg/batch/core/domain/model"
	"github.com/tigerroll/moray/pkg/batch/support/util/exception"
)

// ErrJobInstanceNotFound is returned when a JobInstance is not found.
var ErrJobInstanceNotFound = errors.New("job instance not found")

// ErrJobInstanceAlreadyExists is returned when a JobInstance with the same
// job name and job key already exists.
var ErrJobInstanceAlreadyExists = errors.New("job instance already exists")

func init() {
	// Register the error types in the registry upon startup.
	exception.RegisterErrorType("ErrJobInstanceNotFound", ErrJobInstanceNotFound)
	exception.RegisterErrorType("ErrJobInstanceAlreadyExists", ErrJobInstanceAlreadyExists)
}

// JobInstance defines operations for persisting and retrieving job instance metadata.
type JobInstance interface {
	// CreateJobInstance allocates an ID and persists a new JobInstance for the
	// given job name and parameters. It fails with ErrJobInstanceAlreadyExists
	// if an instance with the same (jobName, jobKey) pair exists.
	CreateJobInstance(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error)

	// FindJobInstanceByJobNameAndParameters finds the JobInstance matching the
	// job name and the key derived from the parameters.
	// Returns ErrJobInstanceNotFound if none exists.
	FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error)

	// FindJobInstanceByID finds a JobInstance by its ID.
	FindJobInstanceByID(ctx context.Context, id int64) (*model.JobInstance, error)

	// FindJobInstanceByExecution resolves the owning JobInstance of the given
	// JobExecution via the persisted execution record.
	FindJobInstanceByExecution(ctx context.Context, jobExecution *model.JobExecution) (*model.JobInstance, error)

	// FindJobInstancesByJobName returns instances of the given job,
	// newest IDs first, paginated by start offset and count.
	FindJobInstancesByJobName(ctx context.Context, jobName string, start, count int) ([]*model.JobInstance, error)

	// GetJobInstanceCount returns the number of JobInstances for a given job name.
	GetJobInstanceCount(ctx context.Context, jobName string) (int, error)

	// GetJobNames returns the sorted list of all distinct job names.
	GetJobNames(ctx context.Context) ([]string, error)
}
