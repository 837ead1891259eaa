package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/moray/pkg/batch/core/domain/model"
	"github.com/tigerroll/moray/pkg/batch/support/util/exception"
)

// ErrJobExecutionNotFound is the error returned when a JobExecution is not found.
var ErrJobExecutionNotFound = errors.New("job execution not found")

func init() {
	// Register the error type in the registry upon startup.
	exception.RegisterErrorType("ErrJobExecutionNotFound", ErrJobExecutionNotFound)
}

type JobExecution interface {
	// SaveJobExecution persists a new JobExecution, allocating its ID and
	// writing version 0. The owning instance ID, status and create time must
	// be set.
	SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error

	// UpdateJobExecution updates an existing JobExecution under optimistic
	// locking: the update succeeds only if the stored version still equals
	// the in-memory version, which is then incremented on the passed object.
	UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error

	// FindJobExecutionsByJobInstance finds all JobExecutions of the given
	// JobInstance, sorted by execution ID descending.
	FindJobExecutionsByJobInstance(ctx context.Context, jobInstance *model.JobInstance) ([]*model.JobExecution, error)

	// FindLastJobExecution finds the most recently created JobExecution of the
	// given JobInstance. Returns ErrJobExecutionNotFound if none exists.
	FindLastJobExecution(ctx context.Context, jobInstance *model.JobInstance) (*model.JobExecution, error)

	// FindRunningJobExecutions finds all executions of the named job that have
	// no end time yet, across all instances of that job, newest IDs first.
	FindRunningJobExecutions(ctx context.Context, jobName string) ([]*model.JobExecution, error)

	// FindJobExecutionByID finds a JobExecution by its ID.
	FindJobExecutionByID(ctx context.Context, executionID int64) (*model.JobExecution, error)

	// SynchronizeStatus reconciles the in-memory execution with storage: when
	// the stored version differs, the in-memory status is upgraded (never
	// downgraded) to the stored one and the in-memory version is overwritten
	// with the stored version. A missing document is re-saved first. This is
	// best-effort and may race with concurrent updates.
	SynchronizeStatus(ctx context.Context, jobExecution *model.JobExecution) error
}
