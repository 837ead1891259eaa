package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/moray/pkg/batch/core/domain/model"
	"github.com/tigerroll/moray/pkg/batch/support/util/exception"
)

// ErrStepExecutionNotFound is the error returned when a StepExecution is not found.
var ErrStepExecutionNotFound = errors.New("step execution not found")

func init() {
	// Register the error type in the registry upon startup.
	exception.RegisterErrorType("ErrStepExecutionNotFound", ErrStepExecutionNotFound)
}

type StepExecution interface {
	// SaveStepExecution persists a new StepExecution, allocating its ID and
	// writing version 0. A caller-supplied ID or version is an input error;
	// step name, start time and status must be set.
	SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error

	// SaveStepExecutions persists a batch of new StepExecutions. The batch is
	// not transactional; the first failure aborts the remainder.
	SaveStepExecutions(ctx context.Context, stepExecutions []*model.StepExecution) error

	// UpdateStepExecution updates an existing StepExecution under the same
	// optimistic-locking protocol as UpdateJobExecution.
	UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error

	// FindStepExecution finds the StepExecution with the given ID scoped to
	// the given JobExecution. Returns ErrStepExecutionNotFound if none exists.
	FindStepExecution(ctx context.Context, jobExecution *model.JobExecution, stepExecutionID int64) (*model.StepExecution, error)

	// AddStepExecutions loads all StepExecutions of the given JobExecution,
	// ordered by step execution ID ascending, and attaches them to it.
	AddStepExecutions(ctx context.Context, jobExecution *model.JobExecution) error
}
