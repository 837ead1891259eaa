package repository

import (
	"context"

	model "github.com/tigerroll/moray/pkg/batch/core/domain/model"
)

// ExecutionContextRepository defines operations for persisting and retrieving
// the ExecutionContext attribute bags attached to job and step executions.
// Save and Update are both atomic upserts keyed by the owning execution ID.
type ExecutionContextRepository interface {
	// FindJobExecutionContext retrieves the ExecutionContext of a JobExecution.
	// An empty context is returned when none is stored.
	FindJobExecutionContext(ctx context.Context, jobExecutionID int64) (model.ExecutionContext, error)

	// FindStepExecutionContext retrieves the ExecutionContext of a StepExecution.
	// An empty context is returned when none is stored.
	FindStepExecutionContext(ctx context.Context, stepExecutionID int64) (model.ExecutionContext, error)

	// SaveJobExecutionContext upserts the ExecutionContext of the given JobExecution.
	SaveJobExecutionContext(ctx context.Context, jobExecution *model.JobExecution) error

	// SaveStepExecutionContext upserts the ExecutionContext of the given StepExecution.
	SaveStepExecutionContext(ctx context.Context, stepExecution *model.StepExecution) error

	// UpdateJobExecutionContext upserts the ExecutionContext of the given JobExecution.
	UpdateJobExecutionContext(ctx context.Context, jobExecution *model.JobExecution) error

	// UpdateStepExecutionContext upserts the ExecutionContext of the given StepExecution.
	UpdateStepExecutionContext(ctx context.Context, stepExecution *model.StepExecution) error

	// SaveExecutionContexts saves the context of each step execution and
	// re-saves the context of its owning job execution. The batch is not
	// transactional across the set; all failures are collected and reported
	// together.
	SaveExecutionContexts(ctx context.Context, stepExecutions []*model.StepExecution) error
}
