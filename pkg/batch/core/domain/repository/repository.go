package repository

import "context"

// JobRepository is the interface for persisting and managing batch execution
// metadata. It embeds multiple smaller repository interfaces to separate
// concerns.
type JobRepository interface {
	JobInstance
	JobExecution
	StepExecution
	ExecutionContextRepository

	// EnsureIndexes creates the indexes the point lookups and joins rely on.
	// It is idempotent and intended to be invoked once at startup.
	EnsureIndexes(ctx context.Context) error

	// Close releases resources (such as storage connections) used by the repository.
	Close() error
}
