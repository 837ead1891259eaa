// Package mongo_test exercises the repository against the in-memory docstore,
// which implements the same matching and replace semantics as the MongoDB
// adapter.
package mongo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tigerroll/moray/pkg/batch/adapter/docstore/memory"
	model "github.com/tigerroll/moray/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/moray/pkg/batch/core/domain/repository"
	mongorepo "github.com/tigerroll/moray/pkg/batch/infrastructure/repository/mongo"
)

// newTestRepository builds a repository over a fresh in-memory store with
// indexes in place.
func newTestRepository(t *testing.T) repository.JobRepository {
	t.Helper()
	repo := mongorepo.NewMongoJobRepository(memory.NewStore(), nil)
	require.NoError(t, repo.EnsureIndexes(context.Background()))
	return repo
}

// newTestParameters builds a small but typed parameter set.
func newTestParameters(runID int64) model.JobParameters {
	params := model.NewJobParameters()
	params.PutString("source", "s3://bucket/in")
	params.PutLong("run.id", runID)
	return params
}

// createInstance is a shorthand for creating a JobInstance during setup.
func createInstance(t *testing.T, repo repository.JobRepository, jobName string, runID int64) *model.JobInstance {
	t.Helper()
	instance, err := repo.CreateJobInstance(context.Background(), jobName, newTestParameters(runID))
	require.NoError(t, err)
	return instance
}

// saveExecution creates and saves a JobExecution for the instance.
func saveExecution(t *testing.T, repo repository.JobRepository, instance *model.JobInstance) *model.JobExecution {
	t.Helper()
	execution := model.NewJobExecution(instance)
	require.NoError(t, repo.SaveJobExecution(context.Background(), execution))
	return execution
}
