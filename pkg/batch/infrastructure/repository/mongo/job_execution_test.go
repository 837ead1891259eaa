package mongo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/moray/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/moray/pkg/batch/core/domain/repository"
	"github.com/tigerroll/moray/pkg/batch/support/util/exception"
)

func TestSaveJobExecution_AssignsIDAndVersionZero(t *testing.T) {
	repo := newTestRepository(t)

	instance := createInstance(t, repo, "importJob", 1)
	execution := saveExecution(t, repo, instance)

	assert.Equal(t, int64(1), execution.ID)
	assert.Equal(t, 0, execution.Version)

	found, err := repo.FindJobExecutionByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, instance.ID, found.JobInstanceID)
	assert.Equal(t, model.BatchStatusStarting, found.Status)
	assert.Equal(t, 0, found.Version)
	assert.Nil(t, found.StartTime)
}

func TestSaveJobExecution_ValidatesRequiredFields(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	// No owning instance.
	err := repo.SaveJobExecution(ctx, model.NewJobExecution(nil))
	assert.Error(t, err)

	instance := createInstance(t, repo, "importJob", 1)
	execution := model.NewJobExecution(instance)
	execution.Status = ""
	assert.Error(t, repo.SaveJobExecution(ctx, execution))

	execution = model.NewJobExecution(instance)
	execution.CreateTime = time.Time{}
	assert.Error(t, repo.SaveJobExecution(ctx, execution))
}

func TestUpdateJobExecution_IncrementsVersion(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	instance := createInstance(t, repo, "importJob", 1)
	execution := saveExecution(t, repo, instance)

	execution.MarkAsStarted()
	require.NoError(t, repo.UpdateJobExecution(ctx, execution))
	assert.Equal(t, 1, execution.Version)

	found, err := repo.FindJobExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusStarted, found.Status)
	assert.Equal(t, 1, found.Version)
	assert.NotNil(t, found.StartTime)
}

func TestUpdateJobExecution_StaleVersionFails(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	instance := createInstance(t, repo, "importJob", 1)
	execution := saveExecution(t, repo, instance)

	winner, err := repo.FindJobExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	winner.MarkAsStarted()
	require.NoError(t, repo.UpdateJobExecution(ctx, winner))

	// The original copy still carries version 0.
	execution.MarkAsStarted()
	err = repo.UpdateJobExecution(ctx, execution)
	require.Error(t, err)
	assert.True(t, exception.IsOptimisticLockingFailure(err))
	assert.Equal(t, 0, execution.Version, "losing copy keeps its version")
}

func TestUpdateJobExecution_NeverSavedFails(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	instance := createInstance(t, repo, "importJob", 1)
	execution := model.NewJobExecution(instance)
	execution.ID = 404

	err := repo.UpdateJobExecution(ctx, execution)
	require.Error(t, err)
	assert.True(t, exception.IsNoSuchObject(err))
}

func TestFindJobExecutionsByJobInstance_NewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	instance := createInstance(t, repo, "importJob", 1)
	other := createInstance(t, repo, "importJob", 2)

	var saved []*model.JobExecution
	for i := 0; i < 3; i++ {
		saved = append(saved, saveExecution(t, repo, instance))
	}
	saveExecution(t, repo, other)

	executions, err := repo.FindJobExecutionsByJobInstance(ctx, instance)
	require.NoError(t, err)
	require.Len(t, executions, 3)
	assert.Equal(t, saved[2].ID, executions[0].ID)
	assert.Equal(t, saved[1].ID, executions[1].ID)
	assert.Equal(t, saved[0].ID, executions[2].ID)
	assert.Same(t, instance, executions[0].JobInstance)
}

func TestFindLastJobExecution_ByCreateTime(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	instance := createInstance(t, repo, "importJob", 1)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var last *model.JobExecution
	for i := 0; i < 10; i++ {
		execution := model.NewJobExecution(instance)
		execution.CreateTime = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.SaveJobExecution(ctx, execution))
		last = execution
	}

	found, err := repo.FindLastJobExecution(ctx, instance)
	require.NoError(t, err)
	assert.Equal(t, last.ID, found.ID)

	empty := createInstance(t, repo, "importJob", 2)
	_, err = repo.FindLastJobExecution(ctx, empty)
	assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)
}

func TestFindRunningJobExecutions(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	instance := createInstance(t, repo, "importJob", 1)
	second := createInstance(t, repo, "importJob", 2)

	running := saveExecution(t, repo, instance)
	runningToo := saveExecution(t, repo, second)

	finished := saveExecution(t, repo, instance)
	finished.MarkAsStarted()
	finished.MarkAsCompleted()
	require.NoError(t, repo.UpdateJobExecution(ctx, finished))

	saveExecution(t, repo, createInstance(t, repo, "otherJob", 1))

	executions, err := repo.FindRunningJobExecutions(ctx, "importJob")
	require.NoError(t, err)
	require.Len(t, executions, 2)
	ids := []int64{executions[0].ID, executions[1].ID}
	assert.Contains(t, ids, running.ID)
	assert.Contains(t, ids, runningToo.ID)
}

func TestSynchronizeStatus_UpgradesFromStorage(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	instance := createInstance(t, repo, "importJob", 1)
	execution := saveExecution(t, repo, instance)

	// A concurrent holder fails the execution and bumps the version.
	winner, err := repo.FindJobExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	winner.MarkAsStarted()
	winner.MarkAsFailed(assert.AnError)
	require.NoError(t, repo.UpdateJobExecution(ctx, winner))

	require.NoError(t, repo.SynchronizeStatus(ctx, execution))
	assert.Equal(t, model.BatchStatusFailed, execution.Status)
	assert.Equal(t, 1, execution.Version)
}

func TestSynchronizeStatus_NeverDowngradesUnknown(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	instance := createInstance(t, repo, "importJob", 1)
	execution := saveExecution(t, repo, instance)

	winner, err := repo.FindJobExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	winner.UpgradeStatus(model.BatchStatusUnknown)
	require.NoError(t, repo.UpdateJobExecution(ctx, winner))

	execution.MarkAsStarted()
	require.NoError(t, repo.SynchronizeStatus(ctx, execution))
	assert.Equal(t, model.BatchStatusUnknown, execution.Status)
	assert.Equal(t, 1, execution.Version)
}

func TestSynchronizeStatus_MatchingVersionIsNoOp(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	instance := createInstance(t, repo, "importJob", 1)
	execution := saveExecution(t, repo, instance)

	require.NoError(t, repo.SynchronizeStatus(ctx, execution))
	assert.Equal(t, model.BatchStatusStarting, execution.Status)
	assert.Equal(t, 0, execution.Version)
}

func TestSynchronizeStatus_ResavesMissingDocument(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	instance := createInstance(t, repo, "importJob", 1)
	execution := model.NewJobExecution(instance)
	execution.ID = 777
	execution.Version = 2
	execution.MarkAsStarted()

	require.NoError(t, repo.SynchronizeStatus(ctx, execution))

	found, err := repo.FindJobExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusStarted, found.Status)
	// The in-memory version is reset to what storage reported before re-save.
	assert.Equal(t, 0, execution.Version)
}
