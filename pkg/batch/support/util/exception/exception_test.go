package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/moray/pkg/batch/support/util/exception"
)

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("db connection refused")
	// NewBatchError signature is (module, message, originalErr, isSkippable, isRetryable)
	be := exception.NewBatchError("sequence", "failed to increment", originalErr, false, true)

	assert.Equal(t, "sequence", be.Module)
	assert.Equal(t, "failed to increment", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.True(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.Contains(t, be.Error(), "[sequence] failed to increment: db connection refused")
	assert.NotEmpty(t, be.StackTrace)
}

func TestNewBatchError_WithoutOriginal(t *testing.T) {
	be := exception.NewBatchError("job_instance", "job name must not be empty", nil, false, false)

	assert.Nil(t, be.Unwrap())
	assert.Equal(t, "[job_instance] job name must not be empty", be.Error())
}

func TestNewOptimisticLockingFailureException(t *testing.T) {
	be := exception.NewOptimisticLockingFailureException("repo", "version mismatch", nil)

	assert.False(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.True(t, errors.Is(be, exception.ErrOptimisticLockingFailure))
	assert.True(t, exception.IsOptimisticLockingFailure(be))
	assert.Contains(t, be.Error(), "version mismatch")

	// Carrying an original error must not break sentinel detection.
	withCause := exception.NewOptimisticLockingFailureException("repo", "version mismatch", errors.New("replaced 0 documents"))
	assert.True(t, errors.Is(withCause, exception.ErrOptimisticLockingFailure))
	assert.Contains(t, withCause.Error(), "replaced 0 documents")
}

func TestNewNoSuchObjectException(t *testing.T) {
	be := exception.NewNoSuchObjectException("repo", "JobExecution (ID: 42) does not exist")

	assert.True(t, errors.Is(be, exception.ErrNoSuchObject))
	assert.True(t, exception.IsNoSuchObject(be))
	assert.False(t, exception.IsOptimisticLockingFailure(be))

	// Detection must survive further wrapping.
	wrapped := fmt.Errorf("update aborted: %w", be)
	assert.True(t, exception.IsNoSuchObject(wrapped))
}

func TestIsBatchError(t *testing.T) {
	be := exception.NewBatchError("repo", "boom", nil, false, false)
	wrapped := fmt.Errorf("outer: %w", be)

	assert.True(t, exception.IsBatchError(be))
	assert.True(t, exception.IsBatchError(wrapped))
	assert.False(t, exception.IsBatchError(errors.New("plain")))
	assert.False(t, exception.IsBatchError(nil))
}

func TestExtractErrorMessage(t *testing.T) {
	be := exception.NewBatchError("repo", "concise message", errors.New("noisy detail"), false, false)

	assert.Equal(t, "concise message", exception.ExtractErrorMessage(be))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
}

func TestRegisterErrorType(t *testing.T) {
	assert.True(t, exception.IsErrorTypeRegistered(exception.OptimisticLockingFailureException))
	assert.True(t, exception.IsErrorTypeRegistered(exception.NoSuchObjectException))
	assert.False(t, exception.IsErrorTypeRegistered("NeverRegistered"))

	exception.RegisterErrorType("exception_test.Custom", errors.New("custom"))
	assert.True(t, exception.IsErrorTypeRegistered("exception_test.Custom"))

	assert.Panics(t, func() { exception.RegisterErrorType("", errors.New("x")) })
	assert.Panics(t, func() { exception.RegisterErrorType("nil-prototype", nil) })
}
