// Package exception provides custom error types and error handling utilities for the Moray
// repository layer. It standardizes errors that occur while persisting batch execution
// metadata, allowing callers to classify them with errors.Is.
package exception

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// errorRegistry is a registry that maps error names to concrete Go error instances.
// It holds error instances (singletons) for comparison using errors.Is.
var errorRegistry = make(map[string]error)

// registryMutex protects access to errorRegistry.
var registryMutex sync.RWMutex

// RegisterErrorType registers an error type in the registry.
// Registered error types are used for error classification by name.
//
// name: A unique identifier for the error type.
// prototype: An instance of the error to be registered. Used for comparison with errors.Is.
//
// If prototype is nil or name is empty, this function will panic.
func RegisterErrorType(name string, prototype error) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if name == "" {
		panic("Error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}

	errorRegistry[name] = prototype
}

// IsErrorTypeRegistered checks if the specified error type name is registered in the registry.
func IsErrorTypeRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := errorRegistry[name]
	return ok
}

// BatchError is a custom error type that occurs while persisting batch metadata.
// It holds the module where the error occurred, a message, the wrapped original error,
// and flags indicating whether it is retryable or skippable.
type BatchError struct {
	// Module indicates the module where the error occurred (e.g., "job_instance", "sequence", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// isRetryable indicates whether this error is retryable.
	isRetryable bool
	// isSkippable indicates whether this error is skippable.
	isSkippable bool
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewBatchError creates a new BatchError instance.
// module: The module where the error occurred.
// message: The error message.
// originalErr: The original error to wrap.
// isSkippable: Whether this error is skippable.
// isRetryable: Whether this error is retryable.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	// Capture stack trace (for debugging purposes)
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	stackTrace := string(buf[:n])

	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  stackTrace,
	}
}

// OptimisticLockingFailureException is a constant indicating an optimistic locking failure.
const OptimisticLockingFailureException = "OptimisticLockingFailureException"

// NoSuchObjectException is a constant indicating an update against a record that was never saved.
const NoSuchObjectException = "NoSuchObjectException"

// ErrOptimisticLockingFailure is a sentinel error indicating an optimistic locking failure.
var ErrOptimisticLockingFailure = errors.New(OptimisticLockingFailureException)

// ErrNoSuchObject is a sentinel error indicating that the record targeted by an update does not exist.
var ErrNoSuchObject = errors.New(NoSuchObjectException)

// NewOptimisticLockingFailureException creates a BatchError indicating an optimistic locking failure.
// This error is neither retryable nor skippable; the caller is expected to re-read and retry
// at a higher level.
func NewOptimisticLockingFailureException(module, message string, originalErr error) *BatchError {
	var errToWrap error
	if originalErr != nil {
		errToWrap = errors.Join(ErrOptimisticLockingFailure, originalErr)
	} else {
		errToWrap = ErrOptimisticLockingFailure
	}

	// Optimistic locking failures are treated as fatal errors that cannot be retried or skipped.
	return NewBatchError(module, message, errToWrap, false, false)
}

// NewNoSuchObjectException creates a BatchError indicating that an update targeted a record
// that was never saved. It is distinguished from an optimistic lock conflict, where the
// record exists but carries a different version.
func NewNoSuchObjectException(module, message string) *BatchError {
	return NewBatchError(module, message, ErrNoSuchObject, false, false)
}

// Error implements the error interface.
// It returns the error's module, message, and the string representation of the original error.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsBatchError determines if the given error is of type BatchError.
func IsBatchError(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	return errors.As(err, &be)
}

// IsOptimisticLockingFailure determines if an error indicates an optimistic locking failure.
func IsOptimisticLockingFailure(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrOptimisticLockingFailure)
}

// IsNoSuchObject determines if an error indicates an update against a never-saved record.
func IsNoSuchObject(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNoSuchObject)
}

// ExtractErrorMessage extracts the error message string from an error.
// For BatchError, it returns the cleaner Message field.
// Otherwise, it returns the standard Error() string.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if be, ok := err.(*BatchError); ok {
		return be.Message
	}
	return err.Error()
}

func init() {
	// Register sentinel errors so that errors.Is can detect them by constant name.
	RegisterErrorType(OptimisticLockingFailureException, ErrOptimisticLockingFailure)
	RegisterErrorType(NoSuchObjectException, ErrNoSuchObject)

	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded)
	RegisterErrorType("context.Canceled", context.Canceled)
}
