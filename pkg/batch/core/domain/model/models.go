package model

import (
	"fmt"
	"time"

	"github.com/tigerroll/moray/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/moray/pkg/batch/support/util/logger"
)

// BatchStatus represents the state of a job or step execution.
type BatchStatus string

const (
	BatchStatusCompleted BatchStatus = "COMPLETED"
	BatchStatusStarting  BatchStatus = "STARTING"
	BatchStatusStarted   BatchStatus = "STARTED"
	BatchStatusStopping  BatchStatus = "STOPPING"
	BatchStatusStopped   BatchStatus = "STOPPED"
	BatchStatusFailed    BatchStatus = "FAILED"
	BatchStatusAbandoned BatchStatus = "ABANDONED"
	BatchStatusUnknown   BatchStatus = "UNKNOWN"
)

// statusOrder defines the total order used for "largest wins" comparisons.
// COMPLETED ranks lowest so that a terminal success never overrides an
// in-flight or failed state during reconciliation.
var statusOrder = map[BatchStatus]int{
	BatchStatusCompleted: 0,
	BatchStatusStarting:  1,
	BatchStatusStarted:   2,
	BatchStatusStopping:  3,
	BatchStatusStopped:   4,
	BatchStatusFailed:    5,
	BatchStatusAbandoned: 6,
	BatchStatusUnknown:   7,
}

// String returns the string representation of the BatchStatus.
func (s BatchStatus) String() string {
	return string(s)
}

// Ordinal returns the position of the status in the total order.
// An unrecognized status ranks as UNKNOWN.
func (s BatchStatus) Ordinal() int {
	if ord, ok := statusOrder[s]; ok {
		return ord
	}
	return statusOrder[BatchStatusUnknown]
}

// IsRunning checks if the status represents an execution that has not reached a terminal state.
func (s BatchStatus) IsRunning() bool {
	switch s {
	case BatchStatusStarting, BatchStatusStarted, BatchStatusStopping:
		return true
	default:
		return false
	}
}

// IsFinished checks if the status represents a finished state.
func (s BatchStatus) IsFinished() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusStopped, BatchStatusAbandoned:
		return true
	default:
		return false
	}
}

// UpgradeTo returns the more severe of the two statuses. Both statuses only
// advance monotonically through the total order; the one exception is that
// two pre-STARTED statuses collapse to COMPLETED when either side already
// completed.
func (s BatchStatus) UpgradeTo(other BatchStatus) BatchStatus {
	if s.Ordinal() >= BatchStatusStarted.Ordinal() || other.Ordinal() >= BatchStatusStarted.Ordinal() {
		return maxStatus(s, other)
	}
	if s == BatchStatusCompleted || other == BatchStatusCompleted {
		return BatchStatusCompleted
	}
	return maxStatus(s, other)
}

func maxStatus(a, b BatchStatus) BatchStatus {
	if a.Ordinal() >= b.Ordinal() {
		return a
	}
	return b
}

// ExitStatus carries the exit code and an unbounded exit description of a finished execution.
type ExitStatus struct {
	ExitCode    string
	ExitMessage string
}

var (
	ExitStatusUnknown   = ExitStatus{ExitCode: "UNKNOWN"}
	ExitStatusExecuting = ExitStatus{ExitCode: "EXECUTING"}
	ExitStatusCompleted = ExitStatus{ExitCode: "COMPLETED"}
	ExitStatusFailed    = ExitStatus{ExitCode: "FAILED"}
	ExitStatusStopped   = ExitStatus{ExitCode: "STOPPED"}
)

// String returns the exit code of the ExitStatus.
func (s ExitStatus) String() string {
	return s.ExitCode
}

// WithMessage returns a copy of the ExitStatus carrying the given description.
func (s ExitStatus) WithMessage(message string) ExitStatus {
	s.ExitMessage = message
	return s
}

// JobInstance represents the identity of a job: its name plus a specific
// parameter set. Instances are immutable after creation and are never
// updated or deleted by this layer.
type JobInstance struct {
	ID         int64
	JobName    string
	JobKey     string
	Parameters JobParameters
	Version    int
}

// NewJobInstance creates a new, not yet persisted JobInstance.
// The ID is assigned by the repository on creation.
func NewJobInstance(jobName string, params JobParameters) *JobInstance {
	return &JobInstance{
		JobName:    jobName,
		JobKey:     params.Key(),
		Parameters: params,
		Version:    0,
	}
}

// JobExecution represents a single run attempt of a JobInstance.
type JobExecution struct {
	ID            int64
	JobInstanceID int64
	JobInstance   *JobInstance
	CreateTime    time.Time
	StartTime     *time.Time
	EndTime       *time.Time
	LastUpdated   time.Time
	Status        BatchStatus
	ExitStatus    ExitStatus
	Version       int
	// StepExecutions is populated by the step execution store on demand.
	StepExecutions []*StepExecution
	// ExecutionContext is persisted separately, keyed by the execution ID.
	ExecutionContext ExecutionContext
}

// NewJobExecution creates a new, not yet persisted JobExecution for the given instance.
func NewJobExecution(instance *JobInstance) *JobExecution {
	now := time.Now()
	var instanceID int64
	if instance != nil {
		instanceID = instance.ID
	}
	return &JobExecution{
		JobInstanceID:    instanceID,
		JobInstance:      instance,
		CreateTime:       now,
		LastUpdated:      now,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		StepExecutions:   make([]*StepExecution, 0),
		ExecutionContext: NewExecutionContext(),
	}
}

// IsRunning checks whether this execution is still in flight: it has started
// but carries no end time yet.
func (je *JobExecution) IsRunning() bool {
	return je.StartTime != nil && je.EndTime == nil
}

// UpgradeStatus applies the given status to this execution, never moving
// backwards in the status total order.
func (je *JobExecution) UpgradeStatus(status BatchStatus) {
	je.Status = je.Status.UpgradeTo(status)
}

// MarkAsStarted records the start of the execution.
func (je *JobExecution) MarkAsStarted() {
	now := time.Now()
	je.StartTime = &now
	je.Status = BatchStatusStarted
	je.LastUpdated = now
}

// MarkAsCompleted records successful completion of the execution.
func (je *JobExecution) MarkAsCompleted() {
	now := time.Now()
	je.EndTime = &now
	je.Status = BatchStatusCompleted
	je.ExitStatus = ExitStatusCompleted
	je.LastUpdated = now
}

// MarkAsFailed records a failed execution and carries the failure message
// into the exit status.
func (je *JobExecution) MarkAsFailed(err error) {
	now := time.Now()
	je.EndTime = &now
	je.Status = BatchStatusFailed
	je.ExitStatus = ExitStatusFailed.WithMessage(exception.ExtractErrorMessage(err))
	je.LastUpdated = now
}

// AddStepExecution attaches a StepExecution to this JobExecution.
func (je *JobExecution) AddStepExecution(se *StepExecution) {
	je.StepExecutions = append(je.StepExecutions, se)
}

// CreateStepExecution creates a new StepExecution owned by this JobExecution
// and attaches it.
func (je *JobExecution) CreateStepExecution(stepName string) *StepExecution {
	se := NewStepExecution(je, stepName)
	je.AddStepExecution(se)
	return se
}

// StepExecution represents a single run attempt of one step within a JobExecution.
type StepExecution struct {
	ID             int64
	StepName       string
	JobExecutionID int64
	JobExecution   *JobExecution
	StartTime      *time.Time
	EndTime        *time.Time
	Status         BatchStatus
	ExitStatus     ExitStatus

	CommitCount      int
	ReadCount        int
	FilterCount      int
	WriteCount       int
	ReadSkipCount    int
	WriteSkipCount   int
	ProcessSkipCount int
	RollbackCount    int

	LastUpdated time.Time
	Version     int
	// ExecutionContext is persisted separately, keyed by the step execution ID.
	ExecutionContext ExecutionContext
}

// NewStepExecution creates a new, not yet persisted StepExecution owned by the given JobExecution.
func NewStepExecution(jobExecution *JobExecution, stepName string) *StepExecution {
	now := time.Now()
	var jobExecutionID int64
	if jobExecution != nil {
		jobExecutionID = jobExecution.ID
	}
	return &StepExecution{
		StepName:         stepName,
		JobExecutionID:   jobExecutionID,
		JobExecution:     jobExecution,
		StartTime:        &now,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusExecuting,
		LastUpdated:      now,
		ExecutionContext: NewExecutionContext(),
	}
}

// UpgradeStatus applies the given status to this step execution, never moving
// backwards in the status total order.
func (se *StepExecution) UpgradeStatus(status BatchStatus) {
	se.Status = se.Status.UpgradeTo(status)
}

// MarkAsCompleted records successful completion of the step execution.
func (se *StepExecution) MarkAsCompleted() {
	now := time.Now()
	se.EndTime = &now
	se.Status = BatchStatusCompleted
	se.ExitStatus = ExitStatusCompleted
	se.LastUpdated = now
}

// MarkAsFailed records a failed step execution.
func (se *StepExecution) MarkAsFailed(err error) {
	now := time.Now()
	se.EndTime = &now
	se.Status = BatchStatusFailed
	se.ExitStatus = ExitStatusFailed.WithMessage(exception.ExtractErrorMessage(err))
	se.LastUpdated = now
	if err != nil {
		logger.Debugf("StepExecution (ID: %d, step: %s) marked as failed: %v", se.ID, se.StepName, err)
	}
}

// DebugString returns a compact string representation of the StepExecution,
// excluding ExecutionContext contents.
func (se *StepExecution) DebugString() string {
	return fmt.Sprintf("&{ID:%d StepName:%s JobExecutionID:%d Status:%s Version:%d Counts(commit:%d read:%d filter:%d write:%d readSkip:%d writeSkip:%d processSkip:%d rollback:%d)}",
		se.ID, se.StepName, se.JobExecutionID, se.Status, se.Version,
		se.CommitCount, se.ReadCount, se.FilterCount, se.WriteCount,
		se.ReadSkipCount, se.WriteSkipCount, se.ProcessSkipCount, se.RollbackCount)
}
