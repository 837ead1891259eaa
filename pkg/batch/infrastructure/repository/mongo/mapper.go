package mongo

import (
	"time"

	"github.com/tigerroll/moray/pkg/batch/adapter/docstore"
	model "github.com/tigerroll/moray/pkg/batch/core/domain/model"
)

// --- document value helpers ---

func docInt64(doc docstore.Document, key string) int64 {
	switch v := doc[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func docInt(doc docstore.Document, key string) int {
	return int(docInt64(doc, key))
}

func docString(doc docstore.Document, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func docTime(doc docstore.Document, key string) time.Time {
	if v, ok := doc[key].(time.Time); ok {
		return v
	}
	return time.Time{}
}

func docTimePtr(doc docstore.Document, key string) *time.Time {
	if v, ok := doc[key].(time.Time); ok {
		t := v
		return &t
	}
	return nil
}

func timePtrValue(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// --- JobInstance ---

func jobInstanceToDoc(instance *model.JobInstance) docstore.Document {
	return docstore.Document{
		jobInstanceIDKey: instance.ID,
		jobNameKey:       instance.JobName,
		jobKeyKey:        instance.JobKey,
		versionKey:       int64(instance.Version),
		jobParametersKey: encodeJobParameters(instance.Parameters),
	}
}

func docToJobInstance(doc docstore.Document) *model.JobInstance {
	if doc == nil {
		return nil
	}
	return &model.JobInstance{
		ID:         docInt64(doc, jobInstanceIDKey),
		JobName:    docString(doc, jobNameKey),
		JobKey:     docString(doc, jobKeyKey),
		Parameters: decodeJobParameters(doc[jobParametersKey]),
		Version:    docInt(doc, versionKey),
	}
}

// --- JobExecution ---

// jobExecutionToDocWithoutVersion renders the execution fields shared by
// insert and replace; the caller decides which version value to write.
func jobExecutionToDocWithoutVersion(execution *model.JobExecution) docstore.Document {
	return docstore.Document{
		jobExecutionIDKey: execution.ID,
		jobInstanceIDKey:  execution.JobInstanceID,
		startTimeKey:      timePtrValue(execution.StartTime),
		endTimeKey:        timePtrValue(execution.EndTime),
		statusKey:         execution.Status.String(),
		exitCodeKey:       execution.ExitStatus.ExitCode,
		exitMessageKey:    execution.ExitStatus.ExitMessage,
		createTimeKey:     execution.CreateTime,
		lastUpdatedKey:    execution.LastUpdated,
	}
}

func docToJobExecution(doc docstore.Document, instance *model.JobInstance) *model.JobExecution {
	if doc == nil {
		return nil
	}
	execution := &model.JobExecution{
		ID:            docInt64(doc, jobExecutionIDKey),
		JobInstanceID: docInt64(doc, jobInstanceIDKey),
		JobInstance:   instance,
		CreateTime:    docTime(doc, createTimeKey),
		StartTime:     docTimePtr(doc, startTimeKey),
		EndTime:       docTimePtr(doc, endTimeKey),
		LastUpdated:   docTime(doc, lastUpdatedKey),
		Status:        model.BatchStatus(docString(doc, statusKey)),
		ExitStatus: model.ExitStatus{
			ExitCode:    docString(doc, exitCodeKey),
			ExitMessage: docString(doc, exitMessageKey),
		},
		Version:          docInt(doc, versionKey),
		ExecutionContext: model.NewExecutionContext(),
	}
	return execution
}

// --- StepExecution ---

func stepExecutionToDocWithoutVersion(execution *model.StepExecution) docstore.Document {
	return docstore.Document{
		stepExecutionIDKey:  execution.ID,
		stepNameKey:         execution.StepName,
		jobExecutionIDKey:   execution.JobExecutionID,
		startTimeKey:        timePtrValue(execution.StartTime),
		endTimeKey:          timePtrValue(execution.EndTime),
		statusKey:           execution.Status.String(),
		commitCountKey:      int64(execution.CommitCount),
		readCountKey:        int64(execution.ReadCount),
		filterCountKey:      int64(execution.FilterCount),
		writeCountKey:       int64(execution.WriteCount),
		exitCodeKey:         execution.ExitStatus.ExitCode,
		exitMessageKey:      execution.ExitStatus.ExitMessage,
		readSkipCountKey:    int64(execution.ReadSkipCount),
		writeSkipCountKey:   int64(execution.WriteSkipCount),
		processSkipCountKey: int64(execution.ProcessSkipCount),
		rollbackCountKey:    int64(execution.RollbackCount),
		lastUpdatedKey:      execution.LastUpdated,
	}
}

func docToStepExecution(doc docstore.Document, jobExecution *model.JobExecution) *model.StepExecution {
	if doc == nil {
		return nil
	}
	execution := &model.StepExecution{
		ID:               docInt64(doc, stepExecutionIDKey),
		StepName:         docString(doc, stepNameKey),
		JobExecutionID:   docInt64(doc, jobExecutionIDKey),
		JobExecution:     jobExecution,
		StartTime:        docTimePtr(doc, startTimeKey),
		EndTime:          docTimePtr(doc, endTimeKey),
		Status:           model.BatchStatus(docString(doc, statusKey)),
		CommitCount:      docInt(doc, commitCountKey),
		ReadCount:        docInt(doc, readCountKey),
		FilterCount:      docInt(doc, filterCountKey),
		WriteCount:       docInt(doc, writeCountKey),
		ReadSkipCount:    docInt(doc, readSkipCountKey),
		WriteSkipCount:   docInt(doc, writeSkipCountKey),
		ProcessSkipCount: docInt(doc, processSkipCountKey),
		RollbackCount:    docInt(doc, rollbackCountKey),
		LastUpdated:      docTime(doc, lastUpdatedKey),
		Version:          docInt(doc, versionKey),
		ExitStatus: model.ExitStatus{
			ExitCode:    docString(doc, exitCodeKey),
			ExitMessage: docString(doc, exitMessageKey),
		},
		ExecutionContext: model.NewExecutionContext(),
	}
	return execution
}
