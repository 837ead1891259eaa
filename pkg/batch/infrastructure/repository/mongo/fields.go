package mongo

// Collection names of the batch metadata database.
const (
	collectionSequences        = "Sequences"
	collectionJobInstance      = "JobInstance"
	collectionJobExecution     = "JobExecution"
	collectionStepExecution    = "StepExecution"
	collectionExecutionContext = "ExecutionContext"
)

// Engine-managed fields stripped from documents before decoding.
const (
	idKey = "_id"
	nsKey = "_ns"
)

// Sequence document fields.
const (
	sequenceNameKey  = "name"
	sequenceValueKey = "value"
)

// Shared document fields.
const (
	versionKey     = "version"
	startTimeKey   = "startTime"
	endTimeKey     = "endTime"
	statusKey      = "status"
	exitCodeKey    = "exitCode"
	exitMessageKey = "exitMessage"
	createTimeKey  = "createTime"
	lastUpdatedKey = "lastUpdated"
)

// JobInstance document fields.
const (
	jobInstanceIDKey = "jobInstanceId"
	jobNameKey       = "jobName"
	jobKeyKey        = "jobKey"
	jobParametersKey = "jobParameters"
)

// JobExecution document fields.
const jobExecutionIDKey = "jobExecutionId"

// StepExecution document fields.
const (
	stepExecutionIDKey  = "stepExecutionId"
	stepNameKey         = "stepName"
	commitCountKey      = "commitCount"
	readCountKey        = "readCount"
	filterCountKey      = "filterCount"
	writeCountKey       = "writeCount"
	readSkipCountKey    = "readSkipCount"
	writeSkipCountKey   = "writeSkipCount"
	processSkipCountKey = "processSkipCount"
	rollbackCountKey    = "rollbackCount"
)

// typeSuffix marks the sibling key carrying the declared type of an
// arbitrary-precision attribute value.
const typeSuffix = "_TYPE"
