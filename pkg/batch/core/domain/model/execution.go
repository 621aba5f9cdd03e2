package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	logger "github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// NewID returns a new random identifier.
func NewID() string {
	return uuid.New().String()
}

// JobInstance is a job name plus identifying parameters.
type JobInstance struct {
	ID         string
	JobName    string
	Parameters JobParameters
	RunID      int64
	CreateTime time.Time
}

// NewJobInstance creates an instance for jobName and params. The run id is
// taken from the run.id parameter when present.
func NewJobInstance(jobName string, params JobParameters) *JobInstance {
	runID, _ := params.GetInt(RunIDKey)
	return &JobInstance{
		ID:         NewID(),
		JobName:    jobName,
		Parameters: params,
		RunID:      int64(runID),
		CreateTime: time.Now(),
	}
}

// JobExecution is one attempt to run a JobInstance.
type JobExecution struct {
	ID               string
	JobInstanceID    string
	JobName          string
	RunID            int64
	Parameters       JobParameters
	Status           BatchStatus
	ExitStatus       ExitStatus
	CreateTime       time.Time
	StartTime        time.Time
	EndTime          *time.Time
	LastUpdated      time.Time
	CurrentStepName  string
	StepExecutions   []*StepExecution
	Failures         []error
	ExecutionContext ExecutionContext
}

// NewJobExecution creates a READY execution of instance.
func NewJobExecution(instance *JobInstance) *JobExecution {
	now := time.Now()
	return &JobExecution{
		ID:               NewID(),
		JobInstanceID:    instance.ID,
		JobName:          instance.JobName,
		RunID:            instance.RunID,
		Parameters:       instance.Parameters,
		Status:           BatchStatusReady,
		ExitStatus:       ExitStatusUnknown,
		CreateTime:       now,
		LastUpdated:      now,
		ExecutionContext: NewExecutionContext(),
	}
}

// TransitionTo moves the execution to newStatus if the lifecycle allows it.
func (je *JobExecution) TransitionTo(newStatus BatchStatus) error {
	if !canTransition(je.Status, newStatus) {
		return fmt.Errorf("JobExecution (ID: %s): invalid state transition %s -> %s", je.ID, je.Status, newStatus)
	}
	je.Status = newStatus
	je.LastUpdated = time.Now()
	return nil
}

// MarkAsStarted moves the execution to EXECUTING.
func (je *JobExecution) MarkAsStarted() {
	if err := je.TransitionTo(BatchStatusExecuting); err != nil {
		logger.Warnf("%v", err)
		return
	}
	je.StartTime = je.LastUpdated
	je.ExitStatus = ExitStatusExecuting
}

// MarkAsCompleted ends the execution as COMPLETED.
func (je *JobExecution) MarkAsCompleted() {
	je.finish(BatchStatusCompleted, ExitStatusCompleted)
}

// MarkAsFailed ends the execution as FAILED and records err when non-nil.
func (je *JobExecution) MarkAsFailed(err error) {
	if err != nil {
		je.AddFailure(err)
	}
	je.finish(BatchStatusFailed, ExitStatusFailed)
}

// MarkAsStopped ends the execution as STOPPED.
func (je *JobExecution) MarkAsStopped() {
	je.finish(BatchStatusStopped, ExitStatusStopped)
}

// EndWith ends the execution with status and a possibly custom exit status.
func (je *JobExecution) EndWith(status BatchStatus, exit ExitStatus) {
	je.finish(status, exit)
}

func (je *JobExecution) finish(status BatchStatus, exit ExitStatus) {
	if err := je.TransitionTo(status); err != nil {
		logger.Warnf("%v", err)
		return
	}
	je.ExitStatus = exit
	end := je.LastUpdated
	je.EndTime = &end
}

// AddFailure records err unless an error with the same message is already recorded.
func (je *JobExecution) AddFailure(err error) {
	je.Failures = appendUniqueError(je.Failures, err)
}

// AddStepExecution appends se to the executions of this job.
func (je *JobExecution) AddStepExecution(se *StepExecution) {
	je.StepExecutions = append(je.StepExecutions, se)
}

// StepExecution is the record of a single step run inside a JobExecution.
type StepExecution struct {
	ID               string
	StepName         string
	JobExecutionID   string
	Status           BatchStatus
	ExitStatus       ExitStatus
	StartTime        time.Time
	EndTime          *time.Time
	LastUpdated      time.Time
	ReadCount        int
	ProcessCount     int
	FilterCount      int
	WriteCount       int
	CommitCount      int
	RollbackCount    int
	Failures         []error
	ExecutionContext ExecutionContext
	JobExecution     *JobExecution
}

// NewStepExecution creates a READY step execution and attaches it to jobExecution.
func NewStepExecution(jobExecution *JobExecution, stepName string) *StepExecution {
	se := &StepExecution{
		ID:               NewID(),
		StepName:         stepName,
		Status:           BatchStatusReady,
		ExitStatus:       ExitStatusUnknown,
		LastUpdated:      time.Now(),
		ExecutionContext: NewExecutionContext(),
	}
	if jobExecution != nil {
		se.JobExecutionID = jobExecution.ID
		se.JobExecution = jobExecution
		jobExecution.AddStepExecution(se)
	}
	return se
}

// TransitionTo moves the step to newStatus if the lifecycle allows it.
func (se *StepExecution) TransitionTo(newStatus BatchStatus) error {
	if !canTransition(se.Status, newStatus) {
		return fmt.Errorf("StepExecution (%s, ID: %s): invalid state transition %s -> %s", se.StepName, se.ID, se.Status, newStatus)
	}
	se.Status = newStatus
	se.LastUpdated = time.Now()
	return nil
}

// MarkAsStarted moves the step to EXECUTING.
func (se *StepExecution) MarkAsStarted() {
	if err := se.TransitionTo(BatchStatusExecuting); err != nil {
		logger.Warnf("%v", err)
		return
	}
	se.StartTime = se.LastUpdated
	se.ExitStatus = ExitStatusExecuting
}

// MarkAsCompleted ends the step as COMPLETED. A custom exit status set
// while executing is kept.
func (se *StepExecution) MarkAsCompleted() {
	exit := ExitStatusCompleted
	if se.hasCustomExitStatus() {
		exit = se.ExitStatus
	}
	se.finish(BatchStatusCompleted, exit)
}

// MarkAsFailed ends the step as FAILED and records err when non-nil.
func (se *StepExecution) MarkAsFailed(err error) {
	if err != nil {
		se.AddFailure(err)
	}
	exit := ExitStatusFailed
	if se.hasCustomExitStatus() {
		exit = se.ExitStatus
	}
	se.finish(BatchStatusFailed, exit)
}

// MarkAsStopped ends the step as STOPPED.
func (se *StepExecution) MarkAsStopped() {
	se.finish(BatchStatusStopped, ExitStatusStopped)
}

// SetExitStatus sets a custom exit status that survives completion.
func (se *StepExecution) SetExitStatus(exit ExitStatus) {
	se.ExitStatus = exit
}

func (se *StepExecution) hasCustomExitStatus() bool {
	switch se.ExitStatus {
	case ExitStatusUnknown, ExitStatusExecuting, "":
		return false
	}
	return true
}

func (se *StepExecution) finish(status BatchStatus, exit ExitStatus) {
	if err := se.TransitionTo(status); err != nil {
		logger.Warnf("%v", err)
		return
	}
	se.ExitStatus = exit
	end := se.LastUpdated
	se.EndTime = &end
}

// AddFailure records err unless an error with the same message is already recorded.
func (se *StepExecution) AddFailure(err error) {
	se.Failures = appendUniqueError(se.Failures, err)
}

// LastFailure returns the most recently recorded failure, or nil.
func (se *StepExecution) LastFailure() error {
	if len(se.Failures) == 0 {
		return nil
	}
	return se.Failures[len(se.Failures)-1]
}

func appendUniqueError(errs []error, err error) []error {
	if err == nil {
		return errs
	}
	for _, e := range errs {
		if e.Error() == err.Error() {
			return errs
		}
	}
	return append(errs, err)
}

// FailureMessages returns the messages of errs.
func FailureMessages(errs []error) []string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return msgs
}
