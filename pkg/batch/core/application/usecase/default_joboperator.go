package usecase

import (
	"context"

	exception "github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// DefaultJobOperator is the default implementation of the JobOperator interface.
// It stops executions started by a SimpleJobLauncher in the same process.
type DefaultJobOperator struct {
	jobLauncher *SimpleJobLauncher
}

// Verify that DefaultJobOperator implements the JobOperator interface.
var _ JobOperator = (*DefaultJobOperator)(nil)

// NewDefaultJobOperator creates a new instance of DefaultJobOperator.
func NewDefaultJobOperator(launcher *SimpleJobLauncher) *DefaultJobOperator {
	return &DefaultJobOperator{jobLauncher: launcher}
}

// Stop cancels the context of the running execution. The status is persisted
// by the job itself once the running step reaches a chunk boundary.
func (o *DefaultJobOperator) Stop(ctx context.Context, executionID string) error {
	logger.Infof("JobOperator: Stop method called. Execution ID: %s", executionID)

	cancel, ok := o.jobLauncher.GetCancelFunc(executionID)
	if !ok {
		return exception.NewBatchErrorf("job_operator", "JobExecution (ID: %s) is not running in this process", executionID)
	}
	cancel()
	logger.Infof("Sent stop request to JobExecution (ID: %s).", executionID)
	return nil
}

// RunningExecutions returns the IDs of the executions currently running.
func (o *DefaultJobOperator) RunningExecutions() []string {
	return o.jobLauncher.ActiveExecutionIDs()
}
