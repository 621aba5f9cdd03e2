package runner

import (
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

// NewSimpleJob creates a FlowJob that runs steps in order. Each step moves to
// the next one on COMPLETED; any other exit status ends the job with that
// step's status.
func NewSimpleJob(name string, jobRepository repository.JobRepository, steps ...port.Step) (*FlowJob, error) {
	if len(steps) == 0 {
		return nil, exception.NewConfigurationError(name, "a job needs at least one step")
	}
	flow := model.NewFlowDefinition(steps[0].StepName())
	for i := 0; i+1 < len(steps); i++ {
		flow.Next(steps[i].StepName(), string(model.ExitStatusCompleted), steps[i+1].StepName())
	}
	return NewFlowJob(name, flow, jobRepository, steps...)
}
