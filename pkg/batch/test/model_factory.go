package test

import (
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
)

// NewTestJobParameters creates JobParameters for testing.
func NewTestJobParameters(params map[string]interface{}) model.JobParameters {
	return model.JobParametersOf(params)
}

// NewTestJobExecution creates an instance and a READY execution of jobName.
func NewTestJobExecution(jobName string, params map[string]interface{}) *model.JobExecution {
	return model.NewJobExecution(model.NewJobInstance(jobName, NewTestJobParameters(params)))
}

// NewTestStepExecution creates a StepExecution attached to jobExecution.
func NewTestStepExecution(jobExecution *model.JobExecution, stepName string) *model.StepExecution {
	return model.NewStepExecution(jobExecution, stepName)
}
