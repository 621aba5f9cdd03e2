package sql

import (
	"errors"

	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/serialization"
)

func toJobInstanceEntity(ji *model.JobInstance) (*JobInstanceEntity, error) {
	hash, err := ji.Parameters.Hash()
	if err != nil {
		return nil, err
	}
	return &JobInstanceEntity{
		ID:             ji.ID,
		JobName:        ji.JobName,
		Parameters:     ji.Parameters,
		ParametersHash: hash,
		RunID:          ji.RunID,
		CreateTime:     ji.CreateTime,
	}, nil
}

func toJobInstance(e *JobInstanceEntity) *model.JobInstance {
	return &model.JobInstance{
		ID:         e.ID,
		JobName:    e.JobName,
		Parameters: e.Parameters,
		RunID:      e.RunID,
		CreateTime: e.CreateTime,
	}
}

func toJobExecutionEntity(je *model.JobExecution) (*JobExecutionEntity, error) {
	failures, err := serialization.MarshalFailures(model.FailureMessages(je.Failures))
	if err != nil {
		return nil, err
	}
	return &JobExecutionEntity{
		ID:               je.ID,
		JobInstanceID:    je.JobInstanceID,
		JobName:          je.JobName,
		RunID:            je.RunID,
		Parameters:       je.Parameters,
		Status:           string(je.Status),
		ExitStatus:       string(je.ExitStatus),
		CreateTime:       je.CreateTime,
		StartTime:        je.StartTime,
		EndTime:          je.EndTime,
		LastUpdated:      je.LastUpdated,
		CurrentStepName:  je.CurrentStepName,
		Failures:         string(failures),
		ExecutionContext: je.ExecutionContext,
	}, nil
}

func toJobExecution(e *JobExecutionEntity) (*model.JobExecution, error) {
	failures, err := toErrors(e.Failures)
	if err != nil {
		return nil, err
	}
	ec := e.ExecutionContext
	if ec == nil {
		ec = model.NewExecutionContext()
	}
	return &model.JobExecution{
		ID:               e.ID,
		JobInstanceID:    e.JobInstanceID,
		JobName:          e.JobName,
		RunID:            e.RunID,
		Parameters:       e.Parameters,
		Status:           model.BatchStatus(e.Status),
		ExitStatus:       model.ExitStatus(e.ExitStatus),
		CreateTime:       e.CreateTime,
		StartTime:        e.StartTime,
		EndTime:          e.EndTime,
		LastUpdated:      e.LastUpdated,
		CurrentStepName:  e.CurrentStepName,
		Failures:         failures,
		ExecutionContext: ec,
	}, nil
}

func toStepExecutionEntity(se *model.StepExecution, seq int) (*StepExecutionEntity, error) {
	failures, err := serialization.MarshalFailures(model.FailureMessages(se.Failures))
	if err != nil {
		return nil, err
	}
	return &StepExecutionEntity{
		ID:               se.ID,
		JobExecutionID:   se.JobExecutionID,
		Seq:              seq,
		StepName:         se.StepName,
		Status:           string(se.Status),
		ExitStatus:       string(se.ExitStatus),
		StartTime:        se.StartTime,
		EndTime:          se.EndTime,
		LastUpdated:      se.LastUpdated,
		ReadCount:        se.ReadCount,
		ProcessCount:     se.ProcessCount,
		FilterCount:      se.FilterCount,
		WriteCount:       se.WriteCount,
		CommitCount:      se.CommitCount,
		RollbackCount:    se.RollbackCount,
		Failures:         string(failures),
		ExecutionContext: se.ExecutionContext,
	}, nil
}

func toStepExecution(e *StepExecutionEntity) (*model.StepExecution, error) {
	failures, err := toErrors(e.Failures)
	if err != nil {
		return nil, err
	}
	ec := e.ExecutionContext
	if ec == nil {
		ec = model.NewExecutionContext()
	}
	return &model.StepExecution{
		ID:               e.ID,
		StepName:         e.StepName,
		JobExecutionID:   e.JobExecutionID,
		Status:           model.BatchStatus(e.Status),
		ExitStatus:       model.ExitStatus(e.ExitStatus),
		StartTime:        e.StartTime,
		EndTime:          e.EndTime,
		LastUpdated:      e.LastUpdated,
		ReadCount:        e.ReadCount,
		ProcessCount:     e.ProcessCount,
		FilterCount:      e.FilterCount,
		WriteCount:       e.WriteCount,
		CommitCount:      e.CommitCount,
		RollbackCount:    e.RollbackCount,
		Failures:         failures,
		ExecutionContext: ec,
	}, nil
}

func toErrors(column string) ([]error, error) {
	msgs, err := serialization.UnmarshalFailures([]byte(column))
	if err != nil {
		return nil, err
	}
	errs := make([]error, 0, len(msgs))
	for _, m := range msgs {
		errs = append(errs, errors.New(m))
	}
	return errs, nil
}
