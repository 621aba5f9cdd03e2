package usecase

import (
	"context"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/repository"
)

// JobEngine bundles the registry, launcher, operator and explorer that share
// one JobRepository. It is the entry point applications run jobs through.
type JobEngine struct {
	jobRepository repository.JobRepository
	registry      *JobRegistry
	launcher      *SimpleJobLauncher
	operator      *DefaultJobOperator
	explorer      *SimpleJobExplorer
}

// NewJobEngine creates a JobEngine over repo. incrementer assigns the run.id of
// every launch; pass nil to launch with the parameters exactly as given.
func NewJobEngine(repo repository.JobRepository, incrementer port.JobParametersIncrementer) *JobEngine {
	registry := NewJobRegistry()
	launcher := NewSimpleJobLauncher(repo, registry, incrementer)
	return &JobEngine{
		jobRepository: repo,
		registry:      registry,
		launcher:      launcher,
		operator:      NewDefaultJobOperator(launcher),
		explorer:      NewSimpleJobExplorer(repo),
	}
}

// Register adds jobs to the engine.
func (e *JobEngine) Register(jobs ...port.Job) error {
	return e.registry.Register(jobs...)
}

// SetMaskedParameterKeys sets the parameter keys whose values are masked in logs.
func (e *JobEngine) SetMaskedParameterKeys(keys []string) {
	e.launcher.SetMaskedParameterKeys(keys)
}

// Run launches jobName with params and waits for it to finish. A job that
// FAILED or STOPPED is not an error: inspect the result's Status.
func (e *JobEngine) Run(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecutionResult, error) {
	je, err := e.launcher.Launch(ctx, jobName, params)
	if err != nil {
		return nil, err
	}
	return model.NewJobExecutionResult(je), nil
}

// JobNames returns the names of the registered jobs.
func (e *JobEngine) JobNames() []string {
	return e.registry.JobNames()
}

// Operator returns the JobOperator for executions launched by this engine.
func (e *JobEngine) Operator() JobOperator {
	return e.operator
}

// Explorer returns a JobExplorer over the engine's repository.
func (e *JobEngine) Explorer() JobExplorer {
	return e.explorer
}

// Repository returns the engine's JobRepository.
func (e *JobEngine) Repository() repository.JobRepository {
	return e.jobRepository
}

// Close closes the underlying repository.
func (e *JobEngine) Close() error {
	return e.jobRepository.Close()
}
