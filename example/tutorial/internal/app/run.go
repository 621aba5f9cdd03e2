package app

import (
	"context"
	"fmt"

	"github.com/tigerroll/chunkbatch/example/tutorial/internal/job"
	config "github.com/tigerroll/chunkbatch/pkg/batch/core/config"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// Run runs jobName, or batch.jobName when it is empty. With
// batch.migrateOnStart the schema job runs first and jobName is only run
// once the schema is in place. A job ending FAILED or STOPPED is reported
// as ErrJobNotCompleted together with its result.
func (a *Application) Run(ctx context.Context, cfg *config.Config, jobName string) (*model.JobExecutionResult, error) {
	if jobName == "" {
		jobName = cfg.Surfin.Batch.JobName
	}
	if jobName == "" {
		return nil, exception.NewConfigurationError(moduleName, "no job to run: set batch.jobName or name one on the command line")
	}

	if cfg.Surfin.Batch.MigrateOnStart && jobName != job.SchemaJobName {
		res, err := a.runOne(ctx, job.SchemaJobName)
		if err != nil {
			return res, err
		}
	}
	return a.runOne(ctx, jobName)
}

func (a *Application) runOne(ctx context.Context, jobName string) (*model.JobExecutionResult, error) {
	logger.Infof("Starting job '%s'...", jobName)
	res, err := a.Engine.Run(ctx, jobName, model.NewJobParameters())
	if err != nil {
		return nil, err
	}
	logger.Infof("Job '%s' (Execution ID: %s) finished with status: %s, ExitStatus: %s",
		jobName, res.ExecutionID, res.Status, res.ExitStatus)
	for _, name := range res.StepNames() {
		step, _ := res.Step(name)
		logger.Infof("  step '%s': %s (read=%d, filtered=%d, written=%d, commits=%d, rollbacks=%d)",
			name, step.Status, step.ReadCount, step.FilterCount, step.WriteCount, step.CommitCount, step.RollbackCount)
	}
	if res.Status != model.BatchStatusCompleted {
		return res, fmt.Errorf("%w: '%s' ended %s", ErrJobNotCompleted, jobName, res.Status)
	}
	return res, nil
}
