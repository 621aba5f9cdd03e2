package job

import (
	"github.com/tigerroll/chunkbatch/example/tutorial/internal/step/tasklet"
	"github.com/tigerroll/chunkbatch/pkg/batch/component/tasklet/generic"
	"github.com/tigerroll/chunkbatch/pkg/batch/component/tasklet/migration"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/job/runner"
	taskletstep "github.com/tigerroll/chunkbatch/pkg/batch/engine/step/tasklet"
)

// LooperMaxIterations bounds the looper step.
const LooperMaxIterations = 5

// taskletStep builds an instrumented TaskletStep.
func (d *Deps) taskletStep(name string, t port.Tasklet) (*taskletstep.TaskletStep, error) {
	step, err := taskletstep.NewTaskletStep(name, t, d.Repository)
	if err != nil {
		return nil, err
	}
	d.instrument(step)
	return step, nil
}

func (d *Deps) singleTaskletJob(jobName, stepName string, t port.Tasklet) (port.Job, error) {
	step, err := d.taskletStep(stepName, t)
	if err != nil {
		return nil, err
	}
	return d.finish(runner.NewSimpleJob(jobName, d.Repository, step))
}

// GreetingJob prints a greeting once.
func (d *Deps) GreetingJob() (port.Job, error) {
	return d.singleTaskletJob(GreetingJobName, "greetingStep", tasklet.NewGreetingTasklet())
}

// CounterJob repeats its tasklet until the counter reaches ten.
func (d *Deps) CounterJob() (port.Job, error) {
	return d.singleTaskletJob(CounterJobName, "counterStep", tasklet.NewCounterTasklet())
}

// ExceptionJob fails on the seventh repetition.
func (d *Deps) ExceptionJob() (port.Job, error) {
	return d.singleTaskletJob(ExceptionJobName, "exceptionStep", tasklet.NewExceptionTasklet())
}

// LooperJob never finishes on its own and ends STOPPED at the iteration bound.
func (d *Deps) LooperJob() (port.Job, error) {
	step, err := d.taskletStep("looperStep", tasklet.NewLooperTasklet())
	if err != nil {
		return nil, err
	}
	step.WithMaxIterations(LooperMaxIterations)
	return d.finish(runner.NewSimpleJob(LooperJobName, d.Repository, step))
}

// NextStepJob runs step01 then step02. step01 promotes a greeting into the
// job's ExecutionContext for later steps.
func (d *Deps) NextStepJob() (port.Job, error) {
	step01, err := d.taskletStep("step01", generic.NewExecutionContextWriterTasklet("step01", map[string]string{
		"greeting.string": "hello from step01",
		"sequence.int":    "1",
	}).Promote())
	if err != nil {
		return nil, err
	}
	step02, err := d.taskletStep("step02", tasklet.NewPrintTasklet("Execute Step02 Tasklet ..."))
	if err != nil {
		return nil, err
	}
	return d.finish(runner.NewSimpleJob(NextStepJobName, d.Repository, step01, step02))
}

// OnStepJob routes a FAILED stepOn01 to stepOn03 and a COMPLETED one to stepOn02.
func (d *Deps) OnStepJob() (port.Job, error) {
	stepOn01, err := d.taskletStep("stepOn01", tasklet.NewOddEvenTasklet(d.Draw))
	if err != nil {
		return nil, err
	}
	stepOn02, err := d.taskletStep("stepOn02", tasklet.NewPrintTasklet("Execute StepOn02 Tasklet ..."))
	if err != nil {
		return nil, err
	}
	stepOn03, err := d.taskletStep("stepOn03", tasklet.NewPrintTasklet("Execute StepOn03 Tasklet ..."))
	if err != nil {
		return nil, err
	}
	flow := model.NewFlowDefinition("stepOn01").
		Next("stepOn01", string(model.ExitStatusFailed), "stepOn03").
		Next("stepOn01", string(model.ExitStatusCompleted), "stepOn02")
	return d.finish(runner.NewFlowJob(OnStepJobName, flow, d.Repository, stepOn01, stepOn02, stepOn03))
}

// StopStepJob stops when stepStop01 fails and continues with stepStop02 otherwise.
func (d *Deps) StopStepJob() (port.Job, error) {
	stepStop01, err := d.taskletStep("stepStop01", tasklet.NewOddEvenTasklet(d.Draw))
	if err != nil {
		return nil, err
	}
	stepStop02, err := d.taskletStep("stepStop02", tasklet.NewPrintTasklet("Execute StepStop02 Tasklet ..."))
	if err != nil {
		return nil, err
	}
	flow := model.NewFlowDefinition("stepStop01").
		StopOn("stepStop01", string(model.ExitStatusFailed)).
		Next("stepStop01", string(model.ExitStatusCompleted), "stepStop02")
	return d.finish(runner.NewFlowJob(StopStepJobName, flow, d.Repository, stepStop01, stepStop02))
}

// SchemaJob applies the CUSTOMER and PLAYER migrations to the workload database.
func (d *Deps) SchemaJob() (port.Job, error) {
	t, err := migration.NewMigrationTaskletForConnection(d.SQL, d.Migrations, migrationDir(d.SQL.Type()), migration.AppMigrationsTable)
	if err != nil {
		return nil, err
	}
	return d.singleTaskletJob(SchemaJobName, "migrateStep", t)
}

// migrationDir maps driver aliases onto the directory holding their scripts.
func migrationDir(dbType string) string {
	switch dbType {
	case "pgx", "redshift":
		return "postgres"
	case "sqlite3":
		return "sqlite"
	}
	return dbType
}
