package job

import (
	"fmt"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

const (
	GreetingJobName          = "greetingJob"
	CounterJobName           = "counterJob"
	ExceptionJobName         = "exceptionJob"
	LooperJobName            = "looperJob"
	PlayerJobName            = "playerJob"
	CustomerFileJobName      = "customerFileJob"
	CustomerGradeJobName     = "customerGradeJob"
	CustomerOrmJobName       = "customerOrmJob"
	CustomerMapperJobName    = "customerMapperJob"
	CustomerCompositeJobName = "customerCompositeJob"
	CustomerBonusJobName     = "customerBonusJob"
	CustomerExportJobName    = "customerExportJob"
	NextStepJobName          = "nextStepJob"
	OnStepJobName            = "onStepJob"
	StopStepJobName          = "stopStepJob"
	SchemaJobName            = "schemaJob"
)

type builder struct {
	name  string
	build func() (port.Job, error)
	// needs reports what is missing for the job, or "" when it can be built.
	needs func() string
}

func (d *Deps) builders() []builder {
	always := func() string { return "" }
	database := func() string {
		if d.Gorm == nil || d.SQL == nil {
			return "a workload datasource with an ORM dialect"
		}
		return ""
	}
	plainSQL := func() string {
		if d.SQL == nil {
			return "a workload datasource"
		}
		return ""
	}
	statements := func() string {
		if missing := plainSQL(); missing != "" {
			return missing
		}
		if d.Statements == nil {
			return "a statement registry"
		}
		return ""
	}
	migrations := func() string {
		if d.SQL == nil || d.Migrations == nil {
			return "a workload datasource and migration scripts"
		}
		return ""
	}
	export := func() string {
		if missing := database(); missing != "" {
			return missing
		}
		if d.Storage == nil {
			return "a storage connection"
		}
		return ""
	}
	data := func() string {
		if d.Data == nil {
			return "input data files"
		}
		return ""
	}

	return []builder{
		{GreetingJobName, d.GreetingJob, always},
		{CounterJobName, d.CounterJob, always},
		{ExceptionJobName, d.ExceptionJob, always},
		{LooperJobName, d.LooperJob, always},
		{PlayerJobName, d.PlayerJob, data},
		{CustomerFileJobName, d.CustomerFileJob, data},
		{CustomerGradeJobName, d.CustomerGradeJob, plainSQL},
		{CustomerOrmJobName, d.CustomerOrmJob, database},
		{CustomerMapperJobName, d.CustomerMapperJob, statements},
		{CustomerCompositeJobName, d.CustomerCompositeJob, database},
		{CustomerBonusJobName, d.CustomerBonusJob, database},
		{CustomerExportJobName, d.CustomerExportJob, export},
		{NextStepJobName, d.NextStepJob, always},
		{OnStepJobName, d.OnStepJob, always},
		{StopStepJobName, d.StopStepJob, always},
		{SchemaJobName, d.SchemaJob, migrations},
	}
}

// BuildAll builds every job whose collaborators are present. Jobs that cannot
// be built for lack of a collaborator are logged and skipped; a job that fails
// to build is an error.
func (d *Deps) BuildAll() ([]port.Job, error) {
	if d.Repository == nil {
		return nil, exception.NewConfigurationError("tutorial_jobs", "job repository is required")
	}
	var jobs []port.Job
	for _, b := range d.builders() {
		if missing := b.needs(); missing != "" {
			logger.Warnf("Job '%s' is not available: it needs %s.", b.name, missing)
			continue
		}
		j, err := b.build()
		if err != nil {
			return nil, fmt.Errorf("failed to build job '%s': %w", b.name, err)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}
