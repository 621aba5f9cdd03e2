// Package job assembles the tutorial jobs from the framework components and
// the tutorial's tasklets, processors and writers.
package job

import (
	"io"
	"io/fs"
	"os"

	"gorm.io/gorm"

	"github.com/tigerroll/chunkbatch/example/tutorial/internal/step/writer"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/statement"
	kafkaadapter "github.com/tigerroll/chunkbatch/pkg/batch/adapter/messaging/kafka"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/storage"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	repository "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/job/runner"
	metrics "github.com/tigerroll/chunkbatch/pkg/batch/core/metrics"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
	"github.com/tigerroll/chunkbatch/pkg/batch/listener/logging"
	"github.com/tigerroll/chunkbatch/pkg/batch/listener/notification"
)

// Deps are the collaborators the job builders share. Repository is
// required. Jobs whose collaborator is missing are not built.
type Deps struct {
	Repository repository.JobRepository
	Recorder   metrics.MetricRecorder
	Tracer     metrics.Tracer
	MaskedKeys []string

	ChunkSize int
	PageSize  int

	// Gorm and SQL share one pool on the workload datasource.
	Gorm       *gorm.DB
	SQL        *sqldb.Connection
	Statements *statement.Registry
	Migrations fs.FS

	// Data holds players.csv and customers.tsv.
	Data      fs.FS
	OutputDir string
	Out       io.Writer

	Storage storage.StorageConnection
	// Kafka is optional; the export job publishes to it when set.
	Kafka kafkaadapter.MessageWriter
	Bonus writer.BonusClient
	// BonusConcurrency bounds the bonus lookups in flight per chunk.
	BonusConcurrency int
	// Draw feeds the odd/even tasklets. Nil draws at random.
	Draw func() int
}

func (d *Deps) out() io.Writer {
	if d.Out == nil {
		return os.Stdout
	}
	return d.Out
}

// chunkSize is used by the jobs that do not fix their own commit interval.
func (d *Deps) chunkSize() int {
	if d.ChunkSize > 0 {
		return d.ChunkSize
	}
	return 10
}

func (d *Deps) noDatabaseTx() tx.TransactionManager {
	return tx.NewNoOpTransactionManager()
}

func (d *Deps) pageSize() int {
	if d.PageSize > 0 {
		return d.PageSize
	}
	return 10
}

// instrumentable is implemented by TaskletStep and ChunkStep.
type instrumentable interface {
	SetMetricRecorder(recorder metrics.MetricRecorder)
	SetTracer(tracer metrics.Tracer)
	AddStepExecutionListener(l port.StepExecutionListener)
}

// chunkListenable is implemented by ChunkStep.
type chunkListenable interface {
	AddChunkListener(l port.ChunkListener)
}

// instrument attaches telemetry and the logging listeners to a step.
func (d *Deps) instrument(step instrumentable, listeners ...port.StepExecutionListener) {
	step.SetMetricRecorder(d.Recorder)
	step.SetTracer(d.Tracer)
	step.AddStepExecutionListener(logging.NewLoggingStepListener())
	for _, l := range listeners {
		step.AddStepExecutionListener(l)
	}
	if c, ok := step.(chunkListenable); ok {
		c.AddChunkListener(logging.NewLoggingChunkListener())
	}
}

// finish attaches telemetry and the job listeners to a job.
func (d *Deps) finish(job *runner.FlowJob, err error) (port.Job, error) {
	if err != nil {
		return nil, err
	}
	job.SetMetricRecorder(d.Recorder)
	job.SetTracer(d.Tracer)
	job.AddJobExecutionListener(logging.NewLoggingJobListener(d.MaskedKeys))
	job.AddJobExecutionListener(notification.NewNotificationListener(notification.NewLogNotifier()))
	return job, nil
}
