// Package app assembles the tutorial jobs into a JobEngine from the loaded
// configuration and runs them under fx.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/chunkbatch/example/tutorial/internal/job"
	"github.com/tigerroll/chunkbatch/example/tutorial/internal/resources"
	"github.com/tigerroll/chunkbatch/example/tutorial/internal/step/writer"
	gormadapter "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb"
	kafkaadapter "github.com/tigerroll/chunkbatch/pkg/batch/adapter/messaging/kafka"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/storage"
	storageconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/storage/config"
	usecase "github.com/tigerroll/chunkbatch/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/chunkbatch/pkg/batch/core/config"
	repository "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/support/incrementer"
	telemetry "github.com/tigerroll/chunkbatch/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/chunkbatch/pkg/batch/infrastructure/repository/inmemory"
	sqlrepo "github.com/tigerroll/chunkbatch/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"

	// Dialects, dialectors and storage backends selectable by configuration.
	_ "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/gorm/mysql"
	_ "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/gorm/sqlite"
	_ "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb/mysql"
	_ "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb/postgres"
	_ "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb/snowflake"
	_ "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb/sqlite"
	_ "github.com/tigerroll/chunkbatch/pkg/batch/adapter/storage/gcs"
	_ "github.com/tigerroll/chunkbatch/pkg/batch/adapter/storage/local"
	_ "github.com/tigerroll/chunkbatch/pkg/batch/adapter/storage/minio"
)

const moduleName = "tutorial_app"

// exportStorage is the name of the storage connection the export job writes to.
const exportStorage = "output"

// Option customises BuildJobEngine.
type Option func(*options)

type options struct {
	out   io.Writer
	bonus writer.BonusClient
	draw  func() int
}

// WithOutput sends the printing writers to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithBonusClient replaces the bonus client selected by remote.bonus.mode.
func WithBonusClient(c writer.BonusClient) Option {
	return func(o *options) { o.bonus = c }
}

// WithDraw fixes the value drawn by the odd/even tasklets.
func WithDraw(draw func() int) Option {
	return func(o *options) { o.draw = draw }
}

// Application is a JobEngine with every tutorial job registered, plus the
// connections it holds open.
type Application struct {
	Engine    *usecase.JobEngine
	Telemetry *telemetry.Telemetry

	gormConns map[string]*gormadapter.GormConnection
	sqlConns  map[string]*sqldb.Connection
	storage   *storage.Provider
	kafka     io.Closer
}

// BuildJobEngine opens what cfg configures and registers every job that can
// run with it. Jobs missing a collaborator, such as the database jobs without
// batch.datasourceRef, are left out. On error everything opened so far is
// closed again.
func BuildJobEngine(ctx context.Context, cfg *config.Config, opts ...Option) (_ *Application, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &Application{
		gormConns: make(map[string]*gormadapter.GormConnection),
		sqlConns:  make(map[string]*sqldb.Connection),
	}
	defer func() {
		if err != nil {
			if closeErr := a.Close(context.WithoutCancel(ctx)); closeErr != nil {
				logger.Warnf("Failed to release resources after a startup error: %v", closeErr)
			}
		}
	}()

	if a.Telemetry, err = telemetry.NewTelemetry(ctx, cfg); err != nil {
		return nil, err
	}

	repo, err := a.openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	inc, err := incrementer.NewRunIDIncrementerFromRepository(ctx, repo)
	if err != nil {
		return nil, err
	}
	a.Engine = usecase.NewJobEngine(repo, inc)
	a.Engine.SetMaskedParameterKeys(cfg.Surfin.Security.MaskedParameterKeys)

	s := cfg.Surfin
	deps := &job.Deps{
		Repository:       repo,
		Recorder:         a.Telemetry.Recorder,
		Tracer:           a.Telemetry.Tracer,
		MaskedKeys:       s.Security.MaskedParameterKeys,
		ChunkSize:        s.Batch.ChunkSize,
		PageSize:         s.Batch.PageSize,
		Data:             resources.FS(),
		OutputDir:        outputDir(s.Storage),
		Out:              o.out,
		BonusConcurrency: s.Remote.Bonus.Concurrency,
		Draw:             o.draw,
	}

	if ref := s.Batch.DatasourceRef; ref != "" {
		if err := a.attachWorkload(cfg, ref, deps); err != nil {
			return nil, err
		}
	}

	a.storage = storage.NewProvider(storageconfig.DatasourcesConfig{exportStorage: s.Storage})
	if deps.Storage, err = a.storage.GetConnection(exportStorage); err != nil {
		return nil, err
	}

	kafkaCfg := kafkaadapter.Config{Brokers: s.Messaging.Kafka.Brokers, Topic: s.Messaging.Kafka.Topic}
	if kafkaCfg.Enabled() {
		producer, err := kafkaadapter.NewWriter(kafkaCfg)
		if err != nil {
			return nil, exception.NewConfigurationError(moduleName, err.Error())
		}
		a.kafka = producer
		deps.Kafka = producer
		logger.Infof("Customer export publishes to Kafka topic '%s'.", kafkaCfg.Topic)
	}

	deps.Bonus = o.bonus
	if deps.Bonus == nil {
		deps.Bonus = bonusClient(s.Remote.Bonus)
	}

	jobs, err := deps.BuildAll()
	if err != nil {
		return nil, err
	}
	if err := a.Engine.Register(jobs...); err != nil {
		return nil, err
	}
	logger.Infof("Registered %d jobs: %v", len(jobs), a.Engine.JobNames())
	return a, nil
}

// openRepository keeps the job metadata in memory unless batch.repositoryRef
// names a datasource.
func (a *Application) openRepository(ctx context.Context, cfg *config.Config) (repository.JobRepository, error) {
	ref := cfg.Surfin.Batch.RepositoryRef
	if ref == "" {
		logger.Infof("Job repository: in memory.")
		return inmemory.NewInMemoryJobRepository(), nil
	}
	conn, err := a.gormConnection(cfg, ref)
	if err != nil {
		return nil, err
	}
	repo := sqlrepo.NewGormJobRepository(conn.GormDB())
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	logger.Infof("Job repository: datasource '%s' (%s).", ref, conn.Type())
	return repo, nil
}

// attachWorkload opens the workload datasource. The ORM and plain SQL
// adapters share one pool; a database without an ORM dialect gets the plain
// SQL adapter only.
func (a *Application) attachWorkload(cfg *config.Config, ref string, deps *job.Deps) error {
	ds, err := cfg.Datasource(ref)
	if err != nil {
		return err
	}
	dialect, err := sqldb.GetDialect(ds.Type)
	if err != nil {
		return exception.NewConfigurationError(moduleName, err.Error())
	}

	if _, err := gormadapter.GetDialectorFactory(ds.Type); err == nil {
		conn, err := a.gormConnection(cfg, ref)
		if err != nil {
			return err
		}
		sqlDB, err := conn.GetSQLDB()
		if err != nil {
			return err
		}
		deps.Gorm = conn.GormDB()
		deps.SQL = sqldb.NewConnection(ref, sqlDB, ds, dialect)
	} else {
		conn, err := sqldb.Open(ref, ds)
		if err != nil {
			return exception.NewDataAccessError(moduleName, fmt.Sprintf("failed to open datasource '%s'", ref), err)
		}
		a.sqlConns[ref] = conn
		deps.SQL = conn
		logger.Warnf("Datasource '%s' (%s) has no ORM dialect; ORM jobs are unavailable.", ref, ds.Type)
	}

	if deps.Statements, err = resources.Statements(); err != nil {
		return exception.NewConfigurationError(moduleName, fmt.Sprintf("failed to load statements: %v", err))
	}
	if deps.Migrations, err = resources.Migrations(); err != nil {
		return exception.NewConfigurationError(moduleName, fmt.Sprintf("failed to load migrations: %v", err))
	}
	logger.Infof("Workload datasource: '%s' (%s).", ref, ds.Type)
	return nil
}

// gormConnection opens the datasource once, so the repository and the
// workload share a pool when they name the same datasource.
func (a *Application) gormConnection(cfg *config.Config, name string) (*gormadapter.GormConnection, error) {
	if conn, ok := a.gormConns[name]; ok {
		return conn, nil
	}
	ds, err := cfg.Datasource(name)
	if err != nil {
		return nil, err
	}
	conn, err := gormadapter.Open(name, ds)
	if err != nil {
		return nil, exception.NewDataAccessError(moduleName, fmt.Sprintf("failed to open datasource '%s'", name), err)
	}
	a.gormConns[name] = conn
	return conn, nil
}

func bonusClient(cfg config.BonusConfig) writer.BonusClient {
	if cfg.Mode == "http" {
		logger.Infof("Bonus lookups go to %s.", cfg.Endpoint)
		return writer.NewHTTPBonusClient(cfg.Endpoint, cfg.Timeout())
	}
	return writer.NewStubBonusClient()
}

// outputDir is where the flat file jobs write. Remote storage keeps them in ./output.
func outputDir(cfg storageconfig.StorageConfig) string {
	if cfg.Type == "local" && cfg.BaseDir != "" {
		return cfg.BaseDir
	}
	return "output"
}

// Close flushes telemetry and releases every connection. It is safe to call
// on a partly built Application.
func (a *Application) Close(ctx context.Context) error {
	var result *multierror.Error
	if a.Engine != nil {
		result = multierror.Append(result, a.Engine.Close())
	}
	if a.kafka != nil {
		result = multierror.Append(result, a.kafka.Close())
	}
	if a.storage != nil {
		result = multierror.Append(result, a.storage.CloseAll())
	}
	for name, conn := range a.gormConns {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("datasource '%s': %w", name, err))
		}
	}
	for name, conn := range a.sqlConns {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("datasource '%s': %w", name, err))
		}
	}
	if a.Telemetry != nil {
		result = multierror.Append(result, a.Telemetry.Shutdown(ctx))
	}
	return result.ErrorOrNil()
}

// ErrJobNotCompleted is returned by Run when the job ends FAILED or STOPPED.
var ErrJobNotCompleted = errors.New("job did not complete")
