package app_test

import (
	"bytes"
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkbatch/example/tutorial/internal/app"
	"github.com/tigerroll/chunkbatch/example/tutorial/internal/job"
	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	config "github.com/tigerroll/chunkbatch/pkg/batch/core/config"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

type fixture struct {
	app    *app.Application
	cfg    *config.Config
	dbPath string
	outDir string
	out    *bytes.Buffer
}

// newFixture builds the tutorial against a fresh SQLite file. The schema is
// migrated before the first job runs.
func newFixture(t *testing.T, configure ...func(*config.Config)) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		cfg:    config.NewConfig(),
		dbPath: filepath.Join(dir, "tutorial.db"),
		outDir: filepath.Join(dir, "output"),
		out:    &bytes.Buffer{},
	}
	f.cfg.Surfin.Batch.MigrateOnStart = true
	f.cfg.Surfin.Batch.DatasourceRef = "app"
	f.cfg.Surfin.Datasources["app"] = dbconfig.DatabaseConfig{Type: "sqlite", Database: f.dbPath}
	f.cfg.Surfin.Storage.BaseDir = f.outDir
	for _, c := range configure {
		c(f.cfg)
	}
	require.NoError(t, f.cfg.Validate())

	a, err := app.BuildJobEngine(context.Background(), f.cfg, app.WithOutput(f.out), app.WithDraw(func() int { return 2 }))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close(context.Background())) })
	f.app = a
	return f
}

func (f *fixture) run(t *testing.T, name string) *model.JobExecutionResult {
	t.Helper()
	res, err := f.app.Run(context.Background(), f.cfg, name)
	require.NoError(t, err)
	require.Equal(t, model.BatchStatusCompleted, res.Status)
	return res
}

// query opens its own pool on the database file.
func (f *fixture) query(t *testing.T, q string, args ...interface{}) *sql.Row {
	t.Helper()
	db, err := sql.Open("sqlite3", f.dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.QueryRow(q, args...)
}

func (f *fixture) age(t *testing.T, id int) int {
	t.Helper()
	var age int
	require.NoError(t, f.query(t, "SELECT AGE FROM CUSTOMER WHERE ID = ?", id).Scan(&age))
	return age
}

func TestBuildJobEngine_RegistersEveryJob(t *testing.T) {
	f := newFixture(t)
	assert.ElementsMatch(t, []string{
		job.GreetingJobName, job.CounterJobName, job.ExceptionJobName, job.LooperJobName,
		job.PlayerJobName, job.CustomerFileJobName,
		job.CustomerGradeJobName, job.CustomerOrmJobName, job.CustomerMapperJobName,
		job.CustomerCompositeJobName, job.CustomerBonusJobName, job.CustomerExportJobName,
		job.NextStepJobName, job.OnStepJobName, job.StopStepJobName, job.SchemaJobName,
	}, f.app.Engine.JobNames())
}

func TestBuildJobEngine_WithoutDatasourceSkipsDatabaseJobs(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Surfin.Batch.DatasourceRef = ""
		c.Surfin.Batch.MigrateOnStart = false
	})
	assert.NotContains(t, f.app.Engine.JobNames(), job.CustomerGradeJobName)
	assert.NotContains(t, f.app.Engine.JobNames(), job.SchemaJobName)
	assert.Contains(t, f.app.Engine.JobNames(), job.PlayerJobName)
}

func TestBuildJobEngine_UnknownDatabaseType(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Surfin.Batch.DatasourceRef = "app"
	cfg.Surfin.Datasources["app"] = dbconfig.DatabaseConfig{Type: "oracle", Database: "x"}
	cfg.Surfin.Storage.BaseDir = t.TempDir()

	_, err := app.BuildJobEngine(context.Background(), cfg)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}

func TestRun_MigratesBeforeTheJob(t *testing.T) {
	f := newFixture(t)
	f.run(t, job.SchemaJobName)

	var count int
	require.NoError(t, f.query(t, "SELECT COUNT(*) FROM CUSTOMER").Scan(&count))
	assert.Equal(t, 12, count)

	// A second migration finds nothing to do.
	f.run(t, job.SchemaJobName)
}

func TestRun_ReportsJobsThatDidNotComplete(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Surfin.Batch.MigrateOnStart = false })

	res, err := f.app.Run(context.Background(), f.cfg, job.ExceptionJobName)
	assert.ErrorIs(t, err, app.ErrJobNotCompleted)
	require.NotNil(t, res)
	assert.Equal(t, model.BatchStatusFailed, res.Status)

	_, err = f.app.Run(context.Background(), f.cfg, "noSuchJob")
	assert.Error(t, err)
}

func TestRun_FallsBackToConfiguredJob(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Surfin.Batch.JobName = job.GreetingJobName
		c.Surfin.Batch.MigrateOnStart = false
	})
	res, err := f.app.Run(context.Background(), f.cfg, "")
	require.NoError(t, err)
	assert.Equal(t, job.GreetingJobName, res.JobName)

	f.cfg.Surfin.Batch.JobName = ""
	_, err = f.app.Run(context.Background(), f.cfg, "")
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}

func TestCustomerGradeJob(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, job.CustomerGradeJobName)
	step, _ := res.Step("customerGradeStep")
	assert.Equal(t, 11, step.ReadCount)
	assert.Equal(t, 11, step.WriteCount)
	assert.Equal(t, 2, step.CommitCount)

	grade := func(id int) sql.NullString {
		var g sql.NullString
		require.NoError(t, f.query(t, "SELECT GRADE FROM CUSTOMER WHERE ID = ?", id).Scan(&g))
		return g
	}
	assert.False(t, grade(1).Valid, "customers under 20 are not graded")
	assert.Equal(t, "D", grade(11).String)
	assert.Equal(t, "C", grade(3).String)
	assert.Equal(t, "B", grade(5).String)
	assert.Equal(t, "A", grade(10).String)
}

func TestCustomerOrmJob(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, job.CustomerOrmJobName)
	step, _ := res.Step("customerOrmStep")
	assert.Equal(t, 10, step.WriteCount)

	assert.Equal(t, 24, f.age(t, 2))
	assert.Equal(t, 67, f.age(t, 10))
	assert.Equal(t, 20, f.age(t, 11))
	assert.Equal(t, 18, f.age(t, 1))
	assert.Contains(t, f.out.String(), "Customer(id=10, name=Julia, age=67")
}

func TestCustomerMapperJob(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, job.CustomerMapperJobName)
	step, _ := res.Step("customerMapperStep")
	assert.Equal(t, 10, step.WriteCount)

	assert.Equal(t, 24, f.age(t, 2))
	assert.Equal(t, 20, f.age(t, 11))
}

func TestCustomerCompositeJob(t *testing.T) {
	f := newFixture(t)
	f.run(t, job.CustomerCompositeJobName)

	assert.Contains(t, f.out.String(), "name=julia, age=86")
	assert.Equal(t, 66, f.age(t, 10), "the composite job does not write back")
}

func TestCustomerBonusJob(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, job.CustomerBonusJobName)
	step, _ := res.Step("customerBonusStep")
	assert.Equal(t, 4, step.ReadCount)

	out := f.out.String()
	for _, name := range []string{"Julia", "Ian", "Hannah", "George"} {
		assert.Contains(t, out, "High-bonus customer: "+name)
	}
	assert.NotContains(t, out, "High-bonus customer: Fiona")
}

func TestCustomerExportJob_WritesParquetToStorage(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, job.CustomerExportJobName)
	step, _ := res.Step("customerExportStep")
	assert.Equal(t, 12, step.WriteCount)

	var objects []string
	require.NoError(t, filepath.WalkDir(f.outDir, func(p string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && strings.HasSuffix(p, ".parquet") {
			objects = append(objects, p)
		}
		return err
	}))
	require.NotEmpty(t, objects)
	for _, o := range objects {
		assert.Contains(t, filepath.ToSlash(o), job.ExportBaseDir+"/grade=NONE/")
	}
}

func TestRepositoryOnDatasource(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Surfin.Batch.RepositoryRef = "app" })
	f.run(t, job.GreetingJobName)
	f.run(t, job.GreetingJobName)

	names, err := f.app.Engine.Explorer().GetJobNames(context.Background())
	require.NoError(t, err)
	assert.Contains(t, names, job.GreetingJobName)
	assert.Contains(t, names, job.SchemaJobName)
}
