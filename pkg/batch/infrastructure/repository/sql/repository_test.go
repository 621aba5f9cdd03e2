package sql_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	gormadapter "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/domain/repository"
	sqlrepo "github.com/tigerroll/chunkbatch/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/test"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gormadapter.OpenDialector(sqlite.Open("file::memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newRepository(t *testing.T) *sqlrepo.GormJobRepository {
	t.Helper()
	repo := sqlrepo.NewGormJobRepository(newDB(t))
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func TestGormJobRepository_Contract(t *testing.T) {
	test.RunJobRepositoryContract(t, func(t *testing.T) repository.JobRepository {
		return newRepository(t)
	})
}

func TestGormJobRepository_MigrateCreatesTables(t *testing.T) {
	db := newDB(t)
	repo := sqlrepo.NewGormJobRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))

	for _, table := range []string{"batch_job_instance", "batch_job_execution", "batch_step_execution"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestGormJobRepository_MissingTablesAreDataAccessErrors(t *testing.T) {
	repo := sqlrepo.NewGormJobRepository(newDB(t))

	_, err := repo.GetJobNames(context.Background())
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindDataAccess))
}

func TestGormJobRepository_StoresFailuresAndParameters(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()
	je := test.NewTestJobExecution("oddEvenJob", map[string]interface{}{"run.id": 2, "mode": "strict"})
	require.NoError(t, repo.SaveJobExecution(ctx, je))

	je.MarkAsStarted()
	je.MarkAsFailed(exception.NewBusinessRuleError("OddEvenTasklet", "Error This value is Odd: 7"))
	require.NoError(t, repo.UpdateJobExecution(ctx, je))

	loaded, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)
	mode, ok := loaded.Parameters.GetString("mode")
	assert.True(t, ok)
	assert.Equal(t, "strict", mode)
	runID, ok := loaded.Parameters.GetInt("run.id")
	assert.True(t, ok)
	assert.Equal(t, 2, runID)
	require.Len(t, loaded.Failures, 1)
	assert.Contains(t, loaded.Failures[0].Error(), "Error This value is Odd: 7")
}
