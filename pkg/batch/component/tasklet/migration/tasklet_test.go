package migration_test

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb"
	_ "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb/sqlite"
	"github.com/tigerroll/chunkbatch/pkg/batch/component/tasklet/migration"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	exception "github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	testutil "github.com/tigerroll/chunkbatch/pkg/batch/test"
)

func customerMigrations() fstest.MapFS {
	return fstest.MapFS{
		"sqlite/1_create_customer.up.sql": {Data: []byte(
			"CREATE TABLE CUSTOMER (ID INTEGER PRIMARY KEY, NAME TEXT, AGE INTEGER, GENDER INTEGER, GRADE TEXT);")},
		"sqlite/1_create_customer.down.sql": {Data: []byte("DROP TABLE CUSTOMER;")},
		"sqlite/2_seed_customer.up.sql": {Data: []byte(
			"INSERT INTO CUSTOMER (ID, NAME, AGE, GENDER) VALUES (1, 'Alice', 25, 1), (2, 'Bob', 55, 0);")},
		"sqlite/2_seed_customer.down.sql": {Data: []byte("DELETE FROM CUSTOMER;")},
	}
}

func openSQLite(t *testing.T) *sqldb.Connection {
	t.Helper()
	p := sqldb.NewProvider(map[string]dbconfig.DatabaseConfig{
		"workload": {Type: "sqlite", Database: filepath.Join(t.TempDir(), "workload.db")},
	})
	conn, err := p.Get("workload")
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.CloseAll() })
	return conn
}

func newStepExecution() *model.StepExecution {
	je := testutil.NewTestJobExecution("schemaJob", nil)
	return testutil.NewTestStepExecution(je, "migrateStep")
}

func TestMigrationTasklet_UpAppliesScriptsForConnectionType(t *testing.T) {
	conn := openSQLite(t)
	tasklet, err := migration.NewMigrationTaskletForConnection(conn, customerMigrations(), "", "")
	require.NoError(t, err)

	se := newStepExecution()
	status, err := tasklet.Execute(context.Background(), se)
	require.NoError(t, err)
	assert.Equal(t, model.RepeatStatusFinished, status)

	var count int
	require.NoError(t, conn.DB().QueryRow("SELECT COUNT(*) FROM CUSTOMER").Scan(&count))
	assert.Equal(t, 2, count)

	version, ok := se.ExecutionContext.GetInt("migration.version")
	require.True(t, ok)
	assert.Equal(t, 2, version)

	// A second run has nothing to apply.
	status, err = tasklet.Execute(context.Background(), newStepExecution())
	require.NoError(t, err)
	assert.Equal(t, model.RepeatStatusFinished, status)
}

func TestMigrationTasklet_Down(t *testing.T) {
	conn := openSQLite(t)
	migrator := migration.NewMigrator(conn.Type(), conn.DB())
	scripts := customerMigrations()

	up, err := migration.NewMigrationTasklet(migrator, scripts, "sqlite", migration.AppMigrationsTable, migration.CommandUp)
	require.NoError(t, err)
	_, err = up.Execute(context.Background(), newStepExecution())
	require.NoError(t, err)

	down, err := migration.NewMigrationTasklet(migrator, scripts, "sqlite", migration.AppMigrationsTable, migration.CommandDown)
	require.NoError(t, err)
	_, err = down.Execute(context.Background(), newStepExecution())
	require.NoError(t, err)

	_, err = conn.DB().Exec("SELECT COUNT(*) FROM CUSTOMER")
	assert.Error(t, err)

	_, _, ok, err := migrator.Version(scripts, "sqlite", migration.AppMigrationsTable)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMigrationTasklet_BrokenScriptIsDataAccessError(t *testing.T) {
	conn := openSQLite(t)
	scripts := fstest.MapFS{
		"sqlite/1_broken.up.sql":   {Data: []byte("CREATE TABLE ( broken")},
		"sqlite/1_broken.down.sql": {Data: []byte("")},
	}
	tasklet, err := migration.NewMigrationTaskletForConnection(conn, scripts, "", migration.FrameworkMigrationsTable)
	require.NoError(t, err)

	_, err = tasklet.Execute(context.Background(), newStepExecution())
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindDataAccess))
}

func TestMigrator_UnsupportedDatabaseType(t *testing.T) {
	conn := openSQLite(t)
	migrator := migration.NewMigrator("oracle", conn.DB())
	err := migrator.Up(context.Background(), customerMigrations(), "sqlite", migration.AppMigrationsTable)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

type mockMigrator struct {
	mock.Mock
}

func (m *mockMigrator) Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error {
	return m.Called(path, tableName).Error(0)
}

func (m *mockMigrator) Down(ctx context.Context, migrationFS fs.FS, path string, tableName string) error {
	return m.Called(path, tableName).Error(0)
}

func (m *mockMigrator) Version(migrationFS fs.FS, path string, tableName string) (uint, bool, bool, error) {
	args := m.Called(path, tableName)
	return args.Get(0).(uint), args.Bool(1), args.Bool(2), args.Error(3)
}

func TestMigrationTasklet_Defaults(t *testing.T) {
	m := new(mockMigrator)
	m.On("Up", ".", migration.AppMigrationsTable).Return(nil)
	m.On("Version", ".", migration.AppMigrationsTable).Return(uint(0), false, false, errors.New("no version table"))

	tasklet, err := migration.NewMigrationTasklet(m, fstest.MapFS{}, "", "", "")
	require.NoError(t, err)
	status, err := tasklet.Execute(context.Background(), newStepExecution())
	require.NoError(t, err)
	assert.Equal(t, model.RepeatStatusFinished, status)
	m.AssertExpectations(t)
}

func TestNewMigrationTasklet_Validation(t *testing.T) {
	_, err := migration.NewMigrationTasklet(nil, fstest.MapFS{}, "", "", "")
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))

	_, err = migration.NewMigrationTasklet(new(mockMigrator), fstest.MapFS{}, "", "", "sideways")
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}
