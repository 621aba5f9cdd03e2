package sqldb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/namedsql"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb/mysql"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb/postgres"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb/sqlite"
	_ "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb/snowflake"
)

func TestRegisteredDialects(t *testing.T) {
	tests := []struct {
		dbType string
		driver string
		style  namedsql.Style
	}{
		{"mysql", "mysql", namedsql.Question},
		{"postgres", "postgres", namedsql.Dollar},
		{"pgx", "pgx", namedsql.Dollar},
		{"sqlite", "sqlite3", namedsql.Question},
		{"snowflake", "snowflake", namedsql.Question},
	}
	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			d, err := sqldb.GetDialect(tt.dbType)
			require.NoError(t, err)
			assert.Equal(t, tt.driver, d.DriverName)
			assert.Equal(t, tt.style, d.Style)
		})
	}

	_, err := sqldb.GetDialect("oracle")
	assert.Error(t, err)
}

func TestDSNBuilders(t *testing.T) {
	cfg := dbconfig.DatabaseConfig{Host: "db", User: "batch", Password: "secret", Database: "tutorial"}

	dsn, err := mysql.DSN(cfg)
	require.NoError(t, err)
	assert.Contains(t, dsn, "batch:secret@tcp(db:3306)/tutorial")
	assert.Contains(t, dsn, "parseTime=true")

	dsn, err = postgres.DSN(cfg)
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=batch password=secret dbname=tutorial sslmode=disable", dsn)

	_, err = sqlite.DSN(dbconfig.DatabaseConfig{})
	assert.Error(t, err)
}

func TestOpenSQLite(t *testing.T) {
	p := sqldb.NewProvider(map[string]dbconfig.DatabaseConfig{
		"workload": {Type: "sqlite", Database: ":memory:"},
	})
	conn, err := p.Get("workload")
	require.NoError(t, err)
	require.NoError(t, conn.DB().Ping())
	assert.Equal(t, "sqlite", conn.Type())

	again, err := p.Get("workload")
	require.NoError(t, err)
	assert.Same(t, conn, again)

	_, err = p.Get("missing")
	assert.Error(t, err)
	assert.NoError(t, p.CloseAll())
}
