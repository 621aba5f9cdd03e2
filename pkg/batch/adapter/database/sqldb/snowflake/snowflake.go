// Package snowflake registers the gosnowflake dialect with sqldb. Snowflake
// datasources are read through SQLPagingSource; upserts are not supported.
package snowflake

import (
	"errors"

	"github.com/snowflakedb/gosnowflake"

	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/namedsql"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb"
)

func init() {
	sqldb.RegisterDialect("snowflake", sqldb.Dialect{
		DriverName: "snowflake",
		Style:      namedsql.Question,
		Upsert:     sqldb.UpsertUnsupported,
		DSN:        DSN,
	})
}

// DSN builds a gosnowflake DSN from the account settings.
func DSN(c dbconfig.DatabaseConfig) (string, error) {
	if c.Account == "" {
		return "", errors.New("snowflake account cannot be empty")
	}
	return gosnowflake.DSN(&gosnowflake.Config{
		Account:   c.Account,
		User:      c.User,
		Password:  c.Password,
		Database:  c.Database,
		Schema:    c.Schema,
		Warehouse: c.Warehouse,
	})
}
