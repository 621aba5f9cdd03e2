// Package sqlite registers the mattn/go-sqlite3 dialect with sqldb.
package sqlite

import (
	"errors"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"

	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/namedsql"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb"
)

func init() {
	sqldb.RegisterDialect("sqlite", sqldb.Dialect{
		DriverName: "sqlite3",
		Style:      namedsql.Question,
		Upsert:     sqldb.UpsertOnConflict,
		DSN:        DSN,
	})
}

// DSN returns the database file path.
func DSN(c dbconfig.DatabaseConfig) (string, error) {
	if c.Database == "" {
		return "", errors.New("SQLite database path cannot be empty")
	}
	return c.Database, nil
}
