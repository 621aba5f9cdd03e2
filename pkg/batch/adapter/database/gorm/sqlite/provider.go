// Package sqlite registers the GORM SQLite dialector.
package sqlite

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/gorm"
	sqlsqlite "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb/sqlite"
)

func init() {
	gormadapter.RegisterDialector("sqlite", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		dsn := cfg.DSN
		if dsn == "" {
			var err error
			if dsn, err = sqlsqlite.DSN(cfg); err != nil {
				return nil, err
			}
		}
		return sqlite.Open(dsn), nil
	})
}
