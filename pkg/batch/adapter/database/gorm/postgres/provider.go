// Package postgres registers the GORM PostgreSQL dialector.
package postgres

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/gorm"
	sqlpostgres "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb/postgres"
)

func init() {
	gormadapter.RegisterDialector("postgres", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		dsn := cfg.DSN
		if dsn == "" {
			var err error
			if dsn, err = sqlpostgres.DSN(cfg); err != nil {
				return nil, err
			}
		}
		return postgres.Open(dsn), nil
	})
}
