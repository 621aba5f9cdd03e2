// Package mysql registers the GORM MySQL dialector.
package mysql

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/gorm"
	sqlmysql "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb/mysql"
)

func init() {
	gormadapter.RegisterDialector("mysql", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		dsn := cfg.DSN
		if dsn == "" {
			var err error
			if dsn, err = sqlmysql.DSN(cfg); err != nil {
				return nil, err
			}
		}
		return mysql.Open(dsn), nil
	})
}
