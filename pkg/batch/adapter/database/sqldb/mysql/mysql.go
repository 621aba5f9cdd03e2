// Package mysql registers the go-sql-driver/mysql dialect with sqldb.
package mysql

import (
	"fmt"

	"github.com/go-sql-driver/mysql"

	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/namedsql"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb"
)

func init() {
	sqldb.RegisterDialect("mysql", sqldb.Dialect{
		DriverName: "mysql",
		Style:      namedsql.Question,
		Upsert:     sqldb.UpsertOnDuplicateKey,
		DSN:        DSN,
	})
}

// DSN builds a go-sql-driver DSN. Times are parsed into time.Time.
func DSN(c dbconfig.DatabaseConfig) (string, error) {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	port := c.Port
	if port == 0 {
		port = 3306
	}
	cfg.Addr = fmt.Sprintf("%s:%d", c.Host, port)
	cfg.DBName = c.Database
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
