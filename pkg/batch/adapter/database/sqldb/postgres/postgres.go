// Package postgres registers the PostgreSQL dialects with sqldb: "postgres"
// uses lib/pq and "pgx" uses the pgx stdlib driver.
package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/lib/pq"

	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/namedsql"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb"
)

const uniqueViolation = "23505"

func init() {
	sqldb.RegisterDialect("postgres", sqldb.Dialect{
		DriverName: "postgres",
		Style:      namedsql.Dollar,
		Upsert:     sqldb.UpsertOnConflict,
		DSN:        DSN,
	})
	sqldb.RegisterDialect("pgx", sqldb.Dialect{
		DriverName: "pgx",
		Style:      namedsql.Dollar,
		Upsert:     sqldb.UpsertOnConflict,
		DSN:        DSN,
	})
}

// DSN builds a key/value connection string understood by both drivers.
func DSN(c dbconfig.DatabaseConfig) (string, error) {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, port, c.User, c.Password, c.Database, sslmode)
	if c.Schema != "" {
		dsn += " search_path=" + c.Schema
	}
	return dsn, nil
}

// IsUniqueViolation reports whether err is a unique constraint violation
// raised by either driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
