// Package database defines the connection abstractions shared by the
// database/sql and GORM adapters.
package database

import (
	"database/sql"

	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
)

// DBConnection is a named, open database connection.
type DBConnection interface {
	// Name returns the datasource name the connection was opened for.
	Name() string
	// Type returns the database type (e.g., "sqlite", "mysql", "postgres").
	Type() string
	// Config returns the settings the connection was opened with.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB.
	GetSQLDB() (*sql.DB, error)
	// Close closes the connection.
	Close() error
}

// DBProvider opens connections by datasource name and caches them.
type DBProvider interface {
	// GetConnection retrieves a connection with the specified name, opening it on first use.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the kind of provider (e.g., "gorm", "sql").
	Type() string
}
