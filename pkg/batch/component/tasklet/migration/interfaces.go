package migration

import (
	"context"
	"io/fs"
)

// Tables used by golang-migrate to track applied versions.
const (
	FrameworkMigrationsTable = "batch_framework_migrations"
	AppMigrationsTable       = "batch_app_migrations"
)

// Commands understood by MigrationTasklet.
const (
	CommandUp   = "up"
	CommandDown = "down"
)

// Migrator applies schema migrations read from an fs.FS.
type Migrator interface {
	// Up applies all pending migrations found under path.
	// tableName is the table that tracks the migration history.
	Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
	// Down rolls back all applied migrations.
	Down(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
	// Version returns the current version and whether it is dirty.
	// ok is false when no migration has been applied yet.
	Version(migrationFS fs.FS, path string, tableName string) (version uint, dirty bool, ok bool, err error)
}
