package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// migratorImpl implements Migrator on top of an open *sql.DB.
type migratorImpl struct {
	db     *sql.DB
	dbType string
}

// NewMigrator creates a Migrator for db. dbType is the datasource type
// ("sqlite", "postgres", "mysql", ...).
func NewMigrator(dbType string, db *sql.DB) Migrator {
	return &migratorImpl{db: db, dbType: dbType}
}

// databaseDriver returns the golang-migrate driver matching the database type.
func (m *migratorImpl) databaseDriver(tableName string) (database.Driver, error) {
	switch m.dbType {
	case "postgres", "pgx", "redshift":
		return postgres.WithInstance(m.db, &postgres.Config{MigrationsTable: tableName})
	case "mysql":
		return mysql.WithInstance(m.db, &mysql.Config{MigrationsTable: tableName})
	case "sqlite", "sqlite3":
		return sqlite3.WithInstance(m.db, &sqlite3.Config{MigrationsTable: tableName})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
	}
}

func (m *migratorImpl) open(migrationFS fs.FS, path string, tableName string) (*migrate.Migrate, source.Driver, error) {
	sourceDriver, err := iofs.New(migrationFS, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}
	dbDriver, err := m.databaseDriver(tableName)
	if err != nil {
		sourceDriver.Close()
		return nil, nil, fmt.Errorf("failed to create database driver: %w", err)
	}
	instance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbType, dbDriver)
	if err != nil {
		sourceDriver.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return instance, sourceDriver, nil
}

func (m *migratorImpl) run(ctx context.Context, migrationFS fs.FS, path string, command string, tableName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Infof("Executing migration '%s' (Path: %s, Table: %s)", command, path, tableName)

	instance, sourceDriver, err := m.open(migrationFS, path, tableName)
	if err != nil {
		return err
	}
	// migrate.Close would also close the shared *sql.DB.
	defer sourceDriver.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			instance.GracefulStop <- true
		case <-done:
		}
	}()

	var migrateErr error
	switch command {
	case CommandUp:
		migrateErr = instance.Up()
	case CommandDown:
		migrateErr = instance.Down()
	default:
		return fmt.Errorf("unsupported migration command: %s", command)
	}
	if errors.Is(migrateErr, migrate.ErrNoChange) {
		logger.Infof("Migration '%s': no change.", command)
		return nil
	}
	if migrateErr != nil {
		return fmt.Errorf("migration failed for command '%s' (DB: %s, Path: %s): %w", command, m.dbType, path, migrateErr)
	}
	logger.Infof("Migration '%s' completed successfully.", command)
	return nil
}

func (m *migratorImpl) Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error {
	return m.run(ctx, migrationFS, path, CommandUp, tableName)
}

func (m *migratorImpl) Down(ctx context.Context, migrationFS fs.FS, path string, tableName string) error {
	return m.run(ctx, migrationFS, path, CommandDown, tableName)
}

func (m *migratorImpl) Version(migrationFS fs.FS, path string, tableName string) (uint, bool, bool, error) {
	instance, sourceDriver, err := m.open(migrationFS, path, tableName)
	if err != nil {
		return 0, false, false, err
	}
	defer sourceDriver.Close()

	version, dirty, err := instance.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, err
	}
	return version, dirty, true, nil
}
