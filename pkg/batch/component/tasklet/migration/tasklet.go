// Package migration provides a Tasklet that applies database schema
// migrations with golang-migrate.
package migration

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

const moduleName = "migration_tasklet"

// MigrationTasklet runs one migration command against a database. It finishes
// in a single invocation.
type MigrationTasklet struct {
	migrator     Migrator
	migrationFS  fs.FS
	migrationDir string
	tableName    string
	command      string
}

// NewMigrationTasklet creates a MigrationTasklet.
//
// Parameters:
//
//	migrator: The migrator bound to the target database.
//	migrationFS: The file system holding the migration scripts.
//	migrationDir: The directory inside migrationFS. "." when empty.
//	tableName: The history table. AppMigrationsTable when empty.
//	command: CommandUp or CommandDown. CommandUp when empty.
func NewMigrationTasklet(migrator Migrator, migrationFS fs.FS, migrationDir, tableName, command string) (*MigrationTasklet, error) {
	if migrator == nil || migrationFS == nil {
		return nil, exception.NewConfigurationError(moduleName, "migrator and migration file system are required")
	}
	if migrationDir == "" {
		migrationDir = "."
	}
	if tableName == "" {
		tableName = AppMigrationsTable
	}
	if command == "" {
		command = CommandUp
	}
	if command != CommandUp && command != CommandDown {
		return nil, exception.NewConfigurationError(moduleName, fmt.Sprintf("unsupported migration command '%s'", command))
	}
	return &MigrationTasklet{
		migrator:     migrator,
		migrationFS:  migrationFS,
		migrationDir: migrationDir,
		tableName:    tableName,
		command:      command,
	}, nil
}

// NewMigrationTaskletForConnection creates a MigrationTasklet migrating the
// database behind conn. The scripts are read from the directory named after
// the connection type (e.g. "sqlite", "postgres") when migrationDir is empty.
func NewMigrationTaskletForConnection(conn database.DBConnection, migrationFS fs.FS, migrationDir, tableName string) (*MigrationTasklet, error) {
	db, err := conn.GetSQLDB()
	if err != nil {
		return nil, exception.NewDataAccessError(moduleName, fmt.Sprintf("failed to get sql.DB of datasource '%s'", conn.Name()), err)
	}
	if migrationDir == "" {
		migrationDir = conn.Type()
	}
	return NewMigrationTasklet(NewMigrator(conn.Type(), db), migrationFS, migrationDir, tableName, CommandUp)
}

// Execute runs the migration command and records the resulting version in
// the step's ExecutionContext under "migration.version".
func (t *MigrationTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.RepeatStatus, error) {
	var err error
	switch t.command {
	case CommandDown:
		err = t.migrator.Down(ctx, t.migrationFS, t.migrationDir, t.tableName)
	default:
		err = t.migrator.Up(ctx, t.migrationFS, t.migrationDir, t.tableName)
	}
	if err != nil {
		return model.RepeatStatusFinished, exception.NewDataAccessError(moduleName, fmt.Sprintf("migration '%s' of '%s' failed", t.command, t.migrationDir), err)
	}

	version, dirty, ok, err := t.migrator.Version(t.migrationFS, t.migrationDir, t.tableName)
	if err != nil {
		logger.Warnf("MigrationTasklet: failed to read the migration version: %v", err)
		return model.RepeatStatusFinished, nil
	}
	if ok {
		stepExecution.ExecutionContext.Put("migration.version", int(version))
		logger.Infof("MigrationTasklet: schema at version %d (dirty: %t).", version, dirty)
	}
	return model.RepeatStatusFinished, nil
}

var _ port.Tasklet = (*MigrationTasklet)(nil)
