// Package sqldb is the database/sql adapter. Drivers register a Dialect from
// their own sub-package so that only the drivers an application imports are
// linked in.
package sqldb

import (
	"fmt"
	"sync"

	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/namedsql"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// UpsertFlavor selects the upsert syntax of a dialect.
type UpsertFlavor int

const (
	// UpsertUnsupported rejects ExecuteUpsert.
	UpsertUnsupported UpsertFlavor = iota
	// UpsertOnConflict renders "ON CONFLICT (...) DO UPDATE SET c = excluded.c".
	UpsertOnConflict
	// UpsertOnDuplicateKey renders "ON DUPLICATE KEY UPDATE c = VALUES(c)".
	UpsertOnDuplicateKey
)

// Dialect describes how to reach one database type through database/sql.
type Dialect struct {
	// DriverName is the name the driver registered with database/sql.
	DriverName string
	// Style is the placeholder style of the driver.
	Style namedsql.Style
	// Upsert is the upsert syntax, if any.
	Upsert UpsertFlavor
	// DSN builds the data source name from settings. DatabaseConfig.DSN wins when set.
	DSN func(cfg dbconfig.DatabaseConfig) (string, error)
}

var (
	dialectRegistry = make(map[string]Dialect)
	dialectMutex    sync.RWMutex
)

// RegisterDialect registers d for dbType.
func RegisterDialect(dbType string, d Dialect) {
	dialectMutex.Lock()
	defer dialectMutex.Unlock()
	if _, exists := dialectRegistry[dbType]; exists {
		logger.Warnf("Dialect for type '%s' already registered. Overwriting.", dbType)
	}
	dialectRegistry[dbType] = d
}

// GetDialect returns the dialect registered for dbType.
func GetDialect(dbType string) (Dialect, error) {
	dialectMutex.RLock()
	defer dialectMutex.RUnlock()
	d, ok := dialectRegistry[dbType]
	if !ok {
		return Dialect{}, fmt.Errorf("no database/sql dialect registered for database type: %s (import its sqldb sub-package)", dbType)
	}
	return d, nil
}
