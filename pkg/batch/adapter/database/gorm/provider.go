// Package gorm is the GORM adapter: dialect registration, named connections
// and the chunk transaction manager.
package gorm

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// DialectorFactory generates a gorm.Dialector from a dbconfig.DatabaseConfig.
type DialectorFactory func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers a DialectorFactory for the given database type.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

// GetDialectorFactory retrieves the DialectorFactory corresponding to the specified DB type.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type: %s", dbType)
	}
	return factory, nil
}

// GormConnection implements database.DBConnection over a *gorm.DB.
type GormConnection struct {
	db   *gorm.DB
	cfg  dbconfig.DatabaseConfig
	name string
}

// NewGormConnection wraps an already opened *gorm.DB.
func NewGormConnection(name string, db *gorm.DB, cfg dbconfig.DatabaseConfig) *GormConnection {
	return &GormConnection{db: db, cfg: cfg, name: name}
}

// Open opens a GORM connection using the dialector registered for cfg.Type.
func Open(name string, cfg dbconfig.DatabaseConfig) (*GormConnection, error) {
	factory, err := GetDialectorFactory(cfg.Type)
	if err != nil {
		return nil, err
	}
	dialector, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialector for %s: %w", cfg.Type, err)
	}
	db, err := OpenDialector(dialector)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	database.ApplyPool(sqlDB, cfg.Pool)
	return NewGormConnection(name, db, cfg), nil
}

// OpenDialector opens a *gorm.DB whose log output goes through the batch logger.
func OpenDialector(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection: %w", err)
	}
	return db, nil
}

// GormDB returns the *gorm.DB.
func (c *GormConnection) GormDB() *gorm.DB { return c.db }

// Name implements database.DBConnection.
func (c *GormConnection) Name() string { return c.name }

// Type implements database.DBConnection.
func (c *GormConnection) Type() string { return c.cfg.Type }

// Config implements database.DBConnection.
func (c *GormConnection) Config() dbconfig.DatabaseConfig { return c.cfg }

// GetSQLDB implements database.DBConnection.
func (c *GormConnection) GetSQLDB() (*sql.DB, error) { return c.db.DB() }

// Close implements database.DBConnection.
func (c *GormConnection) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsTableNotExistError checks if the given error indicates that a table does not exist.
func IsTableNotExistError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	return (strings.Contains(errMsg, "relation \"") && strings.Contains(errMsg, "\" does not exist")) || // PostgreSQL
		(strings.Contains(errMsg, "Error 1146") && strings.Contains(errMsg, "doesn't exist")) || // MySQL
		strings.Contains(errMsg, "no such table:") // SQLite
}

// Provider opens GORM connections by datasource name.
type Provider struct {
	*database.BaseProvider[*GormConnection]
}

// NewProvider creates a Provider over the configured datasources.
func NewProvider(configs map[string]dbconfig.DatabaseConfig) *Provider {
	return &Provider{BaseProvider: database.NewBaseProvider[*GormConnection]("gorm", configs, Open)}
}

var (
	_ database.DBConnection = (*GormConnection)(nil)
	_ database.DBProvider   = (*Provider)(nil)
)
