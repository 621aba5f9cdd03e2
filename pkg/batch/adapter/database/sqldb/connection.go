package sqldb

import (
	"database/sql"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/namedsql"
)

// Connection is a database/sql connection pool bound to its dialect.
type Connection struct {
	db      *sql.DB
	cfg     dbconfig.DatabaseConfig
	dialect Dialect
	name    string
}

// NewConnection wraps an already opened pool. It is how tests hand a sqlmock
// pool to the adapter.
func NewConnection(name string, db *sql.DB, cfg dbconfig.DatabaseConfig, dialect Dialect) *Connection {
	return &Connection{db: db, cfg: cfg, dialect: dialect, name: name}
}

// Open opens a pool for cfg using the dialect registered for cfg.Type.
func Open(name string, cfg dbconfig.DatabaseConfig) (*Connection, error) {
	dialect, err := GetDialect(cfg.Type)
	if err != nil {
		return nil, err
	}
	dsn := cfg.DSN
	if dsn == "" {
		if dsn, err = dialect.DSN(cfg); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, err
	}
	database.ApplyPool(db, cfg.Pool)
	return NewConnection(name, db, cfg, dialect), nil
}

// DB returns the pool.
func (c *Connection) DB() *sql.DB { return c.db }

// Style returns the placeholder style of the driver.
func (c *Connection) Style() namedsql.Style { return c.dialect.Style }

// Dialect returns the dialect of the connection.
func (c *Connection) Dialect() Dialect { return c.dialect }

// Name implements database.DBConnection.
func (c *Connection) Name() string { return c.name }

// Type implements database.DBConnection.
func (c *Connection) Type() string { return c.cfg.Type }

// Config implements database.DBConnection.
func (c *Connection) Config() dbconfig.DatabaseConfig { return c.cfg }

// GetSQLDB implements database.DBConnection.
func (c *Connection) GetSQLDB() (*sql.DB, error) { return c.db, nil }

// Close implements database.DBConnection.
func (c *Connection) Close() error { return c.db.Close() }

// Provider opens database/sql connections by datasource name.
type Provider struct {
	*database.BaseProvider[*Connection]
}

// NewProvider creates a Provider over the configured datasources.
func NewProvider(configs map[string]dbconfig.DatabaseConfig) *Provider {
	return &Provider{BaseProvider: database.NewBaseProvider[*Connection]("sql", configs, Open)}
}

var (
	_ database.DBConnection = (*Connection)(nil)
	_ database.DBProvider   = (*Provider)(nil)
)
