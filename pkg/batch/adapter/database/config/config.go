// Package config holds the connection settings shared by the relational and
// ORM adapters.
package config

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"maxOpenConns" mapstructure:"maxOpenConns"`
	MaxIdleConns           int `yaml:"maxIdleConns" mapstructure:"maxIdleConns"`
	ConnMaxLifetimeMinutes int `yaml:"connMaxLifetimeMinutes" mapstructure:"connMaxLifetimeMinutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type      string     `yaml:"type" mapstructure:"type"`                     // sqlite, mysql, postgres, pgx or snowflake.
	DSN       string     `yaml:"dsn,omitempty" mapstructure:"dsn"`             // Used verbatim when set.
	Host      string     `yaml:"host" mapstructure:"host"`                     // Database host address.
	Port      int        `yaml:"port" mapstructure:"port"`                     // Database port number.
	Database  string     `yaml:"database" mapstructure:"database"`             // Database name, or file path for sqlite.
	User      string     `yaml:"user" mapstructure:"user"`                     // Database user.
	Password  string     `yaml:"password" mapstructure:"password"`             // Database password.
	Schema    string     `yaml:"schema,omitempty" mapstructure:"schema"`       // Schema name for PostgreSQL and Snowflake.
	Sslmode   string     `yaml:"sslmode" mapstructure:"sslmode"`               // SSL mode for PostgreSQL.
	Account   string     `yaml:"account,omitempty" mapstructure:"account"`     // Snowflake account identifier.
	Warehouse string     `yaml:"warehouse,omitempty" mapstructure:"warehouse"` // Snowflake warehouse.
	Pool      PoolConfig `yaml:"pool" mapstructure:"pool"`                     // Connection pool settings.
}
