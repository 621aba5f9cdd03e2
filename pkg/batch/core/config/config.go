// Package config provides structures and utilities for managing application configuration.
package config

import (
	"fmt"
	"time"

	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	storageconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/storage/config"
	exception "github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// MaskedParameterKeys is a list of keys in JobParameters whose values should be masked in logs.
	MaskedParameterKeys []string `yaml:"maskedParameterKeys" env:"SURFIN_SECURITY_MASKED_PARAMETER_KEYS"`
}

// BatchConfig holds configuration specific to the batch processing engine.
type BatchConfig struct {
	// JobName is the job run when no job is named on the command line.
	JobName string `yaml:"jobName" env:"SURFIN_BATCH_JOB_NAME"`
	// ChunkSize is the default chunk size for chunk-oriented steps.
	ChunkSize int `yaml:"chunkSize" env:"SURFIN_BATCH_CHUNK_SIZE"`
	// PageSize is the default fetch size of paging sources.
	PageSize int `yaml:"pageSize" env:"SURFIN_BATCH_PAGE_SIZE"`
	// MigrateOnStart runs the schema job before the configured job.
	MigrateOnStart bool `yaml:"migrateOnStart" env:"SURFIN_BATCH_MIGRATE_ON_START"`
	// RepositoryRef names the datasource holding the job repository tables. Empty keeps them in memory.
	RepositoryRef string `yaml:"repositoryRef" env:"SURFIN_BATCH_REPOSITORY_REF"`
	// DatasourceRef names the datasource the jobs read and write.
	DatasourceRef string `yaml:"datasourceRef" env:"SURFIN_BATCH_DATASOURCE_REF"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level" env:"SURFIN_SYSTEM_LOGGING_LEVEL"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Tokyo").
	Timezone string        `yaml:"timezone" env:"SURFIN_SYSTEM_TIMEZONE"`
	Logging  LoggingConfig `yaml:"logging"`
}

// KafkaConfig holds the broker settings of the Kafka sink.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"SURFIN_MESSAGING_KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env:"SURFIN_MESSAGING_KAFKA_TOPIC"`
}

// MessagingConfig holds message broker settings.
type MessagingConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

// BonusConfig configures the remote bonus service.
type BonusConfig struct {
	// Mode is "stub" or "http".
	Mode           string `yaml:"mode" env:"SURFIN_REMOTE_BONUS_MODE"`
	Endpoint       string `yaml:"endpoint" env:"SURFIN_REMOTE_BONUS_ENDPOINT"`
	TimeoutSeconds int    `yaml:"timeoutSeconds" env:"SURFIN_REMOTE_BONUS_TIMEOUT_SECONDS"`
	// Concurrency bounds the lookups in flight for one chunk.
	Concurrency int `yaml:"concurrency" env:"SURFIN_REMOTE_BONUS_CONCURRENCY"`
}

// Timeout returns TimeoutSeconds as a duration.
func (c BonusConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RemoteConfig holds settings of remote services called by jobs.
type RemoteConfig struct {
	Bonus BonusConfig `yaml:"bonus"`
}

// PrometheusConfig configures the Prometheus recorder and its scrape endpoint.
type PrometheusConfig struct {
	Enabled bool   `yaml:"enabled" env:"SURFIN_METRICS_PROMETHEUS_ENABLED"`
	Addr    string `yaml:"addr" env:"SURFIN_METRICS_PROMETHEUS_ADDR"`
}

// OTLPConfig selects an OTLP exporter: none, grpc or http.
type OTLPConfig struct {
	Exporter string `yaml:"exporter" env:"SURFIN_METRICS_OTLP_EXPORTER"`
	Endpoint string `yaml:"endpoint" env:"SURFIN_METRICS_OTLP_ENDPOINT"`
}

// MetricsConfig holds metric recorder settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `yaml:"prometheus"`
	OTLP       OTLPConfig       `yaml:"otlp"`
}

// TracingConfig selects the span exporter: none, stdout-log, grpc or http.
type TracingConfig struct {
	Exporter    string `yaml:"exporter" env:"SURFIN_TRACING_EXPORTER"`
	Endpoint    string `yaml:"endpoint" env:"SURFIN_TRACING_ENDPOINT"`
	ServiceName string `yaml:"serviceName" env:"SURFIN_TRACING_SERVICE_NAME"`
}

// SurfinConfig holds all configuration under the "surfin" top-level key.
type SurfinConfig struct {
	Batch  BatchConfig  `yaml:"batch"`
	System SystemConfig `yaml:"system"`
	// Datasources maps a datasource name to its connection settings.
	// Environment overrides use SURFIN_DATASOURCES_<NAME>_<FIELD>.
	Datasources map[string]dbconfig.DatabaseConfig `yaml:"datasources" envPrefix:"SURFIN_DATASOURCES_"`
	Storage     storageconfig.StorageConfig        `yaml:"storage"`
	Messaging   MessagingConfig                    `yaml:"messaging"`
	Remote      RemoteConfig                       `yaml:"remote"`
	Metrics     MetricsConfig                      `yaml:"metrics"`
	Tracing     TracingConfig                      `yaml:"tracing"`
	Security    SecurityConfig                     `yaml:"security"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	Surfin SurfinConfig `yaml:"surfin"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		Surfin: SurfinConfig{
			Batch: BatchConfig{
				ChunkSize: 10,
				PageSize:  10,
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: string(LogLevelInfo)},
			},
			Datasources: map[string]dbconfig.DatabaseConfig{},
			Storage: storageconfig.StorageConfig{
				Type:    "local",
				BaseDir: "output",
			},
			Remote: RemoteConfig{
				Bonus: BonusConfig{Mode: "stub", TimeoutSeconds: 5, Concurrency: 4},
			},
			Metrics: MetricsConfig{
				Prometheus: PrometheusConfig{Addr: ":9090"},
				OTLP:       OTLPConfig{Exporter: "none"},
			},
			Tracing: TracingConfig{Exporter: "none", ServiceName: "chunkbatch"},
			Security: SecurityConfig{
				MaskedParameterKeys: []string{"password", "api_key", "secret"},
			},
		},
	}
}

// Datasource returns the datasource registered under name.
func (c *Config) Datasource(name string) (dbconfig.DatabaseConfig, error) {
	ds, ok := c.Surfin.Datasources[name]
	if !ok {
		return dbconfig.DatabaseConfig{}, exception.NewConfigurationError(moduleName, fmt.Sprintf("datasource '%s' is not configured", name))
	}
	return ds, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	s := c.Surfin
	if s.Batch.ChunkSize <= 0 {
		return exception.NewConfigurationError(moduleName, fmt.Sprintf("batch.chunkSize must be positive, got %d", s.Batch.ChunkSize))
	}
	if s.Batch.PageSize <= 0 {
		return exception.NewConfigurationError(moduleName, fmt.Sprintf("batch.pageSize must be positive, got %d", s.Batch.PageSize))
	}
	if _, err := time.LoadLocation(s.System.Timezone); err != nil {
		return exception.NewConfigurationError(moduleName, fmt.Sprintf("system.timezone '%s' is not a known location", s.System.Timezone))
	}
	for _, ref := range []string{s.Batch.RepositoryRef, s.Batch.DatasourceRef} {
		if ref == "" {
			continue
		}
		if _, err := c.Datasource(ref); err != nil {
			return err
		}
	}
	if !oneOf(s.Storage.Type, "local", "minio", "gcs") {
		return exception.NewConfigurationError(moduleName, fmt.Sprintf("storage.type '%s' is not one of local, minio, gcs", s.Storage.Type))
	}
	if !oneOf(s.Remote.Bonus.Mode, "stub", "http") {
		return exception.NewConfigurationError(moduleName, fmt.Sprintf("remote.bonus.mode '%s' is not one of stub, http", s.Remote.Bonus.Mode))
	}
	if s.Remote.Bonus.Mode == "http" && s.Remote.Bonus.Endpoint == "" {
		return exception.NewConfigurationError(moduleName, "remote.bonus.endpoint is required in http mode")
	}
	if !oneOf(s.Metrics.OTLP.Exporter, "none", "grpc", "http") {
		return exception.NewConfigurationError(moduleName, fmt.Sprintf("metrics.otlp.exporter '%s' is not one of none, grpc, http", s.Metrics.OTLP.Exporter))
	}
	if !oneOf(s.Tracing.Exporter, "none", "stdout-log", "grpc", "http") {
		return exception.NewConfigurationError(moduleName, fmt.Sprintf("tracing.exporter '%s' is not one of none, stdout-log, grpc, http", s.Tracing.Exporter))
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
