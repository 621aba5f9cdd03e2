package database

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// OpenFunc opens a connection for one datasource.
type OpenFunc[C DBConnection] func(name string, cfg dbconfig.DatabaseConfig) (C, error)

// BaseProvider caches connections opened by an OpenFunc. Adapters embed it.
type BaseProvider[C DBConnection] struct {
	kind        string
	configs     map[string]dbconfig.DatabaseConfig
	open        OpenFunc[C]
	connections map[string]C
	mu          sync.RWMutex
}

// NewBaseProvider creates a BaseProvider over the given datasource settings.
func NewBaseProvider[C DBConnection](kind string, configs map[string]dbconfig.DatabaseConfig, open OpenFunc[C]) *BaseProvider[C] {
	return &BaseProvider[C]{
		kind:        kind,
		configs:     configs,
		open:        open,
		connections: make(map[string]C),
	}
}

// Type returns the provider kind.
func (p *BaseProvider[C]) Type() string {
	return p.kind
}

// Get returns the cached connection for name or opens it.
func (p *BaseProvider[C]) Get(name string) (C, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double check (DCL)
	if conn, ok = p.connections[name]; ok {
		return conn, nil
	}

	var zero C
	cfg, ok := p.configs[name]
	if !ok {
		return zero, exception.NewConfigurationError("database", fmt.Sprintf("datasource '%s' is not configured", name))
	}
	conn, err := p.open(name, cfg)
	if err != nil {
		return zero, exception.NewDataAccessError("database", fmt.Sprintf("failed to open datasource '%s' (%s)", name, cfg.Type), err)
	}
	p.connections[name] = conn
	logger.Infof("Established new DB connection: %s (%s via %s)", name, cfg.Type, p.kind)
	return conn, nil
}

// GetConnection implements DBProvider.
func (p *BaseProvider[C]) GetConnection(name string) (DBConnection, error) {
	conn, err := p.Get(name)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// CloseAll closes every cached connection.
func (p *BaseProvider[C]) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			logger.Errorf("Failed to close connection '%s': %v", name, err)
			result = multierror.Append(result, fmt.Errorf("close %s: %w", name, err))
		}
		delete(p.connections, name)
	}
	return result
}

// ApplyPool copies the pool settings of cfg onto an open connection pool.
func ApplyPool(db interface {
	SetMaxOpenConns(int)
	SetMaxIdleConns(int)
	SetConnMaxLifetime(time.Duration)
}, pool dbconfig.PoolConfig) {
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeMinutes) * time.Minute)
	}
}
