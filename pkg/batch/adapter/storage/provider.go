package storage

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	storageConfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// ConnectionFactory opens a connection of one storage type.
type ConnectionFactory func(name string, cfg storageConfig.StorageConfig) (StorageConnection, error)

var (
	factoryRegistry = make(map[string]ConnectionFactory)
	factoryMutex    sync.RWMutex
)

// RegisterFactory registers factory for storageType.
func RegisterFactory(storageType string, factory ConnectionFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	if _, exists := factoryRegistry[storageType]; exists {
		logger.Warnf("Storage factory for type '%s' already registered. Overwriting.", storageType)
	}
	factoryRegistry[storageType] = factory
}

func getFactory(storageType string) (ConnectionFactory, error) {
	factoryMutex.RLock()
	defer factoryMutex.RUnlock()
	f, ok := factoryRegistry[storageType]
	if !ok {
		return nil, fmt.Errorf("no storage adapter registered for type: %s", storageType)
	}
	return f, nil
}

// Provider opens storage connections by name and caches them.
type Provider struct {
	configs     storageConfig.DatasourcesConfig
	connections map[string]StorageConnection
	mu          sync.RWMutex
}

// NewProvider creates a Provider over the configured storage connections.
func NewProvider(configs storageConfig.DatasourcesConfig) *Provider {
	return &Provider{
		configs:     configs,
		connections: make(map[string]StorageConnection),
	}
}

// GetConnection retrieves a connection by name, opening it on first use.
func (p *Provider) GetConnection(name string) (StorageConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring lock
	if conn, ok = p.connections[name]; ok {
		return conn, nil
	}

	cfg, ok := p.configs[name]
	if !ok {
		return nil, exception.NewConfigurationError("storage", fmt.Sprintf("storage connection '%s' is not configured", name))
	}
	factory, err := getFactory(cfg.Type)
	if err != nil {
		return nil, exception.NewConfigurationError("storage", err.Error())
	}
	conn, err = factory(name, cfg)
	if err != nil {
		return nil, exception.NewDataAccessError("storage", fmt.Sprintf("failed to open storage connection '%s' (%s)", name, cfg.Type), err)
	}
	p.connections[name] = conn
	logger.Debugf("Created new %s storage connection '%s'.", cfg.Type, name)
	return conn, nil
}

// CloseAll closes all connections managed by this provider.
func (p *Provider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close storage connection '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	return result
}
