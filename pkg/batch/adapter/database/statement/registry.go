// Package statement keeps named SQL statements apart from the code that runs
// them, the way a mapper file does.
package statement

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

// Registry maps statement ids to SQL with ":name" parameters.
type Registry struct {
	mu         sync.RWMutex
	statements map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{statements: make(map[string]string)}
}

// Register adds or replaces the statement for id.
func (r *Registry) Register(id, sql string) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statements[id] = sql
	return r
}

// Get returns the statement for id.
func (r *Registry) Get(id string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sql, ok := r.statements[id]
	if !ok {
		return "", exception.NewConfigurationError("statement", fmt.Sprintf("statement '%s' is not registered", id))
	}
	return sql, nil
}

// IDs lists the registered ids in order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.statements))
	for id := range r.statements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// mapperFile is the YAML layout of a statement file:
//
//	namespace: customer
//	statements:
//	  selectCustomers: SELECT ...
type mapperFile struct {
	Namespace  string            `yaml:"namespace"`
	Statements map[string]string `yaml:"statements"`
}

// Load reads a YAML statement file. Ids are registered both bare and as
// "<namespace>.<id>" when a namespace is given.
func (r *Registry) Load(in io.Reader) error {
	var f mapperFile
	if err := yaml.NewDecoder(in).Decode(&f); err != nil {
		return exception.NewConfigurationError("statement", fmt.Sprintf("invalid statement file: %v", err))
	}
	for id, sql := range f.Statements {
		r.Register(id, sql)
		if f.Namespace != "" {
			r.Register(f.Namespace+"."+id, sql)
		}
	}
	return nil
}
