package usecase

import (
	"sort"
	"sync"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	exception "github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

// JobRegistry holds the jobs an engine can launch, keyed by name.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]port.Job
}

// NewJobRegistry creates an empty JobRegistry.
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]port.Job)}
}

// Register adds jobs to the registry. Registering a name twice is a configuration error.
func (r *JobRegistry) Register(jobs ...port.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		if j == nil {
			return exception.NewConfigurationError("job_registry", "job must not be nil")
		}
		name := j.JobName()
		if _, exists := r.jobs[name]; exists {
			return exception.NewConfigurationError("job_registry", "job '"+name+"' is already registered")
		}
		r.jobs[name] = j
	}
	return nil
}

// GetJob returns the job registered under name.
func (r *JobRegistry) GetJob(name string) (port.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[name]
	if !ok {
		return nil, exception.NewConfigurationError("job_registry", "job '"+name+"' is not registered")
	}
	return j, nil
}

// JobNames returns the registered job names in ascending order.
func (r *JobRegistry) JobNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
