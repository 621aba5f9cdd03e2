// Package repository defines how batch execution metadata is persisted.
package repository

// JobRepository persists job instances, job executions and step executions.
// It embeds one small interface per record type.
type JobRepository interface {
	JobInstance
	JobExecution
	StepExecution

	// Close releases resources (such as database connections) used by the repository.
	Close() error
}
