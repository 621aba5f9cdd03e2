// Package sql provides a GORM-backed JobRepository. Tables are created with
// AutoMigrate on any dialect GORM supports (SQLite, MySQL, PostgreSQL).
package sql

import (
	"time"

	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
)

// JobInstanceEntity is the persisted form of model.JobInstance.
type JobInstanceEntity struct {
	ID             string              `gorm:"primaryKey;size:36"`
	JobName        string              `gorm:"size:255;index"`
	Parameters     model.JobParameters `gorm:"type:text"`
	ParametersHash string              `gorm:"size:64;index"`
	RunID          int64               `gorm:"index"`
	CreateTime     time.Time
}

func (JobInstanceEntity) TableName() string {
	return "batch_job_instance"
}

// JobExecutionEntity is the persisted form of model.JobExecution.
type JobExecutionEntity struct {
	ID               string `gorm:"primaryKey;size:36"`
	JobInstanceID    string `gorm:"size:36;index"`
	JobName          string `gorm:"size:255"`
	RunID            int64
	Parameters       model.JobParameters `gorm:"type:text"`
	Status           string              `gorm:"size:20"`
	ExitStatus       string              `gorm:"size:100"`
	CreateTime       time.Time
	StartTime        time.Time
	EndTime          *time.Time
	LastUpdated      time.Time
	CurrentStepName  string                 `gorm:"size:255"`
	Failures         string                 `gorm:"type:text"`
	ExecutionContext model.ExecutionContext `gorm:"type:text"`
}

func (JobExecutionEntity) TableName() string {
	return "batch_job_execution"
}

// StepExecutionEntity is the persisted form of model.StepExecution. Seq keeps
// the execution order of the steps of one job execution.
type StepExecutionEntity struct {
	ID               string `gorm:"primaryKey;size:36"`
	JobExecutionID   string `gorm:"size:36;index"`
	Seq              int
	StepName         string `gorm:"size:255"`
	Status           string `gorm:"size:20"`
	ExitStatus       string `gorm:"size:100"`
	StartTime        time.Time
	EndTime          *time.Time
	LastUpdated      time.Time
	ReadCount        int
	ProcessCount     int
	FilterCount      int
	WriteCount       int
	CommitCount      int
	RollbackCount    int
	Failures         string                 `gorm:"type:text"`
	ExecutionContext model.ExecutionContext `gorm:"type:text"`
}

func (StepExecutionEntity) TableName() string {
	return "batch_step_execution"
}
