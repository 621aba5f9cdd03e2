package sql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/domain/repository"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

const module = "GormJobRepository"

// GormJobRepository stores job metadata through GORM.
type GormJobRepository struct {
	db *gorm.DB
}

// Verify that GormJobRepository implements the repository.JobRepository interface.
var _ repository.JobRepository = (*GormJobRepository)(nil)

// NewGormJobRepository creates a repository over db. Call Migrate before first use
// unless the tables are managed by migrations.
func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

// Migrate creates or updates the metadata tables.
func (r *GormJobRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&JobInstanceEntity{}, &JobExecutionEntity{}, &StepExecutionEntity{}); err != nil {
		return exception.NewDataAccessError(module, "failed to migrate job repository tables", err)
	}
	logger.Debugf("Job repository tables migrated.")
	return nil
}

// Close is a no-op. The underlying connection belongs to the connection provider.
func (r *GormJobRepository) Close() error {
	return nil
}

// SaveJobInstance inserts a new JobInstance.
func (r *GormJobRepository) SaveJobInstance(ctx context.Context, jobInstance *model.JobInstance) error {
	entity, err := toJobInstanceEntity(jobInstance)
	if err != nil {
		return exception.NewDataAccessError(module, "failed to hash job parameters", err)
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return exception.NewDataAccessError(module, "failed to save job instance "+jobInstance.ID, err)
	}
	return nil
}

// FindJobInstanceByID finds a JobInstance by its ID.
func (r *GormJobRepository) FindJobInstanceByID(ctx context.Context, id string) (*model.JobInstance, error) {
	var entity JobInstanceEntity
	if err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		return nil, notFound(err, repository.ErrJobInstanceNotFound, "failed to find job instance "+id)
	}
	return toJobInstance(&entity), nil
}

// FindJobInstanceByJobNameAndParameters finds a JobInstance by job name and parameters hash.
func (r *GormJobRepository) FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	hash, err := params.Hash()
	if err != nil {
		return nil, exception.NewDataAccessError(module, "failed to hash job parameters", err)
	}
	var entity JobInstanceEntity
	err = r.db.WithContext(ctx).
		Where("job_name = ? AND parameters_hash = ?", jobName, hash).
		Order("create_time DESC").
		First(&entity).Error
	if err != nil {
		return nil, notFound(err, repository.ErrJobInstanceNotFound, "failed to find job instance of "+jobName)
	}
	return toJobInstance(&entity), nil
}

// GetJobInstanceCount returns the number of instances of jobName.
func (r *GormJobRepository) GetJobInstanceCount(ctx context.Context, jobName string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&JobInstanceEntity{}).Where("job_name = ?", jobName).Count(&count).Error; err != nil {
		return 0, exception.NewDataAccessError(module, "failed to count job instances of "+jobName, err)
	}
	return int(count), nil
}

// GetJobNames returns all distinct job names in ascending order.
func (r *GormJobRepository) GetJobNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&JobInstanceEntity{}).Distinct().Order("job_name").Pluck("job_name", &names).Error; err != nil {
		return nil, exception.NewDataAccessError(module, "failed to list job names", err)
	}
	return names, nil
}

// GetMaxRunID returns the highest run id stored, or 0 for an empty repository.
func (r *GormJobRepository) GetMaxRunID(ctx context.Context) (int64, error) {
	var max int64
	if err := r.db.WithContext(ctx).Model(&JobInstanceEntity{}).Select("COALESCE(MAX(run_id), 0)").Scan(&max).Error; err != nil {
		return 0, exception.NewDataAccessError(module, "failed to read max run id", err)
	}
	return max, nil
}

// SaveJobExecution inserts a new JobExecution.
func (r *GormJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	entity, err := toJobExecutionEntity(jobExecution)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return exception.NewDataAccessError(module, "failed to save job execution "+jobExecution.ID, err)
	}
	return nil
}

// UpdateJobExecution overwrites an existing JobExecution.
func (r *GormJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	entity, err := toJobExecutionEntity(jobExecution)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&JobExecutionEntity{}).Where("id = ?", entity.ID).Select("*").Updates(entity)
	if result.Error != nil {
		return exception.NewDataAccessError(module, "failed to update job execution "+jobExecution.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrJobExecutionNotFound
	}
	return nil
}

// FindJobExecutionByID loads a JobExecution with its step executions in execution order.
func (r *GormJobRepository) FindJobExecutionByID(ctx context.Context, id string) (*model.JobExecution, error) {
	var entity JobExecutionEntity
	if err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		return nil, notFound(err, repository.ErrJobExecutionNotFound, "failed to find job execution "+id)
	}
	je, err := toJobExecution(&entity)
	if err != nil {
		return nil, err
	}

	var steps []StepExecutionEntity
	if err := r.db.WithContext(ctx).Where("job_execution_id = ?", id).Order("seq").Find(&steps).Error; err != nil {
		return nil, exception.NewDataAccessError(module, "failed to load step executions of "+id, err)
	}
	for i := range steps {
		se, err := toStepExecution(&steps[i])
		if err != nil {
			return nil, err
		}
		se.JobExecution = je
		je.StepExecutions = append(je.StepExecutions, se)
	}
	return je, nil
}

// FindJobExecutionsByJobInstance returns the executions of an instance, oldest first.
func (r *GormJobRepository) FindJobExecutionsByJobInstance(ctx context.Context, jobInstance *model.JobInstance) ([]*model.JobExecution, error) {
	var entities []JobExecutionEntity
	if err := r.db.WithContext(ctx).Where("job_instance_id = ?", jobInstance.ID).Order("create_time").Find(&entities).Error; err != nil {
		return nil, exception.NewDataAccessError(module, "failed to list job executions of "+jobInstance.ID, err)
	}
	executions := make([]*model.JobExecution, 0, len(entities))
	for i := range entities {
		je, err := toJobExecution(&entities[i])
		if err != nil {
			return nil, err
		}
		executions = append(executions, je)
	}
	return executions, nil
}

// SaveStepExecution inserts a new StepExecution after the existing steps of its job execution.
func (r *GormJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq int64
		if err := tx.Model(&StepExecutionEntity{}).Where("job_execution_id = ?", stepExecution.JobExecutionID).Count(&seq).Error; err != nil {
			return exception.NewDataAccessError(module, "failed to count step executions", err)
		}
		entity, err := toStepExecutionEntity(stepExecution, int(seq))
		if err != nil {
			return err
		}
		if err := tx.Create(entity).Error; err != nil {
			return exception.NewDataAccessError(module, "failed to save step execution "+stepExecution.ID, err)
		}
		return nil
	})
}

// UpdateStepExecution overwrites an existing StepExecution. The execution order is kept.
func (r *GormJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	entity, err := toStepExecutionEntity(stepExecution, 0)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&StepExecutionEntity{}).Where("id = ?", entity.ID).Select("*").Omit("seq").Updates(entity)
	if result.Error != nil {
		return exception.NewDataAccessError(module, "failed to update step execution "+stepExecution.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrStepExecutionNotFound
	}
	return nil
}

// FindStepExecutionByID finds a StepExecution by its ID.
func (r *GormJobRepository) FindStepExecutionByID(ctx context.Context, id string) (*model.StepExecution, error) {
	var entity StepExecutionEntity
	if err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		return nil, notFound(err, repository.ErrStepExecutionNotFound, "failed to find step execution "+id)
	}
	return toStepExecution(&entity)
}

func notFound(err, sentinel error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return exception.NewDataAccessError(module, msg, err)
}
