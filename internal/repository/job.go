package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bennyz/qarax/internal/model"
)

type JobRepository interface {
	Create(ctx context.Context, job *model.Job) error
	GetByID(ctx context.Context, id string) (*model.Job, error)
	MarkRunning(ctx context.Context, id string) error
	UpdateProgress(ctx context.Context, id string, progress int) error
	MarkCompleted(ctx context.Context, id string, result model.JSONMap) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
}

func NewJobRepository(r *Repository) JobRepository {
	return &jobRepository{Repository: r}
}

type jobRepository struct {
	*Repository
}

func (r *jobRepository) Create(ctx context.Context, job *model.Job) error {
	return r.DB(ctx).Create(job).Error
}

func (r *jobRepository) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	if err := r.DB(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) MarkRunning(ctx context.Context, id string) error {
	now := time.Now()
	res := r.DB(ctx).Model(&model.Job{}).
		Where("id = ? AND status = ?", id, model.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     model.JobStatusRunning,
			"started_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleTransition
	}
	return nil
}

// UpdateProgress advances progress monotonically within [0, 100]; a lower
// value than the stored one is dropped.
func (r *jobRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return r.DB(ctx).Model(&model.Job{}).
		Where("id = ? AND status IN ? AND progress <= ?", id,
			[]model.JobStatus{model.JobStatusPending, model.JobStatusRunning}, progress).
		Update("progress", progress).Error
}

func (r *jobRepository) MarkCompleted(ctx context.Context, id string, result model.JSONMap) error {
	now := time.Now()
	res := r.DB(ctx).Model(&model.Job{}).
		Where("id = ? AND status IN ?", id,
			[]model.JobStatus{model.JobStatusPending, model.JobStatusRunning}).
		Updates(map[string]interface{}{
			"status":       model.JobStatusCompleted,
			"progress":     100,
			"result":       result,
			"completed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleTransition
	}
	return nil
}

func (r *jobRepository) MarkFailed(ctx context.Context, id string, errMsg string) error {
	now := time.Now()
	res := r.DB(ctx).Model(&model.Job{}).
		Where("id = ? AND status IN ?", id,
			[]model.JobStatus{model.JobStatusPending, model.JobStatusRunning}).
		Updates(map[string]interface{}{
			"status":       model.JobStatusFailed,
			"error":        errMsg,
			"completed_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleTransition
	}
	return nil
}
