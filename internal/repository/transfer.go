package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bennyz/qarax/internal/model"
)

// ErrStaleTransition reports a guarded status update that matched no row:
// the entity is no longer in the expected state.
var ErrStaleTransition = errors.New("stale state transition")

type TransferRepository interface {
	Create(ctx context.Context, transfer *model.Transfer) error
	GetByID(ctx context.Context, id string) (*model.Transfer, error)
	ListByPool(ctx context.Context, poolID string) ([]*model.Transfer, error)
	MarkRunning(ctx context.Context, id string, totalBytes *int64) error
	UpdateProgress(ctx context.Context, id string, transferredBytes int64) error
	MarkCompleted(ctx context.Context, id string, objectID string, transferredBytes int64) error
	MarkFailed(ctx context.Context, id string, errorMessage string) error
	CountActiveByPool(ctx context.Context, poolID string) (int64, error)
	ListRunningBefore(ctx context.Context, cutoff time.Time) ([]*model.Transfer, error)
}

func NewTransferRepository(r *Repository) TransferRepository {
	return &transferRepository{Repository: r}
}

type transferRepository struct {
	*Repository
}

func (r *transferRepository) Create(ctx context.Context, transfer *model.Transfer) error {
	return r.DB(ctx).Create(transfer).Error
}

func (r *transferRepository) GetByID(ctx context.Context, id string) (*model.Transfer, error) {
	var transfer model.Transfer
	if err := r.DB(ctx).Where("id = ?", id).First(&transfer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transfer, nil
}

func (r *transferRepository) ListByPool(ctx context.Context, poolID string) ([]*model.Transfer, error) {
	var transfers []*model.Transfer
	if err := r.DB(ctx).Where("storage_pool_id = ?", poolID).Order("created_at, id").Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

// MarkRunning moves a pending transfer to running. Guarded so a transfer
// already past pending is never restarted.
func (r *transferRepository) MarkRunning(ctx context.Context, id string, totalBytes *int64) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":     model.TransferStatusRunning,
		"started_at": now,
	}
	if totalBytes != nil {
		updates["total_bytes"] = *totalBytes
	}
	res := r.DB(ctx).Model(&model.Transfer{}).
		Where("id = ? AND status = ?", id, model.TransferStatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleTransition
	}
	return nil
}

func (r *transferRepository) UpdateProgress(ctx context.Context, id string, transferredBytes int64) error {
	// Only move forward while running; a failed/completed transfer keeps
	// its final byte count.
	return r.DB(ctx).Model(&model.Transfer{}).
		Where("id = ? AND status = ? AND transferred_bytes <= ?", id, model.TransferStatusRunning, transferredBytes).
		Update("transferred_bytes", transferredBytes).Error
}

func (r *transferRepository) MarkCompleted(ctx context.Context, id string, objectID string, transferredBytes int64) error {
	now := time.Now()
	res := r.DB(ctx).Model(&model.Transfer{}).
		Where("id = ? AND status = ?", id, model.TransferStatusRunning).
		Updates(map[string]interface{}{
			"status":            model.TransferStatusCompleted,
			"storage_object_id": objectID,
			"transferred_bytes": transferredBytes,
			"completed_at":      now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleTransition
	}
	return nil
}

func (r *transferRepository) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	now := time.Now()
	res := r.DB(ctx).Model(&model.Transfer{}).
		Where("id = ? AND status IN ?", id, []model.TransferStatus{model.TransferStatusPending, model.TransferStatusRunning}).
		Updates(map[string]interface{}{
			"status":        model.TransferStatusFailed,
			"error_message": errorMessage,
			"completed_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleTransition
	}
	return nil
}

func (r *transferRepository) CountActiveByPool(ctx context.Context, poolID string) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&model.Transfer{}).
		Where("storage_pool_id = ? AND status IN ?", poolID,
			[]model.TransferStatus{model.TransferStatusPending, model.TransferStatusRunning}).
		Count(&count).Error
	return count, err
}

// ListRunningBefore returns running transfers that started before cutoff,
// used by housekeeping to surface stuck workers.
func (r *transferRepository) ListRunningBefore(ctx context.Context, cutoff time.Time) ([]*model.Transfer, error) {
	var transfers []*model.Transfer
	err := r.DB(ctx).
		Where("status = ? AND started_at < ?", model.TransferStatusRunning, cutoff).
		Find(&transfers).Error
	if err != nil {
		return nil, err
	}
	return transfers, nil
}
