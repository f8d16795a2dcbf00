package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bennyz/qarax/internal/model"
)

type BootSourceRepository interface {
	Create(ctx context.Context, bootSource *model.BootSource) error
	GetByID(ctx context.Context, id string) (*model.BootSource, error)
	List(ctx context.Context) ([]*model.BootSource, error)
	Delete(ctx context.Context, id string) error
	CountByStorageObject(ctx context.Context, objectID string) (int64, error)
}

func NewBootSourceRepository(r *Repository) BootSourceRepository {
	return &bootSourceRepository{Repository: r}
}

type bootSourceRepository struct {
	*Repository
}

func (r *bootSourceRepository) Create(ctx context.Context, bootSource *model.BootSource) error {
	return r.DB(ctx).Create(bootSource).Error
}

func (r *bootSourceRepository) GetByID(ctx context.Context, id string) (*model.BootSource, error) {
	var bootSource model.BootSource
	if err := r.DB(ctx).Where("id = ?", id).First(&bootSource).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bootSource, nil
}

func (r *bootSourceRepository) List(ctx context.Context) ([]*model.BootSource, error) {
	var bootSources []*model.BootSource
	if err := r.DB(ctx).Order("created_at, id").Find(&bootSources).Error; err != nil {
		return nil, err
	}
	return bootSources, nil
}

func (r *bootSourceRepository) Delete(ctx context.Context, id string) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&model.BootSource{}).Error
}

func (r *bootSourceRepository) CountByStorageObject(ctx context.Context, objectID string) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&model.BootSource{}).
		Where("kernel_image_id = ? OR initrd_image_id = ?", objectID, objectID).
		Count(&count).Error
	return count, err
}
