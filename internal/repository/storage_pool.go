package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bennyz/qarax/internal/model"
)

type StoragePoolRepository interface {
	Create(ctx context.Context, pool *model.StoragePool) error
	GetByID(ctx context.Context, id string) (*model.StoragePool, error)
	GetByName(ctx context.Context, name string) (*model.StoragePool, error)
	List(ctx context.Context) ([]*model.StoragePool, error)
	Delete(ctx context.Context, id string) error
	CountByHost(ctx context.Context, hostID string) (int64, error)
}

func NewStoragePoolRepository(r *Repository) StoragePoolRepository {
	return &storagePoolRepository{Repository: r}
}

type storagePoolRepository struct {
	*Repository
}

func (r *storagePoolRepository) Create(ctx context.Context, pool *model.StoragePool) error {
	return r.DB(ctx).Create(pool).Error
}

func (r *storagePoolRepository) GetByID(ctx context.Context, id string) (*model.StoragePool, error) {
	var pool model.StoragePool
	if err := r.DB(ctx).Where("id = ?", id).First(&pool).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pool, nil
}

func (r *storagePoolRepository) GetByName(ctx context.Context, name string) (*model.StoragePool, error) {
	var pool model.StoragePool
	if err := r.DB(ctx).Where("name = ?", name).First(&pool).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pool, nil
}

func (r *storagePoolRepository) List(ctx context.Context) ([]*model.StoragePool, error) {
	var pools []*model.StoragePool
	if err := r.DB(ctx).Order("created_at, id").Find(&pools).Error; err != nil {
		return nil, err
	}
	return pools, nil
}

func (r *storagePoolRepository) Delete(ctx context.Context, id string) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&model.StoragePool{}).Error
}

func (r *storagePoolRepository) CountByHost(ctx context.Context, hostID string) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&model.StoragePool{}).Where("host_id = ?", hostID).Count(&count).Error
	return count, err
}
