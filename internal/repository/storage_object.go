package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bennyz/qarax/internal/model"
)

type StorageObjectRepository interface {
	Create(ctx context.Context, object *model.StorageObject) error
	GetByID(ctx context.Context, id string) (*model.StorageObject, error)
	List(ctx context.Context) ([]*model.StorageObject, error)
	ListByPool(ctx context.Context, poolID string) ([]*model.StorageObject, error)
	Delete(ctx context.Context, id string) error
	CountByPool(ctx context.Context, poolID string) (int64, error)
	CountChildren(ctx context.Context, parentID string) (int64, error)
}

func NewStorageObjectRepository(r *Repository) StorageObjectRepository {
	return &storageObjectRepository{Repository: r}
}

type storageObjectRepository struct {
	*Repository
}

func (r *storageObjectRepository) Create(ctx context.Context, object *model.StorageObject) error {
	return r.DB(ctx).Create(object).Error
}

func (r *storageObjectRepository) GetByID(ctx context.Context, id string) (*model.StorageObject, error) {
	var object model.StorageObject
	if err := r.DB(ctx).Where("id = ?", id).First(&object).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &object, nil
}

func (r *storageObjectRepository) List(ctx context.Context) ([]*model.StorageObject, error) {
	var objects []*model.StorageObject
	if err := r.DB(ctx).Order("created_at, id").Find(&objects).Error; err != nil {
		return nil, err
	}
	return objects, nil
}

func (r *storageObjectRepository) ListByPool(ctx context.Context, poolID string) ([]*model.StorageObject, error) {
	var objects []*model.StorageObject
	if err := r.DB(ctx).Where("storage_pool_id = ?", poolID).Order("created_at, id").Find(&objects).Error; err != nil {
		return nil, err
	}
	return objects, nil
}

func (r *storageObjectRepository) Delete(ctx context.Context, id string) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&model.StorageObject{}).Error
}

func (r *storageObjectRepository) CountByPool(ctx context.Context, poolID string) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&model.StorageObject{}).Where("storage_pool_id = ?", poolID).Count(&count).Error
	return count, err
}

func (r *storageObjectRepository) CountChildren(ctx context.Context, parentID string) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&model.StorageObject{}).Where("parent_id = ?", parentID).Count(&count).Error
	return count, err
}
