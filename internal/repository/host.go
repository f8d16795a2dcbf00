package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bennyz/qarax/internal/model"
)

type HostRepository interface {
	Create(ctx context.Context, host *model.Host) error
	GetByID(ctx context.Context, id string) (*model.Host, error)
	GetByEndpoint(ctx context.Context, address string, port int) (*model.Host, error)
	List(ctx context.Context) ([]*model.Host, error)
	ListByStatus(ctx context.Context, status model.HostStatus) ([]*model.Host, error)
	UpdateStatus(ctx context.Context, id string, status model.HostStatus) error
	UpdateVersions(ctx context.Context, id string, chVersion, kernelVersion string) error
	Delete(ctx context.Context, id string) error
}

func NewHostRepository(r *Repository) HostRepository {
	return &hostRepository{Repository: r}
}

type hostRepository struct {
	*Repository
}

func (r *hostRepository) Create(ctx context.Context, host *model.Host) error {
	return r.DB(ctx).Create(host).Error
}

func (r *hostRepository) GetByID(ctx context.Context, id string) (*model.Host, error) {
	var host model.Host
	if err := r.DB(ctx).Where("id = ?", id).First(&host).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &host, nil
}

func (r *hostRepository) GetByEndpoint(ctx context.Context, address string, port int) (*model.Host, error) {
	var host model.Host
	if err := r.DB(ctx).Where("address = ? AND port = ?", address, port).First(&host).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &host, nil
}

func (r *hostRepository) List(ctx context.Context) ([]*model.Host, error) {
	var hosts []*model.Host
	if err := r.DB(ctx).Order("created_at, id").Find(&hosts).Error; err != nil {
		return nil, err
	}
	return hosts, nil
}

func (r *hostRepository) ListByStatus(ctx context.Context, status model.HostStatus) ([]*model.Host, error) {
	var hosts []*model.Host
	if err := r.DB(ctx).Where("status = ?", status).Order("created_at, id").Find(&hosts).Error; err != nil {
		return nil, err
	}
	return hosts, nil
}

func (r *hostRepository) UpdateStatus(ctx context.Context, id string, status model.HostStatus) error {
	return r.DB(ctx).Model(&model.Host{}).Where("id = ?", id).Update("status", status).Error
}

func (r *hostRepository) UpdateVersions(ctx context.Context, id string, chVersion, kernelVersion string) error {
	return r.DB(ctx).Model(&model.Host{}).Where("id = ?", id).Updates(map[string]interface{}{
		"cloud_hypervisor_version": chVersion,
		"kernel_version":           kernelVersion,
	}).Error
}

func (r *hostRepository) Delete(ctx context.Context, id string) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&model.Host{}).Error
}
