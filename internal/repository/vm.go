package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bennyz/qarax/internal/model"
)

type VmRepository interface {
	Create(ctx context.Context, vm *model.Vm) error
	GetByID(ctx context.Context, id string) (*model.Vm, error)
	List(ctx context.Context) ([]*model.Vm, error)
	ListByHost(ctx context.Context, hostID string) ([]*model.Vm, error)
	ListAssigned(ctx context.Context) ([]*model.Vm, error)
	CountByHost(ctx context.Context, hostID string) (int64, error)
	UpdateStatusFrom(ctx context.Context, id string, from []model.VmStatus, to model.VmStatus) error
	UpdateStatus(ctx context.Context, id string, status model.VmStatus) error
	Delete(ctx context.Context, id string) error
}

func NewVmRepository(r *Repository) VmRepository {
	return &vmRepository{Repository: r}
}

type vmRepository struct {
	*Repository
}

// Create persists the VM together with its network interfaces; gorm writes
// the association in the same transaction.
func (r *vmRepository) Create(ctx context.Context, vm *model.Vm) error {
	return r.DB(ctx).Create(vm).Error
}

func (r *vmRepository) GetByID(ctx context.Context, id string) (*model.Vm, error) {
	var vm model.Vm
	if err := r.DB(ctx).Preload("NetworkInterfaces").Where("id = ?", id).First(&vm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vm, nil
}

func (r *vmRepository) List(ctx context.Context) ([]*model.Vm, error) {
	var vms []*model.Vm
	if err := r.DB(ctx).Preload("NetworkInterfaces").Order("created_at, id").Find(&vms).Error; err != nil {
		return nil, err
	}
	return vms, nil
}

func (r *vmRepository) ListByHost(ctx context.Context, hostID string) ([]*model.Vm, error) {
	var vms []*model.Vm
	if err := r.DB(ctx).Where("host_id = ?", hostID).Order("created_at, id").Find(&vms).Error; err != nil {
		return nil, err
	}
	return vms, nil
}

// ListAssigned returns every VM placed on a host, for reconciliation.
func (r *vmRepository) ListAssigned(ctx context.Context) ([]*model.Vm, error) {
	var vms []*model.Vm
	if err := r.DB(ctx).Where("host_id IS NOT NULL").Order("created_at, id").Find(&vms).Error; err != nil {
		return nil, err
	}
	return vms, nil
}

func (r *vmRepository) CountByHost(ctx context.Context, hostID string) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&model.Vm{}).Where("host_id = ?", hostID).Count(&count).Error
	return count, err
}

// UpdateStatusFrom commits a lifecycle transition only if the VM is still
// in one of the expected source states. The zero-rows case means another
// transition won the race.
func (r *vmRepository) UpdateStatusFrom(ctx context.Context, id string, from []model.VmStatus, to model.VmStatus) error {
	res := r.DB(ctx).Model(&model.Vm{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleTransition
	}
	return nil
}

func (r *vmRepository) UpdateStatus(ctx context.Context, id string, status model.VmStatus) error {
	return r.DB(ctx).Model(&model.Vm{}).Where("id = ?", id).Update("status", status).Error
}

// Delete removes the VM and its network interfaces in one transaction.
func (r *vmRepository) Delete(ctx context.Context, id string) error {
	return r.Transaction(ctx, func(ctx context.Context) error {
		if err := r.DB(ctx).Where("vm_id = ?", id).Delete(&model.NetworkInterface{}).Error; err != nil {
			return err
		}
		return r.DB(ctx).Where("id = ?", id).Delete(&model.Vm{}).Error
	})
}
