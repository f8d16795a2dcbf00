package service

import (
	"context"
	"strings"

	v1 "github.com/bennyz/qarax/api/v1"
	"github.com/bennyz/qarax/internal/model"
	"github.com/bennyz/qarax/internal/repository"
)

type StoragePoolService interface {
	Create(ctx context.Context, req *v1.NewStoragePool) (string, error)
	Get(ctx context.Context, id string) (*model.StoragePool, error)
	List(ctx context.Context) ([]*model.StoragePool, error)
	Delete(ctx context.Context, id string) error
}

type storagePoolService struct {
	*Service
	poolRepo     repository.StoragePoolRepository
	objectRepo   repository.StorageObjectRepository
	transferRepo repository.TransferRepository
	hostRepo     repository.HostRepository
}

func NewStoragePoolService(
	service *Service,
	poolRepo repository.StoragePoolRepository,
	objectRepo repository.StorageObjectRepository,
	transferRepo repository.TransferRepository,
	hostRepo repository.HostRepository,
) StoragePoolService {
	return &storagePoolService{
		Service:      service,
		poolRepo:     poolRepo,
		objectRepo:   objectRepo,
		transferRepo: transferRepo,
		hostRepo:     hostRepo,
	}
}

func (s *storagePoolService) Create(ctx context.Context, req *v1.NewStoragePool) (string, error) {
	if !model.ValidStoragePoolType(req.PoolType) {
		return "", v1.Unprocessablef("invalid pool type: %s", req.PoolType)
	}
	if model.StoragePoolType(req.PoolType) == model.StoragePoolTypeLocal {
		path, _ := model.JSONMap(req.Config).StringValue("path")
		if !strings.HasPrefix(path, "/") {
			return "", v1.Unprocessablef("local pool config requires an absolute path")
		}
	}
	if req.HostID != nil {
		host, err := s.hostRepo.GetByID(ctx, *req.HostID)
		if err != nil {
			return "", err
		}
		if host == nil {
			return "", v1.ErrHostNotFound
		}
	}
	existing, err := s.poolRepo.GetByName(ctx, req.Name)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", v1.Conflictf("storage pool %q already exists", req.Name)
	}

	pool := &model.StoragePool{
		Name:          req.Name,
		PoolType:      model.StoragePoolType(req.PoolType),
		HostID:        req.HostID,
		Config:        model.JSONMap(req.Config),
		CapacityBytes: req.CapacityBytes,
	}
	if err := s.poolRepo.Create(ctx, pool); err != nil {
		return "", err
	}
	return pool.Id, nil
}

func (s *storagePoolService) Get(ctx context.Context, id string) (*model.StoragePool, error) {
	pool, err := s.poolRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, v1.ErrStoragePoolNotFound
	}
	return pool, nil
}

func (s *storagePoolService) List(ctx context.Context) ([]*model.StoragePool, error) {
	return s.poolRepo.List(ctx)
}

// Delete refuses pools that still own objects or have transfers in flight.
func (s *storagePoolService) Delete(ctx context.Context, id string) error {
	pool, err := s.poolRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if pool == nil {
		return v1.ErrStoragePoolNotFound
	}
	objects, err := s.objectRepo.CountByPool(ctx, id)
	if err != nil {
		return err
	}
	if objects > 0 {
		return v1.Conflictf("storage pool %s has %d storage objects", id, objects)
	}
	active, err := s.transferRepo.CountActiveByPool(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return v1.Conflictf("storage pool %s has %d active transfers", id, active)
	}
	return s.poolRepo.Delete(ctx, id)
}
