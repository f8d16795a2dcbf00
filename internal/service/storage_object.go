package service

import (
	"context"

	v1 "github.com/bennyz/qarax/api/v1"
	"github.com/bennyz/qarax/internal/model"
	"github.com/bennyz/qarax/internal/repository"
)

type StorageObjectService interface {
	Create(ctx context.Context, req *v1.NewStorageObject) (string, error)
	Get(ctx context.Context, id string) (*model.StorageObject, error)
	List(ctx context.Context) ([]*model.StorageObject, error)
	Delete(ctx context.Context, id string) error
}

type storageObjectService struct {
	*Service
	objectRepo     repository.StorageObjectRepository
	poolRepo       repository.StoragePoolRepository
	bootSourceRepo repository.BootSourceRepository
}

func NewStorageObjectService(
	service *Service,
	objectRepo repository.StorageObjectRepository,
	poolRepo repository.StoragePoolRepository,
	bootSourceRepo repository.BootSourceRepository,
) StorageObjectService {
	return &storageObjectService{
		Service:        service,
		objectRepo:     objectRepo,
		poolRepo:       poolRepo,
		bootSourceRepo: bootSourceRepo,
	}
}

// Create registers an artifact that already exists inside a pool (most
// objects are produced by completed transfers instead).
func (s *storageObjectService) Create(ctx context.Context, req *v1.NewStorageObject) (string, error) {
	if !model.ValidStorageObjectType(req.ObjectType) {
		return "", v1.Unprocessablef("invalid object type: %s", req.ObjectType)
	}
	pool, err := s.poolRepo.GetByID(ctx, req.StoragePoolID)
	if err != nil {
		return "", err
	}
	if pool == nil {
		return "", v1.ErrStoragePoolNotFound
	}
	if req.ParentID != nil {
		if err := s.checkParentChain(ctx, *req.ParentID); err != nil {
			return "", err
		}
	}

	object := &model.StorageObject{
		Name:          req.Name,
		StoragePoolID: req.StoragePoolID,
		ObjectType:    model.StorageObjectType(req.ObjectType),
		SizeBytes:     req.SizeBytes,
		Config:        model.JSONMap(req.Config),
		ParentID:      req.ParentID,
	}
	if err := s.objectRepo.Create(ctx, object); err != nil {
		return "", err
	}
	return object.Id, nil
}

// checkParentChain verifies the parent exists and that following parent
// links terminates, so snapshot derivation can never form a cycle.
func (s *storageObjectService) checkParentChain(ctx context.Context, parentID string) error {
	seen := map[string]bool{}
	current := parentID
	for current != "" {
		if seen[current] {
			return v1.Unprocessablef("storage object parent chain contains a cycle")
		}
		seen[current] = true
		parent, err := s.objectRepo.GetByID(ctx, current)
		if err != nil {
			return err
		}
		if parent == nil {
			return v1.NotFoundf("parent storage object %s not found", current)
		}
		if parent.ParentID == nil {
			break
		}
		current = *parent.ParentID
	}
	return nil
}

func (s *storageObjectService) Get(ctx context.Context, id string) (*model.StorageObject, error) {
	object, err := s.objectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if object == nil {
		return nil, v1.ErrStorageObjectNotFound
	}
	return object, nil
}

func (s *storageObjectService) List(ctx context.Context) ([]*model.StorageObject, error) {
	return s.objectRepo.List(ctx)
}

func (s *storageObjectService) Delete(ctx context.Context, id string) error {
	object, err := s.objectRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if object == nil {
		return v1.ErrStorageObjectNotFound
	}
	children, err := s.objectRepo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return v1.Conflictf("storage object %s has %d derived objects", id, children)
	}
	refs, err := s.bootSourceRepo.CountByStorageObject(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return v1.Conflictf("storage object %s is referenced by %d boot sources", id, refs)
	}
	return s.objectRepo.Delete(ctx, id)
}
