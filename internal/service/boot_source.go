package service

import (
	"context"

	v1 "github.com/bennyz/qarax/api/v1"
	"github.com/bennyz/qarax/internal/model"
	"github.com/bennyz/qarax/internal/repository"
)

type BootSourceService interface {
	Create(ctx context.Context, req *v1.NewBootSource) (string, error)
	Get(ctx context.Context, id string) (*model.BootSource, error)
	List(ctx context.Context) ([]*model.BootSource, error)
	Delete(ctx context.Context, id string) error
	Resolve(ctx context.Context, id string) (*ResolvedBootSource, error)
}

// ResolvedBootSource carries the concrete artifact paths a VM boots from.
type ResolvedBootSource struct {
	KernelPath   string
	InitrdPath   *string
	KernelParams string
}

type bootSourceService struct {
	*Service
	bootSourceRepo repository.BootSourceRepository
	objectRepo     repository.StorageObjectRepository
	vmRepo         repository.VmRepository
}

func NewBootSourceService(
	service *Service,
	bootSourceRepo repository.BootSourceRepository,
	objectRepo repository.StorageObjectRepository,
	vmRepo repository.VmRepository,
) BootSourceService {
	return &bootSourceService{
		Service:        service,
		bootSourceRepo: bootSourceRepo,
		objectRepo:     objectRepo,
		vmRepo:         vmRepo,
	}
}

func (s *bootSourceService) Create(ctx context.Context, req *v1.NewBootSource) (string, error) {
	kernel, err := s.objectRepo.GetByID(ctx, req.KernelImageID)
	if err != nil {
		return "", err
	}
	if kernel == nil {
		return "", v1.NotFoundf("kernel image %s not found", req.KernelImageID)
	}
	if req.InitrdImageID != nil {
		initrd, err := s.objectRepo.GetByID(ctx, *req.InitrdImageID)
		if err != nil {
			return "", err
		}
		if initrd == nil {
			return "", v1.NotFoundf("initrd image %s not found", *req.InitrdImageID)
		}
	}

	bootSource := &model.BootSource{
		Name:          req.Name,
		Description:   req.Description,
		KernelImageID: req.KernelImageID,
		KernelParams:  req.KernelParams,
		InitrdImageID: req.InitrdImageID,
	}
	if err := s.bootSourceRepo.Create(ctx, bootSource); err != nil {
		return "", err
	}
	return bootSource.Id, nil
}

func (s *bootSourceService) Get(ctx context.Context, id string) (*model.BootSource, error) {
	bootSource, err := s.bootSourceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bootSource == nil {
		return nil, v1.ErrBootSourceNotFound
	}
	return bootSource, nil
}

func (s *bootSourceService) List(ctx context.Context) ([]*model.BootSource, error) {
	return s.bootSourceRepo.List(ctx)
}

func (s *bootSourceService) Delete(ctx context.Context, id string) error {
	bootSource, err := s.bootSourceRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bootSource == nil {
		return v1.ErrBootSourceNotFound
	}
	vms, err := s.vmRepo.List(ctx)
	if err != nil {
		return err
	}
	for _, vm := range vms {
		if vm.BootSourceID != nil && *vm.BootSourceID == id {
			return v1.Conflictf("boot source %s is referenced by vm %s", id, vm.Id)
		}
	}
	return s.bootSourceRepo.Delete(ctx, id)
}

// Resolve maps the boot source's storage objects to the paths the host
// agent boots from.
func (s *bootSourceService) Resolve(ctx context.Context, id string) (*ResolvedBootSource, error) {
	bootSource, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	kernel, err := s.objectRepo.GetByID(ctx, bootSource.KernelImageID)
	if err != nil {
		return nil, err
	}
	if kernel == nil {
		return nil, v1.NotFoundf("kernel image %s not found", bootSource.KernelImageID)
	}
	kernelPath, ok := kernel.Path()
	if !ok {
		return nil, v1.Unprocessablef("kernel image %s has no path in its config", kernel.Id)
	}

	resolved := &ResolvedBootSource{KernelPath: kernelPath}
	if bootSource.KernelParams != nil {
		resolved.KernelParams = *bootSource.KernelParams
	}

	if bootSource.InitrdImageID != nil {
		initrd, err := s.objectRepo.GetByID(ctx, *bootSource.InitrdImageID)
		if err != nil {
			return nil, err
		}
		if initrd == nil {
			return nil, v1.NotFoundf("initrd image %s not found", *bootSource.InitrdImageID)
		}
		initrdPath, ok := initrd.Path()
		if !ok {
			return nil, v1.Unprocessablef("initrd image %s has no path in its config", initrd.Id)
		}
		resolved.InitrdPath = &initrdPath
	}
	return resolved, nil
}
