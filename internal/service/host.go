package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	v1 "github.com/bennyz/qarax/api/v1"
	"github.com/bennyz/qarax/internal/model"
	"github.com/bennyz/qarax/internal/repository"
	"github.com/bennyz/qarax/pkg/deployer"
	"github.com/bennyz/qarax/pkg/worker"
)

type HostService interface {
	Register(ctx context.Context, req *v1.NewHost) (string, error)
	Get(ctx context.Context, id string) (*model.Host, error)
	List(ctx context.Context) ([]*model.Host, error)
	SetStatus(ctx context.Context, id string, status string) error
	Deploy(ctx context.Context, id string, req *v1.DeployHostRequest) (string, error)
	Init(ctx context.Context, id string) (*model.Host, error)
	SelectHostForVm(ctx context.Context) (*model.Host, error)
	Delete(ctx context.Context, id string) error
	ProbeHealth(ctx context.Context, timeout time.Duration)
}

type hostService struct {
	*Service
	hostRepo     repository.HostRepository
	vmRepo       repository.VmRepository
	poolRepo     repository.StoragePoolRepository
	jobRepo      repository.JobRepository
	agentFactory AgentClientFactory
	deployer     deployer.Deployer
	pool         *worker.Pool
}

func NewHostService(
	service *Service,
	hostRepo repository.HostRepository,
	vmRepo repository.VmRepository,
	poolRepo repository.StoragePoolRepository,
	jobRepo repository.JobRepository,
	agentFactory AgentClientFactory,
	dep deployer.Deployer,
	pool *worker.Pool,
) HostService {
	return &hostService{
		Service:      service,
		hostRepo:     hostRepo,
		vmRepo:       vmRepo,
		poolRepo:     poolRepo,
		jobRepo:      jobRepo,
		agentFactory: agentFactory,
		deployer:     dep,
		pool:         pool,
	}
}

// Register creates a host record. Re-registering an identical
// (address, port) endpoint is idempotent and returns the existing id.
func (s *hostService) Register(ctx context.Context, req *v1.NewHost) (string, error) {
	existing, err := s.hostRepo.GetByEndpoint(ctx, req.Address, req.Port)
	if err != nil {
		return "", err
	}
	if existing != nil {
		s.logger.WithContext(ctx).Info("host already registered",
			zap.String("host_id", existing.Id),
			zap.String("address", req.Address),
			zap.Int("port", req.Port))
		return existing.Id, nil
	}

	host := &model.Host{
		Name:     req.Name,
		Address:  req.Address,
		Port:     req.Port,
		HostUser: req.HostUser,
		Password: req.Password,
		Status:   model.HostStatusUnknown,
	}
	if err := s.hostRepo.Create(ctx, host); err != nil {
		// Two concurrent registrations can both miss the lookup; the
		// unique index decides, and the loser re-reads the winner's row.
		winner, lookupErr := s.hostRepo.GetByEndpoint(ctx, req.Address, req.Port)
		if lookupErr == nil && winner != nil {
			return winner.Id, nil
		}
		return "", err
	}
	return host.Id, nil
}

func (s *hostService) Get(ctx context.Context, id string) (*model.Host, error) {
	host, err := s.hostRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if host == nil {
		return nil, v1.ErrHostNotFound
	}
	return host, nil
}

func (s *hostService) List(ctx context.Context) ([]*model.Host, error) {
	return s.hostRepo.List(ctx)
}

func (s *hostService) SetStatus(ctx context.Context, id string, status string) error {
	if !model.ValidHostStatus(status) {
		return v1.Unprocessablef("invalid host status: %s", status)
	}
	host, err := s.hostRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if host == nil {
		return v1.ErrHostNotFound
	}
	return s.hostRepo.UpdateStatus(ctx, id, model.HostStatus(status))
}

// Deploy provisions the node-agent image onto the host over SSH. Returns
// the id of the job tracking the deployment; the work itself runs on the
// worker pool.
func (s *hostService) Deploy(ctx context.Context, id string, req *v1.DeployHostRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	host, err := s.hostRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if host == nil {
		return "", v1.ErrHostNotFound
	}
	if host.Status == model.HostStatusInstalling {
		return "", v1.Conflictf("host %s is already being installed", id)
	}

	resourceType := "host"
	job := &model.Job{
		JobType:      model.JobTypeHostDeploy,
		ResourceID:   &host.Id,
		ResourceType: &resourceType,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return "", err
	}
	if err := s.hostRepo.UpdateStatus(ctx, host.Id, model.HostStatusInstalling); err != nil {
		return "", err
	}

	hostCopy := *host
	reqCopy := *req
	if err := s.pool.SubmitDetached(func(ctx context.Context) {
		s.runDeploy(ctx, &hostCopy, &reqCopy, job.Id)
	}); err != nil {
		s.markDeployFailed(ctx, host.Id, job.Id, fmt.Sprintf("scheduling deployment: %v", err))
		return "", v1.ErrInternalServerError
	}
	return job.Id, nil
}

func (s *hostService) runDeploy(ctx context.Context, host *model.Host, req *v1.DeployHostRequest, jobID string) {
	logger := s.logger.With(
		zap.String("host_id", host.Id),
		zap.String("job_id", jobID),
		zap.String("image", req.Image))
	logger.Info("starting host deployment")

	if err := s.jobRepo.MarkRunning(ctx, jobID); err != nil {
		logger.Warn("marking deploy job running", zap.Error(err))
	}

	user := host.HostUser
	if req.SSHUser != nil {
		user = *req.SSHUser
	}
	password := host.Password
	if req.SSHPassword != nil {
		password = *req.SSHPassword
	}
	keyPath := ""
	if req.SSHPrivateKeyPath != nil {
		password = ""
		keyPath = *req.SSHPrivateKeyPath
	}

	err := s.deployer.Deploy(ctx,
		deployer.Target{Address: host.Address, AgentPort: host.Port},
		deployer.Options{
			Image:         req.Image,
			SSHPort:       req.Port(),
			SSHUser:       user,
			SSHPassword:   password,
			SSHPrivateKey: keyPath,
			InstallBootc:  req.ShouldInstallBootc(),
			Reboot:        req.ShouldReboot(),
		})
	if err != nil {
		logger.Error("host deployment failed", zap.Error(err))
		s.markDeployFailed(ctx, host.Id, jobID, err.Error())
		return
	}

	if err := s.probeVersions(ctx, host); err != nil {
		logger.Warn("could not read agent versions after deploy", zap.Error(err))
	}
	if err := s.hostRepo.UpdateStatus(ctx, host.Id, model.HostStatusUp); err != nil {
		logger.Error("marking host up", zap.Error(err))
	}
	if err := s.jobRepo.MarkCompleted(ctx, jobID, model.JSONMap{"host_id": host.Id}); err != nil {
		logger.Warn("marking deploy job completed", zap.Error(err))
	}
	logger.Info("host deployment completed")
}

func (s *hostService) markDeployFailed(ctx context.Context, hostID, jobID, reason string) {
	if err := s.hostRepo.UpdateStatus(ctx, hostID, model.HostStatusInstallationFailed); err != nil {
		s.logger.Error("marking host installation_failed", zap.Error(err))
	}
	if err := s.jobRepo.MarkFailed(ctx, jobID, reason); err != nil {
		s.logger.Error("marking deploy job failed", zap.Error(err))
	}
}

// Init contacts the agent synchronously, records its versions and marks the
// host up.
func (s *hostService) Init(ctx context.Context, id string) (*model.Host, error) {
	host, err := s.hostRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if host == nil {
		return nil, v1.ErrHostNotFound
	}

	if err := s.hostRepo.UpdateStatus(ctx, host.Id, model.HostStatusInitializing); err != nil {
		return nil, err
	}
	if err := s.probeVersions(ctx, host); err != nil {
		s.logger.WithContext(ctx).Error("host initialization failed",
			zap.String("host_id", host.Id), zap.Error(err))
		if updateErr := s.hostRepo.UpdateStatus(ctx, host.Id, model.HostStatusUnknown); updateErr != nil {
			s.logger.Error("resetting host status", zap.Error(updateErr))
		}
		return nil, v1.ErrHostAgentUnavailable
	}
	if err := s.hostRepo.UpdateStatus(ctx, host.Id, model.HostStatusUp); err != nil {
		return nil, err
	}
	return s.hostRepo.GetByID(ctx, host.Id)
}

func (s *hostService) probeVersions(ctx context.Context, host *model.Host) error {
	agent := s.agentFactory(host.Address, host.Port)
	info, err := agent.GetNodeInfo(ctx)
	if err != nil {
		return err
	}
	return s.hostRepo.UpdateVersions(ctx, host.Id, info.CloudHypervisorVersion, info.KernelVersion)
}

// SelectHostForVm picks a placement target among UP hosts: fewest VMs wins,
// ties broken by earliest created_at, then smallest id.
func (s *hostService) SelectHostForVm(ctx context.Context) (*model.Host, error) {
	hosts, err := s.hostRepo.ListByStatus(ctx, model.HostStatusUp)
	if err != nil {
		return nil, err
	}
	if len(hosts) == 0 {
		return nil, v1.ErrNoEligibleHost
	}

	type candidate struct {
		host  *model.Host
		count int64
	}
	candidates := make([]candidate, 0, len(hosts))
	for _, h := range hosts {
		count, err := s.vmRepo.CountByHost(ctx, h.Id)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate{host: h, count: count})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count < candidates[j].count
		}
		if !candidates[i].host.CreatedAt.Equal(candidates[j].host.CreatedAt) {
			return candidates[i].host.CreatedAt.Before(candidates[j].host.CreatedAt)
		}
		return candidates[i].host.Id < candidates[j].host.Id
	})
	return candidates[0].host, nil
}

// Delete removes a host with no VMs or storage pools referencing it.
func (s *hostService) Delete(ctx context.Context, id string) error {
	host, err := s.hostRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if host == nil {
		return v1.ErrHostNotFound
	}
	vmCount, err := s.vmRepo.CountByHost(ctx, id)
	if err != nil {
		return err
	}
	if vmCount > 0 {
		return v1.Conflictf("host %s has %d VMs", id, vmCount)
	}
	poolCount, err := s.poolRepo.CountByHost(ctx, id)
	if err != nil {
		return err
	}
	if poolCount > 0 {
		return v1.Conflictf("host %s has %d storage pools", id, poolCount)
	}
	return s.hostRepo.Delete(ctx, id)
}

// ProbeHealth pings every non-installing host's agent and flips status
// between up and down accordingly. Called by the background monitor.
func (s *hostService) ProbeHealth(ctx context.Context, timeout time.Duration) {
	hosts, err := s.hostRepo.List(ctx)
	if err != nil {
		s.logger.Error("listing hosts for health probe", zap.Error(err))
		return
	}
	for _, host := range hosts {
		switch host.Status {
		case model.HostStatusUp, model.HostStatusDown:
		default:
			continue
		}
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		err := s.agentFactory(host.Address, host.Port).Ping(probeCtx)
		cancel()
		if err != nil && host.Status == model.HostStatusUp {
			s.logger.Warn("host agent unreachable, marking down",
				zap.String("host_id", host.Id), zap.Error(err))
			if updateErr := s.hostRepo.UpdateStatus(ctx, host.Id, model.HostStatusDown); updateErr != nil {
				s.logger.Error("marking host down", zap.Error(updateErr))
			}
		} else if err == nil && host.Status == model.HostStatusDown {
			s.logger.Info("host agent recovered, marking up", zap.String("host_id", host.Id))
			if updateErr := s.hostRepo.UpdateStatus(ctx, host.Id, model.HostStatusUp); updateErr != nil {
				s.logger.Error("marking host up", zap.Error(updateErr))
			}
		}
	}
}
