package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	v1 "github.com/bennyz/qarax/api/v1"
	"github.com/bennyz/qarax/internal/model"
	"github.com/bennyz/qarax/internal/repository"
	"github.com/bennyz/qarax/pkg/nodeagent"
)

type VmService interface {
	Create(ctx context.Context, req *v1.NewVm) (*v1.CreateVmResponse, error)
	Get(ctx context.Context, id string) (*model.Vm, error)
	List(ctx context.Context) ([]*model.Vm, error)
	Start(ctx context.Context, id string) error
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Metrics(ctx context.Context, id string) (map[string]interface{}, error)
	ConsoleLog(ctx context.Context, id string) (string, error)
	DialConsole(ctx context.Context, id string) (*websocket.Conn, error)
	Reconcile(ctx context.Context)
}

type vmService struct {
	*Service
	vmRepo       repository.VmRepository
	hostRepo     repository.HostRepository
	jobRepo      repository.JobRepository
	hostService  HostService
	bootSources  BootSourceService
	agentFactory AgentClientFactory
	vmLocks      *keyedMutex
}

func NewVmService(
	service *Service,
	vmRepo repository.VmRepository,
	hostRepo repository.HostRepository,
	jobRepo repository.JobRepository,
	hostService HostService,
	bootSources BootSourceService,
	agentFactory AgentClientFactory,
) VmService {
	return &vmService{
		Service:      service,
		vmRepo:       vmRepo,
		hostRepo:     hostRepo,
		jobRepo:      jobRepo,
		hostService:  hostService,
		bootSources:  bootSources,
		agentFactory: agentFactory,
		vmLocks:      newKeyedMutex(),
	}
}

// Create allocates the VM record in `created` status and assigns a host.
// The agent is only contacted on start.
func (s *vmService) Create(ctx context.Context, req *v1.NewVm) (*v1.CreateVmResponse, error) {
	if req.Hypervisor != "" && model.Hypervisor(req.Hypervisor) != model.HypervisorCloudHv {
		return nil, v1.Unprocessablef("unsupported hypervisor: %s", req.Hypervisor)
	}
	if req.MaxVcpus < req.BootVcpus {
		return nil, v1.Unprocessablef("max_vcpus must be >= boot_vcpus")
	}
	if req.BootSourceID != nil {
		if _, err := s.bootSources.Get(ctx, *req.BootSourceID); err != nil {
			return nil, err
		}
	}
	nics, err := buildNetworkInterfaces(req.Networks)
	if err != nil {
		return nil, err
	}

	host, err := s.hostService.SelectHostForVm(ctx)
	if err != nil {
		return nil, err
	}

	vm := &model.Vm{
		Name:               req.Name,
		HostID:             &host.Id,
		Status:             model.VmStatusCreated,
		BootSourceID:       req.BootSourceID,
		Description:        req.Description,
		BootVcpus:          req.BootVcpus,
		MaxVcpus:           req.MaxVcpus,
		CPUTopology:        model.JSONMap(req.CPUTopology),
		KvmHyperv:          boolValue(req.KvmHyperv),
		MemorySize:         req.MemorySize,
		MemoryHotplugSize:  req.MemoryHotplugSize,
		MemoryMergeable:    boolValue(req.MemoryMergeable),
		MemoryShared:       boolValue(req.MemoryShared),
		MemoryHugepages:    boolValue(req.MemoryHugepages),
		MemoryHugepageSize: req.MemoryHugepageSize,
		MemoryPrefault:     boolValue(req.MemoryPrefault),
		MemoryThp:          boolValue(req.MemoryThp),
		Config:             model.JSONMap(req.Config),
		NetworkInterfaces:  nics,
	}

	resourceType := "vm"
	job := &model.Job{
		JobType:      model.JobTypeVmCreate,
		ResourceType: &resourceType,
	}

	err = s.tm.Transaction(ctx, func(ctx context.Context) error {
		if err := s.vmRepo.Create(ctx, vm); err != nil {
			return err
		}
		job.ResourceID = &vm.Id
		return s.jobRepo.Create(ctx, job)
	})
	if err != nil {
		return nil, err
	}

	if err := s.jobRepo.MarkCompleted(ctx, job.Id, model.JSONMap{"host_id": host.Id}); err != nil {
		s.logger.Warn("marking vm_create job completed", zap.Error(err))
	}
	return &v1.CreateVmResponse{VmID: vm.Id, JobID: job.Id}, nil
}

func buildNetworkInterfaces(networks []v1.NewVmNetwork) ([]model.NetworkInterface, error) {
	if len(networks) == 0 {
		return nil, nil
	}
	seen := map[string]bool{}
	nics := make([]model.NetworkInterface, 0, len(networks))
	for _, n := range networks {
		if seen[n.ID] {
			return nil, v1.Unprocessablef("duplicate network device id: %s", n.ID)
		}
		seen[n.ID] = true

		ifType := model.NetworkInterfaceTypeTap
		if n.InterfaceType != nil {
			if !model.ValidNetworkInterfaceType(*n.InterfaceType) {
				return nil, v1.Unprocessablef("invalid interface type: %s", *n.InterfaceType)
			}
			ifType = model.NetworkInterfaceType(*n.InterfaceType)
		}

		nic := model.NetworkInterface{
			DeviceID:      n.ID,
			InterfaceType: ifType,
			MacAddress:    n.Mac,
			TapDevice:     n.Tap,
			IPAddress:     n.IP,
			Mask:          n.Mask,
			MTU:           n.MTU,
			NumQueues:     n.NumQueues,
			QueueSize:     n.QueueSize,
			Offload:       boolValue(n.Offload),
			Iommu:         boolValue(n.Iommu),
		}
		if n.RateLimiter != nil {
			rl := model.JSONMap{}
			if n.RateLimiter.Bandwidth != nil {
				rl["bandwidth"] = tokenBucketMap(n.RateLimiter.Bandwidth)
			}
			if n.RateLimiter.Ops != nil {
				rl["ops"] = tokenBucketMap(n.RateLimiter.Ops)
			}
			nic.RateLimiter = rl
		}
		nics = append(nics, nic)
	}
	return nics, nil
}

func tokenBucketMap(b *v1.TokenBucket) map[string]interface{} {
	m := map[string]interface{}{
		"size":        b.Size,
		"refill_time": b.RefillTime,
	}
	if b.OneTimeBurst != nil {
		m["one_time_burst"] = *b.OneTimeBurst
	}
	return m
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

func (s *vmService) Get(ctx context.Context, id string) (*model.Vm, error) {
	vm, err := s.vmRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if vm == nil {
		return nil, v1.ErrVMNotFound
	}
	return vm, nil
}

func (s *vmService) List(ctx context.Context) ([]*model.Vm, error) {
	return s.vmRepo.List(ctx)
}

// Start boots the VM: define it on the agent (idempotent), then start it.
// Valid from created, shutdown, and unknown.
func (s *vmService) Start(ctx context.Context, id string) error {
	s.vmLocks.Lock(id)
	defer s.vmLocks.Unlock(id)

	vm, agent, err := s.vmWithAgent(ctx, id)
	if err != nil {
		return err
	}
	from := []model.VmStatus{model.VmStatusCreated, model.VmStatusShutdown, model.VmStatusUnknown}
	if err := validateTransition(vm.Status, from, "start"); err != nil {
		return err
	}

	config, err := s.buildAgentConfig(ctx, vm)
	if err != nil {
		return err
	}
	if err := agent.CreateVM(ctx, *config); err != nil {
		return agentError("defining vm on host agent", err)
	}
	if err := agent.StartVM(ctx, vm.Id); err != nil {
		return agentError("starting vm", err)
	}
	return s.commit(ctx, vm.Id, from, model.VmStatusRunning)
}

func (s *vmService) Pause(ctx context.Context, id string) error {
	s.vmLocks.Lock(id)
	defer s.vmLocks.Unlock(id)

	vm, agent, err := s.vmWithAgent(ctx, id)
	if err != nil {
		return err
	}
	from := []model.VmStatus{model.VmStatusRunning}
	if err := validateTransition(vm.Status, from, "pause"); err != nil {
		return err
	}
	if err := agent.PauseVM(ctx, vm.Id); err != nil {
		return agentError("pausing vm", err)
	}
	return s.commit(ctx, vm.Id, from, model.VmStatusPaused)
}

func (s *vmService) Resume(ctx context.Context, id string) error {
	s.vmLocks.Lock(id)
	defer s.vmLocks.Unlock(id)

	vm, agent, err := s.vmWithAgent(ctx, id)
	if err != nil {
		return err
	}
	from := []model.VmStatus{model.VmStatusPaused}
	if err := validateTransition(vm.Status, from, "resume"); err != nil {
		return err
	}
	if err := agent.ResumeVM(ctx, vm.Id); err != nil {
		return agentError("resuming vm", err)
	}
	return s.commit(ctx, vm.Id, from, model.VmStatusRunning)
}

func (s *vmService) Stop(ctx context.Context, id string) error {
	s.vmLocks.Lock(id)
	defer s.vmLocks.Unlock(id)

	vm, agent, err := s.vmWithAgent(ctx, id)
	if err != nil {
		return err
	}
	from := []model.VmStatus{model.VmStatusRunning, model.VmStatusPaused}
	if err := validateTransition(vm.Status, from, "stop"); err != nil {
		return err
	}
	if err := agent.ShutdownVM(ctx, vm.Id); err != nil {
		return agentError("stopping vm", err)
	}
	return s.commit(ctx, vm.Id, from, model.VmStatusShutdown)
}

// Delete removes a VM that is not running or paused; callers must stop a
// live VM first. The agent-side definition is removed best-effort.
func (s *vmService) Delete(ctx context.Context, id string) error {
	s.vmLocks.Lock(id)
	defer s.vmLocks.Unlock(id)

	vm, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if vm.Status == model.VmStatusRunning || vm.Status == model.VmStatusPaused {
		return v1.Conflictf("cannot delete vm %s while %s, stop it first", id, vm.Status)
	}

	if vm.HostID != nil {
		host, err := s.hostRepo.GetByID(ctx, *vm.HostID)
		if err == nil && host != nil {
			agent := s.agentFactory(host.Address, host.Port)
			if err := agent.DeleteVM(ctx, vm.Id); err != nil && !errors.Is(err, nodeagent.ErrNotFound) {
				s.logger.WithContext(ctx).Warn("removing vm definition from host agent",
					zap.String("vm_id", vm.Id), zap.Error(err))
			}
		}
	}
	return s.vmRepo.Delete(ctx, id)
}

func (s *vmService) Metrics(ctx context.Context, id string) (map[string]interface{}, error) {
	vm, agent, err := s.vmWithAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics, err := agent.VMMetrics(ctx, vm.Id)
	if err != nil {
		return nil, agentError("fetching vm metrics", err)
	}
	return metrics, nil
}

func (s *vmService) ConsoleLog(ctx context.Context, id string) (string, error) {
	vm, agent, err := s.vmWithAgent(ctx, id)
	if err != nil {
		return "", err
	}
	logTail, err := agent.ConsoleLog(ctx, vm.Id)
	if err != nil {
		return "", agentError("fetching console log", err)
	}
	return logTail, nil
}

func (s *vmService) DialConsole(ctx context.Context, id string) (*websocket.Conn, error) {
	vm, agent, err := s.vmWithAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	conn, err := agent.DialConsole(ctx, vm.Id)
	if err != nil {
		return nil, agentError("attaching console", err)
	}
	return conn, nil
}

func (s *vmService) vmWithAgent(ctx context.Context, id string) (*model.Vm, AgentClient, error) {
	vm, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if vm.HostID == nil {
		return nil, nil, v1.Unprocessablef("vm %s has no assigned host", id)
	}
	host, err := s.hostRepo.GetByID(ctx, *vm.HostID)
	if err != nil {
		return nil, nil, err
	}
	if host == nil {
		return nil, nil, v1.NotFoundf("host %s not found", *vm.HostID)
	}
	return vm, s.agentFactory(host.Address, host.Port), nil
}

func (s *vmService) buildAgentConfig(ctx context.Context, vm *model.Vm) (*nodeagent.VMConfig, error) {
	if vm.BootSourceID == nil {
		return nil, v1.Unprocessablef("vm %s has no boot source", vm.Id)
	}
	resolved, err := s.bootSources.Resolve(ctx, *vm.BootSourceID)
	if err != nil {
		return nil, err
	}

	config := &nodeagent.VMConfig{
		VMID: vm.Id,
		CPUs: nodeagent.CPUsConfig{
			BootVcpus: vm.BootVcpus,
			MaxVcpus:  vm.MaxVcpus,
		},
		Memory: nodeagent.MemoryConfig{
			Size:        vm.MemorySize,
			HotplugSize: vm.MemoryHotplugSize,
			Mergeable:   vm.MemoryMergeable,
			Shared:      vm.MemoryShared,
			Hugepages:   vm.MemoryHugepages,
			Prefault:    vm.MemoryPrefault,
			Thp:         vm.MemoryThp,
		},
		Payload: nodeagent.PayloadConfig{
			Kernel:    resolved.KernelPath,
			Cmdline:   resolved.KernelParams,
			Initramfs: resolved.InitrdPath,
		},
	}
	for _, nic := range vm.NetworkInterfaces {
		config.Networks = append(config.Networks, nodeagent.NetworkConfig{
			ID:  nic.DeviceID,
			Tap: nic.TapDevice,
			Mac: nic.MacAddress,
			IP:  nic.IPAddress,
			MTU: nic.MTU,
		})
	}
	return config, nil
}

// commit persists the transition; losing a race surfaces as
// InvalidStateTransition rather than a silent overwrite.
func (s *vmService) commit(ctx context.Context, id string, from []model.VmStatus, to model.VmStatus) error {
	if err := s.vmRepo.UpdateStatusFrom(ctx, id, from, to); err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			return v1.ErrInvalidStateTransition
		}
		return err
	}
	return nil
}

func validateTransition(current model.VmStatus, from []model.VmStatus, action string) error {
	for _, status := range from {
		if current == status {
			return nil
		}
	}
	return v1.Conflictf("cannot %s vm in status %s", action, current)
}

func agentError(action string, err error) error {
	var apiErr *nodeagent.APIError
	if errors.As(err, &apiErr) {
		return &v1.Error{Code: 502, Message: fmt.Sprintf("%s: %s", action, apiErr.Message)}
	}
	if errors.Is(err, nodeagent.ErrNotFound) {
		return v1.NotFoundf("%s: vm not found on host agent", action)
	}
	return &v1.Error{Code: 502, Message: fmt.Sprintf("%s: %v", action, err)}
}

// Reconcile refreshes persisted VM status from agent-reported state,
// grouped per host so each agent is contacted once. An unreachable agent
// leaves its VMs untouched; a VM the agent no longer knows becomes unknown.
func (s *vmService) Reconcile(ctx context.Context) {
	vms, err := s.vmRepo.ListAssigned(ctx)
	if err != nil {
		s.logger.Error("listing vms for reconciliation", zap.Error(err))
		return
	}

	byHost := map[string][]*model.Vm{}
	for _, vm := range vms {
		if vm.Status == model.VmStatusCreated {
			// Never started; the agent has nothing to report.
			continue
		}
		byHost[*vm.HostID] = append(byHost[*vm.HostID], vm)
	}

	for hostID, hostVMs := range byHost {
		host, err := s.hostRepo.GetByID(ctx, hostID)
		if err != nil || host == nil {
			continue
		}
		agent := s.agentFactory(host.Address, host.Port)
		for _, vm := range hostVMs {
			info, err := agent.GetVMInfo(ctx, vm.Id)
			if errors.Is(err, nodeagent.ErrNotFound) {
				if vm.Status != model.VmStatusUnknown {
					s.logger.Info("vm missing on host agent, marking unknown",
						zap.String("vm_id", vm.Id))
					if updateErr := s.vmRepo.UpdateStatus(ctx, vm.Id, model.VmStatusUnknown); updateErr != nil {
						s.logger.Error("marking vm unknown", zap.Error(updateErr))
					}
				}
				continue
			}
			if err != nil {
				// Unreachable agent: status indeterminate, keep last known.
				break
			}
			reported := agentStatusToVmStatus(info.Status)
			if reported != "" && reported != vm.Status {
				s.logger.Info("reconciling vm status",
					zap.String("vm_id", vm.Id),
					zap.String("from", string(vm.Status)),
					zap.String("to", string(reported)))
				if updateErr := s.vmRepo.UpdateStatus(ctx, vm.Id, reported); updateErr != nil {
					s.logger.Error("reconciling vm status", zap.Error(updateErr))
				}
			}
		}
	}
}

func agentStatusToVmStatus(status string) model.VmStatus {
	switch status {
	case "created":
		return model.VmStatusCreated
	case "running":
		return model.VmStatusRunning
	case "paused":
		return model.VmStatusPaused
	case "shutdown", "shut_off":
		return model.VmStatusShutdown
	default:
		return ""
	}
}
