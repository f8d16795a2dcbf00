package server

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/viper"

	"github.com/bennyz/qarax/internal/service"
	"github.com/bennyz/qarax/pkg/log"
)

// MonitorServer runs the background reconciliation loops: VM status
// refresh from host agents, stale-transfer housekeeping and host health
// probing.
type MonitorServer struct {
	scheduler *gocron.Scheduler
	logger    *log.Logger

	vmService       service.VmService
	transferService service.TransferService
	hostService     service.HostService

	reconcileInterval   time.Duration
	housekeepInterval   time.Duration
	healthProbeInterval time.Duration
	transferHorizon     time.Duration
	agentTimeout        time.Duration
}

func NewMonitorServer(
	logger *log.Logger,
	conf *viper.Viper,
	vmService service.VmService,
	transferService service.TransferService,
	hostService service.HostService,
) *MonitorServer {
	return &MonitorServer{
		scheduler:           gocron.NewScheduler(time.UTC),
		logger:              logger,
		vmService:           vmService,
		transferService:     transferService,
		hostService:         hostService,
		reconcileInterval:   durationOr(conf, "monitor.vm_reconcile_interval", 30*time.Second),
		housekeepInterval:   durationOr(conf, "monitor.transfer_housekeep_interval", time.Minute),
		healthProbeInterval: durationOr(conf, "monitor.host_probe_interval", time.Minute),
		transferHorizon:     durationOr(conf, "monitor.transfer_horizon", time.Hour),
		agentTimeout:        durationOr(conf, "monitor.agent_timeout", 5*time.Second),
	}
}

func durationOr(conf *viper.Viper, key string, fallback time.Duration) time.Duration {
	if conf.IsSet(key) {
		return conf.GetDuration(key)
	}
	return fallback
}

func (s *MonitorServer) Start(ctx context.Context) error {
	s.logger.Info("starting monitor server")

	if _, err := s.scheduler.Every(s.reconcileInterval).Do(func() {
		s.vmService.Reconcile(context.Background())
	}); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(s.housekeepInterval).Do(func() {
		s.transferService.FailStale(context.Background(), s.transferHorizon)
	}); err != nil {
		return err
	}
	if _, err := s.scheduler.Every(s.healthProbeInterval).Do(func() {
		s.hostService.ProbeHealth(context.Background(), s.agentTimeout)
	}); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *MonitorServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping monitor server")
	s.scheduler.Stop()
	return nil
}
