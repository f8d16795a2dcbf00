package service

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bennyz/qarax/internal/model"
	"github.com/bennyz/qarax/internal/repository"
	"github.com/bennyz/qarax/pkg/deployer"
	"github.com/bennyz/qarax/pkg/log"
	"github.com/bennyz/qarax/pkg/nodeagent"
	"github.com/bennyz/qarax/pkg/sid"
	"github.com/bennyz/qarax/pkg/worker"
)

type mockAgent struct {
	mock.Mock
}

func (m *mockAgent) CreateVM(ctx context.Context, config nodeagent.VMConfig) error {
	return m.Called(ctx, config).Error(0)
}

func (m *mockAgent) StartVM(ctx context.Context, vmID string) error {
	return m.Called(ctx, vmID).Error(0)
}

func (m *mockAgent) PauseVM(ctx context.Context, vmID string) error {
	return m.Called(ctx, vmID).Error(0)
}

func (m *mockAgent) ResumeVM(ctx context.Context, vmID string) error {
	return m.Called(ctx, vmID).Error(0)
}

func (m *mockAgent) ShutdownVM(ctx context.Context, vmID string) error {
	return m.Called(ctx, vmID).Error(0)
}

func (m *mockAgent) DeleteVM(ctx context.Context, vmID string) error {
	return m.Called(ctx, vmID).Error(0)
}

func (m *mockAgent) GetVMInfo(ctx context.Context, vmID string) (*nodeagent.VMInfo, error) {
	args := m.Called(ctx, vmID)
	info, _ := args.Get(0).(*nodeagent.VMInfo)
	return info, args.Error(1)
}

func (m *mockAgent) VMMetrics(ctx context.Context, vmID string) (map[string]interface{}, error) {
	args := m.Called(ctx, vmID)
	metrics, _ := args.Get(0).(map[string]interface{})
	return metrics, args.Error(1)
}

func (m *mockAgent) ConsoleLog(ctx context.Context, vmID string) (string, error) {
	args := m.Called(ctx, vmID)
	return args.String(0), args.Error(1)
}

func (m *mockAgent) DialConsole(ctx context.Context, vmID string) (*websocket.Conn, error) {
	args := m.Called(ctx, vmID)
	conn, _ := args.Get(0).(*websocket.Conn)
	return conn, args.Error(1)
}

func (m *mockAgent) GetNodeInfo(ctx context.Context) (*nodeagent.NodeInfo, error) {
	args := m.Called(ctx)
	info, _ := args.Get(0).(*nodeagent.NodeInfo)
	return info, args.Error(1)
}

func (m *mockAgent) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockDeployer struct {
	mock.Mock
}

func (m *mockDeployer) Deploy(ctx context.Context, target deployer.Target, opts deployer.Options) error {
	return m.Called(ctx, target, opts).Error(0)
}

type testEnv struct {
	repo     *repository.Repository
	agent    *mockAgent
	deployer *mockDeployer
	pool     *worker.Pool

	hostRepo     repository.HostRepository
	vmRepo       repository.VmRepository
	poolRepo     repository.StoragePoolRepository
	objectRepo   repository.StorageObjectRepository
	transferRepo repository.TransferRepository
	bootRepo     repository.BootSourceRepository
	jobRepo      repository.JobRepository

	hosts       HostService
	pools       StoragePoolService
	objects     StorageObjectService
	transfers   TransferService
	bootSources BootSourceService
	vms         VmService
	jobs        JobService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.Migrate(db))

	logger := &log.Logger{Logger: zap.NewNop()}
	repo := repository.NewRepository(db, logger)
	svc := NewService(repository.NewTransaction(repo), logger, sid.NewSid())

	pool, err := worker.NewPool(4, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Shutdown)

	env := &testEnv{
		repo:         repo,
		agent:        &mockAgent{},
		deployer:     &mockDeployer{},
		pool:         pool,
		hostRepo:     repository.NewHostRepository(repo),
		vmRepo:       repository.NewVmRepository(repo),
		poolRepo:     repository.NewStoragePoolRepository(repo),
		objectRepo:   repository.NewStorageObjectRepository(repo),
		transferRepo: repository.NewTransferRepository(repo),
		bootRepo:     repository.NewBootSourceRepository(repo),
		jobRepo:      repository.NewJobRepository(repo),
	}
	factory := func(address string, port int) AgentClient { return env.agent }

	env.hosts = NewHostService(svc, env.hostRepo, env.vmRepo, env.poolRepo, env.jobRepo, factory, env.deployer, pool)
	env.pools = NewStoragePoolService(svc, env.poolRepo, env.objectRepo, env.transferRepo, env.hostRepo)
	env.objects = NewStorageObjectService(svc, env.objectRepo, env.poolRepo, env.bootRepo)
	env.transfers = NewTransferService(svc, env.transferRepo, env.poolRepo, env.objectRepo, pool)
	env.bootSources = NewBootSourceService(svc, env.bootRepo, env.objectRepo, env.vmRepo)
	env.vms = NewVmService(svc, env.vmRepo, env.hostRepo, env.jobRepo, env.hosts, env.bootSources, factory)
	env.jobs = NewJobService(svc, env.jobRepo)
	return env
}

func (e *testEnv) createUpHost(t *testing.T, name string) *model.Host {
	t.Helper()
	host := &model.Host{Name: name, Address: "10.0.0." + name, Port: 50051, Status: model.HostStatusUp}
	require.NoError(t, e.hostRepo.Create(context.Background(), host))
	return host
}
