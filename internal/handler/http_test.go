package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bennyz/qarax/internal/handler"
	"github.com/bennyz/qarax/internal/repository"
	"github.com/bennyz/qarax/internal/router"
	"github.com/bennyz/qarax/internal/service"
	"github.com/bennyz/qarax/pkg/deployer"
	"github.com/bennyz/qarax/pkg/log"
	"github.com/bennyz/qarax/pkg/nodeagent"
	"github.com/bennyz/qarax/pkg/sid"
	"github.com/bennyz/qarax/pkg/worker"
)

// fakeAgent is a happy-path agent: every call succeeds and VMs report the
// status the control plane last asked for.
type fakeAgent struct{}

func (fakeAgent) CreateVM(ctx context.Context, config nodeagent.VMConfig) error { return nil }
func (fakeAgent) StartVM(ctx context.Context, vmID string) error { return nil }
func (fakeAgent) PauseVM(ctx context.Context, vmID string) error { return nil }
func (fakeAgent) ResumeVM(ctx context.Context, vmID string) error { return nil }
func (fakeAgent) ShutdownVM(ctx context.Context, vmID string) error { return nil }
func (fakeAgent) DeleteVM(ctx context.Context, vmID string) error { return nil }

func (fakeAgent) GetVMInfo(ctx context.Context, vmID string) (*nodeagent.VMInfo, error) {
	return &nodeagent.VMInfo{ID: vmID, Status: "running"}, nil
}

func (fakeAgent) VMMetrics(ctx context.Context, vmID string) (map[string]interface{}, error) {
	return map[string]interface{}{"cpu_usage": 0.25}, nil
}

func (fakeAgent) ConsoleLog(ctx context.Context, vmID string) (string, error) {
	return "booting...\n", nil
}

func (fakeAgent) DialConsole(ctx context.Context, vmID string) (*websocket.Conn, error) {
	return nil, nodeagent.ErrUnavailable
}

func (fakeAgent) GetNodeInfo(ctx context.Context) (*nodeagent.NodeInfo, error) {
	return &nodeagent.NodeInfo{CloudHypervisorVersion: "v39.0", KernelVersion: "6.8.0"}, nil
}

func (fakeAgent) Ping(ctx context.Context) error { return nil }

type fakeDeployer struct{}

func (fakeDeployer) Deploy(ctx context.Context, target deployer.Target, opts deployer.Options) error {
	return nil
}

func newTestServer(t *testing.T) *httpexpect.Expect {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
	svc := service.NewService(repository.NewTransaction(repo), logger, sid.NewSid())

	pool, err := worker.NewPool(4, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Shutdown)

	hostRepo := repository.NewHostRepository(repo)
	vmRepo := repository.NewVmRepository(repo)
	poolRepo := repository.NewStoragePoolRepository(repo)
	objectRepo := repository.NewStorageObjectRepository(repo)
	transferRepo := repository.NewTransferRepository(repo)
	bootRepo := repository.NewBootSourceRepository(repo)
	jobRepo := repository.NewJobRepository(repo)

	factory := func(address string, port int) service.AgentClient { return fakeAgent{} }

	hosts := service.NewHostService(svc, hostRepo, vmRepo, poolRepo, jobRepo, factory, fakeDeployer{}, pool)
	pools := service.NewStoragePoolService(svc, poolRepo, objectRepo, transferRepo, hostRepo)
	objects := service.NewStorageObjectService(svc, objectRepo, poolRepo, bootRepo)
	transfers := service.NewTransferService(svc, transferRepo, poolRepo, objectRepo, pool)
	bootSources := service.NewBootSourceService(svc, bootRepo, objectRepo, vmRepo)
	vms := service.NewVmService(svc, vmRepo, hostRepo, jobRepo, hosts, bootSources, factory)
	jobs := service.NewJobService(svc, jobRepo)

	base := handler.NewHandler(logger)
	deps := router.RouterDeps{
		Logger:               logger,
		HostHandler:          handler.NewHostHandler(base, hosts),
		StoragePoolHandler:   handler.NewStoragePoolHandler(base, pools, transfers),
		StorageObjectHandler: handler.NewStorageObjectHandler(base, objects),
		BootSourceHandler:    handler.NewBootSourceHandler(base, bootSources),
		VmHandler:            handler.NewVmHandler(base, vms),
		JobHandler:           handler.NewJobHandler(base, jobs),
	}

	engine := gin.New()
	root := engine.Group("/")
	router.InitHostRouter(deps, root)
	router.InitStoragePoolRouter(deps, root)
	router.InitStorageObjectRouter(deps, root)
	router.InitBootSourceRouter(deps, root)
	router.InitVmRouter(deps, root)
	router.InitJobRouter(deps, root)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return httpexpect.Default(t, srv.URL)
}

func registerHost(e *httpexpect.Expect, name string) string {
	return e.POST("/hosts").
		WithJSON(map[string]interface{}{
			"name": name, "address": "10.0.0.10", "port": 50051, "host_user": "root",
		}).
		Expect().Status(http.StatusCreated).
		JSON().String().NotEmpty().Raw()
}

func markHostUp(e *httpexpect.Expect, id string) {
	e.PATCH("/hosts/" + id).
		WithJSON(map[string]interface{}{"status": "up"}).
		Expect().Status(http.StatusNoContent)
}

func TestHostEndpoints(t *testing.T) {
	e := newTestServer(t)

	id := registerHost(e, "node-1")

	// idempotent: same endpoint returns the same id
	again := registerHost(e, "node-1")
	require.Equal(t, id, again)

	e.POST("/hosts").
		WithJSON(map[string]interface{}{"name": "broken"}).
		Expect().Status(http.StatusUnprocessableEntity).
		JSON().Object().Value("message").String().NotEmpty()

	e.GET("/hosts").Expect().Status(http.StatusOK).
		JSON().Array().Length().IsEqual(1)

	e.GET("/hosts/" + id).Expect().Status(http.StatusOK).
		JSON().Object().HasValue("name", "node-1")

	e.GET("/hosts/no-such-id").Expect().Status(http.StatusNotFound).
		JSON().Object().HasValue("message", "host not found")

	e.PATCH("/hosts/" + id).
		WithJSON(map[string]interface{}{"status": "sideways"}).
		Expect().Status(http.StatusUnprocessableEntity)

	markHostUp(e, id)
	e.GET("/hosts/" + id).Expect().Status(http.StatusOK).
		JSON().Object().HasValue("status", "up")

	e.DELETE("/hosts/" + id).Expect().Status(http.StatusNoContent)
	e.GET("/hosts/" + id).Expect().Status(http.StatusNotFound)
}

func TestHostDeployEndpoint(t *testing.T) {
	e := newTestServer(t)
	id := registerHost(e, "node-1")

	jobID := e.POST("/hosts/"+id+"/deploy").
		WithJSON(map[string]interface{}{"image": "quay.io/qarax/node:latest"}).
		Expect().Status(http.StatusAccepted).
		JSON().String().NotEmpty().Raw()

	require.Eventually(t, func() bool {
		status := e.GET("/jobs/" + jobID).Expect().Status(http.StatusOK).
			JSON().Object().Value("status").String().Raw()
		return status == "completed"
	}, 5*time.Second, 20*time.Millisecond)

	e.GET("/hosts/" + id).Expect().Status(http.StatusOK).
		JSON().Object().HasValue("status", "up")
}

func TestStoragePoolAndTransferEndpoints(t *testing.T) {
	e := newTestServer(t)

	srcDir, destDir := t.TempDir(), t.TempDir()
	content := []byte("kernel bits")
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "vmlinux"), content, 0o644))

	poolID := e.POST("/storage-pools").
		WithJSON(map[string]interface{}{
			"name": "local-pool", "pool_type": "local",
			"config": map[string]interface{}{"path": destDir},
		}).
		Expect().Status(http.StatusCreated).
		JSON().String().NotEmpty().Raw()

	// duplicate name
	e.POST("/storage-pools").
		WithJSON(map[string]interface{}{
			"name": "local-pool", "pool_type": "local",
			"config": map[string]interface{}{"path": destDir},
		}).
		Expect().Status(http.StatusConflict)

	transfer := e.POST("/storage-pools/"+poolID+"/transfers").
		WithJSON(map[string]interface{}{
			"name": "vmlinux", "source": filepath.Join(srcDir, "vmlinux"), "object_type": "kernel",
		}).
		Expect().Status(http.StatusAccepted).
		JSON().Object()
	transfer.HasValue("transfer_type", "local_copy")
	transferID := transfer.Value("id").String().NotEmpty().Raw()

	require.Eventually(t, func() bool {
		status := e.GET("/storage-pools/" + poolID + "/transfers/" + transferID).
			Expect().Status(http.StatusOK).
			JSON().Object().Value("status").String().Raw()
		return status == "completed"
	}, 5*time.Second, 20*time.Millisecond)

	e.GET("/storage-pools/"+poolID+"/transfers").Expect().Status(http.StatusOK).
		JSON().Array().Length().IsEqual(1)

	e.GET("/storage-pools/" + poolID + "/transfers/no-such-transfer").
		Expect().Status(http.StatusNotFound)

	// the completed transfer produced an object, so the pool is not empty
	e.DELETE("/storage-pools/" + poolID).Expect().Status(http.StatusConflict)

	e.GET("/storage-objects").Expect().Status(http.StatusOK).
		JSON().Array().Length().IsEqual(1)
}

func TestVmEndpoints(t *testing.T) {
	e := newTestServer(t)

	// placement fails with no UP host
	e.POST("/vms").
		WithJSON(map[string]interface{}{
			"name": "homeless", "boot_vcpus": 1, "max_vcpus": 1, "memory_size": 1 << 28,
		}).
		Expect().Status(http.StatusUnprocessableEntity)

	hostID := registerHost(e, "node-1")
	markHostUp(e, hostID)

	poolID := e.POST("/storage-pools").
		WithJSON(map[string]interface{}{
			"name": "images", "pool_type": "local",
			"config": map[string]interface{}{"path": t.TempDir()},
		}).
		Expect().Status(http.StatusCreated).JSON().String().Raw()

	kernelID := e.POST("/storage-objects").
		WithJSON(map[string]interface{}{
			"name": "vmlinux", "storage_pool_id": poolID, "object_type": "kernel",
			"config": map[string]interface{}{"path": "/srv/images/vmlinux"},
		}).
		Expect().Status(http.StatusCreated).JSON().String().Raw()

	bootID := e.POST("/boot-sources").
		WithJSON(map[string]interface{}{
			"name": "linux-6.8", "kernel_image_id": kernelID, "kernel_params": "console=ttyS0",
		}).
		Expect().Status(http.StatusCreated).JSON().String().Raw()

	created := e.POST("/vms").
		WithJSON(map[string]interface{}{
			"name": "web-1", "boot_vcpus": 1, "max_vcpus": 2, "memory_size": 1 << 28,
			"boot_source_id": bootID,
			"networks":       []map[string]interface{}{{"id": "net0"}},
		}).
		Expect().Status(http.StatusCreated).JSON().Object()
	vmID := created.Value("vm_id").String().NotEmpty().Raw()
	jobID := created.Value("job_id").String().NotEmpty().Raw()

	e.GET("/jobs/" + jobID).Expect().Status(http.StatusOK).
		JSON().Object().HasValue("status", "completed")

	e.GET("/vms/" + vmID).Expect().Status(http.StatusOK).
		JSON().Object().HasValue("status", "created")

	e.POST("/vms/" + vmID + "/start").Expect().Status(http.StatusNoContent)
	e.GET("/vms/" + vmID).Expect().Status(http.StatusOK).
		JSON().Object().HasValue("status", "running")

	// running VMs cannot be deleted
	e.DELETE("/vms/" + vmID).Expect().Status(http.StatusConflict)

	// resume only applies to paused VMs
	e.POST("/vms/" + vmID + "/resume").Expect().Status(http.StatusConflict)

	e.GET("/vms/" + vmID + "/metrics").Expect().Status(http.StatusOK).
		JSON().Object().ContainsKey("cpu_usage")

	e.GET("/vms/" + vmID + "/console-log").Expect().Status(http.StatusOK)

	e.POST("/vms/" + vmID + "/pause").Expect().Status(http.StatusNoContent)
	e.POST("/vms/" + vmID + "/resume").Expect().Status(http.StatusNoContent)
	e.POST("/vms/" + vmID + "/stop").Expect().Status(http.StatusNoContent)

	e.DELETE("/vms/" + vmID).Expect().Status(http.StatusNoContent)
	e.GET("/vms/" + vmID).Expect().Status(http.StatusNotFound)
}

func TestBootSourceEndpoints(t *testing.T) {
	e := newTestServer(t)

	e.POST("/boot-sources").
		WithJSON(map[string]interface{}{
			"name": "broken", "kernel_image_id": "no-such-object",
		}).
		Expect().Status(http.StatusNotFound)

	e.GET("/boot-sources").Expect().Status(http.StatusOK).
		JSON().Array().Length().IsEqual(0)
}
