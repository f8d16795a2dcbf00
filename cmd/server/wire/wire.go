//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/bennyz/qarax/internal/handler"
	"github.com/bennyz/qarax/internal/repository"
	"github.com/bennyz/qarax/internal/router"
	"github.com/bennyz/qarax/internal/server"
	"github.com/bennyz/qarax/internal/service"
	"github.com/bennyz/qarax/pkg/app"
	"github.com/bennyz/qarax/pkg/deployer"
	"github.com/bennyz/qarax/pkg/log"
	"github.com/bennyz/qarax/pkg/server/http"
	"github.com/bennyz/qarax/pkg/sid"
	"github.com/bennyz/qarax/pkg/worker"

	"github.com/google/wire"
	"github.com/spf13/viper"
)

var repositorySet = wire.NewSet(
	repository.NewDB,
	repository.NewRepository,
	repository.NewTransaction,
	repository.NewHostRepository,
	repository.NewStoragePoolRepository,
	repository.NewStorageObjectRepository,
	repository.NewTransferRepository,
	repository.NewBootSourceRepository,
	repository.NewVmRepository,
	repository.NewJobRepository,
)

var serviceSet = wire.NewSet(
	service.NewService,
	service.NewAgentClientFactory,
	service.NewHostService,
	service.NewStoragePoolService,
	service.NewStorageObjectService,
	service.NewTransferService,
	service.NewBootSourceService,
	service.NewVmService,
	service.NewJobService,
)

var handlerSet = wire.NewSet(
	handler.NewHandler,
	handler.NewHostHandler,
	handler.NewStoragePoolHandler,
	handler.NewStorageObjectHandler,
	handler.NewBootSourceHandler,
	handler.NewVmHandler,
	handler.NewJobHandler,
)

var serverSet = wire.NewSet(
	server.NewHTTPServer,
	server.NewMonitorServer,
)

func newWorkerPool(conf *viper.Viper, logger *log.Logger) (*worker.Pool, error) {
	size := conf.GetInt("worker.pool_size")
	if size <= 0 {
		size = 32
	}
	return worker.NewPool(size, logger)
}

func newDeployer(logger *log.Logger) deployer.Deployer {
	return deployer.New(logger.Logger)
}

// build App
func newApp(
	httpServer *http.Server,
	monitorServer *server.MonitorServer,
) *app.App {
	return app.NewApp(
		app.WithServer(httpServer, monitorServer),
		app.WithName("qarax-server"),
	)
}

func NewWire(*viper.Viper, *log.Logger) (*app.App, func(), error) {
	panic(wire.Build(
		repositorySet,
		serviceSet,
		handlerSet,
		serverSet,
		wire.Struct(new(router.RouterDeps), "*"),
		sid.NewSid,
		newWorkerPool,
		newDeployer,
		newApp,
	))
}
