//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/bennyz/qarax/internal/repository"
	"github.com/bennyz/qarax/internal/server"
	"github.com/bennyz/qarax/pkg/app"
	"github.com/bennyz/qarax/pkg/log"

	"github.com/google/wire"
	"github.com/spf13/viper"
)

var repositorySet = wire.NewSet(
	repository.NewDB,
)
var serverSet = wire.NewSet(
	server.NewMigrateServer,
)

// build App
func newApp(
	migrateServer *server.MigrateServer,
) *app.App {
	return app.NewApp(
		app.WithServer(migrateServer),
		app.WithName("qarax-migrate"),
	)
}

func NewWire(*viper.Viper, *log.Logger) (*app.App, func(), error) {
	panic(wire.Build(
		repositorySet,
		serverSet,
		newApp,
	))
}
