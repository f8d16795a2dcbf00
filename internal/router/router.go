package router

import (
	"github.com/spf13/viper"

	"github.com/bennyz/qarax/internal/handler"
	"github.com/bennyz/qarax/pkg/log"
)

type RouterDeps struct {
	Logger               *log.Logger
	Config               *viper.Viper
	HostHandler          *handler.HostHandler
	StoragePoolHandler   *handler.StoragePoolHandler
	StorageObjectHandler *handler.StorageObjectHandler
	BootSourceHandler    *handler.BootSourceHandler
	VmHandler            *handler.VmHandler
	JobHandler           *handler.JobHandler
}
