package router

import (
	"github.com/gin-gonic/gin"
)

func InitHostRouter(deps RouterDeps, r *gin.RouterGroup) {
	hosts := r.Group("/hosts")
	{
		hosts.POST("", deps.HostHandler.Register)
		hosts.GET("", deps.HostHandler.List)
		hosts.GET("/:id", deps.HostHandler.Get)
		hosts.PATCH("/:id", deps.HostHandler.Update)
		hosts.DELETE("/:id", deps.HostHandler.Delete)
		hosts.POST("/:id/deploy", deps.HostHandler.Deploy)
		hosts.POST("/:id/init", deps.HostHandler.Init)
	}
}
