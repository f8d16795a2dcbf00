package router

import (
	"github.com/gin-gonic/gin"
)

func InitVmRouter(deps RouterDeps, r *gin.RouterGroup) {
	vms := r.Group("/vms")
	{
		vms.POST("", deps.VmHandler.Create)
		vms.GET("", deps.VmHandler.List)
		vms.GET("/:id", deps.VmHandler.Get)
		vms.DELETE("/:id", deps.VmHandler.Delete)
		vms.POST("/:id/start", deps.VmHandler.Start)
		vms.POST("/:id/pause", deps.VmHandler.Pause)
		vms.POST("/:id/resume", deps.VmHandler.Resume)
		vms.POST("/:id/stop", deps.VmHandler.Stop)
		vms.GET("/:id/metrics", deps.VmHandler.Metrics)
		vms.GET("/:id/console-log", deps.VmHandler.ConsoleLog)
		vms.GET("/:id/console/ws", deps.VmHandler.ConsoleWS)
	}
}

func InitJobRouter(deps RouterDeps, r *gin.RouterGroup) {
	jobs := r.Group("/jobs")
	{
		jobs.GET("/:id", deps.JobHandler.Get)
	}
}
