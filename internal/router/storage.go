package router

import (
	"github.com/gin-gonic/gin"
)

func InitStoragePoolRouter(deps RouterDeps, r *gin.RouterGroup) {
	pools := r.Group("/storage-pools")
	{
		pools.POST("", deps.StoragePoolHandler.Create)
		pools.GET("", deps.StoragePoolHandler.List)
		pools.GET("/:pool_id", deps.StoragePoolHandler.Get)
		pools.DELETE("/:pool_id", deps.StoragePoolHandler.Delete)

		pools.POST("/:pool_id/transfers", deps.StoragePoolHandler.SubmitTransfer)
		pools.GET("/:pool_id/transfers", deps.StoragePoolHandler.ListTransfers)
		pools.GET("/:pool_id/transfers/:id", deps.StoragePoolHandler.GetTransfer)
	}
}

func InitStorageObjectRouter(deps RouterDeps, r *gin.RouterGroup) {
	objects := r.Group("/storage-objects")
	{
		objects.POST("", deps.StorageObjectHandler.Create)
		objects.GET("", deps.StorageObjectHandler.List)
		objects.GET("/:id", deps.StorageObjectHandler.Get)
		objects.DELETE("/:id", deps.StorageObjectHandler.Delete)
	}
}

func InitBootSourceRouter(deps RouterDeps, r *gin.RouterGroup) {
	bootSources := r.Group("/boot-sources")
	{
		bootSources.POST("", deps.BootSourceHandler.Create)
		bootSources.GET("", deps.BootSourceHandler.List)
		bootSources.GET("/:id", deps.BootSourceHandler.Get)
		bootSources.DELETE("/:id", deps.BootSourceHandler.Delete)
	}
}
