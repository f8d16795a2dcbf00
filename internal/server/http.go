package server

import (
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/bennyz/qarax/docs"
	"github.com/bennyz/qarax/internal/middleware"
	"github.com/bennyz/qarax/internal/router"
	"github.com/bennyz/qarax/pkg/server/http"
)

func NewHTTPServer(
	deps router.RouterDeps,
) *http.Server {
	if deps.Config.GetString("env") == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	s := http.NewServer(
		gin.Default(),
		deps.Logger,
		http.WithServerHost(deps.Config.GetString("http.host")),
		http.WithServerPort(deps.Config.GetInt("http.port")),
	)

	// swagger doc
	docs.SwaggerInfo.BasePath = "/"
	s.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerfiles.Handler,
		ginSwagger.DefaultModelsExpandDepth(-1),
		ginSwagger.PersistAuthorization(true),
	))

	s.Use(
		middleware.CORSMiddleware(),
		middleware.ResponseLogMiddleware(deps.Logger),
		middleware.RequestLogMiddleware(deps.Logger),
	)

	s.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, map[string]string{"status": "ok"})
	})

	// The wire contract mounts everything at the root.
	root := s.Group("/")
	router.InitHostRouter(deps, root)
	router.InitStoragePoolRouter(deps, root)
	router.InitStorageObjectRouter(deps, root)
	router.InitBootSourceRouter(deps, root)
	router.InitVmRouter(deps, root)
	router.InitJobRouter(deps, root)

	return s
}
