// Package router 管理路由配置，把 handle 包的处理器绑定到 gin 引擎.
package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yeisme/quickdrop/docs"
	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/internal/handle"
	"github.com/yeisme/quickdrop/pkg/middleware"
)

// APIPrefixes 挂载 API 的路径前缀，/api/quickdrop 为兼容旧客户端保留.
var APIPrefixes = []string{"/api/v1", "/api/quickdrop"}

// Setup 注册所有路由.
//
//	POST   /drops                         -> CreateDrop
//	PUT    /drops/:token/payload          -> UploadDrop
//	PATCH  /drops/:token                  -> ActivateDrop
//	GET    /drops/:token                  -> DropStatus
//	POST   /drops/:token                  -> ConsumeDrop
//	POST   /download                      -> AuthorizeDownload
//	GET    /download/consume/:token       -> ConsumeAutoDelete
//	/admin/...                            -> 管理接口，需要认证
//	GET    /health[/:component]           -> 依赖健康检查（无前缀）
func Setup(r *gin.Engine, h *handle.Handlers, cfg *configs.AppConfig) {
	for _, prefix := range APIPrefixes {
		api := r.Group(prefix)
		api.Use(middleware.CircuitBreakerMiddleware("http"+prefix, cfg.CircuitBreaker))

		RegisterDropRoutes(api, h)
		RegisterDownloadRoutes(api, h)
		RegisterAdminRoutes(api, h, cfg.Auth)
	}

	health := r.Group("/health")
	health.GET("", handle.Health)
	health.GET("/:component", handle.HealthComponent)

	if cfg.Server.Debug {
		docs.SwaggerInfo.Host = cfg.Server.Addr()
		docs.SwaggerInfo.Version = configs.AppVersion
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.NoRoute(handle.NoRoute)
}

// RegisterDropRoutes 注册 QuickDrop 生命周期路由.
func RegisterDropRoutes(g *gin.RouterGroup, h *handle.Handlers) {
	drops := g.Group("/drops", middleware.NoStore())
	{
		drops.POST("", h.CreateDrop)
		drops.PUT("/:token/payload", h.UploadDrop)
		drops.PATCH("/:token", h.ActivateDrop)
		drops.GET("/:token", h.DropStatus)
		drops.POST("/:token", h.ConsumeDrop)
	}
}

// RegisterDownloadRoutes 注册目录文件下载路由.
func RegisterDownloadRoutes(g *gin.RouterGroup, h *handle.Handlers) {
	download := g.Group("/download", middleware.NoStore())
	{
		download.POST("", h.AuthorizeDownload)
		download.GET("/consume/:token", h.ConsumeAutoDelete)
	}
}

// RegisterAdminRoutes 注册管理接口.
func RegisterAdminRoutes(g *gin.RouterGroup, h *handle.Handlers, auth configs.AuthConfig) {
	admin := g.Group("/admin", middleware.AdminOnly(auth), gzip.Gzip(gzip.DefaultCompression))
	{
		admin.GET("/files", h.ListFiles)
		admin.POST("/files", h.AddFile)
		admin.POST("/files/:id/auto-delete-token", h.IssueAutoDeleteToken)
		admin.POST("/reaper/run", h.RunReaper)
		admin.GET("/scheduler/jobs", handle.SchedulerJobs)
		admin.POST("/scheduler/jobs/:id/run", handle.SchedulerRunJob)
		admin.DELETE("/scheduler/jobs/:id", handle.SchedulerRemoveJob)
	}
}
