// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"farmastok/internal/core/appctx"
	"farmastok/internal/domain/auth"
	"farmastok/internal/domain/batch"
	"farmastok/internal/domain/opname"
	"farmastok/internal/domain/sales"
	"farmastok/internal/infrastructure/http/v1/handlers"
	"farmastok/internal/infrastructure/http/v1/middleware"
	"farmastok/internal/infrastructure/storage/postgres"
	"farmastok/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool         *postgres.Pool
	Logger       *logger.Logger
	JWTValidator middleware.JWTValidator

	AuthService   *auth.Service
	BatchService  *batch.Service
	SalesService  *sales.Service
	OpnameService *opname.Service
	AuditService  *postgres.AuditService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	batchHandler := handlers.NewBatchHandler(cfg.BatchService, cfg.AuditService)
	salesHandler := handlers.NewSalesHandler(cfg.SalesService, cfg.AuditService)
	opnameHandler := handlers.NewOpnameHandler(cfg.OpnameService, cfg.AuditService)
	auditHandler := handlers.NewAuditHandler(cfg.AuditService)

	adminOnly := middleware.RequireRole(appctx.RoleAdmin)

	apiV1 := router.Group("/api/v1")
	{
		// Public auth endpoints
		apiV1.POST("/auth/login", authHandler.Login)
		apiV1.POST("/auth/refresh", authHandler.Refresh)

		protected := apiV1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))
		{
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/auth/me", authHandler.Me)
			protected.POST("/auth/register", adminOnly, authHandler.Register)

			batches := protected.Group("/batches")
			{
				batches.GET("", batchHandler.Search)
				batches.GET("/alerts/min-stock", batchHandler.MinStockAlerts)
				batches.GET("/product/:code", batchHandler.ByProduct)
				batches.GET("/:id", batchHandler.Get)
				batches.PUT("/:id/expiry", adminOnly, batchHandler.UpdateExpiry)
			}

			salesGroup := protected.Group("/sales")
			{
				salesGroup.POST("", salesHandler.Create)
				salesGroup.GET("", salesHandler.List)
				salesGroup.GET("/:id", salesHandler.Get)
			}

			opnameGroup := protected.Group("/opname")
			{
				opnameGroup.POST("/tasks", adminOnly, opnameHandler.CreateTasks)
				opnameGroup.GET("/tasks", opnameHandler.List)
				opnameGroup.GET("/tasks/my", opnameHandler.MyTasks)
				opnameGroup.GET("/tasks/:id", opnameHandler.Get)
				opnameGroup.POST("/tasks/:id/submit", opnameHandler.SubmitTask)
				opnameGroup.POST("/tasks/:id/request-edit", opnameHandler.RequestEdit)
				opnameGroup.POST("/tasks/:id/review", adminOnly, opnameHandler.Review)
				opnameGroup.POST("/submit", opnameHandler.SubmitCount)
				opnameGroup.POST("/direct", adminOnly, opnameHandler.DirectCount)
				opnameGroup.POST("/direct/confirm", adminOnly, opnameHandler.ConfirmDirect)
				opnameGroup.POST("/conflicts", adminOnly, opnameHandler.CheckConflict)
				opnameGroup.GET("/history", opnameHandler.History)
			}

			protected.GET("/audit/:type/:id", adminOnly, auditHandler.EntityHistory)
		}
	}

	return router
}
