// internal/router/router.go
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rfmontes/angel-fit-app/internal/config"
	"github.com/rfmontes/angel-fit-app/internal/handlers"
	"github.com/rfmontes/angel-fit-app/internal/metrics"
	"github.com/rfmontes/angel-fit-app/internal/middleware"
	"github.com/rfmontes/angel-fit-app/internal/realtime"
	"github.com/rfmontes/angel-fit-app/internal/services"
	"github.com/rfmontes/angel-fit-app/internal/utils"
)

const Version = "1.0.0"

// Dependencies are the process-wide services the handlers share. They are
// built once in main and injected here.
type Dependencies struct {
	Inventory *services.InventoryService
	Auth      *services.AuthService
	Reports   *services.ReportService
	Storage   *services.StorageService
	Hub       *realtime.Hub
	Metrics   *metrics.Metrics
	Logger    *logrus.Logger
}

func Initialize(cfg *config.Config, deps Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.Auth, logger)
	productHandler := handlers.NewProductHandler(deps.Inventory, deps.Reports, logger)
	saleHandler := handlers.NewSaleHandler(deps.Inventory, logger)
	dashboardHandler := handlers.NewDashboardHandler(deps.Inventory, deps.Reports, logger)
	inventoryHandler := handlers.NewInventoryHandler(deps.Inventory, Version, logger)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger, deps.Metrics))
	r.Use(middleware.CORS(cfg.Frontend.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", inventoryHandler.Health)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	authRequired := middleware.AuthRequired(deps.Auth)

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.AuthRateLimit(), authHandler.Login)
			auth.POST("/logout", authRequired, authHandler.Logout)
			auth.GET("/session", authRequired, authHandler.GetSession)
		}

		// Product routes
		products := v1.Group("/products")
		products.Use(authRequired)
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/available", productHandler.GetAvailableProducts)
			products.GET("/export", productHandler.ExportProducts)
			products.PUT("/min-stock", productHandler.ResetMinStock)
			products.GET("/:id", productHandler.GetProduct)
			products.POST("", productHandler.CreateProduct)
			products.PUT("/:id", productHandler.UpdateProduct)
			products.DELETE("/:id", productHandler.DeleteProduct)
		}

		// Sale routes
		sales := v1.Group("/sales")
		sales.Use(authRequired)
		{
			sales.GET("", saleHandler.GetSales)
			sales.GET("/:id", saleHandler.GetSale)
			sales.POST("", saleHandler.CreateSale)
			sales.PUT("/:id", saleHandler.UpdateSale)
			sales.DELETE("/:id", saleHandler.DeleteSale)
		}

		// Dashboard routes
		dashboard := v1.Group("/dashboard")
		dashboard.Use(authRequired)
		{
			dashboard.GET("/stats", dashboardHandler.GetStats)
			dashboard.GET("/breakdown", dashboardHandler.GetBreakdown)
		}

		v1.POST("/sync", authRequired, inventoryHandler.Sync)
		v1.POST("/reports/inventory", authRequired, dashboardHandler.PublishReport)

		if deps.Hub != nil {
			v1.GET("/ws", authRequired, deps.Hub.Handle)
		}

		// Reports stored without S3 hold customer data, so they are only
		// served to signed-in operators
		if deps.Storage != nil && deps.Storage.LocalDir() != "" {
			uploads := v1.Group("/uploads")
			uploads.Use(authRequired)
			uploads.Static("", deps.Storage.LocalDir())
		}
	}

	return r
}
