package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/suteetoe/tenancy/config"
	"github.com/suteetoe/tenancy/database"
	"github.com/suteetoe/tenancy/internal/handler"
	"github.com/suteetoe/tenancy/internal/middleware"
	"github.com/suteetoe/tenancy/jwtutil"
	"github.com/suteetoe/tenancy/logger"
	"github.com/suteetoe/tenancy/prometheus"
	"github.com/suteetoe/tenancy/tenant"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load("tenancy")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting tenancy service...", cfg.LogConfig()...)

	// Initialize database
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize the tenant manager
	manager := tenant.New(db, tenant.Options{
		MigrationsDir: cfg.Tenancy.MigrationsDir,
		DefaultSchema: cfg.Tenancy.DefaultSchema,
		ReservedNames: cfg.Tenancy.ReservedNames,
		TenantField:   cfg.Tenancy.TenantField,
	})
	handler.Initialize(manager)
	log.Info("Tenant manager initialized",
		zap.String("migrations_path", manager.MigrationsPath()))

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// Tenant lifecycle
	tenants := api.Group("/tenants")
	tenants.POST("", handler.CreateTenant)
	tenants.GET("", handler.ListTenants)
	tenants.DELETE("/:name", handler.DropTenant)
	tenants.POST("/:name/rename", handler.RenameTenant)
	tenants.GET("/:name/exists", handler.TenantExists)
	tenants.POST("/:name/migrate", handler.MigrateTenant)

	// Get server port from configuration
	port := cfg.Server.Port

	// Start server
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
