// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"visualeyes/internal/core/ratelimit"
	"visualeyes/internal/domain/audit"
	"visualeyes/internal/domain/catalog"
	"visualeyes/internal/domain/customer"
	"visualeyes/internal/domain/identity"
	"visualeyes/internal/infrastructure/http/v1/handlers"
	"visualeyes/internal/infrastructure/http/v1/middleware"
	"visualeyes/internal/infrastructure/storage/postgres"
	"visualeyes/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks).
	Pool *postgres.Pool

	// Logger for request logging.
	Logger *logger.Logger

	// TokenVerifier validates access tokens.
	TokenVerifier middleware.TokenVerifier

	// IdentityService serves employee auth and management.
	IdentityService *identity.Service

	// CustomerService serves customer accounts and approvals.
	CustomerService *customer.Service

	// CatalogService serves reference data and locations.
	CatalogService *catalog.Service

	// LoginLimiter throttles credential-guessing endpoints.
	LoginLimiter ratelimit.Limiter

	// AuditHistory reads back entity audit trails (admin only).
	AuditHistory audit.History

	// Resolver decides authorization for handler-level checks.
	Resolver *identity.Resolver
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

	authHandler := handlers.NewAuthHandler(cfg.IdentityService, cfg.CustomerService, cfg.LoginLimiter)
	employeeHandler := handlers.NewEmployeeHandler(cfg.IdentityService)
	customerHandler := handlers.NewCustomerHandler(cfg.CustomerService, cfg.LoginLimiter)
	catalogHandler := handlers.NewCatalogHandler(cfg.CatalogService)
	auditHandler := handlers.NewAuditHandler(cfg.AuditHistory, cfg.Resolver)

	auth := middleware.Auth(cfg.TokenVerifier)

	apiV1 := router.Group("/api/v1")
	{
		// Employee authentication
		apiV1.POST("/auth/login", authHandler.Login)
		apiV1.POST("/auth/refresh", authHandler.Refresh)
		apiV1.POST("/auth/logout", authHandler.Logout)
		apiV1.POST("/auth/forgot-password", authHandler.ForgotPassword)
		apiV1.PUT("/auth/reset-password/:token", authHandler.ResetPassword)
		apiV1.PUT("/auth/update-password", auth, authHandler.UpdatePassword)
		apiV1.GET("/auth/me", auth, authHandler.Me)

		// Employee management (employee principals only)
		employees := apiV1.Group("/employees", auth, middleware.EmployeeOnly())
		{
			employees.POST("", employeeHandler.Create)
			employees.GET("", employeeHandler.List)
			employees.GET("/supervisors", employeeHandler.Supervisors)
			employees.GET("/:id", employeeHandler.Get)
			employees.PUT("/:id", employeeHandler.Update)
			employees.DELETE("/:id", employeeHandler.Deactivate)
		}

		// Customer surface
		customers := apiV1.Group("/customers")
		{
			customers.POST("/login", customerHandler.Login)
			customers.POST("/verify-email", customerHandler.VerifyEmail)
			customers.POST("/forgot-password", customerHandler.ForgotPassword)
			customers.PUT("/reset-password/:token", customerHandler.ResetPassword)

			customers.POST("/register", auth, middleware.EmployeeOnly(), customerHandler.Register)
			customers.PUT("/update-password", auth, customerHandler.UpdatePassword)
			customers.GET("/profile", auth, customerHandler.Profile)
			customers.GET("", auth, customerHandler.List)
			customers.GET("/pending-finance-approvals", auth, middleware.EmployeeOnly(), customerHandler.PendingFinanceApprovals)
			customers.GET("/pending-sales-approvals", auth, middleware.EmployeeOnly(), customerHandler.PendingSalesApprovals)
			customers.GET("/:id", auth, customerHandler.Get)
			customers.PUT("/:id", auth, customerHandler.Update)
			customers.PUT("/:id/finance-review", auth, middleware.EmployeeOnly(), customerHandler.FinanceReview)
			customers.PUT("/:id/sales-review", auth, middleware.EmployeeOnly(), customerHandler.SalesReview)
			customers.PUT("/:id/suspend", auth, middleware.EmployeeOnly(), customerHandler.Suspend)
		}

		// Reference data and locations
		catalogGroup := apiV1.Group("/catalog", auth)
		{
			catalogGroup.GET("/:kind", catalogHandler.ListItems)
			catalogGroup.POST("/:kind", catalogHandler.CreateItem)
			catalogGroup.PUT("/:kind/:id", catalogHandler.UpdateItem)
			catalogGroup.DELETE("/:kind/:id", catalogHandler.DeleteItem)
		}

		// Audit trail (admin tiers only, checked by the handler)
		apiV1.GET("/audit/:entityType/:id", auth, middleware.EmployeeOnly(), auditHandler.EntityHistory)

		locations := apiV1.Group("/locations", auth)
		{
			locations.GET("/zones", catalogHandler.ListZones)
			locations.POST("/zones", catalogHandler.CreateZone)
			locations.GET("/zones/:id/cities", catalogHandler.ListCities)
			locations.POST("/cities", catalogHandler.CreateCity)
		}
	}

	return router
}
