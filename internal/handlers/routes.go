package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"construction-invoice-api/internal/config"
	"construction-invoice-api/internal/middleware"
	"construction-invoice-api/internal/models"
	"construction-invoice-api/internal/ratelimit"
	"construction-invoice-api/internal/services"
)

// RouterConfig holds configuration for setting up routes
type RouterConfig struct {
	InvoiceService  services.InvoiceService
	SecurityService services.SecurityService
	AuthService     *middleware.AuthService
	AuthConfig      *config.AuthConfig
	TaxConfig       *config.TaxSystemConfig
	Limiter         *ratelimit.Limiter
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, cfg *RouterConfig) {
	invoiceHandler := NewInvoiceHandler(cfg.InvoiceService)
	taxHandler := NewTaxHandler(cfg.InvoiceService, cfg.TaxConfig)
	securityHandler := NewSecurityHandler(cfg.SecurityService)
	authHandler := NewAuthHandler(cfg.AuthService, cfg.AuthConfig)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "construction-invoice-api",
			"version": "1.0.0",
		})
	})

	v1 := router.Group("/api/v1")
	{
		// Authentication routes (no auth required). Login attempts count
		// against the login rate limit policy per client.
		auth := v1.Group("/auth")
		{
			auth.POST("/login",
				middleware.AbuseGuard(cfg.Limiter, models.ActionLogin),
				authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)

			authProtected := auth.Group("")
			authProtected.Use(middleware.Authentication(cfg.AuthService))
			{
				authProtected.GET("/me", authHandler.GetCurrentUser)
			}
		}

		// Stateless calculators: open like the health endpoint but
		// throttled as form submissions
		v1.POST("/invoices/calculate",
			middleware.AbuseGuard(cfg.Limiter, models.ActionFormSubmit),
			invoiceHandler.CalculateInvoice)
		v1.POST("/cis/calculate",
			middleware.AbuseGuard(cfg.Limiter, models.ActionFormSubmit),
			taxHandler.CalculateCIS)
		v1.GET("/tax/info", taxHandler.GetTaxInfo)

		// Protected API routes
		api := v1.Group("")
		api.Use(middleware.Authentication(cfg.AuthService))
		{
			invoices := api.Group("/invoices")
			{
				invoices.POST("",
					middleware.AbuseGuard(cfg.Limiter, models.ActionFormSubmit),
					invoiceHandler.CreateInvoice)
				invoices.GET("", invoiceHandler.ListInvoices)
				invoices.GET("/:id", invoiceHandler.GetInvoice)
				invoices.DELETE("/:id", invoiceHandler.DeleteInvoice)
			}

			security := api.Group("/security")
			security.Use(middleware.Authorization(string(middleware.RoleAdmin)))
			{
				security.GET("/events", securityHandler.ListEvents)
				security.GET("/blocks", securityHandler.GetBlockStatus)
			}
		}
	}
}

// SetupMiddleware configures global middleware
func SetupMiddleware(router *gin.Engine) {
	// Request ID and correlation ID
	router.Use(middleware.RequestID())
	router.Use(middleware.CorrelationID())

	// CORS
	router.Use(middleware.CORS())

	// Security headers
	router.Use(middleware.SecurityHeaders())

	// Request size limit (10MB)
	router.Use(middleware.RequestSizeLimit(10 * 1024 * 1024))

	// Content type validation for POST/PUT requests
	router.Use(middleware.ContentTypeValidation("application/json"))

	// Request validation
	router.Use(middleware.RequestValidation())

	// Global throughput cap (100 requests per second, burst of 200),
	// separate from the per-action abuse limiter
	router.Use(middleware.RateLimiter(100, 200))

	// Structured logging
	router.Use(middleware.StructuredLogger())

	// Performance monitoring (log requests over 1 second)
	router.Use(middleware.PerformanceMonitor(time.Second))

	// Audit logging
	router.Use(middleware.AuditLogger())

	// Error tracking
	router.Use(middleware.ErrorTracker())

	// Enhanced error handling
	router.Use(middleware.EnhancedErrorHandler())
}
