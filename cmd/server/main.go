package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"construction-invoice-api/internal/config"
	"construction-invoice-api/internal/handlers"
	"construction-invoice-api/pkg/server"
)

// @title Construction Invoice API
// @version 1.0
// @description Invoice calculation and abuse protection for UK construction businesses
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/your-org/construction-invoice-api
// @contact.email support@construction-invoice.example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8081
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	container, err := server.NewContainer(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize container")
	}
	defer container.Close()

	router := gin.New()
	router.Use(gin.Recovery())

	handlers.SetupMiddleware(router)
	handlers.SetupRoutes(router, &handlers.RouterConfig{
		InvoiceService:  container.InvoiceService,
		SecurityService: container.SecurityService,
		AuthService:     container.AuthService,
		AuthConfig:      &cfg.Auth,
		TaxConfig:       &cfg.Tax,
		Limiter:         container.Limiter,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	logger.WithField("port", cfg.Port).Info("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
