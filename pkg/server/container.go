package server

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"construction-invoice-api/internal/archive"
	"construction-invoice-api/internal/config"
	"construction-invoice-api/internal/database"
	"construction-invoice-api/internal/middleware"
	"construction-invoice-api/internal/ratelimit"
	"construction-invoice-api/internal/repositories"
	"construction-invoice-api/internal/repositories/sqlite"
	"construction-invoice-api/internal/services"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *logrus.Logger
	InvoiceService  services.InvoiceService
	SecurityService services.SecurityService
	AuthService     *middleware.AuthService
	Limiter         *ratelimit.Limiter

	db          *sql.DB
	connManager *database.ConnectionManager
}

// NewContainer wires all application dependencies: database connection
// with migrations, repositories, the rate limiter backed by the security
// audit store, and the services on top.
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	if logger == nil {
		logger = logrus.New()
	}

	if err := cfg.Database.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to prepare database directories: %w", err)
	}

	connManager := database.NewConnectionManager(cfg.Database.ToConnectionConfig(logger))
	if err := connManager.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := connManager.GetDB()

	repos := &repositories.RepositoryContainer{
		InvoiceRepo:       sqlite.NewInvoiceRepository(db, logger),
		SecurityAuditRepo: sqlite.NewSecurityAuditRepository(db, logger),
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewLimiter(
			ratelimit.NewRepositoryStore(repos.SecurityAuditRepo),
			cfg.RateLimit.Policies,
			cfg.RateLimit.Options(),
			logger,
		)
	}

	authService := middleware.NewAuthService(&middleware.AuthConfig{
		JWTSecret:     cfg.JWT.Secret,
		TokenDuration: time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
		Issuer:        cfg.JWT.Issuer,
	})

	var archiver *archive.InvoiceArchiver
	if cfg.Archive.Enabled {
		localStore, err := archive.NewLocalStore(cfg.Archive.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize invoice archive: %w", err)
		}
		archiver = archive.NewInvoiceArchiver(
			archive.NewRetryStore(localStore, archive.DefaultRetryPolicy()),
			logger,
		)
	}

	return &Container{
		Config:          cfg,
		Logger:          logger,
		InvoiceService:  services.NewInvoiceServiceWithArchiver(repos.InvoiceRepo, &cfg.Tax, archiver, logger),
		SecurityService: services.NewSecurityService(repos.SecurityAuditRepo),
		AuthService:     authService,
		Limiter:         limiter,
		db:              db,
		connManager:     connManager,
	}, nil
}

// HealthCheck verifies the database connection is usable
func (c *Container) HealthCheck() error {
	if c.connManager == nil {
		return fmt.Errorf("container not initialized")
	}
	return c.connManager.HealthCheck()
}

// Close cleans up all resources
func (c *Container) Close() error {
	if c.connManager != nil {
		if err := c.connManager.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
