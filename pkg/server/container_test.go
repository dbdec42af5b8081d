package server

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"construction-invoice-api/internal/config"
	"construction-invoice-api/internal/models"
	"construction-invoice-api/internal/ratelimit"
	"construction-invoice-api/internal/services"
)

const testSchema = `
CREATE TABLE invoices (
    invoice_id TEXT PRIMARY KEY,
    invoice_number TEXT NOT NULL UNIQUE,
    customer_name TEXT NOT NULL,
    vat_mode TEXT NOT NULL,
    discount_percent REAL NOT NULL DEFAULT 0,
    retention_percent REAL NOT NULL DEFAULT 0,
    subtotal REAL NOT NULL DEFAULT 0,
    discount REAL NOT NULL DEFAULT 0,
    net_after_discount REAL NOT NULL DEFAULT 0,
    vat_amount REAL NOT NULL DEFAULT 0,
    total_before_retention REAL NOT NULL DEFAULT 0,
    retention REAL NOT NULL DEFAULT 0,
    total_due REAL NOT NULL DEFAULT 0,
    notes TEXT,
    created_at DATETIME NOT NULL
);

CREATE TABLE invoice_line_items (
    id TEXT PRIMARY KEY,
    invoice_id TEXT NOT NULL,
    description TEXT NOT NULL,
    quantity REAL NOT NULL,
    unit_price REAL NOT NULL,
    line_total REAL NOT NULL,
    sort_order INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (invoice_id) REFERENCES invoices(invoice_id) ON DELETE CASCADE
);

CREATE TABLE security_events (
    id TEXT PRIMARY KEY,
    identifier TEXT NOT NULL,
    action TEXT NOT NULL,
    metadata TEXT,
    created_at DATETIME NOT NULL
);

CREATE INDEX idx_security_events_lookup ON security_events(identifier, action, created_at);

CREATE TABLE security_blocks (
    identifier TEXT NOT NULL,
    action TEXT NOT NULL,
    expires_at DATETIME NOT NULL,
    created_at DATETIME NOT NULL,
    PRIMARY KEY (identifier, action)
);
`

func testContainerConfig(t *testing.T) *config.Config {
	tempDir, err := os.MkdirTemp("", "container_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	migrationsDir := filepath.Join(tempDir, "migrations")
	if err := os.MkdirAll(migrationsDir, 0755); err != nil {
		t.Fatalf("Failed to create migrations dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(migrationsDir, "000001_initial_schema.up.sql"), []byte(testSchema), 0644); err != nil {
		t.Fatalf("Failed to write migration file: %v", err)
	}

	return &config.Config{
		Environment: "test",
		Port:        "0",
		Database: config.DatabaseConfig{
			Path:            filepath.Join(tempDir, "data", "test.db"),
			MigrationsPath:  migrationsDir,
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 2 * time.Minute,
			AutoMigrate:     true,
		},
		JWT: config.JWTConfig{
			Secret:      "test-secret",
			ExpiryHours: 1,
			Issuer:      "construction-invoice-api",
		},
		Tax: config.TaxSystemConfig{
			DefaultVATMode:        models.VATModeStandard20,
			DefaultCISRatePercent: models.CISRateRegistered,
			EnforceCISRateSet:     true,
		},
		RateLimit: config.RateLimitConfig{
			Enabled:  true,
			Policies: ratelimit.DefaultPolicies(),
		},
	}
}

func testContainerLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func TestNewContainer(t *testing.T) {
	container, err := NewContainer(testContainerConfig(t), testContainerLogger())
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	if container.InvoiceService == nil {
		t.Error("InvoiceService was not wired")
	}
	if container.SecurityService == nil {
		t.Error("SecurityService was not wired")
	}
	if container.AuthService == nil {
		t.Error("AuthService was not wired")
	}
	if container.Limiter == nil {
		t.Error("Limiter was not wired despite rate limiting being enabled")
	}

	if err := container.HealthCheck(); err != nil {
		t.Errorf("HealthCheck() failed: %v", err)
	}
}

func TestContainer_InvoiceRoundTrip(t *testing.T) {
	container, err := NewContainer(testContainerConfig(t), testContainerLogger())
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	ctx := context.Background()
	invoice, err := container.InvoiceService.CreateInvoice(ctx, &services.CreateInvoiceRequest{
		CustomerName: "Acme Builders Ltd",
		LineItems: []services.LineItemRequest{
			{Description: "Groundworks", Quantity: 10, UnitPrice: 100.00},
		},
		VATMode:          models.VATModeStandard20,
		DiscountPercent:  10,
		RetentionPercent: 5,
	})
	if err != nil {
		t.Fatalf("CreateInvoice() failed: %v", err)
	}

	got, err := container.InvoiceService.GetInvoice(ctx, invoice.InvoiceID)
	if err != nil {
		t.Fatalf("GetInvoice() failed: %v", err)
	}
	if got.TotalDue != 1026.00 {
		t.Errorf("TotalDue = %.2f, want 1026.00", got.TotalDue)
	}
}

func TestContainer_LimiterBacksOntoAuditStore(t *testing.T) {
	container, err := NewContainer(testContainerConfig(t), testContainerLogger())
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		result := container.Limiter.Check(ctx, models.ActionLogin, "203.0.113.7")
		if !result.Allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	result := container.Limiter.Check(ctx, models.ActionLogin, "203.0.113.7")
	if result.Allowed {
		t.Error("6th login attempt should be blocked")
	}

	// The attempts must be visible in the audit log
	events, err := container.SecurityService.RecentEvents(ctx, "203.0.113.7", 10)
	if err != nil {
		t.Fatalf("RecentEvents() failed: %v", err)
	}
	if len(events) != 5 {
		t.Errorf("audit log has %d events, want 5", len(events))
	}
}

func TestContainer_ArchivesInvoices(t *testing.T) {
	cfg := testContainerConfig(t)
	archiveDir := filepath.Join(filepath.Dir(cfg.Database.Path), "archive")
	cfg.Archive = config.ArchiveConfig{Enabled: true, Path: archiveDir}

	container, err := NewContainer(cfg, testContainerLogger())
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	invoice, err := container.InvoiceService.CreateInvoice(context.Background(), &services.CreateInvoiceRequest{
		CustomerName: "Acme Builders Ltd",
		LineItems: []services.LineItemRequest{
			{Description: "Groundworks", Quantity: 1, UnitPrice: 500.00},
		},
		VATMode: models.VATModeStandard20,
	})
	if err != nil {
		t.Fatalf("CreateInvoice() failed: %v", err)
	}

	snapshot := filepath.Join(archiveDir, "invoices",
		strconv.Itoa(invoice.CreatedAt.Year()), invoice.InvoiceNumber+".json")
	if _, err := os.Stat(snapshot); err != nil {
		t.Errorf("invoice snapshot was not written: %v", err)
	}
}

func TestContainer_RateLimitingDisabled(t *testing.T) {
	cfg := testContainerConfig(t)
	cfg.RateLimit.Enabled = false

	container, err := NewContainer(cfg, testContainerLogger())
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	if container.Limiter != nil {
		t.Error("Limiter should be nil when rate limiting is disabled")
	}
}
