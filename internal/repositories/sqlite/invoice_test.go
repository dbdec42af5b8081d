package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"construction-invoice-api/internal/models"
	"construction-invoice-api/internal/repositories"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	tempDir, err := os.MkdirTemp("", "sqlite_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tempDir, "test.db")
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	schema := []string{
		`CREATE TABLE invoices (
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
		)`,
		`CREATE TABLE invoice_line_items (
			id TEXT PRIMARY KEY,
			invoice_id TEXT NOT NULL,
			description TEXT NOT NULL,
			quantity REAL NOT NULL,
			unit_price REAL NOT NULL,
			line_total REAL NOT NULL,
			sort_order INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (invoice_id) REFERENCES invoices(invoice_id) ON DELETE CASCADE
		)`,
		`CREATE TABLE security_events (
			id TEXT PRIMARY KEY,
			identifier TEXT NOT NULL,
			action TEXT NOT NULL,
			metadata TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX idx_security_events_lookup
			ON security_events(identifier, action, created_at)`,
		`CREATE TABLE security_blocks (
			identifier TEXT NOT NULL,
			action TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (identifier, action)
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to create schema: %v", err)
		}
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tempDir)
	}

	return db, cleanup
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func buildTestInvoice(number, customer string) *models.Invoice {
	invoice := models.NewInvoice(number, customer, models.VATModeStandard20)
	invoice.DiscountPercent = 10
	invoice.RetentionPercent = 5

	item := models.NewInvoiceLineItem(invoice.InvoiceID, "Groundworks labour", 2, 500.00, 0)
	invoice.LineItems = []models.InvoiceLineItem{*item}

	totals := models.CalculateInvoiceTotals(&models.InvoiceInput{
		LineItems:        invoice.CalcItems(),
		VATMode:          invoice.VATMode,
		DiscountPercent:  invoice.DiscountPercent,
		RetentionPercent: invoice.RetentionPercent,
	})
	invoice.ApplyTotals(totals)

	return invoice
}

func TestInvoiceRepository_CreateAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewInvoiceRepository(db, testLogger())
	ctx := context.Background()

	invoice := buildTestInvoice("INV-00001", "Acme Builders Ltd")

	if err := repo.Create(ctx, invoice); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	retrieved, err := repo.GetByID(ctx, invoice.InvoiceID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}

	if retrieved.InvoiceNumber != invoice.InvoiceNumber {
		t.Errorf("InvoiceNumber = %s, want %s", retrieved.InvoiceNumber, invoice.InvoiceNumber)
	}
	if retrieved.VATMode != models.VATModeStandard20 {
		t.Errorf("VATMode = %s, want %s", retrieved.VATMode, models.VATModeStandard20)
	}
	if retrieved.TotalDue != invoice.TotalDue {
		t.Errorf("TotalDue = %.2f, want %.2f", retrieved.TotalDue, invoice.TotalDue)
	}
	if len(retrieved.LineItems) != 1 {
		t.Fatalf("LineItems count = %d, want 1", len(retrieved.LineItems))
	}
	if retrieved.LineItems[0].LineTotal != 1000.00 {
		t.Errorf("LineTotal = %.2f, want 1000.00", retrieved.LineItems[0].LineTotal)
	}
}

func TestInvoiceRepository_Create_DuplicateNumber(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewInvoiceRepository(db, testLogger())
	ctx := context.Background()

	first := buildTestInvoice("INV-00001", "Acme Builders Ltd")
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	second := buildTestInvoice("INV-00001", "Other Contractor")
	err := repo.Create(ctx, second)
	if err == nil {
		t.Fatal("Create() with duplicate invoice number should fail")
	}
	if !errors.Is(err, repositories.ErrDuplicateEntry) {
		t.Errorf("error = %v, want ErrDuplicateEntry", err)
	}
}

func TestInvoiceRepository_GetByID_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewInvoiceRepository(db, testLogger())

	_, err := repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestInvoiceRepository_ListAndCount(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewInvoiceRepository(db, testLogger())
	ctx := context.Background()

	for i, customer := range []string{"Acme Builders Ltd", "Smith Roofing", "Acme Builders Ltd"} {
		invoice := buildTestInvoice(
			[]string{"INV-00001", "INV-00002", "INV-00003"}[i],
			customer,
		)
		if err := repo.Create(ctx, invoice); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
	}

	all, err := repo.List(ctx, nil)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List() returned %d invoices, want 3", len(all))
	}

	name := "Acme"
	filtered, err := repo.List(ctx, &repositories.InvoiceFilters{CustomerName: &name})
	if err != nil {
		t.Fatalf("List() with filter failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("List() with customer filter returned %d, want 2", len(filtered))
	}

	count, err := repo.Count(ctx, &repositories.InvoiceFilters{CustomerName: &name})
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestInvoiceRepository_Delete_CascadesLineItems(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewInvoiceRepository(db, testLogger())
	ctx := context.Background()

	invoice := buildTestInvoice("INV-00001", "Acme Builders Ltd")
	if err := repo.Create(ctx, invoice); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := repo.Delete(ctx, invoice.InvoiceID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	var itemCount int
	row := db.QueryRow("SELECT COUNT(*) FROM invoice_line_items WHERE invoice_id = ?", invoice.InvoiceID)
	if err := row.Scan(&itemCount); err != nil {
		t.Fatalf("Failed to count line items: %v", err)
	}
	if itemCount != 0 {
		t.Errorf("line items remaining after delete = %d, want 0", itemCount)
	}

	if err := repo.Delete(ctx, invoice.InvoiceID); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestInvoiceRepository_NextInvoiceNumber(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewInvoiceRepository(db, testLogger())
	ctx := context.Background()

	number, err := repo.NextInvoiceNumber(ctx)
	if err != nil {
		t.Fatalf("NextInvoiceNumber() failed: %v", err)
	}
	if number != "INV-00001" {
		t.Errorf("NextInvoiceNumber() = %s, want INV-00001", number)
	}

	invoice := buildTestInvoice(number, "Acme Builders Ltd")
	if err := repo.Create(ctx, invoice); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	number, err = repo.NextInvoiceNumber(ctx)
	if err != nil {
		t.Fatalf("NextInvoiceNumber() failed: %v", err)
	}
	if number != "INV-00002" {
		t.Errorf("NextInvoiceNumber() = %s, want INV-00002", number)
	}
}

func TestInvoiceRepository_NextInvoiceNumber_AfterDelete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewInvoiceRepository(db, testLogger())
	ctx := context.Background()

	first := buildTestInvoice("INV-00001", "Acme Builders Ltd")
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	second := buildTestInvoice("INV-00002", "Smith Roofing")
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	// Deleting an invoice must not shrink the sequence: taken numbers are
	// never re-issued
	if err := repo.Delete(ctx, first.InvoiceID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	number, err := repo.NextInvoiceNumber(ctx)
	if err != nil {
		t.Fatalf("NextInvoiceNumber() failed: %v", err)
	}
	if number != "INV-00003" {
		t.Errorf("NextInvoiceNumber() after delete = %s, want INV-00003", number)
	}

	third := buildTestInvoice(number, "Jones Groundworks")
	if err := repo.Create(ctx, third); err != nil {
		t.Fatalf("Create() after delete failed: %v", err)
	}
}
