package migration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"construction-invoice-api/internal/models"
)

// JSONImporter imports invoices from a legacy JSON export into the SQLite
// database. Totals are recomputed during import so legacy figures that were
// rounded differently come out consistent with the current engine.
type JSONImporter struct {
	db         *sql.DB
	logger     *logrus.Logger
	jsonPath   string
	backupPath string
}

// NewJSONImporter creates a new JSON importer reading from jsonPath
func NewJSONImporter(db *sql.DB, jsonPath string, logger *logrus.Logger) *JSONImporter {
	return &JSONImporter{
		db:         db,
		logger:     logger,
		jsonPath:   jsonPath,
		backupPath: filepath.Join(jsonPath, "backup"),
	}
}

// LegacyLineItem is the line item shape of the legacy export
type LegacyLineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// LegacyInvoice is the invoice shape of the legacy export
type LegacyInvoice struct {
	InvoiceNumber    string           `json:"invoice_number"`
	CustomerName     string           `json:"customer_name"`
	VATMode          string           `json:"vat_mode"`
	DiscountPercent  float64          `json:"discount_percent"`
	RetentionPercent float64          `json:"retention_percent"`
	Notes            string           `json:"notes,omitempty"`
	IssuedAt         string           `json:"issued_at"`
	LineItems        []LegacyLineItem `json:"line_items"`
}

// ImportResult contains the results of the import
type ImportResult struct {
	InvoicesImported   int
	LineItemsImported  int
	InvoicesSkipped    int
	Errors             []string
	Warnings           []string
}

// ImportFromJSON imports all invoices from the legacy export file.
// The whole import runs in one transaction so a failure leaves the
// database untouched; individual invalid invoices are skipped with a
// warning rather than aborting the run.
func (m *JSONImporter) ImportFromJSON() (*ImportResult, error) {
	m.logger.Info("Starting legacy JSON invoice import...")

	result := &ImportResult{
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}

	if err := m.createBackup(); err != nil {
		m.logger.WithError(err).Warn("Failed to back up legacy JSON files")
		result.Warnings = append(result.Warnings, fmt.Sprintf("Failed to create backup: %v", err))
	}

	legacyInvoices, err := m.readLegacyInvoices()
	if err != nil {
		return nil, err
	}

	tx, err := m.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	invoiceStmt, err := tx.Prepare(`
		INSERT INTO invoices
		(invoice_id, invoice_number, customer_name, vat_mode, discount_percent, retention_percent,
		 subtotal, discount, net_after_discount, vat_amount, total_before_retention, retention, total_due,
		 notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare invoice insert statement: %w", err)
	}
	defer invoiceStmt.Close()

	lineItemStmt, err := tx.Prepare(`
		INSERT INTO invoice_line_items
		(id, invoice_id, description, quantity, unit_price, line_total, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare line item insert statement: %w", err)
	}
	defer lineItemStmt.Close()

	for _, legacy := range legacyInvoices {
		if err := m.validateLegacyInvoice(&legacy); err != nil {
			m.logger.WithError(err).WithField("invoice_number", legacy.InvoiceNumber).
				Warn("Invalid legacy invoice, skipping")
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Skipped invoice %s: %v", legacy.InvoiceNumber, err))
			result.InvoicesSkipped++
			continue
		}

		invoice, err := m.buildInvoice(&legacy)
		if err != nil {
			m.logger.WithError(err).WithField("invoice_number", legacy.InvoiceNumber).
				Warn("Failed to convert legacy invoice, skipping")
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Skipped invoice %s: %v", legacy.InvoiceNumber, err))
			result.InvoicesSkipped++
			continue
		}

		_, err = invoiceStmt.Exec(
			invoice.InvoiceID,
			invoice.InvoiceNumber,
			invoice.CustomerName,
			string(invoice.VATMode),
			invoice.DiscountPercent,
			invoice.RetentionPercent,
			invoice.Subtotal,
			invoice.Discount,
			invoice.NetAfterDiscount,
			invoice.VATAmount,
			invoice.TotalBeforeRetention,
			invoice.Retention,
			invoice.TotalDue,
			invoice.Notes,
			invoice.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				m.logger.WithField("invoice_number", invoice.InvoiceNumber).
					Warn("Invoice number already exists, skipping")
				result.InvoicesSkipped++
				continue
			}
			result.Errors = append(result.Errors,
				fmt.Sprintf("Failed to insert invoice %s: %v", invoice.InvoiceNumber, err))
			return result, fmt.Errorf("failed to insert invoice %s: %w", invoice.InvoiceNumber, err)
		}
		result.InvoicesImported++

		for _, item := range invoice.LineItems {
			_, err := lineItemStmt.Exec(
				item.ID,
				item.InvoiceID,
				item.Description,
				item.Quantity,
				item.UnitPrice,
				item.LineTotal,
				item.SortOrder,
			)
			if err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("Failed to insert line item for invoice %s: %v", invoice.InvoiceNumber, err))
				return result, fmt.Errorf("failed to insert line item for invoice %s: %w", invoice.InvoiceNumber, err)
			}
			result.LineItemsImported++
		}
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit transaction: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"invoices":   result.InvoicesImported,
		"line_items": result.LineItemsImported,
		"skipped":    result.InvoicesSkipped,
	}).Info("Legacy JSON invoice import completed")

	return result, nil
}

// readLegacyInvoices reads and decodes the legacy export file
func (m *JSONImporter) readLegacyInvoices() ([]LegacyInvoice, error) {
	filePath := filepath.Join(m.jsonPath, "invoices.json")

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Warn("Legacy invoices file not found, nothing to import")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read legacy invoices file: %w", err)
	}

	var invoices []LegacyInvoice
	if err := json.Unmarshal(data, &invoices); err != nil {
		return nil, fmt.Errorf("failed to unmarshal legacy invoices: %w", err)
	}

	return invoices, nil
}

// buildInvoice converts a legacy invoice into the stored model, recomputing
// all derived totals
func (m *JSONImporter) buildInvoice(legacy *LegacyInvoice) (*models.Invoice, error) {
	vatMode := models.VATMode(legacy.VATMode)
	if !vatMode.IsValid() {
		return nil, fmt.Errorf("unknown VAT mode: %s", legacy.VATMode)
	}

	invoice := models.NewInvoice(legacy.InvoiceNumber, legacy.CustomerName, vatMode)
	invoice.DiscountPercent = models.ClampPercent(legacy.DiscountPercent)
	invoice.RetentionPercent = models.ClampPercent(legacy.RetentionPercent)

	if notes := strings.TrimSpace(legacy.Notes); notes != "" {
		invoice.Notes = &notes
	}

	if legacy.IssuedAt != "" {
		issuedAt, err := m.parseDate(legacy.IssuedAt)
		if err != nil {
			return nil, err
		}
		invoice.CreatedAt = issuedAt
	}

	for i, item := range legacy.LineItems {
		lineItem := models.NewInvoiceLineItem(invoice.InvoiceID, item.Description, item.Quantity, item.UnitPrice, i)
		invoice.LineItems = append(invoice.LineItems, *lineItem)
	}

	invoice.ApplyTotals(models.CalculateInvoiceTotals(&models.InvoiceInput{
		LineItems:        invoice.CalcItems(),
		VATMode:          invoice.VATMode,
		DiscountPercent:  invoice.DiscountPercent,
		RetentionPercent: invoice.RetentionPercent,
	}))

	return invoice, nil
}

func (m *JSONImporter) validateLegacyInvoice(legacy *LegacyInvoice) error {
	if strings.TrimSpace(legacy.InvoiceNumber) == "" {
		return fmt.Errorf("invoice number is required")
	}
	if strings.TrimSpace(legacy.CustomerName) == "" {
		return fmt.Errorf("customer name is required")
	}
	if len(legacy.LineItems) == 0 {
		return fmt.Errorf("invoice must have at least one line item")
	}
	for i, item := range legacy.LineItems {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("line item %d has no description", i)
		}
		if item.Quantity < 0 {
			return fmt.Errorf("line item %d has a negative quantity", i)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("line item %d has a negative unit price", i)
		}
	}
	return nil
}

// parseDate parses the date formats seen in legacy exports
func (m *JSONImporter) parseDate(dateStr string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
		"02/01/2006",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// createBackup copies the legacy export aside before importing
func (m *JSONImporter) createBackup() error {
	srcPath := filepath.Join(m.jsonPath, "invoices.json")
	if _, err := os.Stat(srcPath); os.IsNotExist(err) {
		return nil
	}

	if err := os.MkdirAll(m.backupPath, 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	dstPath := filepath.Join(m.backupPath, fmt.Sprintf("%s_invoices.json", timestamp))

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, data, 0644); err != nil {
		return err
	}

	m.logger.WithField("backup_file", dstPath).Info("Legacy export backed up")
	return nil
}

// CheckLegacyExportExists reports whether there is a legacy export to import
func (m *JSONImporter) CheckLegacyExportExists() bool {
	_, err := os.Stat(filepath.Join(m.jsonPath, "invoices.json"))
	return err == nil
}

// ValidateImport reports the row counts after an import
func (m *JSONImporter) ValidateImport() error {
	var invoiceCount, lineItemCount int

	if err := m.db.QueryRow("SELECT COUNT(*) FROM invoices").Scan(&invoiceCount); err != nil {
		return fmt.Errorf("failed to count invoices: %w", err)
	}
	if err := m.db.QueryRow("SELECT COUNT(*) FROM invoice_line_items").Scan(&lineItemCount); err != nil {
		return fmt.Errorf("failed to count line items: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"invoices":   invoiceCount,
		"line_items": lineItemCount,
	}).Info("Import validation completed")

	return nil
}

// isUniqueViolation matches the sqlite unique constraint error text
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
