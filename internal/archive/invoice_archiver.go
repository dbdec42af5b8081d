package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"construction-invoice-api/internal/models"
)

// InvoiceArchiver writes a JSON snapshot of each finalized invoice to an
// archive store, keyed by year and invoice number. Snapshots are kept
// alongside the database so invoices survive a database restore from an
// older backup.
type InvoiceArchiver struct {
	store  Store
	logger *logrus.Logger
}

// NewInvoiceArchiver creates an archiver backed by the given store
func NewInvoiceArchiver(store Store, logger *logrus.Logger) *InvoiceArchiver {
	if logger == nil {
		logger = logrus.New()
	}
	return &InvoiceArchiver{store: store, logger: logger}
}

// Archive persists a snapshot of the invoice including its line items
func (a *InvoiceArchiver) Archive(ctx context.Context, invoice *models.Invoice) error {
	if invoice == nil {
		return fmt.Errorf("invoice cannot be nil")
	}

	data, err := json.MarshalIndent(invoice, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode invoice snapshot: %w", err)
	}

	key := invoiceKey(invoice.CreatedAt.Year(), invoice.InvoiceNumber)
	if err := a.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("failed to archive invoice %s: %w", invoice.InvoiceNumber, err)
	}

	a.logger.WithFields(logrus.Fields{
		"invoice_number": invoice.InvoiceNumber,
		"archive_key":    key,
	}).Debug("Archived invoice snapshot")

	return nil
}

// Retrieve loads an archived invoice snapshot
func (a *InvoiceArchiver) Retrieve(ctx context.Context, year int, invoiceNumber string) (*models.Invoice, error) {
	data, err := a.store.Get(ctx, invoiceKey(year, invoiceNumber))
	if err != nil {
		return nil, err
	}

	var invoice models.Invoice
	if err := json.Unmarshal(data, &invoice); err != nil {
		return nil, fmt.Errorf("failed to decode invoice snapshot: %w", err)
	}

	return &invoice, nil
}

// Keys lists the archive keys for a given year
func (a *InvoiceArchiver) Keys(ctx context.Context, year int) ([]string, error) {
	return a.store.List(ctx, fmt.Sprintf("invoices/%d/", year))
}

func invoiceKey(year int, invoiceNumber string) string {
	return fmt.Sprintf("invoices/%d/%s.json", year, invoiceNumber)
}
