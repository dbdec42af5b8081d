package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"construction-invoice-api/internal/archive"
	"construction-invoice-api/internal/config"
	"construction-invoice-api/internal/models"
	"construction-invoice-api/internal/repositories"
)

// invoiceService implements the InvoiceService interface
type invoiceService struct {
	invoiceRepo repositories.InvoiceRepository
	taxConfig   *config.TaxSystemConfig
	archiver    *archive.InvoiceArchiver
	logger      *logrus.Logger
	validator   *validator.Validate
}

// NewInvoiceService creates a new invoice service instance
func NewInvoiceService(invoiceRepo repositories.InvoiceRepository, taxConfig *config.TaxSystemConfig) InvoiceService {
	return NewInvoiceServiceWithArchiver(invoiceRepo, taxConfig, nil, nil)
}

// NewInvoiceServiceWithArchiver creates an invoice service that also writes
// a JSON snapshot of every created invoice to the archive store
func NewInvoiceServiceWithArchiver(invoiceRepo repositories.InvoiceRepository, taxConfig *config.TaxSystemConfig, archiver *archive.InvoiceArchiver, logger *logrus.Logger) InvoiceService {
	if logger == nil {
		logger = logrus.New()
	}
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		taxConfig:   taxConfig,
		archiver:    archiver,
		logger:      logger,
		validator:   validator.New(),
	}
}

// Calculate computes the full invoice breakdown without persisting anything.
// The calculation itself never fails; this boundary rejects malformed input
// (unknown VAT mode, negative quantities or prices) before it reaches the
// engine.
func (s *invoiceService) Calculate(ctx context.Context, req *CalculateInvoiceRequest) (*models.InvoiceTotals, error) {
	if req == nil {
		return nil, fmt.Errorf("calculate request cannot be nil")
	}

	if req.VATMode == "" {
		req.VATMode = s.taxConfig.DefaultVATMode
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if !req.VATMode.IsValid() {
		return nil, fmt.Errorf("unsupported VAT mode: %s", req.VATMode)
	}

	return models.CalculateInvoiceTotals(&models.InvoiceInput{
		LineItems:        toCalcItems(req.LineItems),
		VATMode:          req.VATMode,
		DiscountPercent:  req.DiscountPercent,
		RetentionPercent: req.RetentionPercent,
	}), nil
}

// CalculateCIS computes the CIS deduction breakdown for a subcontractor
// payment. When no rate is supplied the configured default applies. With
// rate enforcement on, only the HMRC rates (0, 20, 30) are accepted.
func (s *invoiceService) CalculateCIS(ctx context.Context, req *CISCalculationRequest) (*models.CISBreakdown, error) {
	if req == nil {
		return nil, fmt.Errorf("CIS calculation request cannot be nil")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	rate := s.taxConfig.DefaultCISRatePercent
	if req.CISRatePercent != nil {
		rate = *req.CISRatePercent
	}

	if rate < 0 {
		return nil, fmt.Errorf("CIS rate cannot be negative")
	}

	if s.taxConfig.EnforceCISRateSet && !config.IsKnownCISRate(rate) {
		return nil, fmt.Errorf("CIS rate %.1f is not one of the HMRC rates (0, 20, 30)", rate)
	}

	return models.CalculateCIS(req.Gross, req.Materials, rate, req.RetentionPercent), nil
}

// CreateInvoice calculates and stores an invoice with its line items
func (s *invoiceService) CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*models.Invoice, error) {
	if req == nil {
		return nil, fmt.Errorf("create invoice request cannot be nil")
	}

	if req.VATMode == "" {
		req.VATMode = s.taxConfig.DefaultVATMode
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if !req.VATMode.IsValid() {
		return nil, fmt.Errorf("unsupported VAT mode: %s", req.VATMode)
	}

	number, err := s.invoiceRepo.NextInvoiceNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate invoice number: %w", err)
	}

	invoice := models.NewInvoice(number, models.SanitizeString(req.CustomerName), req.VATMode)
	invoice.DiscountPercent = models.ClampPercent(req.DiscountPercent)
	invoice.RetentionPercent = models.ClampPercent(req.RetentionPercent)
	invoice.Notes = req.Notes

	for i, item := range req.LineItems {
		lineItem := models.NewInvoiceLineItem(invoice.InvoiceID, item.Description, item.Quantity, item.UnitPrice, i)
		invoice.LineItems = append(invoice.LineItems, *lineItem)
	}

	totals := models.CalculateInvoiceTotals(&models.InvoiceInput{
		LineItems:        invoice.CalcItems(),
		VATMode:          invoice.VATMode,
		DiscountPercent:  invoice.DiscountPercent,
		RetentionPercent: invoice.RetentionPercent,
	})
	invoice.ApplyTotals(totals)

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	// Snapshot failures must not fail the request; the database row is
	// the source of truth and the archive is a secondary copy.
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, invoice); err != nil {
			s.logger.WithError(err).WithField("invoice_number", invoice.InvoiceNumber).
				Warn("Failed to archive invoice snapshot")
		}
	}

	return invoice, nil
}

// GetInvoice retrieves a stored invoice with its line items
func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	if id == "" {
		return nil, fmt.Errorf("invoice ID cannot be empty")
	}

	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	return invoice, nil
}

// ListInvoices retrieves stored invoices matching the filters
func (s *invoiceService) ListInvoices(ctx context.Context, req *ListInvoicesRequest) (*InvoiceListResult, error) {
	if req == nil {
		req = &ListInvoicesRequest{}
	}

	if req.Limit <= 0 || req.Limit > 500 {
		req.Limit = 100
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.VATMode != nil && !req.VATMode.IsValid() {
		return nil, fmt.Errorf("unsupported VAT mode: %s", *req.VATMode)
	}

	filters := &repositories.InvoiceFilters{
		CustomerName: req.CustomerName,
		VATMode:      req.VATMode,
		MinTotalDue:  req.MinTotalDue,
		MaxTotalDue:  req.MaxTotalDue,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Limit:        req.Limit,
		Offset:       req.Offset,
	}

	invoices, err := s.invoiceRepo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	total, err := s.invoiceRepo.Count(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}

	return &InvoiceListResult{
		Invoices: invoices,
		Total:    total,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}, nil
}

// DeleteInvoice removes a stored invoice
func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("invoice ID cannot be empty")
	}

	if err := s.invoiceRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}

	return nil
}

// toCalcItems converts request line items into the calculation form
func toCalcItems(items []LineItemRequest) []models.CalcLineItem {
	calcItems := make([]models.CalcLineItem, len(items))
	for i, item := range items {
		calcItems[i] = models.CalcLineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	return calcItems
}
