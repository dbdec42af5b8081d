package services

import (
	"context"
	"time"

	"construction-invoice-api/internal/models"
)

// InvoiceService defines the invoice calculation and persistence operations
type InvoiceService interface {
	// Calculate computes the full invoice breakdown without persisting anything
	Calculate(ctx context.Context, req *CalculateInvoiceRequest) (*models.InvoiceTotals, error)

	// CalculateCIS computes the CIS deduction breakdown for a subcontractor payment
	CalculateCIS(ctx context.Context, req *CISCalculationRequest) (*models.CISBreakdown, error)

	// CreateInvoice calculates and stores an invoice with its line items
	CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*models.Invoice, error)

	// GetInvoice retrieves a stored invoice with its line items
	GetInvoice(ctx context.Context, id string) (*models.Invoice, error)

	// ListInvoices retrieves stored invoices matching the filters
	ListInvoices(ctx context.Context, req *ListInvoicesRequest) (*InvoiceListResult, error)

	// DeleteInvoice removes a stored invoice
	DeleteInvoice(ctx context.Context, id string) error
}

// SecurityService exposes the security audit log for inspection
type SecurityService interface {
	// RecentEvents returns the latest audit events for an identifier
	RecentEvents(ctx context.Context, identifier string, limit int) ([]*models.SecurityEvent, error)

	// BlockStatus returns the block for an identifier+action, or nil
	BlockStatus(ctx context.Context, identifier, action string) (*models.SecurityBlock, error)
}

// LineItemRequest is one line item in a calculation or creation request
type LineItemRequest struct {
	Description string  `json:"description" validate:"required,min=1,max=500"`
	Quantity    float64 `json:"quantity" validate:"min=0"`
	UnitPrice   float64 `json:"unit_price" validate:"min=0"`
}

// CalculateInvoiceRequest carries the inputs for a stateless calculation.
// Discount and retention percentages outside [0,100] are clamped, not
// rejected, matching the calculation engine.
type CalculateInvoiceRequest struct {
	LineItems        []LineItemRequest `json:"line_items" validate:"dive"`
	VATMode          models.VATMode    `json:"vat_mode" validate:"required"`
	DiscountPercent  float64           `json:"discount_percent"`
	RetentionPercent float64           `json:"retention_percent"`
}

// CreateInvoiceRequest carries the inputs for a persisted invoice
type CreateInvoiceRequest struct {
	CustomerName     string            `json:"customer_name" validate:"required,min=1,max=255"`
	LineItems        []LineItemRequest `json:"line_items" validate:"required,min=1,dive"`
	VATMode          models.VATMode    `json:"vat_mode" validate:"required"`
	DiscountPercent  float64           `json:"discount_percent"`
	RetentionPercent float64           `json:"retention_percent"`
	Notes            *string           `json:"notes,omitempty"`
}

// CISCalculationRequest carries the inputs for a CIS deduction calculation
type CISCalculationRequest struct {
	Gross            float64  `json:"gross" validate:"min=0"`
	Materials        float64  `json:"materials" validate:"min=0"`
	CISRatePercent   *float64 `json:"cis_rate_percent,omitempty"`
	RetentionPercent float64  `json:"retention_percent"`
}

// ListInvoicesRequest carries the optional list filters
type ListInvoicesRequest struct {
	CustomerName *string         `json:"customer_name,omitempty"`
	VATMode      *models.VATMode `json:"vat_mode,omitempty"`
	MinTotalDue  *float64        `json:"min_total_due,omitempty"`
	MaxTotalDue  *float64        `json:"max_total_due,omitempty"`
	StartDate    *time.Time      `json:"start_date,omitempty"`
	EndDate      *time.Time      `json:"end_date,omitempty"`
	Limit        int             `json:"limit"`
	Offset       int             `json:"offset"`
}

// InvoiceListResult is one page of invoices with the unfiltered total
type InvoiceListResult struct {
	Invoices []*models.Invoice `json:"invoices"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}
