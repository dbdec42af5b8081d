package repositories

import (
	"context"
	"time"

	"construction-invoice-api/internal/models"
)

// InvoiceFilters holds optional filters for listing invoices
type InvoiceFilters struct {
	CustomerName *string
	VATMode      *models.VATMode
	MinTotalDue  *float64
	MaxTotalDue  *float64
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}

// InvoiceRepository defines operations for invoice persistence
type InvoiceRepository interface {
	// Create stores an invoice together with its line items atomically
	Create(ctx context.Context, invoice *models.Invoice) error

	// GetByID retrieves an invoice with its line items
	GetByID(ctx context.Context, id string) (*models.Invoice, error)

	// List retrieves invoices matching the filters, newest first,
	// without line items
	List(ctx context.Context, filters *InvoiceFilters) ([]*models.Invoice, error)

	// Count returns the number of invoices matching the filters
	Count(ctx context.Context, filters *InvoiceFilters) (int64, error)

	// Delete removes an invoice and its line items
	Delete(ctx context.Context, id string) error

	// NextInvoiceNumber allocates the next sequential invoice number
	NextInvoiceNumber(ctx context.Context) (string, error)
}

// SecurityAuditRepository defines operations for the security audit log.
// Its four core operations back the rate limiter's AuditStore contract;
// RecentEvents additionally serves the admin inspection endpoint.
type SecurityAuditRepository interface {
	// Append records one attempt-event
	Append(ctx context.Context, identifier, action string, at time.Time, metadata string) error

	// CountSince counts events for identifier+action at or after cutoff
	CountSince(ctx context.Context, identifier, action string, cutoff time.Time) (int, error)

	// ActiveBlock returns the stored block for identifier+action, expired
	// or not, or nil when none exists
	ActiveBlock(ctx context.Context, identifier, action string) (*models.SecurityBlock, error)

	// SetBlock creates or replaces the block for identifier+action
	SetBlock(ctx context.Context, identifier, action string, expiresAt time.Time) error

	// RecentEvents returns the latest events for an identifier, newest
	// first, across all actions
	RecentEvents(ctx context.Context, identifier string, limit int) ([]*models.SecurityEvent, error)
}

// RepositoryContainer holds all repository implementations
type RepositoryContainer struct {
	InvoiceRepo       InvoiceRepository
	SecurityAuditRepo SecurityAuditRepository
}
