package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Invoice represents a stored invoice with its calculated breakdown
type Invoice struct {
	InvoiceID        string    `json:"invoice_id" db:"invoice_id" validate:"required,uuid"`
	InvoiceNumber    string    `json:"invoice_number" db:"invoice_number" validate:"required"`
	CustomerName     string    `json:"customer_name" db:"customer_name" validate:"required,min=1,max=255"`
	VATMode          VATMode   `json:"vat_mode" db:"vat_mode"`
	DiscountPercent  float64   `json:"discount_percent" db:"discount_percent"`
	RetentionPercent float64   `json:"retention_percent" db:"retention_percent"`

	// Breakdown fields, derived via CalculateInvoiceTotals at creation time
	Subtotal             float64 `json:"subtotal" db:"subtotal"`
	Discount             float64 `json:"discount" db:"discount"`
	NetAfterDiscount     float64 `json:"net_after_discount" db:"net_after_discount"`
	VATAmount            float64 `json:"vat_amount" db:"vat_amount"`
	TotalBeforeRetention float64 `json:"total_before_retention" db:"total_before_retention"`
	Retention            float64 `json:"retention" db:"retention"`
	TotalDue             float64 `json:"total_due" db:"total_due"`

	Notes     *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Associations (not stored on the invoices row, loaded separately)
	LineItems []InvoiceLineItem `json:"line_items,omitempty"`
}

// InvoiceLineItem represents a stored line item belonging to an invoice
type InvoiceLineItem struct {
	ID          string  `json:"id" db:"id" validate:"required,uuid"`
	InvoiceID   string  `json:"invoice_id" db:"invoice_id" validate:"required,uuid"`
	Description string  `json:"description" db:"description" validate:"required,min=1,max=500"`
	Quantity    float64 `json:"quantity" db:"quantity" validate:"required,min=0"`
	UnitPrice   float64 `json:"unit_price" db:"unit_price" validate:"required,min=0"`
	LineTotal   float64 `json:"line_total" db:"line_total"`
	SortOrder   int     `json:"sort_order" db:"sort_order"`
}

// NewInvoice creates a new invoice with generated ID and timestamp
func NewInvoice(invoiceNumber, customerName string, vatMode VATMode) *Invoice {
	return &Invoice{
		InvoiceID:     uuid.New().String(),
		InvoiceNumber: invoiceNumber,
		CustomerName:  customerName,
		VATMode:       vatMode,
		CreatedAt:     time.Now().UTC(),
	}
}

// NewInvoiceLineItem creates a new line item with generated ID and
// precalculated line total
func NewInvoiceLineItem(invoiceID, description string, quantity, unitPrice float64, sortOrder int) *InvoiceLineItem {
	return &InvoiceLineItem{
		ID:          uuid.New().String(),
		InvoiceID:   invoiceID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   RoundMoney(quantity * unitPrice),
		SortOrder:   sortOrder,
	}
}

// ApplyTotals copies a calculated breakdown onto the invoice
func (i *Invoice) ApplyTotals(totals *InvoiceTotals) {
	i.Subtotal = totals.Subtotal
	i.Discount = totals.Discount
	i.NetAfterDiscount = totals.NetAfterDiscount
	i.VATAmount = totals.VATAmount
	i.TotalBeforeRetention = totals.TotalBeforeRetention
	i.Retention = totals.Retention
	i.TotalDue = totals.TotalDue
}

// Validate validates the invoice data
func (i *Invoice) Validate() error {
	if err := ValidateUUID(i.InvoiceID, "invoice ID"); err != nil {
		return err
	}

	if err := ValidateRequired(i.InvoiceNumber, "invoice number"); err != nil {
		return err
	}

	if err := ValidateRequired(i.CustomerName, "customer name"); err != nil {
		return err
	}

	if err := ValidateStringLength(i.CustomerName, "customer name", 1, 255); err != nil {
		return err
	}

	if !i.VATMode.IsValid() {
		return fmt.Errorf("invalid VAT mode: %s", i.VATMode)
	}

	if i.DiscountPercent < 0 || i.DiscountPercent > 100 {
		return fmt.Errorf("discount percent must be between 0 and 100")
	}

	if i.RetentionPercent < 0 || i.RetentionPercent > 100 {
		return fmt.Errorf("retention percent must be between 0 and 100")
	}

	if i.TotalDue < 0 {
		return fmt.Errorf("total due cannot be negative")
	}

	if i.CreatedAt.IsZero() {
		return fmt.Errorf("created at is required")
	}

	return nil
}

// Validate validates the line item data
func (li *InvoiceLineItem) Validate() error {
	if err := ValidateUUID(li.ID, "line item ID"); err != nil {
		return err
	}

	if err := ValidateUUID(li.InvoiceID, "invoice ID"); err != nil {
		return err
	}

	if err := ValidateRequired(li.Description, "description"); err != nil {
		return err
	}

	if err := ValidateNonNegative(li.Quantity, "quantity"); err != nil {
		return err
	}

	if err := ValidateNonNegative(li.UnitPrice, "unit price"); err != nil {
		return err
	}

	expectedTotal := RoundMoney(li.Quantity * li.UnitPrice)
	if abs(li.LineTotal-expectedTotal) > 0.01 {
		return fmt.Errorf("line total does not match quantity * unit price")
	}

	return nil
}

// CalcItems converts stored line items into the ephemeral calculation form
func (i *Invoice) CalcItems() []CalcLineItem {
	items := make([]CalcLineItem, len(i.LineItems))
	for idx, li := range i.LineItems {
		items[idx] = CalcLineItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
		}
	}
	return items
}

// abs returns the absolute value of a float64
func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
