package models

import (
	"fmt"
	"math"
	"time"
)

// VATMode represents the UK VAT treatment applied to an invoice
type VATMode string

const (
	// VATModeStandard20 charges 20% VAT on the document
	VATModeStandard20 VATMode = "STANDARD_20"

	// VATModeReverseCharge20 shifts the VAT liability to the recipient,
	// so 0% is charged on this document (domestic reverse charge for
	// construction services)
	VATModeReverseCharge20 VATMode = "REVERSE_CHARGE_20"

	// VATModeNoVAT applies to VAT-exempt supplies or non-registered sellers
	VATModeNoVAT VATMode = "NO_VAT"
)

// IsValid checks whether the VAT mode is one of the supported values
func (m VATMode) IsValid() bool {
	switch m {
	case VATModeStandard20, VATModeReverseCharge20, VATModeNoVAT:
		return true
	}
	return false
}

// Rate returns the VAT rate charged on the document for this mode.
// Reverse charge resolves to 0 because the buyer accounts for the VAT.
func (m VATMode) Rate() float64 {
	if m == VATModeStandard20 {
		return 0.20
	}
	return 0.0
}

// CalcLineItem represents a line item for invoice calculation.
// It is ephemeral: constructed per calculation call, no identity.
type CalcLineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// InvoiceInput aggregates everything needed to compute an invoice breakdown
type InvoiceInput struct {
	LineItems        []CalcLineItem `json:"line_items"`
	VATMode          VATMode        `json:"vat_mode"`
	DiscountPercent  float64        `json:"discount_percent"`
	RetentionPercent float64        `json:"retention_percent"`
}

// InvoiceTotals is the fully itemized monetary breakdown of an invoice.
// Every monetary field is rounded to 2 decimal places at its own
// derivation step, not just at the end.
type InvoiceTotals struct {
	Subtotal             float64   `json:"subtotal"`
	Discount             float64   `json:"discount"`
	NetAfterDiscount     float64   `json:"net_after_discount"`
	VATRate              float64   `json:"vat_rate"`
	VATAmount            float64   `json:"vat_amount"`
	TotalBeforeRetention float64   `json:"total_before_retention"`
	Retention            float64   `json:"retention"`
	TotalDue             float64   `json:"total_due"`
	CalculatedAt         time.Time `json:"calculated_at"`
}

// CalculateInvoiceTotals computes the invoice breakdown from line items and
// regional tax parameters. The function is pure: identical input always
// yields identical output, and no error is ever returned. Out-of-range
// percentages are clamped into [0,100]; an empty line item list produces a
// zeroed breakdown. Callers are responsible for rejecting negative or NaN
// quantities and prices before calling (see services.InvoiceService).
//
// Order matters: each step is rounded to 2 decimal places before feeding
// the next. Re-rounding at every stage can move the final total by up to a
// penny compared to rounding once at the end, and the former is the
// documented behaviour.
func CalculateInvoiceTotals(input *InvoiceInput) *InvoiceTotals {
	var raw float64
	for _, item := range input.LineItems {
		raw += item.Quantity * item.UnitPrice
	}
	subtotal := RoundMoney(raw)

	discountPercent := ClampPercent(input.DiscountPercent)
	discount := RoundMoney(subtotal * discountPercent / 100)
	netAfterDiscount := RoundMoney(subtotal - discount)

	vatRate := input.VATMode.Rate()
	vatAmount := RoundMoney(netAfterDiscount * vatRate)
	totalBeforeRetention := RoundMoney(netAfterDiscount + vatAmount)

	retentionPercent := ClampPercent(input.RetentionPercent)
	retention := RoundMoney(totalBeforeRetention * retentionPercent / 100)
	totalDue := RoundMoney(totalBeforeRetention - retention)

	return &InvoiceTotals{
		Subtotal:             subtotal,
		Discount:             discount,
		NetAfterDiscount:     netAfterDiscount,
		VATRate:              vatRate,
		VATAmount:            vatAmount,
		TotalBeforeRetention: totalBeforeRetention,
		Retention:            retention,
		TotalDue:             totalDue,
		CalculatedAt:         time.Now().UTC(),
	}
}

// RoundMoney rounds a monetary value to the nearest cent using
// round-half-away-from-zero. Every derived computation in this package
// must use this function so that the step-by-step rounding behaviour
// stays consistent; substituting banker's rounding or a different
// precision would change final totals by up to a penny.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// FormatCurrency renders an already-rounded amount as a fixed-format GBP
// string. This is a presentation helper, not part of the calculation
// contract; always pass values that went through RoundMoney to avoid
// display mismatches.
func FormatCurrency(amount float64) string {
	return fmt.Sprintf("£%.2f", amount)
}

// ClampPercent clamps a percentage into [0,100]. Out-of-range values are
// silently clamped, never rejected.
func ClampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
