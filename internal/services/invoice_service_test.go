package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"construction-invoice-api/internal/config"
	"construction-invoice-api/internal/models"
	"construction-invoice-api/internal/repositories"
)

// stubInvoiceRepo is an in-memory InvoiceRepository for service tests
type stubInvoiceRepo struct {
	invoices map[string]*models.Invoice
	created  []*models.Invoice
}

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{invoices: make(map[string]*models.Invoice)}
}

func (r *stubInvoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	r.invoices[invoice.InvoiceID] = invoice
	r.created = append(r.created, invoice)
	return nil
}

func (r *stubInvoiceRepo) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	invoice, ok := r.invoices[id]
	if !ok {
		return nil, repositories.NotFoundError("invoice", id)
	}
	return invoice, nil
}

func (r *stubInvoiceRepo) List(ctx context.Context, filters *repositories.InvoiceFilters) ([]*models.Invoice, error) {
	var out []*models.Invoice
	for _, invoice := range r.invoices {
		if filters != nil && filters.CustomerName != nil &&
			!strings.Contains(invoice.CustomerName, *filters.CustomerName) {
			continue
		}
		out = append(out, invoice)
	}
	return out, nil
}

func (r *stubInvoiceRepo) Count(ctx context.Context, filters *repositories.InvoiceFilters) (int64, error) {
	listed, _ := r.List(ctx, filters)
	return int64(len(listed)), nil
}

func (r *stubInvoiceRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.invoices[id]; !ok {
		return repositories.NotFoundError("invoice", id)
	}
	delete(r.invoices, id)
	return nil
}

func (r *stubInvoiceRepo) NextInvoiceNumber(ctx context.Context) (string, error) {
	return fmt.Sprintf("INV-%05d", len(r.created)+1), nil
}

func defaultTaxConfig() *config.TaxSystemConfig {
	return &config.TaxSystemConfig{
		DefaultVATMode:        models.VATModeStandard20,
		DefaultCISRatePercent: models.CISRateRegistered,
		EnforceCISRateSet:     true,
	}
}

func TestInvoiceService_Calculate(t *testing.T) {
	service := NewInvoiceService(newStubInvoiceRepo(), defaultTaxConfig())
	ctx := context.Background()

	totals, err := service.Calculate(ctx, &CalculateInvoiceRequest{
		LineItems: []LineItemRequest{
			{Description: "Labour", Quantity: 10, UnitPrice: 100.00},
		},
		VATMode:          models.VATModeStandard20,
		DiscountPercent:  10,
		RetentionPercent: 5,
	})
	if err != nil {
		t.Fatalf("Calculate() failed: %v", err)
	}

	if totals.Subtotal != 1000.00 {
		t.Errorf("Subtotal = %.2f, want 1000.00", totals.Subtotal)
	}
	if totals.TotalDue != 1026.00 {
		t.Errorf("TotalDue = %.2f, want 1026.00", totals.TotalDue)
	}
}

func TestInvoiceService_Calculate_DefaultsVATMode(t *testing.T) {
	service := NewInvoiceService(newStubInvoiceRepo(), defaultTaxConfig())

	totals, err := service.Calculate(context.Background(), &CalculateInvoiceRequest{
		LineItems: []LineItemRequest{
			{Description: "Labour", Quantity: 1, UnitPrice: 100.00},
		},
	})
	if err != nil {
		t.Fatalf("Calculate() failed: %v", err)
	}

	if totals.VATAmount != 20.00 {
		t.Errorf("VATAmount = %.2f, want 20.00 from defaulted standard rate", totals.VATAmount)
	}
}

func TestInvoiceService_Calculate_RejectsBadInput(t *testing.T) {
	service := NewInvoiceService(newStubInvoiceRepo(), defaultTaxConfig())
	ctx := context.Background()

	tests := []struct {
		name string
		req  *CalculateInvoiceRequest
	}{
		{
			name: "nil request",
			req:  nil,
		},
		{
			name: "unknown VAT mode",
			req: &CalculateInvoiceRequest{
				LineItems: []LineItemRequest{{Description: "Labour", Quantity: 1, UnitPrice: 10}},
				VATMode:   "ZERO_RATED",
			},
		},
		{
			name: "negative quantity",
			req: &CalculateInvoiceRequest{
				LineItems: []LineItemRequest{{Description: "Labour", Quantity: -1, UnitPrice: 10}},
				VATMode:   models.VATModeStandard20,
			},
		},
		{
			name: "negative unit price",
			req: &CalculateInvoiceRequest{
				LineItems: []LineItemRequest{{Description: "Labour", Quantity: 1, UnitPrice: -10}},
				VATMode:   models.VATModeStandard20,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.Calculate(ctx, tt.req); err == nil {
				t.Error("Calculate() should have failed")
			}
		})
	}
}

func TestInvoiceService_Calculate_EmptyLineItems(t *testing.T) {
	service := NewInvoiceService(newStubInvoiceRepo(), defaultTaxConfig())

	totals, err := service.Calculate(context.Background(), &CalculateInvoiceRequest{
		LineItems: []LineItemRequest{},
		VATMode:   models.VATModeStandard20,
	})
	if err != nil {
		t.Fatalf("Calculate() with empty line items failed: %v", err)
	}

	if totals.Subtotal != 0 || totals.TotalDue != 0 {
		t.Errorf("empty line items should produce a zero breakdown, got subtotal %.2f total %.2f",
			totals.Subtotal, totals.TotalDue)
	}
}

func TestInvoiceService_CalculateCIS(t *testing.T) {
	service := NewInvoiceService(newStubInvoiceRepo(), defaultTaxConfig())
	ctx := context.Background()

	rate := 30.0
	breakdown, err := service.CalculateCIS(ctx, &CISCalculationRequest{
		Gross:          1000.00,
		Materials:      200.00,
		CISRatePercent: &rate,
	})
	if err != nil {
		t.Fatalf("CalculateCIS() failed: %v", err)
	}

	if breakdown.CISDeduction != 240.00 {
		t.Errorf("CISDeduction = %.2f, want 240.00", breakdown.CISDeduction)
	}
	if breakdown.NetPaid != 760.00 {
		t.Errorf("NetPaid = %.2f, want 760.00", breakdown.NetPaid)
	}
}

func TestInvoiceService_CalculateCIS_DefaultRate(t *testing.T) {
	service := NewInvoiceService(newStubInvoiceRepo(), defaultTaxConfig())

	breakdown, err := service.CalculateCIS(context.Background(), &CISCalculationRequest{
		Gross:     1000.00,
		Materials: 0,
	})
	if err != nil {
		t.Fatalf("CalculateCIS() failed: %v", err)
	}

	// Configured default is the registered 20% rate
	if breakdown.CISDeduction != 200.00 {
		t.Errorf("CISDeduction = %.2f, want 200.00", breakdown.CISDeduction)
	}
}

func TestInvoiceService_CalculateCIS_RateEnforcement(t *testing.T) {
	ctx := context.Background()
	rate := 12.5

	enforcing := NewInvoiceService(newStubInvoiceRepo(), defaultTaxConfig())
	if _, err := enforcing.CalculateCIS(ctx, &CISCalculationRequest{Gross: 1000, CISRatePercent: &rate}); err == nil {
		t.Error("CalculateCIS() with non-HMRC rate should fail when enforcement is on")
	}

	relaxed := defaultTaxConfig()
	relaxed.EnforceCISRateSet = false
	service := NewInvoiceService(newStubInvoiceRepo(), relaxed)

	breakdown, err := service.CalculateCIS(ctx, &CISCalculationRequest{Gross: 1000, CISRatePercent: &rate})
	if err != nil {
		t.Fatalf("CalculateCIS() with enforcement off failed: %v", err)
	}
	if breakdown.CISDeduction != 125.00 {
		t.Errorf("CISDeduction = %.2f, want 125.00", breakdown.CISDeduction)
	}
}

func TestInvoiceService_CreateInvoice(t *testing.T) {
	repo := newStubInvoiceRepo()
	service := NewInvoiceService(repo, defaultTaxConfig())
	ctx := context.Background()

	invoice, err := service.CreateInvoice(ctx, &CreateInvoiceRequest{
		CustomerName: "Acme Builders Ltd",
		LineItems: []LineItemRequest{
			{Description: "Groundworks", Quantity: 10, UnitPrice: 100.00},
		},
		VATMode:          models.VATModeStandard20,
		DiscountPercent:  10,
		RetentionPercent: 5,
	})
	if err != nil {
		t.Fatalf("CreateInvoice() failed: %v", err)
	}

	if invoice.InvoiceNumber != "INV-00001" {
		t.Errorf("InvoiceNumber = %s, want INV-00001", invoice.InvoiceNumber)
	}
	if invoice.TotalDue != 1026.00 {
		t.Errorf("TotalDue = %.2f, want 1026.00", invoice.TotalDue)
	}
	if len(invoice.LineItems) != 1 {
		t.Fatalf("LineItems count = %d, want 1", len(invoice.LineItems))
	}
	if invoice.LineItems[0].LineTotal != 1000.00 {
		t.Errorf("LineTotal = %.2f, want 1000.00", invoice.LineItems[0].LineTotal)
	}

	if len(repo.created) != 1 {
		t.Errorf("repository recorded %d creates, want 1", len(repo.created))
	}
}

func TestInvoiceService_CreateInvoice_RequiresLineItems(t *testing.T) {
	service := NewInvoiceService(newStubInvoiceRepo(), defaultTaxConfig())

	_, err := service.CreateInvoice(context.Background(), &CreateInvoiceRequest{
		CustomerName: "Acme Builders Ltd",
		VATMode:      models.VATModeStandard20,
	})
	if err == nil {
		t.Error("CreateInvoice() without line items should fail")
	}
}

func TestInvoiceService_CreateInvoice_ClampsPercentages(t *testing.T) {
	repo := newStubInvoiceRepo()
	service := NewInvoiceService(repo, defaultTaxConfig())

	invoice, err := service.CreateInvoice(context.Background(), &CreateInvoiceRequest{
		CustomerName: "Acme Builders Ltd",
		LineItems: []LineItemRequest{
			{Description: "Labour", Quantity: 1, UnitPrice: 100.00},
		},
		VATMode:          models.VATModeNoVAT,
		DiscountPercent:  150,
		RetentionPercent: -10,
	})
	if err != nil {
		t.Fatalf("CreateInvoice() failed: %v", err)
	}

	if invoice.DiscountPercent != 100 {
		t.Errorf("DiscountPercent = %.2f, want clamped 100", invoice.DiscountPercent)
	}
	if invoice.RetentionPercent != 0 {
		t.Errorf("RetentionPercent = %.2f, want clamped 0", invoice.RetentionPercent)
	}
	if invoice.TotalDue != 0 {
		t.Errorf("TotalDue = %.2f, want 0 after 100%% discount", invoice.TotalDue)
	}
}

func TestInvoiceService_ListInvoices_Defaults(t *testing.T) {
	repo := newStubInvoiceRepo()
	service := NewInvoiceService(repo, defaultTaxConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := service.CreateInvoice(ctx, &CreateInvoiceRequest{
			CustomerName: fmt.Sprintf("Customer %d", i),
			LineItems: []LineItemRequest{
				{Description: "Labour", Quantity: 1, UnitPrice: 50.00},
			},
			VATMode: models.VATModeStandard20,
		})
		if err != nil {
			t.Fatalf("CreateInvoice() failed: %v", err)
		}
	}

	result, err := service.ListInvoices(ctx, nil)
	if err != nil {
		t.Fatalf("ListInvoices() failed: %v", err)
	}

	if result.Total != 3 {
		t.Errorf("Total = %d, want 3", result.Total)
	}
	if result.Limit != 100 {
		t.Errorf("Limit = %d, want default 100", result.Limit)
	}
}

func TestInvoiceService_GetAndDelete(t *testing.T) {
	repo := newStubInvoiceRepo()
	service := NewInvoiceService(repo, defaultTaxConfig())
	ctx := context.Background()

	created, err := service.CreateInvoice(ctx, &CreateInvoiceRequest{
		CustomerName: "Acme Builders Ltd",
		LineItems: []LineItemRequest{
			{Description: "Labour", Quantity: 1, UnitPrice: 100.00},
		},
		VATMode: models.VATModeStandard20,
	})
	if err != nil {
		t.Fatalf("CreateInvoice() failed: %v", err)
	}

	got, err := service.GetInvoice(ctx, created.InvoiceID)
	if err != nil {
		t.Fatalf("GetInvoice() failed: %v", err)
	}
	if got.InvoiceID != created.InvoiceID {
		t.Errorf("InvoiceID = %s, want %s", got.InvoiceID, created.InvoiceID)
	}

	if err := service.DeleteInvoice(ctx, created.InvoiceID); err != nil {
		t.Fatalf("DeleteInvoice() failed: %v", err)
	}

	if _, err := service.GetInvoice(ctx, created.InvoiceID); err == nil {
		t.Error("GetInvoice() after delete should fail")
	}

	if _, err := service.GetInvoice(ctx, ""); err == nil {
		t.Error("GetInvoice() with empty ID should fail")
	}
}

// stubAuditRepo is an in-memory SecurityAuditRepository for service tests
type stubAuditRepo struct {
	events []*models.SecurityEvent
	blocks map[string]*models.SecurityBlock
}

func newStubAuditRepo() *stubAuditRepo {
	return &stubAuditRepo{blocks: make(map[string]*models.SecurityBlock)}
}

func (r *stubAuditRepo) Append(ctx context.Context, identifier, action string, at time.Time, metadata string) error {
	var meta *string
	if metadata != "" {
		meta = &metadata
	}
	r.events = append(r.events, &models.SecurityEvent{
		ID:         fmt.Sprintf("evt-%d", len(r.events)+1),
		Identifier: identifier,
		Action:     action,
		Metadata:   meta,
		CreatedAt:  at,
	})
	return nil
}

func (r *stubAuditRepo) CountSince(ctx context.Context, identifier, action string, cutoff time.Time) (int, error) {
	count := 0
	for _, event := range r.events {
		if event.Identifier == identifier && event.Action == action && !event.CreatedAt.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

func (r *stubAuditRepo) ActiveBlock(ctx context.Context, identifier, action string) (*models.SecurityBlock, error) {
	return r.blocks[identifier+"/"+action], nil
}

func (r *stubAuditRepo) SetBlock(ctx context.Context, identifier, action string, expiresAt time.Time) error {
	r.blocks[identifier+"/"+action] = &models.SecurityBlock{
		Identifier: identifier,
		Action:     action,
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now().UTC(),
	}
	return nil
}

func (r *stubAuditRepo) RecentEvents(ctx context.Context, identifier string, limit int) ([]*models.SecurityEvent, error) {
	var out []*models.SecurityEvent
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.events[i].Identifier == identifier {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}

func TestSecurityService_RecentEvents(t *testing.T) {
	repo := newStubAuditRepo()
	service := NewSecurityService(repo)
	ctx := context.Background()

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		if err := repo.Append(ctx, "user@example.com", models.ActionLogin, now.Add(time.Duration(i)*time.Second), ""); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}

	events, err := service.RecentEvents(ctx, "user@example.com", 2)
	if err != nil {
		t.Fatalf("RecentEvents() failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("RecentEvents() returned %d events, want 2", len(events))
	}

	if _, err := service.RecentEvents(ctx, "  ", 10); err == nil {
		t.Error("RecentEvents() with blank identifier should fail")
	}
}

func TestSecurityService_BlockStatus(t *testing.T) {
	repo := newStubAuditRepo()
	service := NewSecurityService(repo)
	ctx := context.Background()

	block, err := service.BlockStatus(ctx, "user@example.com", models.ActionLogin)
	if err != nil {
		t.Fatalf("BlockStatus() failed: %v", err)
	}
	if block != nil {
		t.Error("BlockStatus() without a block should return nil")
	}

	expires := time.Now().UTC().Add(30 * time.Minute)
	if err := repo.SetBlock(ctx, "user@example.com", models.ActionLogin, expires); err != nil {
		t.Fatalf("SetBlock() failed: %v", err)
	}

	block, err = service.BlockStatus(ctx, "user@example.com", models.ActionLogin)
	if err != nil {
		t.Fatalf("BlockStatus() failed: %v", err)
	}
	if block == nil || !block.ExpiresAt.Equal(expires) {
		t.Error("BlockStatus() did not return the stored block")
	}

	if _, err := service.BlockStatus(ctx, "user@example.com", ""); err == nil {
		t.Error("BlockStatus() with blank action should fail")
	}
}
