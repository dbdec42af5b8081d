package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"construction-invoice-api/internal/models"
	"construction-invoice-api/internal/repositories"

	"github.com/sirupsen/logrus"
)

// InvoiceRepository implements the InvoiceRepository interface for SQLite
type InvoiceRepository struct {
	baseRepository
}

// NewInvoiceRepository creates a new SQLite invoice repository
func NewInvoiceRepository(db *sql.DB, logger *logrus.Logger) repositories.InvoiceRepository {
	return &InvoiceRepository{
		baseRepository: newBaseRepository(db, "invoices", logger),
	}
}

// Create stores an invoice with its line items in a single transaction
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if err := invoice.Validate(); err != nil {
		return repositories.ValidationError("invoice", invoice.InvoiceID, err)
	}

	for _, item := range invoice.LineItems {
		if err := item.Validate(); err != nil {
			return repositories.ValidationError("invoice_line_item", item.ID, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return repositories.TransactionError("begin", err)
	}
	defer tx.Rollback()

	invoiceQuery := `
		INSERT INTO invoices (
			invoice_id, invoice_number, customer_name, vat_mode, discount_percent,
			retention_percent, subtotal, discount, net_after_discount, vat_amount,
			total_before_retention, retention, total_due, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, invoiceQuery,
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
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return repositories.DuplicateError("invoice", "invoice_number", invoice.InvoiceNumber)
		}
		return repositories.NewRepositoryError("create", "invoice", invoice.InvoiceID, err)
	}

	itemQuery := `
		INSERT INTO invoice_line_items (
			id, invoice_id, description, quantity, unit_price, line_total, sort_order
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	for _, item := range invoice.LineItems {
		_, err = tx.ExecContext(ctx, itemQuery,
			item.ID,
			item.InvoiceID,
			item.Description,
			item.Quantity,
			item.UnitPrice,
			item.LineTotal,
			item.SortOrder,
		)
		if err != nil {
			return repositories.NewRepositoryError("create", "invoice_line_item", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return repositories.TransactionError("commit", err)
	}

	r.logger.WithFields(logrus.Fields{
		"invoice_id":     invoice.InvoiceID,
		"invoice_number": invoice.InvoiceNumber,
		"line_items":     len(invoice.LineItems),
		"total_due":      invoice.TotalDue,
	}).Info("Invoice created")

	return nil
}

// GetByID retrieves an invoice with its line items
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	query := `
		SELECT invoice_id, invoice_number, customer_name, vat_mode, discount_percent,
			   retention_percent, subtotal, discount, net_after_discount, vat_amount,
			   total_before_retention, retention, total_due, notes, created_at
		FROM invoices
		WHERE invoice_id = ?`

	row := r.executeQueryRow(ctx, "get_by_id", query, id)

	invoice := &models.Invoice{}
	var vatMode string
	err := row.Scan(
		&invoice.InvoiceID,
		&invoice.InvoiceNumber,
		&invoice.CustomerName,
		&vatMode,
		&invoice.DiscountPercent,
		&invoice.RetentionPercent,
		&invoice.Subtotal,
		&invoice.Discount,
		&invoice.NetAfterDiscount,
		&invoice.VATAmount,
		&invoice.TotalBeforeRetention,
		&invoice.Retention,
		&invoice.TotalDue,
		&invoice.Notes,
		&invoice.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundError("invoice", id)
		}
		return nil, repositories.NewRepositoryError("get_by_id", "invoice", id, err)
	}
	invoice.VATMode = models.VATMode(vatMode)

	items, err := r.lineItems(ctx, id)
	if err != nil {
		return nil, err
	}
	invoice.LineItems = items

	return invoice, nil
}

// lineItems loads the line items for one invoice ordered by sort order
func (r *InvoiceRepository) lineItems(ctx context.Context, invoiceID string) ([]models.InvoiceLineItem, error) {
	query := `
		SELECT id, invoice_id, description, quantity, unit_price, line_total, sort_order
		FROM invoice_line_items
		WHERE invoice_id = ?
		ORDER BY sort_order ASC`

	rows, err := r.executeQuery(ctx, "line_items", query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.InvoiceLineItem
	for rows.Next() {
		var item models.InvoiceLineItem
		if err := rows.Scan(
			&item.ID,
			&item.InvoiceID,
			&item.Description,
			&item.Quantity,
			&item.UnitPrice,
			&item.LineTotal,
			&item.SortOrder,
		); err != nil {
			return nil, repositories.NewRepositoryError("line_items", "invoice_line_item", invoiceID, err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// List retrieves invoices matching the filters, newest first
func (r *InvoiceRepository) List(ctx context.Context, filters *repositories.InvoiceFilters) ([]*models.Invoice, error) {
	where, args := buildInvoiceWhere(filters)

	query := `
		SELECT invoice_id, invoice_number, customer_name, vat_mode, discount_percent,
			   retention_percent, subtotal, discount, net_after_discount, vat_amount,
			   total_before_retention, retention, total_due, notes, created_at
		FROM invoices ` + where + `
		ORDER BY created_at DESC`

	limit := 100
	offset := 0
	if filters != nil {
		if filters.Limit > 0 {
			limit = filters.Limit
		}
		if filters.Offset > 0 {
			offset = filters.Offset
		}
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.executeQuery(ctx, "list", query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		invoice := &models.Invoice{}
		var vatMode string
		if err := rows.Scan(
			&invoice.InvoiceID,
			&invoice.InvoiceNumber,
			&invoice.CustomerName,
			&vatMode,
			&invoice.DiscountPercent,
			&invoice.RetentionPercent,
			&invoice.Subtotal,
			&invoice.Discount,
			&invoice.NetAfterDiscount,
			&invoice.VATAmount,
			&invoice.TotalBeforeRetention,
			&invoice.Retention,
			&invoice.TotalDue,
			&invoice.Notes,
			&invoice.CreatedAt,
		); err != nil {
			return nil, repositories.NewRepositoryError("list", "invoice", "", err)
		}
		invoice.VATMode = models.VATMode(vatMode)
		invoices = append(invoices, invoice)
	}

	return invoices, rows.Err()
}

// Count returns the number of invoices matching the filters
func (r *InvoiceRepository) Count(ctx context.Context, filters *repositories.InvoiceFilters) (int64, error) {
	where, args := buildInvoiceWhere(filters)

	var count int64
	row := r.executeQueryRow(ctx, "count", "SELECT COUNT(*) FROM invoices "+where, args...)
	if err := row.Scan(&count); err != nil {
		return 0, repositories.NewRepositoryError("count", "invoice", "", err)
	}

	return count, nil
}

// Delete removes an invoice; line items cascade via the schema
func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	if err := r.validateID(id); err != nil {
		return err
	}

	result, err := r.executeExec(ctx, "delete", "DELETE FROM invoices WHERE invoice_id = ?", id)
	if err != nil {
		return err
	}

	return r.checkRowsAffected(result, "delete", id)
}

// NextInvoiceNumber allocates the next sequential invoice number in the
// form INV-00042. Sequencing rides on the highest number ever issued, not
// the row count, so deleting invoices never re-issues a taken number.
// Adequate for a single-writer SQLite deployment.
func (r *InvoiceRepository) NextInvoiceNumber(ctx context.Context) (string, error) {
	query := `
		SELECT COALESCE(MAX(CAST(substr(invoice_number, 5) AS INTEGER)), 0)
		FROM invoices
		WHERE invoice_number LIKE 'INV-%'`

	var highest int64
	row := r.executeQueryRow(ctx, "next_number", query)
	if err := row.Scan(&highest); err != nil {
		return "", repositories.NewRepositoryError("next_number", "invoice", "", err)
	}

	return fmt.Sprintf("INV-%05d", highest+1), nil
}

// buildInvoiceWhere builds the WHERE clause for list/count filters
func buildInvoiceWhere(filters *repositories.InvoiceFilters) (string, []interface{}) {
	if filters == nil {
		return "", nil
	}

	var conditions []string
	var args []interface{}

	if filters.CustomerName != nil {
		conditions = append(conditions, "customer_name LIKE ?")
		args = append(args, "%"+*filters.CustomerName+"%")
	}
	if filters.VATMode != nil {
		conditions = append(conditions, "vat_mode = ?")
		args = append(args, string(*filters.VATMode))
	}
	if filters.MinTotalDue != nil {
		conditions = append(conditions, "total_due >= ?")
		args = append(args, *filters.MinTotalDue)
	}
	if filters.MaxTotalDue != nil {
		conditions = append(conditions, "total_due <= ?")
		args = append(args, *filters.MaxTotalDue)
	}
	if filters.StartDate != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *filters.StartDate)
	}
	if filters.EndDate != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *filters.EndDate)
	}

	if len(conditions) == 0 {
		return "", nil
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}
