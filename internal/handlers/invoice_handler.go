package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"construction-invoice-api/internal/models"
	"construction-invoice-api/internal/services"
)

// InvoiceHandler handles invoice-related HTTP requests
type InvoiceHandler struct {
	invoiceService services.InvoiceService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceService services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// @Summary Calculate invoice totals
// @Description Compute the full VAT, discount and retention breakdown without persisting anything
// @Tags invoices
// @Accept json
// @Produce json
// @Param calculation body services.CalculateInvoiceRequest true "Calculation inputs"
// @Success 200 {object} models.InvoiceTotals
// @Failure 400 {object} ErrorResponse
// @Router /invoices/calculate [post]
func (h *InvoiceHandler) CalculateInvoice(c *gin.Context) {
	var req services.CalculateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	totals, err := h.invoiceService.Calculate(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Calculation rejected",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, totals)
}

// @Summary Create a new invoice
// @Description Calculate and store an invoice with its line items
// @Tags invoices
// @Accept json
// @Produce json
// @Param invoice body services.CreateInvoiceRequest true "Invoice data"
// @Success 201 {object} models.Invoice
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req services.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), &req)
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Validation failed",
				Message: err.Error(),
			})
			return
		}
		if isDuplicateError(err) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "Invoice number already exists",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to create invoice",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

// @Summary Get an invoice
// @Description Retrieve a stored invoice with its line items
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} models.Invoice
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id := c.Param("id")

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		if isNotFoundError(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "Invoice not found",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to get invoice",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// @Summary List invoices
// @Description Get a page of invoices with optional filters, newest first
// @Tags invoices
// @Produce json
// @Param customer_name query string false "Filter by customer name substring"
// @Param vat_mode query string false "Filter by VAT mode" Enums(STANDARD_20, REVERSE_CHARGE_20, NO_VAT)
// @Param min_total_due query number false "Minimum total due filter"
// @Param max_total_due query number false "Maximum total due filter"
// @Param start_date query string false "Start date filter (RFC3339 format)"
// @Param end_date query string false "End date filter (RFC3339 format)"
// @Param limit query int false "Limit number of results" default(100)
// @Param offset query int false "Offset for pagination" default(0)
// @Success 200 {object} services.InvoiceListResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	req := &services.ListInvoicesRequest{}

	if customerName := c.Query("customer_name"); customerName != "" {
		req.CustomerName = &customerName
	}

	if vatMode := c.Query("vat_mode"); vatMode != "" {
		mode := models.VATMode(vatMode)
		req.VATMode = &mode
	}

	if minTotal := c.Query("min_total_due"); minTotal != "" {
		if val, err := strconv.ParseFloat(minTotal, 64); err == nil {
			req.MinTotalDue = &val
		}
	}

	if maxTotal := c.Query("max_total_due"); maxTotal != "" {
		if val, err := strconv.ParseFloat(maxTotal, 64); err == nil {
			req.MaxTotalDue = &val
		}
	}

	if startDate := c.Query("start_date"); startDate != "" {
		if val, err := time.Parse(time.RFC3339, startDate); err == nil {
			req.StartDate = &val
		}
	}

	if endDate := c.Query("end_date"); endDate != "" {
		if val, err := time.Parse(time.RFC3339, endDate); err == nil {
			req.EndDate = &val
		}
	}

	if limit := c.Query("limit"); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			req.Limit = val
		}
	}

	if offset := c.Query("offset"); offset != "" {
		if val, err := strconv.Atoi(offset); err == nil {
			req.Offset = val
		}
	}

	result, err := h.invoiceService.ListInvoices(c.Request.Context(), req)
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid filters",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list invoices",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Delete an invoice
// @Description Remove a stored invoice and its line items
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	id := c.Param("id")

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), id); err != nil {
		if isNotFoundError(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "Invoice not found",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to delete invoice",
			Message: err.Error(),
		})
		return
	}

	c.Status(http.StatusNoContent)
}
