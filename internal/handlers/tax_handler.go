package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"construction-invoice-api/internal/config"
	"construction-invoice-api/internal/services"
)

// TaxHandler handles CIS calculation and tax information requests
type TaxHandler struct {
	invoiceService services.InvoiceService
	taxConfig      *config.TaxSystemConfig
}

// NewTaxHandler creates a new tax handler
func NewTaxHandler(invoiceService services.InvoiceService, taxConfig *config.TaxSystemConfig) *TaxHandler {
	return &TaxHandler{
		invoiceService: invoiceService,
		taxConfig:      taxConfig,
	}
}

// TaxInfoResponse describes the supported tax modes and configured defaults
type TaxInfoResponse struct {
	VATModes                []config.VATModeInfo `json:"vat_modes"`
	CISRates                []config.CISRateInfo `json:"cis_rates"`
	DefaultVATMode          string               `json:"default_vat_mode"`
	DefaultCISRatePercent   float64              `json:"default_cis_rate_percent"`
	DefaultRetentionPercent float64              `json:"default_retention_percent"`
}

// @Summary Calculate CIS deduction
// @Description Compute the CIS deduction breakdown for a subcontractor payment
// @Tags tax
// @Accept json
// @Produce json
// @Param calculation body services.CISCalculationRequest true "CIS calculation inputs"
// @Success 200 {object} models.CISBreakdown
// @Failure 400 {object} ErrorResponse
// @Router /cis/calculate [post]
func (h *TaxHandler) CalculateCIS(c *gin.Context) {
	var req services.CISCalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	breakdown, err := h.invoiceService.CalculateCIS(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Calculation rejected",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, breakdown)
}

// @Summary Get tax information
// @Description List the supported VAT modes, CIS deduction rates and configured defaults
// @Tags tax
// @Produce json
// @Success 200 {object} TaxInfoResponse
// @Router /tax/info [get]
func (h *TaxHandler) GetTaxInfo(c *gin.Context) {
	c.JSON(http.StatusOK, TaxInfoResponse{
		VATModes:                config.SupportedVATModes(),
		CISRates:                config.SupportedCISRates(),
		DefaultVATMode:          string(h.taxConfig.DefaultVATMode),
		DefaultCISRatePercent:   h.taxConfig.DefaultCISRatePercent,
		DefaultRetentionPercent: h.taxConfig.DefaultRetentionPercent,
	})
}
