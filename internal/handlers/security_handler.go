package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"construction-invoice-api/internal/services"
)

// SecurityHandler exposes the security audit log for inspection
type SecurityHandler struct {
	securityService services.SecurityService
}

// NewSecurityHandler creates a new security handler
func NewSecurityHandler(securityService services.SecurityService) *SecurityHandler {
	return &SecurityHandler{
		securityService: securityService,
	}
}

// BlockStatusResponse reports whether an identifier+action pair is blocked
type BlockStatusResponse struct {
	Identifier string `json:"identifier"`
	Action     string `json:"action"`
	Blocked    bool   `json:"blocked"`
	ExpiresAt  string `json:"expires_at,omitempty"`
}

// @Summary List recent security events
// @Description Get the latest audit events for an identifier, newest first
// @Tags security
// @Produce json
// @Param identifier query string true "Identifier (account or client IP)"
// @Param limit query int false "Limit number of results" default(50)
// @Success 200 {array} models.SecurityEvent
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /security/events [get]
func (h *SecurityHandler) ListEvents(c *gin.Context) {
	identifier := c.Query("identifier")
	if identifier == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Missing identifier",
			Message: "identifier query parameter is required",
		})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil {
			limit = val
		}
	}

	events, err := h.securityService.RecentEvents(c.Request.Context(), identifier, limit)
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "Invalid request",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list security events",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, events)
}

// @Summary Get block status
// @Description Report whether an identifier is currently blocked for an action
// @Tags security
// @Produce json
// @Param identifier query string true "Identifier (account or client IP)"
// @Param action query string true "Action name" Enums(login, password_reset, form_submit, file_upload)
// @Success 200 {object} BlockStatusResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /security/blocks [get]
func (h *SecurityHandler) GetBlockStatus(c *gin.Context) {
	identifier := c.Query("identifier")
	action := c.Query("action")
	if identifier == "" || action == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Missing parameters",
			Message: "identifier and action query parameters are required",
		})
		return
	}

	block, err := h.securityService.BlockStatus(c.Request.Context(), identifier, action)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to get block status",
			Message: err.Error(),
		})
		return
	}

	response := BlockStatusResponse{
		Identifier: identifier,
		Action:     action,
	}
	if block != nil && block.Active(time.Now().UTC()) {
		response.Blocked = true
		response.ExpiresAt = block.ExpiresAt.UTC().Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, response)
}
