package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"construction-invoice-api/internal/config"
	"construction-invoice-api/internal/middleware"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *middleware.AuthService
	authConfig  *config.AuthConfig
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *middleware.AuthService, authConfig *config.AuthConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		authConfig:  authConfig,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserInfo  `json:"user"`
}

// UserInfo represents user information
type UserInfo struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// RefreshTokenRequest represents the refresh token request
type RefreshTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// @Summary Login
// @Description Authenticate user and return JWT token. Attempts are rate limited per client.
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	if !h.credentialsMatch(req.Username, req.Password) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "Invalid credentials",
			Message: "username or password is incorrect",
		})
		return
	}

	userID := "admin"
	username := h.authConfig.AdminUsername
	email := username + "@construction.example.com"
	roles := []string{string(middleware.RoleAdmin)}

	token, err := h.authService.GenerateToken(userID, username, email, roles)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to generate token",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		User: UserInfo{
			ID:       userID,
			Username: username,
			Email:    email,
			Roles:    roles,
		},
	})
}

// credentialsMatch checks the supplied pair against the configured admin
// credential in constant time. A blank configured password disables login
// entirely rather than accepting anything.
func (h *AuthHandler) credentialsMatch(username, password string) bool {
	if h.authConfig == nil || h.authConfig.AdminPassword == "" {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.authConfig.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(h.authConfig.AdminPassword)) == 1
	return userOK && passOK
}

// @Summary Refresh Token
// @Description Refresh an existing JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param token body RefreshTokenRequest true "Token to refresh"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	newToken, err := h.authService.RefreshToken(req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "Invalid or expired token",
			Message: err.Error(),
		})
		return
	}

	claims, err := h.authService.ValidateToken(newToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to validate new token",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     newToken,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		User: UserInfo{
			ID:       claims.UserID,
			Username: claims.Username,
			Email:    claims.Email,
			Roles:    claims.Roles,
		},
	})
}

// @Summary Get Current User
// @Description Get information about the currently authenticated user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserInfo
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, username, email, roles, ok := middleware.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "Not authenticated",
			Message: "no user in request context",
		})
		return
	}

	c.JSON(http.StatusOK, UserInfo{
		ID:       userID,
		Username: username,
		Email:    email,
		Roles:    roles,
	})
}
