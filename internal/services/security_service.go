package services

import (
	"context"
	"fmt"
	"strings"

	"construction-invoice-api/internal/models"
	"construction-invoice-api/internal/repositories"
)

// securityService implements the SecurityService interface
type securityService struct {
	auditRepo repositories.SecurityAuditRepository
}

// NewSecurityService creates a new security service instance
func NewSecurityService(auditRepo repositories.SecurityAuditRepository) SecurityService {
	return &securityService{
		auditRepo: auditRepo,
	}
}

// RecentEvents returns the latest audit events for an identifier
func (s *securityService) RecentEvents(ctx context.Context, identifier string, limit int) ([]*models.SecurityEvent, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, fmt.Errorf("identifier cannot be empty")
	}

	if limit <= 0 || limit > 500 {
		limit = 50
	}

	events, err := s.auditRepo.RecentEvents(ctx, identifier, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}

	return events, nil
}

// BlockStatus returns the block for an identifier+action, or nil when
// none has ever been created. Callers decide what an expired block means.
func (s *securityService) BlockStatus(ctx context.Context, identifier, action string) (*models.SecurityBlock, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, fmt.Errorf("identifier cannot be empty")
	}
	if strings.TrimSpace(action) == "" {
		return nil, fmt.Errorf("action cannot be empty")
	}

	block, err := s.auditRepo.ActiveBlock(ctx, identifier, action)
	if err != nil {
		return nil, fmt.Errorf("failed to get block status: %w", err)
	}

	return block, nil
}
