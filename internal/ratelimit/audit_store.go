package ratelimit

import (
	"context"
	"time"

	"construction-invoice-api/internal/repositories"
)

// repositoryStore adapts a SecurityAuditRepository to the AuditStore
// contract the limiter counts against
type repositoryStore struct {
	repo repositories.SecurityAuditRepository
}

// NewRepositoryStore wraps a security audit repository as an AuditStore
func NewRepositoryStore(repo repositories.SecurityAuditRepository) AuditStore {
	return &repositoryStore{repo: repo}
}

func (s *repositoryStore) Append(ctx context.Context, identifier, action string, at time.Time, metadata string) error {
	return s.repo.Append(ctx, identifier, action, at, metadata)
}

func (s *repositoryStore) CountSince(ctx context.Context, identifier, action string, cutoff time.Time) (int, error) {
	return s.repo.CountSince(ctx, identifier, action, cutoff)
}

func (s *repositoryStore) ActiveBlock(ctx context.Context, identifier, action string) (*Block, error) {
	stored, err := s.repo.ActiveBlock(ctx, identifier, action)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}
	return &Block{ExpiresAt: stored.ExpiresAt}, nil
}

func (s *repositoryStore) SetBlock(ctx context.Context, identifier, action string, expiresAt time.Time) error {
	return s.repo.SetBlock(ctx, identifier, action, expiresAt)
}
