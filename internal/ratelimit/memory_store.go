package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-process AuditStore. It backs tests
// and deployments without a database, and incidentally closes the
// check/record race for single-process use since each operation holds the
// lock. Events older than retention are pruned on append.
type MemoryStore struct {
	mu        sync.Mutex
	events    map[string][]time.Time
	blocks    map[string]time.Time
	retention time.Duration
}

// NewMemoryStore creates an in-memory audit store. Retention bounds how
// long attempt-events are kept; it must be at least as long as the widest
// policy window.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &MemoryStore{
		events:    make(map[string][]time.Time),
		blocks:    make(map[string]time.Time),
		retention: retention,
	}
}

func storeKey(identifier, action string) string {
	return identifier + "\x00" + action
}

// Append records one attempt-event
func (s *MemoryStore) Append(ctx context.Context, identifier, action string, at time.Time, metadata string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey(identifier, action)
	events := append(s.events[key], at)

	// Prune anything past retention to keep memory bounded
	cutoff := at.Add(-s.retention)
	kept := events[:0]
	for _, e := range events {
		if !e.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	s.events[key] = kept

	return nil
}

// CountSince counts events at or after the cutoff
func (s *MemoryStore) CountSince(ctx context.Context, identifier, action string, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, e := range s.events[storeKey(identifier, action)] {
		if !e.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

// ActiveBlock returns the stored block, expired or not
func (s *MemoryStore) ActiveBlock(ctx context.Context, identifier, action string) (*Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.blocks[storeKey(identifier, action)]
	if !ok {
		return nil, nil
	}
	return &Block{ExpiresAt: expiresAt}, nil
}

// SetBlock creates or replaces the block
func (s *MemoryStore) SetBlock(ctx context.Context, identifier, action string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blocks[storeKey(identifier, action)] = expiresAt
	return nil
}
