package sqlite

import (
	"context"
	"testing"
	"time"

	"construction-invoice-api/internal/models"
)

func TestSecurityAuditRepository_AppendAndCountSince(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSecurityAuditRepository(db, testLogger())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		if err := repo.Append(ctx, "user@example.com", models.ActionLogin, at, ""); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}

	// An event for a different action must not be counted
	if err := repo.Append(ctx, "user@example.com", models.ActionPasswordReset, base, ""); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	count, err := repo.CountSince(ctx, "user@example.com", models.ActionLogin, base)
	if err != nil {
		t.Fatalf("CountSince() failed: %v", err)
	}
	if count != 4 {
		t.Errorf("CountSince() = %d, want 4", count)
	}

	// Cutoff excludes events strictly before it
	count, err = repo.CountSince(ctx, "user@example.com", models.ActionLogin, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("CountSince() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("CountSince() with later cutoff = %d, want 2", count)
	}

	count, err = repo.CountSince(ctx, "other@example.com", models.ActionLogin, base)
	if err != nil {
		t.Fatalf("CountSince() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("CountSince() for other identifier = %d, want 0", count)
	}
}

func TestSecurityAuditRepository_Blocks(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSecurityAuditRepository(db, testLogger())
	ctx := context.Background()

	block, err := repo.ActiveBlock(ctx, "user@example.com", models.ActionLogin)
	if err != nil {
		t.Fatalf("ActiveBlock() failed: %v", err)
	}
	if block != nil {
		t.Fatal("ActiveBlock() before any SetBlock should return nil")
	}

	first := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	if err := repo.SetBlock(ctx, "user@example.com", models.ActionLogin, first); err != nil {
		t.Fatalf("SetBlock() failed: %v", err)
	}

	block, err = repo.ActiveBlock(ctx, "user@example.com", models.ActionLogin)
	if err != nil {
		t.Fatalf("ActiveBlock() failed: %v", err)
	}
	if block == nil {
		t.Fatal("ActiveBlock() after SetBlock returned nil")
	}
	if !block.ExpiresAt.Equal(first) {
		t.Errorf("ExpiresAt = %v, want %v", block.ExpiresAt, first)
	}

	// Setting again for the same pair replaces the expiry
	second := first.Add(30 * time.Minute)
	if err := repo.SetBlock(ctx, "user@example.com", models.ActionLogin, second); err != nil {
		t.Fatalf("SetBlock() upsert failed: %v", err)
	}

	block, err = repo.ActiveBlock(ctx, "user@example.com", models.ActionLogin)
	if err != nil {
		t.Fatalf("ActiveBlock() failed: %v", err)
	}
	if !block.ExpiresAt.Equal(second) {
		t.Errorf("ExpiresAt after upsert = %v, want %v", block.ExpiresAt, second)
	}

	// Blocks are scoped to the identifier+action pair
	block, err = repo.ActiveBlock(ctx, "user@example.com", models.ActionFormSubmit)
	if err != nil {
		t.Fatalf("ActiveBlock() failed: %v", err)
	}
	if block != nil {
		t.Error("block for a different action should be nil")
	}
}

func TestSecurityAuditRepository_RecentEvents(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSecurityAuditRepository(db, testLogger())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	actions := []string{models.ActionLogin, models.ActionLogin, models.ActionFileUpload}
	for i, action := range actions {
		if err := repo.Append(ctx, "user@example.com", action, base.Add(time.Duration(i)*time.Second), "{\"ip\":\"10.0.0.1\"}"); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}

	events, err := repo.RecentEvents(ctx, "user@example.com", 2)
	if err != nil {
		t.Fatalf("RecentEvents() failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("RecentEvents() returned %d events, want 2", len(events))
	}

	// Newest first
	if events[0].Action != models.ActionFileUpload {
		t.Errorf("events[0].Action = %s, want %s", events[0].Action, models.ActionFileUpload)
	}
	if events[0].Metadata == nil || *events[0].Metadata != "{\"ip\":\"10.0.0.1\"}" {
		t.Error("metadata was not round-tripped")
	}

	events, err = repo.RecentEvents(ctx, "nobody@example.com", 10)
	if err != nil {
		t.Fatalf("RecentEvents() failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("RecentEvents() for unknown identifier = %d events, want 0", len(events))
	}
}
