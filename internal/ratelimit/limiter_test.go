package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

// failingStore simulates an unreachable audit store
type failingStore struct{}

var errStoreDown = errors.New("store unreachable")

func (failingStore) Append(ctx context.Context, identifier, action string, at time.Time, metadata string) error {
	return errStoreDown
}

func (failingStore) CountSince(ctx context.Context, identifier, action string, cutoff time.Time) (int, error) {
	return 0, errStoreDown
}

func (failingStore) ActiveBlock(ctx context.Context, identifier, action string) (*Block, error) {
	return nil, errStoreDown
}

func (failingStore) SetBlock(ctx context.Context, identifier, action string, expiresAt time.Time) error {
	return errStoreDown
}

func newTestLimiter(t *testing.T, opts Options) (*Limiter, *time.Time) {
	t.Helper()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewLimiter(NewMemoryStore(24*time.Hour), DefaultPolicies(), opts, nil)
	limiter.now = func() time.Time { return current }
	return limiter, &current
}

func TestLimiter_ThresholdBoundary(t *testing.T) {
	// login policy: 5 attempts / 15 min window / 30 min block. The count
	// is compared before the attempt is recorded, so the 5th call passes
	// and the 6th blocks.
	limiter, now := newTestLimiter(t, Options{})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		result := limiter.Check(ctx, "login", "user-1")
		if !result.Allowed {
			t.Fatalf("call %d: expected allowed, got %+v", i, result)
		}
		if result.Blocked {
			t.Fatalf("call %d: expected not blocked", i)
		}
		expectedRemaining := 5 - i
		if result.Remaining != expectedRemaining {
			t.Errorf("call %d: remaining = %d, want %d", i, result.Remaining, expectedRemaining)
		}
	}

	result := limiter.Check(ctx, "login", "user-1")
	if result.Allowed {
		t.Fatal("6th call: expected denied")
	}
	if !result.Blocked {
		t.Fatal("6th call: expected blocked")
	}
	if result.ResetTime == nil {
		t.Fatal("6th call: expected reset time")
	}
	expectedReset := now.Add(30 * time.Minute)
	if !result.ResetTime.Equal(expectedReset) {
		t.Errorf("reset time = %v, want %v", result.ResetTime, expectedReset)
	}
}

func TestLimiter_BlockShortCircuitsWithoutRecording(t *testing.T) {
	limiter, _ := newTestLimiter(t, Options{})
	store := limiter.store.(*MemoryStore)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		limiter.Check(ctx, "login", "user-1")
	}

	before, _ := store.CountSince(ctx, "user-1", "login", time.Time{})
	limiter.Check(ctx, "login", "user-1")
	after, _ := store.CountSince(ctx, "user-1", "login", time.Time{})

	if after != before {
		t.Errorf("blocked check recorded an attempt: %d -> %d", before, after)
	}
}

func TestLimiter_BlockExpiresAutomatically(t *testing.T) {
	limiter, now := newTestLimiter(t, Options{})
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		limiter.Check(ctx, "login", "user-1")
	}

	if result := limiter.Check(ctx, "login", "user-1"); result.Allowed {
		t.Fatal("expected block to be in force")
	}

	// 31 minutes later the block has lapsed and the old attempts have
	// fallen out of the 15 minute window, so the state reverts to open
	// with no explicit reset.
	*now = now.Add(31 * time.Minute)

	result := limiter.Check(ctx, "login", "user-1")
	if !result.Allowed {
		t.Fatalf("expected allowed after block expiry, got %+v", result)
	}
	if result.Blocked {
		t.Fatal("expected not blocked after expiry")
	}
}

func TestLimiter_WindowIsTrailing(t *testing.T) {
	limiter, now := newTestLimiter(t, Options{})
	ctx := context.Background()

	// 4 attempts now, then 16 minutes pass: they leave the 15 minute
	// window, so 5 more attempts fit before the next block.
	for i := 0; i < 4; i++ {
		limiter.Check(ctx, "login", "user-1")
	}

	*now = now.Add(16 * time.Minute)

	for i := 1; i <= 5; i++ {
		if result := limiter.Check(ctx, "login", "user-1"); !result.Allowed {
			t.Fatalf("call %d after window rollover: expected allowed", i)
		}
	}

	if result := limiter.Check(ctx, "login", "user-1"); result.Allowed {
		t.Fatal("expected block once the fresh window filled")
	}
}

func TestLimiter_IdentifiersAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, Options{})
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		limiter.Check(ctx, "login", "user-1")
	}

	if result := limiter.Check(ctx, "login", "user-2"); !result.Allowed {
		t.Error("user-2 should not be affected by user-1's block")
	}
	if result := limiter.Check(ctx, "password_reset", "user-1"); !result.Allowed {
		t.Error("a block on login should not affect password_reset")
	}
}

func TestLimiter_FailOpen(t *testing.T) {
	limiter := NewLimiter(failingStore{}, DefaultPolicies(), Options{}, nil)

	result := limiter.Check(context.Background(), "login", "user-1")
	if !result.Allowed {
		t.Errorf("expected fail-open allow on store failure, got %+v", result)
	}
	if result.Blocked {
		t.Error("store failure must not report blocked under fail-open")
	}
}

func TestLimiter_FailClosedOverride(t *testing.T) {
	limiter := NewLimiter(failingStore{}, DefaultPolicies(), Options{FailClosed: true}, nil)

	result := limiter.Check(context.Background(), "login", "user-1")
	if result.Allowed {
		t.Errorf("expected deny with FailClosed, got %+v", result)
	}
}

func TestLimiter_UnknownActionUsesDefaultPolicy(t *testing.T) {
	limiter, _ := newTestLimiter(t, Options{})
	ctx := context.Background()

	for i := 1; i <= DefaultPolicy().MaxAttempts; i++ {
		if result := limiter.Check(ctx, "export_report", "user-1"); !result.Allowed {
			t.Fatalf("call %d: expected allowed under default policy", i)
		}
	}

	if result := limiter.Check(ctx, "export_report", "user-1"); result.Allowed {
		t.Fatal("expected default policy to block after MaxAttempts")
	}
}

func TestDefaultPolicies(t *testing.T) {
	tests := []struct {
		action        string
		maxAttempts   int
		window        time.Duration
		blockDuration time.Duration
	}{
		{"login", 5, 15 * time.Minute, 30 * time.Minute},
		{"password_reset", 3, 60 * time.Minute, 60 * time.Minute},
		{"form_submit", 10, 5 * time.Minute, 10 * time.Minute},
		{"file_upload", 20, 10 * time.Minute, 15 * time.Minute},
	}

	policies := DefaultPolicies()
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			p, ok := policies[tt.action]
			if !ok {
				t.Fatalf("missing policy for %s", tt.action)
			}
			if p.MaxAttempts != tt.maxAttempts || p.Window != tt.window || p.BlockDuration != tt.blockDuration {
				t.Errorf("policy = %+v, want %d/%v/%v", p, tt.maxAttempts, tt.window, tt.blockDuration)
			}
		})
	}
}
