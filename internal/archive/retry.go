package archive

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy configures retry behavior for transient archive failures
type RetryPolicy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

// DefaultRetryPolicy returns a policy suitable for local disk hiccups
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
}

// RetryStore wraps a Store and retries operations that fail with a
// retryable error, using exponential backoff between attempts.
type RetryStore struct {
	store  Store
	policy RetryPolicy
}

// NewRetryStore creates a RetryStore wrapping the given store
func NewRetryStore(store Store, policy RetryPolicy) *RetryStore {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &RetryStore{store: store, policy: policy}
}

func (r *RetryStore) Put(ctx context.Context, key string, data []byte) error {
	return r.withRetry(ctx, func() error {
		return r.store.Put(ctx, key, data)
	})
}

func (r *RetryStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.withRetry(ctx, func() error {
		var getErr error
		data, getErr = r.store.Get(ctx, key)
		return getErr
	})
	return data, err
}

func (r *RetryStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.withRetry(ctx, func() error {
		var existsErr error
		exists, existsErr = r.store.Exists(ctx, key)
		return existsErr
	})
	return exists, err
}

func (r *RetryStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := r.withRetry(ctx, func() error {
		var listErr error
		keys, listErr = r.store.List(ctx, prefix)
		return listErr
	})
	return keys, err
}

func (r *RetryStore) Delete(ctx context.Context, key string) error {
	return r.withRetry(ctx, func() error {
		return r.store.Delete(ctx, key)
	})
}

func (r *RetryStore) withRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	delay := r.policy.InitialDelay

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		wait := delay
		if r.policy.JitterEnabled {
			// Up to 10% jitter so concurrent retries spread out
			jitter := time.Duration(rand.Int63n(int64(delay)/10 + 1))
			wait += jitter
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * r.policy.BackoffFactor)
		if delay > r.policy.MaxDelay {
			delay = r.policy.MaxDelay
		}
	}

	return lastErr
}
