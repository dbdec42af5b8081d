package ratelimit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Block is an active block record for an identifier+action pair
type Block struct {
	ExpiresAt time.Time
}

// AuditStore is the append-only event store the limiter counts against.
// Any storage that can append a timestamped event, count events newer
// than a cutoff, and store/retrieve a block expiry satisfies it. All
// methods must honour the context deadline.
type AuditStore interface {
	// Append records one attempt-event for the identifier+action
	Append(ctx context.Context, identifier, action string, at time.Time, metadata string) error

	// CountSince returns the number of events for identifier+action with
	// timestamp >= cutoff
	CountSince(ctx context.Context, identifier, action string, cutoff time.Time) (int, error)

	// ActiveBlock returns the stored block for identifier+action, or nil
	// if none has ever been created. Expired blocks are returned as-is;
	// the limiter decides whether they still apply.
	ActiveBlock(ctx context.Context, identifier, action string) (*Block, error)

	// SetBlock creates or replaces the block for identifier+action
	SetBlock(ctx context.Context, identifier, action string, expiresAt time.Time) error
}

// Result is the outcome of a rate limit check
type Result struct {
	Allowed   bool       `json:"allowed"`
	Blocked   bool       `json:"blocked"`
	Remaining int        `json:"remaining"`
	ResetTime *time.Time `json:"reset_time,omitempty"`
}

// Options tunes limiter behaviour beyond the per-action policies
type Options struct {
	// StoreTimeout bounds each storage round trip. A timeout counts as a
	// storage failure. Defaults to 3 seconds.
	StoreTimeout time.Duration

	// FailClosed flips the failure policy: when true, storage failures
	// deny the action instead of allowing it. The default (false)
	// preserves the documented fail-open behaviour, which trades a
	// security edge for not locking users out during an outage.
	FailClosed bool
}

// Limiter decides whether an action is currently allowed for an
// identifier and records the attempt. One policy evaluator covers every
// guarded action; storage is delegated to an AuditStore.
type Limiter struct {
	store    AuditStore
	policies map[string]Policy
	opts     Options
	logger   *logrus.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewLimiter creates a limiter over the given store. A nil policies map
// falls back to DefaultPolicies.
func NewLimiter(store AuditStore, policies map[string]Policy, opts Options, logger *logrus.Logger) *Limiter {
	if policies == nil {
		policies = DefaultPolicies()
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Limiter{
		store:    store,
		policies: policies,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Policy returns the effective policy for an action
func (l *Limiter) Policy(action string) Policy {
	if p, ok := l.policies[action]; ok {
		return p
	}
	return DefaultPolicy()
}

// Check decides whether the action is allowed for the identifier right
// now, recording the attempt when it is. The check order is load-bearing:
//
//  1. an unexpired stored block short-circuits to denied without
//     recording an attempt;
//  2. otherwise the window count is compared against MaxAttempts before
//     this attempt is recorded, so the call that observes the count at
//     the limit is the one that creates the block;
//  3. otherwise the attempt is recorded and allowed.
//
// Storage failures at any step follow the configured failure policy
// (fail-open by default).
func (l *Limiter) Check(ctx context.Context, action, identifier string) Result {
	policy := l.Policy(action)
	now := l.now()

	ctx, cancel := context.WithTimeout(ctx, l.opts.StoreTimeout)
	defer cancel()

	block, err := l.store.ActiveBlock(ctx, identifier, action)
	if err != nil {
		return l.storeFailure(action, identifier, "active block lookup failed", err, policy)
	}
	if block != nil && now.Before(block.ExpiresAt) {
		reset := block.ExpiresAt
		return Result{Allowed: false, Blocked: true, Remaining: 0, ResetTime: &reset}
	}

	cutoff := now.Add(-policy.Window)
	count, err := l.store.CountSince(ctx, identifier, action, cutoff)
	if err != nil {
		return l.storeFailure(action, identifier, "window count failed", err, policy)
	}

	if count >= policy.MaxAttempts {
		expiresAt := now.Add(policy.BlockDuration)
		if err := l.store.SetBlock(ctx, identifier, action, expiresAt); err != nil {
			// The decision to block stands even if persisting it fails;
			// the next check will re-count the window and block again.
			l.logger.WithFields(logrus.Fields{
				"action":     action,
				"identifier": identifier,
				"error":      err.Error(),
			}).Error("Failed to persist rate limit block")
		}
		l.logger.WithFields(logrus.Fields{
			"action":     action,
			"identifier": identifier,
			"attempts":   count,
			"expires_at": expiresAt,
		}).Warn("Rate limit exceeded, block created")
		return Result{Allowed: false, Blocked: true, Remaining: 0, ResetTime: &expiresAt}
	}

	if err := l.store.Append(ctx, identifier, action, now, ""); err != nil {
		// The attempt could not be recorded but the caller is within the
		// limit; failing the request here would be failing closed.
		l.logger.WithFields(logrus.Fields{
			"action":     action,
			"identifier": identifier,
			"error":      err.Error(),
		}).Warn("Failed to record rate limit attempt")
	}

	return Result{Allowed: true, Blocked: false, Remaining: policy.MaxAttempts - count - 1}
}

// storeFailure applies the configured failure policy when the audit store
// is unreachable
func (l *Limiter) storeFailure(action, identifier, msg string, err error, policy Policy) Result {
	l.logger.WithFields(logrus.Fields{
		"action":      action,
		"identifier":  identifier,
		"error":       err.Error(),
		"fail_closed": l.opts.FailClosed,
	}).Warn("Rate limit store failure: " + msg)

	if l.opts.FailClosed {
		return Result{Allowed: false, Blocked: true, Remaining: 0}
	}
	return Result{Allowed: true, Blocked: false, Remaining: policy.MaxAttempts - 1}
}
