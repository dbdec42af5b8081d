package ratelimit

import "time"

// Policy configures the window/block behaviour for one action. An action
// with no explicit policy falls back to DefaultPolicy().
type Policy struct {
	// MaxAttempts is the number of attempts allowed inside Window. The
	// boundary is inclusive-on-block: the check that observes
	// count >= MaxAttempts is the one that blocks, so with MaxAttempts=5
	// the 5th call still passes and the 6th is blocked.
	MaxAttempts int `json:"max_attempts"`

	// Window is the trailing span over which attempts are counted
	Window time.Duration `json:"window"`

	// BlockDuration is how long a triggered block stays in force
	BlockDuration time.Duration `json:"block_duration"`
}

// DefaultPolicy returns the fallback policy for actions without a
// configured one
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   10,
		Window:        5 * time.Minute,
		BlockDuration: 10 * time.Minute,
	}
}

// DefaultPolicies returns the per-action defaults. Callers may override
// any of these through configuration; the evaluator itself hardcodes
// nothing.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		"login": {
			MaxAttempts:   5,
			Window:        15 * time.Minute,
			BlockDuration: 30 * time.Minute,
		},
		"password_reset": {
			MaxAttempts:   3,
			Window:        60 * time.Minute,
			BlockDuration: 60 * time.Minute,
		},
		"form_submit": {
			MaxAttempts:   10,
			Window:        5 * time.Minute,
			BlockDuration: 10 * time.Minute,
		},
		"file_upload": {
			MaxAttempts:   20,
			Window:        10 * time.Minute,
			BlockDuration: 15 * time.Minute,
		},
	}
}
