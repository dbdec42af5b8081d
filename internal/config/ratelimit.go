package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"construction-invoice-api/internal/ratelimit"
)

// RateLimitConfig holds configuration for the abuse-decision engine
type RateLimitConfig struct {
	Enabled      bool                        `json:"enabled" env:"RATE_LIMIT_ENABLED" default:"true"`
	FailClosed   bool                        `json:"fail_closed" env:"RATE_LIMIT_FAIL_CLOSED" default:"false"`
	StoreTimeout time.Duration               `json:"store_timeout" env:"RATE_LIMIT_STORE_TIMEOUT" default:"3s"`
	Policies     map[string]ratelimit.Policy `json:"policies"`
}

// LoadRateLimitConfig loads rate limit configuration from environment
// variables. Per-action policies start from the built-in defaults and can
// be overridden via RATE_LIMIT_<ACTION>_MAX_ATTEMPTS, _WINDOW and
// _BLOCK_DURATION (durations in Go syntax, e.g. "15m").
func LoadRateLimitConfig() (*RateLimitConfig, error) {
	config := &RateLimitConfig{
		Enabled:      GetEnvAsBool("RATE_LIMIT_ENABLED", true),
		FailClosed:   GetEnvAsBool("RATE_LIMIT_FAIL_CLOSED", false),
		StoreTimeout: 3 * time.Second,
		Policies:     ratelimit.DefaultPolicies(),
	}

	if timeout := os.Getenv("RATE_LIMIT_STORE_TIMEOUT"); timeout != "" {
		val, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_STORE_TIMEOUT: %w", err)
		}
		if val <= 0 {
			return nil, fmt.Errorf("RATE_LIMIT_STORE_TIMEOUT must be positive, got %s", val)
		}
		config.StoreTimeout = val
	}

	for action, policy := range config.Policies {
		overridden, err := applyPolicyOverrides(action, policy)
		if err != nil {
			return nil, err
		}
		config.Policies[action] = overridden
	}

	return config, nil
}

// Options converts the config into limiter options
func (c *RateLimitConfig) Options() ratelimit.Options {
	return ratelimit.Options{
		StoreTimeout: c.StoreTimeout,
		FailClosed:   c.FailClosed,
	}
}

// applyPolicyOverrides applies env var overrides for one action's policy
func applyPolicyOverrides(action string, policy ratelimit.Policy) (ratelimit.Policy, error) {
	prefix := "RATE_LIMIT_" + strings.ToUpper(action) + "_"

	if raw := os.Getenv(prefix + "MAX_ATTEMPTS"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val < 1 {
			return policy, fmt.Errorf("invalid %sMAX_ATTEMPTS: %q", prefix, raw)
		}
		policy.MaxAttempts = val
	}

	if raw := os.Getenv(prefix + "WINDOW"); raw != "" {
		val, err := time.ParseDuration(raw)
		if err != nil || val <= 0 {
			return policy, fmt.Errorf("invalid %sWINDOW: %q", prefix, raw)
		}
		policy.Window = val
	}

	if raw := os.Getenv(prefix + "BLOCK_DURATION"); raw != "" {
		val, err := time.ParseDuration(raw)
		if err != nil || val <= 0 {
			return policy, fmt.Errorf("invalid %sBLOCK_DURATION: %q", prefix, raw)
		}
		policy.BlockDuration = val
	}

	return policy, nil
}
