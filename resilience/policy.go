package resilience

import (
	"fmt"
	"time"
)

// RetryPolicy bounds the retry behavior for one class of outbound calls.
// It is an immutable value; validate it once at construction time.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of counted attempts. Must be >= 1.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Must be > 0.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff delay. Must be >= BaseDelay.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff multiplier. Must be >= 1.
	Multiplier float64

	// Timeout bounds each individual call. Must be > 0.
	Timeout time.Duration

	// MaxRateLimitWait caps how long a single 429 wait may last.
	// Must be >= 0.
	MaxRateLimitWait time.Duration
}

// DefaultPolicy returns the policy used for provider APIs when nothing else
// is configured: 3 attempts, 1s base delay doubling up to 60s, 30s per-call
// timeout, and at most 5 minutes spent honoring a single rate-limit wait.
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:      3,
		BaseDelay:        time.Second,
		MaxDelay:         60 * time.Second,
		Multiplier:       2.0,
		Timeout:          30 * time.Second,
		MaxRateLimitWait: 5 * time.Minute,
	}
}

// Validate checks the policy invariants. An invalid policy is a
// configuration error, not a runtime failure.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: MaxAttempts %d, must be >= 1", ErrInvalidPolicy, p.MaxAttempts)
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("%w: BaseDelay %v, must be > 0", ErrInvalidPolicy, p.BaseDelay)
	}
	if p.MaxDelay <= 0 {
		return fmt.Errorf("%w: MaxDelay %v, must be > 0", ErrInvalidPolicy, p.MaxDelay)
	}
	if p.MaxDelay < p.BaseDelay {
		return fmt.Errorf("%w: MaxDelay %v < BaseDelay %v", ErrInvalidPolicy, p.MaxDelay, p.BaseDelay)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("%w: Multiplier %g, must be >= 1", ErrInvalidPolicy, p.Multiplier)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("%w: Timeout %v, must be > 0", ErrInvalidPolicy, p.Timeout)
	}
	if p.MaxRateLimitWait < 0 {
		return fmt.Errorf("%w: MaxRateLimitWait %v, must be >= 0", ErrInvalidPolicy, p.MaxRateLimitWait)
	}
	return nil
}
