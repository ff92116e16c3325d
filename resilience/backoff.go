package resilience

import (
	"math"
	"math/rand"
	"time"
)

// jitterFraction is the symmetric jitter applied to every computed delay.
// Spreading retries by up to 10% keeps concurrent callers from forming a
// synchronized retry storm.
const jitterFraction = 0.1

// ComputeDelay returns the backoff delay for a 1-indexed attempt number:
// min(base * multiplier^(attempt-1), max), with +/-10% jitter.
func ComputeDelay(policy RetryPolicy, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(policy.BaseDelay) * math.Pow(policy.Multiplier, float64(attempt-1))
	if delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}

	// #nosec G404 -- jitter is non-cryptographic timing variance.
	jitter := (rand.Float64()*2 - 1) * jitterFraction
	return time.Duration(delay * (1 + jitter))
}
