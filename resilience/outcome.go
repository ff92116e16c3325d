package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// OutcomeKind tags the classification of one failed call. The executor loop
// dispatches on this tag instead of re-inspecting error types at every
// decision point.
type OutcomeKind int

const (
	// OutcomeRetryable covers transient infrastructure failures:
	// connection errors, timeouts, and HTTP 5xx responses. These consume
	// a retry attempt.
	OutcomeRetryable OutcomeKind = iota

	// OutcomeRateLimited covers HTTP 429 responses. The caller waits out
	// the provider's Retry-After interval without spending an attempt.
	OutcomeRateLimited

	// OutcomeNonRetryable covers client errors (4xx other than 429) and
	// anything unrecognized. These terminate the retry loop immediately.
	OutcomeNonRetryable
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRetryable:
		return "retryable"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeNonRetryable:
		return "non_retryable"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one failed call.
type Outcome struct {
	Kind OutcomeKind

	// Wait is the rate-limit wait, set only for OutcomeRateLimited.
	Wait time.Duration
}

// Classify maps an error to its retry outcome under the given policy.
func Classify(err error, policy RetryPolicy) Outcome {
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusTooManyRequests:
			return Outcome{
				Kind: OutcomeRateLimited,
				Wait: RetryAfterWait(se.RetryAfter, policy),
			}
		case se.Code >= 500:
			return Outcome{Kind: OutcomeRetryable}
		default:
			return Outcome{Kind: OutcomeNonRetryable}
		}
	}

	if isTransient(err) {
		return Outcome{Kind: OutcomeRetryable}
	}

	return Outcome{Kind: OutcomeNonRetryable}
}

// isTransient reports whether err looks like a connection-level failure or
// timeout worth retrying.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
