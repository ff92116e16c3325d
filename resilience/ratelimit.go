package resilience

import (
	"net/http"
	"strconv"
	"time"
)

// defaultRetryAfter is used when a 429 response carries no parsable
// Retry-After header.
const defaultRetryAfter = 60 * time.Second

// RetryAfterWait converts a Retry-After header value into a wait duration.
// Both header formats are supported: an integer number of seconds and an
// RFC 7231 HTTP-date. A missing or unparsable header yields 60 seconds.
// The result is capped at the policy's MaxRateLimitWait.
func RetryAfterWait(header string, policy RetryPolicy) time.Duration {
	wait := defaultRetryAfter

	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil {
			wait = time.Duration(secs) * time.Second
		} else if at, err := http.ParseTime(header); err == nil {
			wait = time.Until(at)
		}
	}

	if wait < 0 {
		wait = 0
	}
	if wait > policy.MaxRateLimitWait {
		wait = policy.MaxRateLimitWait
	}
	return wait
}
