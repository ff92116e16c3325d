package publish

import "strings"

// nonRetryableFragments are error message fragments that mark a publish
// failure as permanent. Anything else is assumed transient.
var nonRetryableFragments = []string{
	"invalid access token",
	"invalid media",
	"policy violation",
	"permission denied",
	"media not found",
	"invalid image",
	"unsupported image format",
}

// RetryableError reports whether a publish failure message looks transient.
// Matching is case-insensitive; unknown errors default to retryable so the
// queue gets a chance to recover them.
func RetryableError(message string) bool {
	lower := strings.ToLower(message)
	for _, fragment := range nonRetryableFragments {
		if strings.Contains(lower, fragment) {
			return false
		}
	}
	return true
}
