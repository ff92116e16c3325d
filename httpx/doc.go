// Package httpx wraps one HTTP client per remote API and routes every verb
// through the retry executor.
//
// A Client owns a single long-lived connection pool for its target API.
// Responses with a status of 400 or above become typed status errors so the
// executor can classify them; everything else is returned to the caller as a
// Response. Context labels follow the "{api}_{verb}" convention, which keeps
// retry logs attributable per remote system.
package httpx
