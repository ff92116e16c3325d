// Package pipeline is the single entry point external code should use for
// outbound calls: execute with retries, and when the retry budget is
// exhausted on a transient failure, persist the operation for later replay
// and alert operators.
//
// Queuing and alerting are both best-effort. A queuing failure does not
// prevent the alert, and neither failure changes the returned result's
// success semantics.
package pipeline
