package resilience

import (
	"context"
	"time"

	"github.com/curately/postops/observe"
)

// Operation is a single outbound call. The payload is opaque to the
// executor and handed back to the caller untouched on success.
type Operation func(ctx context.Context) (any, error)

// Result is the outcome of one retried operation. Executors never report
// failure through errors; the shape of the Result encodes it.
type Result struct {
	// Success reports whether the operation eventually succeeded.
	Success bool

	// Payload is the operation's return value. Present iff Success.
	Payload any

	// Attempts is the number of counted attempts made. Rate-limit waits
	// do not count.
	Attempts int

	// Err is the last error observed. Nil iff Success.
	Err error

	// Incomplete is true only when the retry budget was exhausted on a
	// retryable failure. It distinguishes "gave up after trying" from
	// "rejected outright"; incomplete operations are eligible for durable
	// queuing and alerting.
	Incomplete bool

	// OperationID is set once the operation has been queued for later
	// replay.
	OperationID string
}

// LastError returns the last error message, or "" on success.
func (r Result) LastError() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	// Policy bounds retries, backoff, and rate-limit waits.
	// Default: DefaultPolicy().
	Policy RetryPolicy

	// Logger receives one entry per retry, rate-limit wait, and terminal
	// failure. Default: observe.NopLogger().
	Logger observe.Logger
}

// Executor drives operations through bounded retries. It is stateless and
// safe for concurrent use; one executor is typically shared by all calls to
// the same remote API.
type Executor struct {
	policy RetryPolicy
	logger observe.Logger
}

// NewExecutor creates a new retry executor. A zero-value policy is replaced
// with DefaultPolicy; a partially filled policy is the caller's
// responsibility to Validate.
func NewExecutor(config ExecutorConfig) *Executor {
	if config.Policy == (RetryPolicy{}) {
		config.Policy = DefaultPolicy()
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	return &Executor{policy: config.Policy, logger: config.Logger}
}

// Policy returns the executor's retry policy.
func (e *Executor) Policy() RetryPolicy {
	return e.policy
}

// ExecuteWithRetry runs op until it succeeds, fails terminally, or the
// retry budget runs out. It never returns an error: every outcome is a
// Result.
//
// HTTP 429 responses are waited on without consuming an attempt; the same
// attempt slot is retried until the call resolves differently. Cancelling
// ctx interrupts any in-flight call or sleep and yields a terminal result.
func (e *Executor) ExecuteWithRetry(ctx context.Context, label string, op Operation) Result {
	var lastErr error
	attempts := 0

	for attempts < e.policy.MaxAttempts {
		callCtx, cancel := context.WithTimeout(ctx, e.policy.Timeout)
		payload, err := op(callCtx)
		cancel()

		if err == nil {
			return Result{Success: true, Payload: payload, Attempts: attempts + 1}
		}
		lastErr = err

		outcome := Classify(err, e.policy)
		switch outcome.Kind {
		case OutcomeRateLimited:
			e.logger.Warn(ctx, "rate limited, waiting",
				observe.Field{Key: "context", Value: label},
				observe.Field{Key: "wait", Value: outcome.Wait.String()},
			)
			if !e.sleep(ctx, outcome.Wait) {
				return Result{Attempts: attempts + 1, Err: ctx.Err()}
			}
			// The attempt slot is not consumed.
			continue

		case OutcomeNonRetryable:
			e.logger.Error(ctx, "terminal failure, not retrying",
				observe.Field{Key: "context", Value: label},
				observe.Field{Key: "attempt", Value: attempts + 1},
				observe.Field{Key: "error", Value: err.Error()},
			)
			return Result{Attempts: attempts + 1, Err: err}

		case OutcomeRetryable:
			attempts++
			if attempts >= e.policy.MaxAttempts {
				break
			}
			delay := ComputeDelay(e.policy, attempts)
			e.logger.Warn(ctx, "retrying after failure",
				observe.Field{Key: "context", Value: label},
				observe.Field{Key: "attempt", Value: attempts},
				observe.Field{Key: "max_attempts", Value: e.policy.MaxAttempts},
				observe.Field{Key: "delay", Value: delay.String()},
				observe.Field{Key: "error", Value: err.Error()},
			)
			if !e.sleep(ctx, delay) {
				return Result{Attempts: attempts, Err: ctx.Err()}
			}
		}
	}

	e.logger.Error(ctx, "retry budget exhausted",
		observe.Field{Key: "context", Value: label},
		observe.Field{Key: "attempts", Value: attempts},
		observe.Field{Key: "error", Value: lastErr.Error()},
	)
	return Result{Attempts: attempts, Err: lastErr, Incomplete: true}
}

// sleep waits for d or until ctx is cancelled. It reports false on
// cancellation.
func (e *Executor) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
