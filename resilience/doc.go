// Package resilience drives outbound API calls through bounded retries with
// exponential backoff, provider rate-limit handling, and an optional circuit
// breaker.
//
// The central type is Executor. It runs an operation until it succeeds, the
// retry budget is exhausted, or the failure is classified as terminal, and it
// always reports the outcome as a Result value rather than an error:
//
//	exec := resilience.NewExecutor(resilience.ExecutorConfig{
//	    Policy: resilience.DefaultPolicy(),
//	})
//
//	res := exec.ExecuteWithRetry(ctx, "instagram_publish", func(ctx context.Context) (any, error) {
//	    return callInstagram(ctx)
//	})
//	if res.Incomplete {
//	    // Retry budget exhausted on a transient failure; eligible for
//	    // durable queuing and alerting.
//	}
//
// Failures fall into three classes. Connection errors, timeouts, and HTTP
// 5xx responses are transient and consume retry attempts. HTTP 429 responses
// are provider throttling: the executor waits out the Retry-After interval
// without spending an attempt. Every other error is terminal and stops the
// loop immediately.
package resilience
