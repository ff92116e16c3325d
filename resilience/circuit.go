package resilience

import (
	"sync"
	"time"
)

// CircuitState represents the circuit breaker state.
type CircuitState int

const (
	// CircuitClosed means calls flow through normally.
	CircuitClosed CircuitState = iota
	// CircuitOpen means calls are rejected without reaching the API.
	CircuitOpen
	// CircuitHalfOpen means a limited number of probe calls are allowed.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a per-API circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive transient failures before
	// the circuit opens. Default: 5
	MaxFailures int

	// ResetTimeout is how long an open circuit waits before allowing a
	// probe call. Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxProbes is the max probe calls allowed while half-open.
	// Default: 1
	HalfOpenMaxProbes int

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to CircuitState)

	// IsFailure decides whether an error trips the breaker. The default
	// counts only transient failures: client errors say nothing about
	// the provider's availability.
	IsFailure func(err error) bool
}

// CircuitBreaker guards one remote API. When the API keeps failing
// transiently, the breaker opens and callers fail fast with ErrCircuitOpen
// instead of burning their retry budgets against a dead upstream.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu          sync.Mutex
	state       CircuitState
	failures    int
	lastFailure time.Time
	probes      int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxProbes <= 0 {
		config.HalfOpenMaxProbes = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool {
			if err == nil {
				return false
			}
			return Classify(err, DefaultPolicy()).Kind == OutcomeRetryable
		}
	}

	return &CircuitBreaker{config: config, state: CircuitClosed}
}

// Allow reports whether a call may proceed. Rejected calls should surface
// ErrCircuitOpen.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case CircuitOpen:
		return ErrCircuitOpen
	case CircuitHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxProbes {
			return ErrCircuitOpen
		}
		cb.probes++
	}
	return nil
}

// Record feeds the outcome of a completed call into the breaker.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	isFailure := cb.config.IsFailure(err)
	oldState := cb.state

	switch cb.state {
	case CircuitClosed:
		if isFailure {
			cb.failures++
			cb.lastFailure = time.Now()
			if cb.failures >= cb.config.MaxFailures {
				cb.state = CircuitOpen
			}
		} else {
			cb.failures = 0
		}

	case CircuitHalfOpen:
		if isFailure {
			cb.lastFailure = time.Now()
			cb.state = CircuitOpen
		} else {
			cb.state = CircuitClosed
			cb.failures = 0
		}
	}

	if oldState != cb.state && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, cb.state)
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Reset closes the circuit and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state
	cb.state = CircuitClosed
	cb.failures = 0
	cb.probes = 0

	if oldState != CircuitClosed && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, CircuitClosed)
	}
}

func (cb *CircuitBreaker) currentStateLocked() CircuitState {
	if cb.state == CircuitOpen && time.Since(cb.lastFailure) >= cb.config.ResetTimeout {
		cb.state = CircuitHalfOpen
		cb.probes = 0
		if cb.config.OnStateChange != nil {
			cb.config.OnStateChange(CircuitOpen, CircuitHalfOpen)
		}
	}
	return cb.state
}
