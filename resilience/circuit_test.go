package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  3,
		ResetTimeout: time.Minute,
	})

	if cb.State() != CircuitClosed {
		t.Fatalf("initial state = %v, want closed", cb.State())
	}

	for i := 0; i < 3; i++ {
		if err := cb.Allow(); err != nil {
			t.Fatalf("Allow() on closed circuit = %v", err)
		}
		cb.Record(&StatusError{Code: 503})
	}

	if cb.State() != CircuitOpen {
		t.Errorf("state after failures = %v, want open", cb.State())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() on open circuit = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Minute})

	for i := 0; i < 10; i++ {
		cb.Record(&StatusError{Code: 404})
	}

	if cb.State() != CircuitClosed {
		t.Errorf("state = %v, want closed after client errors only", cb.State())
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Minute})

	cb.Record(&StatusError{Code: 500})
	cb.Record(nil)
	cb.Record(&StatusError{Code: 500})

	if cb.State() != CircuitClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: 10 * time.Millisecond,
	})

	cb.Record(&StatusError{Code: 503})
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	time.Sleep(15 * time.Millisecond)

	if cb.State() != CircuitHalfOpen {
		t.Fatalf("state = %v, want half-open after reset timeout", cb.State())
	}
	if err := cb.Allow(); err != nil {
		t.Fatalf("probe Allow() = %v", err)
	}
	// Only one probe allowed.
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second probe Allow() = %v, want ErrCircuitOpen", err)
	}

	cb.Record(nil)
	if cb.State() != CircuitClosed {
		t.Errorf("state after successful probe = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Minute,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	cb.Record(&StatusError{Code: 500})
	cb.Reset()

	want := []string{"closed->open", "open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %q, want %q", i, transitions[i], want[i])
		}
	}
}
