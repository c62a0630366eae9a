package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned while the breaker refuses calls. Callers must treat it
// as a hard decline: consistency decisions are never served from stale data.
var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

type CircuitBreaker struct {
	maxFailures     int
	window          time.Duration
	timeout         time.Duration
	failures        []time.Time
	lastFailureTime time.Time
	state           State
	mu              sync.Mutex
}

func New(maxFailures int, timeout time.Duration) *CircuitBreaker {
	return NewWithWindow(maxFailures, timeout, 60*time.Second)
}

func NewWithWindow(maxFailures int, timeout, window time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: maxFailures,
		window:      window,
		timeout:     timeout,
		state:       StateClosed,
		failures:    make([]time.Time, 0),
	}
}

// Execute runs fn unless the breaker is open. The lock is not held during fn,
// so slow collaborator calls do not serialize each other.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFailureTime) < cb.timeout {
			return ErrOpen
		}
		cb.state = StateHalfOpen
		cb.failures = cb.failures[:0]
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	cb.dropOldFailures(now)

	if err != nil {
		cb.lastFailureTime = now
		cb.failures = append(cb.failures, now)
		// Opens on the maxFailures-th failure within the window.
		if len(cb.failures) >= cb.maxFailures || cb.state == StateHalfOpen {
			cb.state = StateOpen
		}
		return
	}

	if cb.state == StateHalfOpen {
		cb.state = StateClosed
		cb.failures = cb.failures[:0]
	}
}

func (cb *CircuitBreaker) dropOldFailures(now time.Time) {
	cutoff := now.Add(-cb.window)
	kept := cb.failures[:0]
	for _, t := range cb.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	cb.failures = kept
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
