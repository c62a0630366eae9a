package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func failAlways() error { return errBoom }
func succeed() error    { return nil }

func TestStaysClosedUnderThreshold(t *testing.T) {
	cb := New(3, time.Minute)

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(failAlways), errBoom)
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestOpensAtThreshold(t *testing.T) {
	cb := New(3, time.Minute)

	// Exactly maxFailures failures open the breaker.
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(failAlways), errBoom)
	}
	assert.Equal(t, StateOpen, cb.GetState())

	// Open breaker refuses the call outright.
	err := cb.Execute(succeed)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestHalfOpenRecovery(t *testing.T) {
	cb := New(1, 10*time.Millisecond)

	assert.ErrorIs(t, cb.Execute(failAlways), errBoom)
	assert.Equal(t, StateOpen, cb.GetState())

	time.Sleep(20 * time.Millisecond)

	// First probe after the timeout succeeds, the breaker closes again.
	assert.NoError(t, cb.Execute(succeed))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New(1, 10*time.Millisecond)

	assert.ErrorIs(t, cb.Execute(failAlways), errBoom)
	time.Sleep(20 * time.Millisecond)

	assert.ErrorIs(t, cb.Execute(failAlways), errBoom)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestSuccessDoesNotResetClosedFailures(t *testing.T) {
	cb := New(2, time.Minute)

	assert.ErrorIs(t, cb.Execute(failAlways), errBoom)
	assert.NoError(t, cb.Execute(succeed))
	assert.ErrorIs(t, cb.Execute(failAlways), errBoom)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestWindowDropsStaleFailures(t *testing.T) {
	cb := NewWithWindow(2, time.Minute, 10*time.Millisecond)

	assert.ErrorIs(t, cb.Execute(failAlways), errBoom)
	time.Sleep(20 * time.Millisecond)

	// The earlier failure aged out, so this one starts a fresh count.
	assert.ErrorIs(t, cb.Execute(failAlways), errBoom)
	assert.Equal(t, StateClosed, cb.GetState())
}
