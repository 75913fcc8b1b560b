package reconnect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wabridge/internal/domain/valueobject"
	"wabridge/internal/platform/clock"
)

// Feature: reconnection manager. Property 5/scenario 6: backoff delays
// double each retry up to the cap, stay within ±50% jitter of nominal, and
// reset to the initial delay after a successful OPEN.
func TestBackoffSequence_Scenario6(t *testing.T) {
	c := clock.NewFake(time.Now())
	rng := clock.NewFakeRNG(0.4)
	m := New(DefaultConfig(), c, rng)

	nominal := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}

	m.Start()
	require.Equal(t, valueobject.StateConnecting, m.State())

	for i, nom := range nominal {
		delay := m.NextDelay()
		low := time.Duration(float64(nom) * 1.3)
		high := time.Duration(float64(nom) * 1.5)
		assert.GreaterOrEqualf(t, delay, low, "attempt %d delay too small", i+1)
		assert.LessOrEqualf(t, delay, high, "attempt %d delay too large", i+1)

		m.ClosedRetryable()
		m.TimerFired()
	}

	// after a successful OPEN the next delay resets to the initial window
	m.Opened()
	m.ClosedRetryable()
	m.TimerFired()
	delay := m.NextDelay()
	assert.GreaterOrEqual(t, delay, time.Duration(float64(time.Second)*1.3))
	assert.LessOrEqual(t, delay, time.Duration(float64(time.Second)*1.5))
}

func TestGiveUpAfterThreshold(t *testing.T) {
	cfg := Config{Initial: time.Millisecond, Cap: time.Second, GiveUpAfter: 3}
	m := New(cfg, clock.NewFake(time.Now()), clock.NewFakeRNG(0.1))

	m.Start()
	assert.False(t, m.GaveUp())
	for i := 0; i < 2; i++ {
		m.ClosedRetryable()
		m.TimerFired()
	}
	assert.True(t, m.GaveUp())
}

func TestDispositionIsFatalClassification(t *testing.T) {
	assert.True(t, DispositionLoggedOut.IsFatal())
	assert.True(t, DispositionBadSession.IsFatal())
	assert.False(t, Disposition("CONN_RESET").IsFatal())
}
