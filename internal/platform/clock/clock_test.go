package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeAdvanceFiresWaiters(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	done := make(chan struct{})
	go func() {
		c.Sleep(5 * time.Second)
		close(done)
	}()

	c.Advance(3 * time.Second)
	select {
	case <-done:
		t.Fatal("sleep fired before deadline")
	case <-time.After(20 * time.Millisecond):
	}

	c.Advance(2 * time.Second)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sleep did not fire after deadline")
	}
}

func TestJitterBounds(t *testing.T) {
	rng := NewFakeRNG(0, 0.5, 1)
	base := 10 * time.Second
	low := Jitter(rng, base, 0.3)
	mid := Jitter(rng, base, 0.3)
	high := Jitter(rng, base, 0.3)

	assert.Equal(t, time.Duration(float64(base)*0.7), low)
	assert.Equal(t, base, mid)
	assert.Equal(t, time.Duration(float64(base)*1.3), high)
}

func TestFakeRNGCycles(t *testing.T) {
	rng := NewFakeRNG(0.1, 0.2)
	assert.Equal(t, 0.1, rng.Float64())
	assert.Equal(t, 0.2, rng.Float64())
	assert.Equal(t, 0.1, rng.Float64())
}
