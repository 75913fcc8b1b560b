// Package clock is the single seam every timing decision in the core flows
// through, so tests can inject determinism instead of sleeping for real.
package clock

import (
	"math/rand"
	"sync"
	"time"
)

// Clock is a monotonic-for-intervals, real-time-for-boundaries time source.
// The production implementation wraps the standard library; tests substitute
// a fake that advances on command.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
	After(d time.Duration) <-chan time.Time
}

// RNG is a seeded source of randomness for jitter and the message variator.
// Production wraps math/rand; tests pin a seed for reproducible runs.
type RNG interface {
	Float64() float64
	Intn(n int) int
}

type realClock struct{}

// Real returns the production Clock backed by the standard library.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) Sleep(d time.Duration)                  { time.Sleep(d) }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type realRNG struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRNG returns an RNG seeded from the given value. Production wiring seeds
// from the current time; tests pin a fixed seed.
func NewRNG(seed int64) RNG {
	return &realRNG{rng: rand.New(rand.NewSource(seed))}
}

func (r *realRNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *realRNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// Jitter returns d scaled by a uniform factor in [1-frac, 1+frac].
func Jitter(rng RNG, d time.Duration, frac float64) time.Duration {
	factor := 1 + frac*(2*rng.Float64()-1)
	return time.Duration(float64(d) * factor)
}

// SleepContext sleeps for d on c, or returns early if done is closed first;
// it reports true when the full duration elapsed. Every suspension point in the send pipeline goes
// through this so deadlines and shutdown signals are honored uniformly.
func SleepContext(c Clock, d time.Duration, done <-chan struct{}) bool {
	timer := c.After(d)
	select {
	case <-timer:
		return true
	case <-done:
		return false
	}
}
