// Package presence implements the background presence cycler described in
// §4.9: it toggles the global online/offline beacon in human cadence during
// configured active hours, and never gates sending.
package presence

import (
	"context"
	"time"

	"wabridge/internal/domain/entity"
	"wabridge/internal/platform/clock"
)

const (
	onlineMin  = 5 * time.Minute
	onlineMax  = 45 * time.Minute
	offlineMin = 2 * time.Minute
	offlineMax = 15 * time.Minute
)

// Beacon is the collaborator the cycler drives: a global presence update,
// distinct from the per-jid composing/paused updates the send pipeline
// issues directly.
type Beacon interface {
	PresenceUpdate(ctx context.Context, state entity.PresenceState) error
}

// ActiveWindow is the wall-clock local active-hours window.
type ActiveWindow struct {
	Start time.Duration // offset from midnight
	End   time.Duration
}

// Contains reports whether t's local time-of-day falls within the window.
func (w ActiveWindow) Contains(t time.Time) bool {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := t.Sub(midnight)
	if w.Start <= w.End {
		return offset >= w.Start && offset < w.End
	}
	// window wraps past midnight
	return offset >= w.Start || offset < w.End
}

// Cycler drives the global presence beacon. Run blocks until ctx is
// canceled; call it from a single long-lived goroutine.
type Cycler struct {
	beacon Beacon
	clock  clock.Clock
	rng    clock.RNG
	window ActiveWindow

	isOpen       func() bool
	isHibernated func() bool
}

// New returns a Cycler. isOpen and isHibernated are polled before each
// phase to decide whether the cycler should be driving presence at all.
func New(beacon Beacon, c clock.Clock, rng clock.RNG, window ActiveWindow, isOpen, isHibernated func() bool) *Cycler {
	return &Cycler{beacon: beacon, clock: c, rng: rng, window: window, isOpen: isOpen, isHibernated: isHibernated}
}

// Run alternates ONLINE/OFFLINE phases within active hours, staying OFFLINE
// outside them, until ctx is done.
func (c *Cycler) Run(ctx context.Context) {
	online := false
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !c.isOpen() || c.isHibernated() || !c.window.Contains(c.clock.Now()) {
			c.setState(ctx, entity.PresenceOffline)
			online = false
			if !clock.SleepContext(c.clock, time.Minute, ctx.Done()) {
				return
			}
			continue
		}

		var phase time.Duration
		if online {
			c.setState(ctx, entity.PresenceOnline)
			phase = c.sample(onlineMin, onlineMax)
		} else {
			c.setState(ctx, entity.PresenceOffline)
			phase = c.sample(offlineMin, offlineMax)
		}
		online = !online

		if !clock.SleepContext(c.clock, phase, ctx.Done()) {
			return
		}
	}
}

func (c *Cycler) sample(min, max time.Duration) time.Duration {
	span := max - min
	return min + time.Duration(c.rng.Float64()*float64(span))
}

func (c *Cycler) setState(ctx context.Context, state entity.PresenceState) {
	_ = c.beacon.PresenceUpdate(ctx, state)
}
