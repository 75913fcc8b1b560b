// Package ratelimit implements the sliding hourly/daily counters plus
// minimum-interval gate described in §4.1, parameterized by account-age tier.
package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"

	"wabridge/internal/domain/errors"
	"wabridge/internal/domain/repository"
	"wabridge/internal/domain/valueobject"
	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/persistence"
	"wabridge/internal/platform/clock"
)

const (
	hourlyWindow    = time.Hour
	dailyWindow     = 24 * time.Hour
	flushInterval   = 60 * time.Second
	intervalJitterB = time.Second
)

// Decision is the result of checkAndReserve: either admitted, or denied
// with the scope and wait the caller should surface as RATE_LIMITED.
type Decision struct {
	Allow  bool
	WaitMs int64
	Scope  errors.RateLimitScope
}

// Limiter is the process-wide rate limiter. Safe for concurrent use; the
// hourly/daily logs and last-send timestamps are guarded by one mutex, as
// the spec describes them as shared state under a single lock.
type Limiter struct {
	mu sync.Mutex

	clock clock.Clock
	rng   clock.RNG
	state repository.StateStore
	guard *persistence.DegradeGuard

	tier          valueobject.Tier
	hourly        []time.Time
	daily         []time.Time
	lastSendByJID map[string]time.Time

	dirty      bool
	lastFlush  time.Time
}

// New constructs a Limiter at the given tier. Load must be called once
// before use to hydrate persisted counters.
func New(tier valueobject.Tier, state repository.StateStore, c clock.Clock, rng clock.RNG, log logger.Logger) *Limiter {
	return &Limiter{
		tier:          tier,
		state:         state,
		clock:         c,
		rng:           rng,
		guard:         persistence.NewDegradeGuard("ratelimit", log),
		lastSendByJID: map[string]time.Time{},
	}
}

// Load hydrates the sliding windows and last-send timestamps from disk,
// filtering entries to the 24h retention window.
func (l *Limiter) Load(ctx context.Context) error {
	snap, err := l.state.LoadRateLimits(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.hourly = filterWithin(snap.HourlyTimestamps, now, dailyWindow)
	l.daily = filterWithin(snap.DailyTimestamps, now, dailyWindow)
	l.lastSendByJID = make(map[string]time.Time, len(snap.LastSendByJID))
	for jid, ts := range snap.LastSendByJID {
		l.lastSendByJID[jid] = time.Unix(0, ts)
	}
	return nil
}

func filterWithin(raw []int64, now time.Time, window time.Duration) []time.Time {
	out := make([]time.Time, 0, len(raw))
	for _, ts := range raw {
		t := time.Unix(0, ts)
		if now.Sub(t) < window {
			out = append(out, t)
		}
	}
	return out
}

// SetAccountAge reselects the tier. Counters are never erased; raising the
// tier immediately widens the cap, lowering it may leave counts over the
// new cap, which the next check rejects naturally.
func (l *Limiter) SetAccountAge(weeks int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tier = valueobject.TierForAccountAge(weeks)
}

// Tier returns the limiter's current tier.
func (l *Limiter) Tier() valueobject.Tier {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tier
}

// CheckAndReserve evaluates the three gates in order (§4.1), failing fast
// on the first violation. It does not mutate state; callers that proceed
// must call Commit after a successful send.
func (l *Limiter) CheckAndReserve(jid string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	limits := l.tier.Limits()

	hourly := pruneWindow(l.hourly, now, hourlyWindow)
	if len(hourly) >= limits.HourlyCap {
		wait := oldest(hourly).Add(hourlyWindow).Sub(now)
		return Decision{Allow: false, WaitMs: waitMs(wait), Scope: errors.ScopeHourly}
	}

	daily := pruneWindow(l.daily, now, dailyWindow)
	if len(daily) >= limits.DailyCap {
		wait := oldest(daily).Add(dailyWindow).Sub(now)
		return Decision{Allow: false, WaitMs: waitMs(wait), Scope: errors.ScopeDaily}
	}

	if last, ok := l.lastSendByJID[jid]; ok {
		elapsed := now.Sub(last)
		if elapsed < limits.MinInterval {
			wait := limits.MinInterval - elapsed + clock.Jitter(l.rng, intervalJitterB, 0.5)
			return Decision{Allow: false, WaitMs: waitMs(wait), Scope: errors.ScopeInterval}
		}
	}

	return Decision{Allow: true}
}

func pruneWindow(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	out := ts[:0:0]
	for _, t := range ts {
		if now.Sub(t) < window {
			out = append(out, t)
		}
	}
	return out
}

func oldest(ts []time.Time) time.Time {
	sorted := append([]time.Time(nil), ts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	return sorted[0]
}

func waitMs(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}

// Commit records a successful send: appends now to both logs and updates
// the per-jid last-send timestamp, then persists (coalesced per the flush
// policy below — a commit always marks dirty but may skip the write if one
// just happened within flushInterval).
func (l *Limiter) Commit(ctx context.Context, jid string) error {
	l.mu.Lock()
	now := l.clock.Now()
	l.hourly = append(pruneWindow(l.hourly, now, dailyWindow), now)
	l.daily = append(pruneWindow(l.daily, now, dailyWindow), now)
	l.lastSendByJID[jid] = now
	l.dirty = true
	shouldFlush := now.Sub(l.lastFlush) >= flushInterval
	snap := l.snapshotLocked()
	l.mu.Unlock()

	if !shouldFlush {
		return nil
	}
	return l.flush(ctx, snap)
}

// Flush persists the current counters whenever anything changed since the
// last successful write, regardless of the per-commit coalescing above; it
// is a no-op when nothing is dirty. Used by the background 60s flush job.
func (l *Limiter) Flush(ctx context.Context) error {
	l.mu.Lock()
	if !l.dirty {
		l.mu.Unlock()
		return nil
	}
	snap := l.snapshotLocked()
	l.mu.Unlock()
	return l.flush(ctx, snap)
}

func (l *Limiter) flush(ctx context.Context, snap repository.RateLimitSnapshot) error {
	if l.guard.Degraded() {
		return nil
	}
	err := l.state.SaveRateLimits(ctx, &snap)
	l.guard.Observe(err)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.dirty = false
	l.lastFlush = l.clock.Now()
	l.mu.Unlock()
	return nil
}

func (l *Limiter) snapshotLocked() repository.RateLimitSnapshot {
	snap := repository.RateLimitSnapshot{
		HourlyTimestamps: make([]int64, len(l.hourly)),
		DailyTimestamps:  make([]int64, len(l.daily)),
		LastSendByJID:    make(map[string]int64, len(l.lastSendByJID)),
	}
	for i, t := range l.hourly {
		snap.HourlyTimestamps[i] = t.UnixNano()
	}
	for i, t := range l.daily {
		snap.DailyTimestamps[i] = t.UnixNano()
	}
	for jid, t := range l.lastSendByJID {
		snap.LastSendByJID[jid] = t.UnixNano()
	}
	return snap
}

// Degraded reports whether persistence has been abandoned after two
// consecutive flush failures (§7); counters still work, only durability
// is lost.
func (l *Limiter) Degraded() bool {
	return l.guard.Degraded()
}

// Status reports current usage for the rateLimitStatus() HTTP operation.
type Status struct {
	Tier          valueobject.Tier
	HourlyCount   int
	HourlyCap     int
	DailyCount    int
	DailyCap      int
	ResetInHourly time.Duration
	ResetInDaily  time.Duration
}

func (l *Limiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	limits := l.tier.Limits()
	hourly := pruneWindow(l.hourly, now, hourlyWindow)
	daily := pruneWindow(l.daily, now, dailyWindow)

	st := Status{Tier: l.tier, HourlyCount: len(hourly), HourlyCap: limits.HourlyCap, DailyCount: len(daily), DailyCap: limits.DailyCap}
	if len(hourly) > 0 {
		st.ResetInHourly = oldest(hourly).Add(hourlyWindow).Sub(now)
	}
	if len(daily) > 0 {
		st.ResetInDaily = oldest(daily).Add(dailyWindow).Sub(now)
	}
	return st
}
