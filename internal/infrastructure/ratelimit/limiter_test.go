package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "wabridge/internal/domain/errors"
	"wabridge/internal/domain/repository"
	"wabridge/internal/domain/valueobject"
	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/persistence"
	"wabridge/internal/platform/clock"
)

// failingStore wraps a real StateStore but fails every SaveRateLimits call,
// exercising §7's consecutive-failure degrade policy.
type failingStore struct {
	repository.StateStore
}

func (failingStore) SaveRateLimits(ctx context.Context, snap *repository.RateLimitSnapshot) error {
	return errors.New("disk full")
}

func newLimiter(t *testing.T, tier valueobject.Tier) (*Limiter, *clock.Fake) {
	t.Helper()
	state := persistence.New(t.TempDir(), logger.NewNop())
	c := clock.NewFake(time.Now())
	l := New(tier, state, c, clock.NewFakeRNG(0.5), logger.NewNop())
	require.NoError(t, l.Load(context.Background()))
	return l, c
}

// Feature: rate limiter. Property 1: FRESH tier saturates at its hourly cap
// and reports the HOURLY scope with the expected wait (scenario 1 in §8).
func TestFreshTierSaturates(t *testing.T) {
	l, c := newLimiter(t, valueobject.TierFresh)
	ctx := context.Background()

	// Each send goes to its own recipient, so the per-jid minimum interval
	// never applies and only the shared hourly cap is exercised.
	for i := 0; i < 5; i++ {
		jid := fmt.Sprintf("1555123456%d@s.whatsapp.net", i)
		d := l.CheckAndReserve(jid)
		require.True(t, d.Allow, "send %d should be admitted", i)
		require.NoError(t, l.Commit(ctx, jid))
		c.Advance(time.Second)
	}

	d := l.CheckAndReserve("15551234565@s.whatsapp.net")
	assert.False(t, d.Allow)
	assert.Equal(t, domainerrors.ScopeHourly, d.Scope)
	assert.InDelta(t, 3594_000, d.WaitMs, 2000)
}

// Feature: rate limiter. Property 2: MATURE tier enforces the minimum
// interval between sends to the same jid (scenario 2 in §8).
func TestIntervalEnforcement(t *testing.T) {
	l, c := newLimiter(t, valueobject.TierMature)
	ctx := context.Background()
	jid := "15551234567@s.whatsapp.net"

	require.True(t, l.CheckAndReserve(jid).Allow)
	require.NoError(t, l.Commit(ctx, jid))

	c.Advance(10 * time.Second)
	d := l.CheckAndReserve(jid)
	assert.False(t, d.Allow)
	assert.Equal(t, domainerrors.ScopeInterval, d.Scope)
	assert.InDelta(t, 20_000, d.WaitMs, 10_000)
}

func TestSetAccountAgeNeverErasesCounters(t *testing.T) {
	l, c := newLimiter(t, valueobject.TierMature)
	ctx := context.Background()
	jid := "15551234567@s.whatsapp.net"

	for i := 0; i < 6; i++ {
		require.True(t, l.CheckAndReserve(jid).Allow)
		require.NoError(t, l.Commit(ctx, jid))
		c.Advance(40 * time.Second)
	}

	l.SetAccountAge(1)
	assert.Equal(t, valueobject.TierFresh, l.Tier())

	d := l.CheckAndReserve(jid)
	assert.False(t, d.Allow)
	assert.Equal(t, domainerrors.ScopeHourly, d.Scope)
}

// Flush persists whatever Commit left coalesced, independent of the 60s gate.
func TestFlushPersistsDirtyCounters(t *testing.T) {
	state := persistence.New(t.TempDir(), logger.NewNop())
	c := clock.NewFake(time.Now())
	l := New(valueobject.TierMature, state, c, clock.NewFakeRNG(0.5), logger.NewNop())
	require.NoError(t, l.Load(context.Background()))

	ctx := context.Background()
	jid := "15551234567@s.whatsapp.net"
	require.True(t, l.CheckAndReserve(jid).Allow)
	require.NoError(t, l.Commit(ctx, jid))

	require.NoError(t, l.Flush(ctx))

	reloaded := New(valueobject.TierMature, state, c, clock.NewFakeRNG(0.5), logger.NewNop())
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, 1, reloaded.Status().HourlyCount)
}

// Feature: rate limiter. Property: a second consecutive persistence failure
// degrades the limiter to in-memory-only operation with no further error
// surfaced to Commit's caller (§7).
func TestFlushDegradesToInMemoryAfterTwoConsecutiveFailures(t *testing.T) {
	state := persistence.New(t.TempDir(), logger.NewNop())
	c := clock.NewFake(time.Now())
	l := New(valueobject.TierMature, state, c, clock.NewFakeRNG(0.5), logger.NewNop())
	require.NoError(t, l.Load(context.Background()))
	l.state = failingStore{StateStore: l.state}

	ctx := context.Background()
	jid := "15551234567@s.whatsapp.net"

	require.True(t, l.CheckAndReserve(jid).Allow)
	l.dirty = true
	err := l.Flush(ctx)
	assert.Error(t, err, "first failure surfaces")
	assert.False(t, l.guard.Degraded())

	l.dirty = true
	err = l.Flush(ctx)
	assert.Error(t, err, "second failure surfaces")
	assert.True(t, l.guard.Degraded())

	l.dirty = true
	assert.NoError(t, l.Flush(ctx), "degraded guard skips the write entirely")
}
