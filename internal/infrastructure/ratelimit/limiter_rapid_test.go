package ratelimit

import (
	"context"
	"testing"
	"time"

	"pgregory.net/rapid"

	"wabridge/internal/domain/valueobject"
	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/persistence"
	"wabridge/internal/platform/clock"
)

// Feature: rate limiter. Property 1 & 2: across any random sequence of
// clock advances and admitted sends to a single jid, the hourly/daily
// counters never exceed the tier's caps and two admitted sends are never
// closer together than the tier's minimum interval.
func TestRapidCapsAndIntervalHold_P1P2(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tier := valueobject.TierForAccountAge(rapid.IntRange(1, 260).Draw(rt, "accountAgeWeeks"))
		limits := tier.Limits()

		state := persistence.New(t.TempDir(), logger.NewNop())
		start := time.Now()
		c := clock.NewFake(start)
		l := New(tier, state, c, clock.NewFakeRNG(0.5), logger.NewNop())
		ctx := context.Background()
		jid := "15551234567@s.whatsapp.net"

		var lastAdmitted time.Time
		haveAdmitted := false

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			advanceMs := rapid.IntRange(0, int(limits.MinInterval.Milliseconds())*2+1000).Draw(rt, "advanceMs")
			c.Advance(time.Duration(advanceMs) * time.Millisecond)

			d := l.CheckAndReserve(jid)
			if !d.Allow {
				continue
			}

			now := c.Now()
			if haveAdmitted && now.Sub(lastAdmitted) < limits.MinInterval {
				rt.Fatalf("P2 violated: admitted send only %v after the previous one, want >= %v", now.Sub(lastAdmitted), limits.MinInterval)
			}

			if err := l.Commit(ctx, jid); err != nil {
				rt.Fatalf("commit failed: %v", err)
			}
			lastAdmitted = now
			haveAdmitted = true

			st := l.Status()
			if st.HourlyCount > st.HourlyCap {
				rt.Fatalf("P1 violated: hourlyCount %d > hourlyCap %d", st.HourlyCount, st.HourlyCap)
			}
			if st.DailyCount > st.DailyCap {
				rt.Fatalf("P1 violated: dailyCount %d > dailyCap %d", st.DailyCount, st.DailyCap)
			}
		}
	})
}
