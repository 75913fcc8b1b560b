package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wabridge/internal/domain/entity"
	"wabridge/internal/platform/clock"
)

type recordingBeacon struct {
	mu     sync.Mutex
	states []entity.PresenceState
}

func (b *recordingBeacon) PresenceUpdate(ctx context.Context, state entity.PresenceState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = append(b.states, state)
	return nil
}

func (b *recordingBeacon) snapshot() []entity.PresenceState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]entity.PresenceState(nil), b.states...)
}

func TestActiveWindowContains(t *testing.T) {
	w := ActiveWindow{Start: 8 * time.Hour, End: 20 * time.Hour}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, w.Contains(base.Add(9*time.Hour)))
	assert.False(t, w.Contains(base.Add(21*time.Hour)))
}

func TestCyclerStaysOfflineOutsideActiveHours(t *testing.T) {
	beacon := &recordingBeacon{}
	start := time.Date(2026, 1, 1, 22, 0, 0, 0, time.UTC)
	c := clock.NewFake(start)
	window := ActiveWindow{Start: 8 * time.Hour, End: 20 * time.Hour}
	cycler := New(beacon, c, clock.NewFakeRNG(0.5), window, func() bool { return true }, func() bool { return false })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cycler.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for len(beacon.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	for _, s := range beacon.snapshot() {
		assert.Equal(t, entity.PresenceOffline, s)
	}
}
