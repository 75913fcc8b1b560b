package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wabridge/internal/domain/entity"
	"wabridge/internal/domain/repository"
	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/persistence"
	"wabridge/internal/platform/clock"
)

// failingStore fails every SaveActivity call, exercising §7's
// consecutive-failure degrade policy.
type failingStore struct {
	repository.StateStore
}

func (failingStore) SaveActivity(ctx context.Context, counters *entity.ActivityCounters) error {
	return errors.New("disk full")
}

func TestResponseRatioAfterRecording(t *testing.T) {
	state := persistence.New(t.TempDir(), logger.NewNop())
	c := clock.NewFake(time.Now())
	tr := New(state, c, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, tr.RecordSent(ctx))
	require.NoError(t, tr.RecordSent(ctx))
	require.NoError(t, tr.RecordReceived(ctx))

	snap := tr.Snapshot()
	assert.Equal(t, 0.5, snap.ResponseRatio())
}

func TestLoadHydratesFromDisk(t *testing.T) {
	dir := t.TempDir()
	state := persistence.New(dir, logger.NewNop())
	c := clock.NewFake(time.Now())
	tr := New(state, c, logger.NewNop())
	ctx := context.Background()
	require.NoError(t, tr.RecordSent(ctx))

	fresh := New(state, c, logger.NewNop())
	require.NoError(t, fresh.Load(ctx))
	assert.Equal(t, int64(1), fresh.Snapshot().Sent)
}

// Feature: activity tracker. Property: a second consecutive persistence
// failure degrades the tracker to in-memory-only operation with no further
// error surfaced (§7).
func TestRecordSentDegradesToInMemoryAfterTwoConsecutiveFailures(t *testing.T) {
	state := persistence.New(t.TempDir(), logger.NewNop())
	c := clock.NewFake(time.Now())
	tr := New(state, c, logger.NewNop())
	tr.state = failingStore{StateStore: tr.state}
	ctx := context.Background()

	assert.Error(t, tr.RecordSent(ctx))
	assert.False(t, tr.guard.Degraded())

	assert.Error(t, tr.RecordSent(ctx))
	assert.True(t, tr.guard.Degraded())

	assert.NoError(t, tr.RecordSent(ctx), "degraded guard skips the write entirely")
}
