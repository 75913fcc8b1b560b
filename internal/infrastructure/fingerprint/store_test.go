package fingerprint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wabridge/internal/infrastructure/logger"
	"wabridge/internal/infrastructure/persistence"
	"wabridge/internal/platform/clock"
)

func TestGetWritesLegacyTripleOnFirstCall(t *testing.T) {
	dir := t.TempDir()
	state := persistence.New(dir, logger.NewNop())
	c := clock.NewFake(time.Now())
	store := New(state, c, clock.NewFakeRNG(0.1), logger.NewNop(), nil, nil)

	fp, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, legacyTriple.OS, fp.OS)
	assert.Equal(t, 0, fp.RotationCount)
}

func TestGetRotatesAfterWindow(t *testing.T) {
	dir := t.TempDir()
	state := persistence.New(dir, logger.NewNop())
	c := clock.NewFake(time.Now())
	store := New(state, c, clock.NewFakeRNG(0.9), logger.NewNop(), nil, nil)
	ctx := context.Background()

	first, err := store.Get(ctx)
	require.NoError(t, err)

	c.Advance(49 * time.Hour)
	second, err := store.Get(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, first.RotationCount+1, second.RotationCount)
	assert.NotEqual(t, first.Product, second.Product)
}
