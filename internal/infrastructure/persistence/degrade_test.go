package persistence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"wabridge/internal/infrastructure/logger"
)

func TestDegradeGuardTripsOnSecondConsecutiveFailure(t *testing.T) {
	g := NewDegradeGuard("test", logger.NewNop())

	g.Observe(errors.New("boom"))
	assert.False(t, g.Degraded(), "a single failure is non-fatal")

	g.Observe(errors.New("boom again"))
	assert.True(t, g.Degraded(), "second consecutive failure trips the guard")
}

func TestDegradeGuardResetsOnSuccess(t *testing.T) {
	g := NewDegradeGuard("test", logger.NewNop())

	g.Observe(errors.New("boom"))
	g.Observe(nil)
	g.Observe(errors.New("boom"))
	assert.False(t, g.Degraded(), "a success between failures resets the streak")
}
