package variator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wabridge/internal/platform/clock"
)

// Feature: message variator. Property: sending the same text twice to the
// same jid produces a variant on the second call that differs from the
// original (scenario 5 in §8).
func TestVaryProducesDifferentTextOnRepeat(t *testing.T) {
	v := New(clock.NewFakeRNG(0))

	first := v.Vary("jid", "Hello")
	assert.Equal(t, "Hello", first.Text)
	assert.False(t, first.Varied)

	second := v.Vary("jid", "Hello")
	assert.True(t, second.Varied)
	assert.NotEqual(t, "Hello", second.Text)
}

func TestVaryLeavesFreshTextUnchanged(t *testing.T) {
	v := New(clock.NewFakeRNG(0))
	r := v.Vary("jid", "a unique message")
	assert.Equal(t, "a unique message", r.Text)
	assert.False(t, r.Varied)
}
